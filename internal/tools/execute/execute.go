// Package execute implements sandboxed, resource-limited OS-process
// execution of untrusted source. Process-group lifecycle (Setpgid, group
// signaling, resource-usage extraction) follows the standard
// setupProcessGroup/killProcessGroup/rlimit pattern for isolating a
// child on Unix. Rlimits are applied through a `sh -c 'ulimit ...; exec
// ...'` preamble rather than a native pre-exec hook: os/exec gives no
// hook between fork and exec in the child. Isolation beyond OS-process
// plus resource limits (cgroups, namespaces, a firejail-style sandbox)
// is out of scope for now.
package execute

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/ultimatemcp/platform/internal/apierr"
	"github.com/ultimatemcp/platform/internal/audit"
	"github.com/ultimatemcp/platform/internal/cache"
	"github.com/ultimatemcp/platform/internal/validation"
)

// FailureReason classifies a completed-but-unsuccessful execution. An
// empty reason means the process exited zero.
type FailureReason string

const (
	ReasonNone           FailureReason = ""
	ReasonTimeout        FailureReason = "timeout"
	ReasonMemoryExceeded FailureReason = "memory_exceeded"
	ReasonNonZeroExit    FailureReason = "non_zero_exit"
)

// killGrace is the pause between SIGTERM and SIGKILL when a timed-out
// process group refuses to exit.
const killGrace = 500 * time.Millisecond

// Limits bounds a single execution.
type Limits struct {
	TimeoutSeconds int   // default 8, max 30
	MemoryBytes    int64 // RLIMIT_AS
	FileSizeBytes  int64 // RLIMIT_FSIZE
	OutputBytes    int   // O_MAX per stream, default 100KiB
}

func (l Limits) withDefaults() Limits {
	if l.TimeoutSeconds <= 0 {
		l.TimeoutSeconds = 8
	}
	if l.TimeoutSeconds > 30 {
		l.TimeoutSeconds = 30
	}
	if l.MemoryBytes <= 0 {
		l.MemoryBytes = 256 * 1024 * 1024
	}
	if l.FileSizeBytes <= 0 {
		l.FileSizeBytes = 10 * 1024 * 1024
	}
	if l.OutputBytes <= 0 {
		l.OutputBytes = 100 * 1024
	}
	return l
}

// Request is one execution request. UseCache opts this single call into
// the result cache per spec's explicit opt-in-not-opt-out rule:
// side-effecting code must always re-run unless the caller asks
// otherwise.
type Request struct {
	Source        []byte
	Language      string
	Strict        bool
	Stdin         string
	UseCache      bool
	Limits        Limits
	UserID        string
	CorrelationID string
}

// Result is what Execute returns; a non-nil Result with Reason != "" is
// not an error, it's a completed execution that did not succeed.
type Result struct {
	ID              string
	CodeHash        string
	Stdout          string
	Stderr          string
	ExitCode        int
	Reason          FailureReason
	StdoutTruncated bool
	StderrTruncated bool
	DurationMs      int64
	PeakMemoryBytes int64
	CacheHit        bool
}

// interpreters maps a supported language to its interpreter binary.
var interpreters = map[string]string{
	"python": "python3",
}

// graphClient is the narrow seam Service needs from the graph client.
type graphClient interface {
	ExecuteWrite(ctx context.Context, query string, params map[string]any, touchedLabels []string) error
}

// resultCacheTTL is how long an opt-in cached execution result is
// served before a re-run is forced, independent of C6's configured
// default TTL since execution results are keyed and governed by this
// package alone.
const resultCacheTTL = 5 * time.Minute

// Service runs the execute_code tool.
type Service struct {
	validator *validation.CodeValidator
	pool      *Pool
	client    graphClient
	auditLog  *audit.Logger
	cache     *cache.Cache[string, *Result]
}

// NewService builds an execute Service. auditLog may be nil to skip
// audit-event emission (tests typically pass nil).
func NewService(validator *validation.CodeValidator, pool *Pool, client graphClient, auditLog *audit.Logger) *Service {
	if pool == nil {
		pool = NewPool(0)
	}
	return &Service{validator: validator, pool: pool, client: client, auditLog: auditLog}
}

// WithCache enables the opt-in execution-result cache (spec.md §4.8,
// §9: execution caching is opt-in, never the default). Calls with
// Request.UseCache=false always re-run, even with a cache configured.
func (s *Service) WithCache(c *cache.Cache[string, *Result]) *Service {
	s.cache = c
	return s
}

// resultCacheKey derives the code_hash+language+limits key spec.md
// §4.8 requires for opt-in execution-result caching, via the same
// stable-serialize-then-hash idiom C6's FunctionKey uses for function
// caching.
func resultCacheKey(codeHash, language string, limits Limits) string {
	return cache.FunctionKey("execute_code", struct {
		CodeHash string
		Language string
		Limits   Limits
	}{codeHash, language, limits}, nil)
}

// Execute validates source, then runs it through the worker pool under
// resource limits, persists an ExecutionResult, and returns a Result.
// Only UnsupportedLanguage/ValidationFailed/SpawnFailed/Internal failures
// are returned as error; Timeout/MemoryExceeded/NonZeroExit are reported
// in the returned Result's Reason field instead — a completed sandboxed
// run that didn't succeed is not itself a pipeline error.
func (s *Service) Execute(ctx context.Context, req Request) (*Result, error) {
	interpreter, ok := interpreters[req.Language]
	if !ok {
		return nil, apierr.New(apierr.KindInvalidInput, "unsupported language: "+req.Language)
	}

	if err := s.validator.Validate(req.Source, req.Language, req.Strict); err != nil {
		return nil, err
	}

	limits := req.Limits.withDefaults()

	var cacheKey string
	if req.UseCache && s.cache != nil {
		cacheKey = resultCacheKey(hashSource(req.Source), req.Language, limits)
		if cached, ok := s.cache.Get(cacheKey); ok {
			hit := *cached
			hit.ID = uuid.NewString()
			hit.CacheHit = true
			if perr := s.persist(ctx, &hit); perr != nil {
				return &hit, perr
			}
			s.emitAudit(ctx, req, &hit)
			return &hit, nil
		}
	}

	result, err := s.pool.Run(ctx, func(ctx context.Context) (*Result, error) {
		return s.runOnce(ctx, interpreter, req, limits)
	})
	if err != nil {
		return nil, err
	}

	if cacheKey != "" {
		s.cache.Set(cacheKey, result, resultCacheTTL)
	}

	if perr := s.persist(ctx, result); perr != nil {
		return result, perr
	}
	s.emitAudit(ctx, req, result)
	return result, nil
}

// emitAudit records the code_exec audit event every execution — cached
// or freshly run — must produce, tagging cache_hit per spec.md §4.8's
// "a cache hit... MUST still emit an audit event (tagged cache_hit=true)".
func (s *Service) emitAudit(ctx context.Context, req Request, result *Result) {
	if s.auditLog == nil {
		return
	}
	severity := audit.SeverityInfo
	if result.Reason != ReasonNone {
		severity = audit.SeverityWarning
	}
	s.auditLog.Record(ctx, audit.Event{
		Type:          audit.TypeCodeExec,
		UserID:        req.UserID,
		CorrelationID: req.CorrelationID,
		Severity:      severity,
		Attributes: map[string]any{
			"code_hash":   result.CodeHash,
			"exit_code":   result.ExitCode,
			"reason":      string(result.Reason),
			"duration_ms": result.DurationMs,
			"cache_hit":   result.CacheHit,
		},
	})
}

func (s *Service) runOnce(ctx context.Context, interpreter string, req Request, limits Limits) (*Result, error) {
	workDir, err := os.MkdirTemp("", "ultimatemcp-exec-*")
	if err != nil {
		return nil, apierr.Wrap(apierr.KindInternal, "failed to create sandbox directory", err)
	}
	defer os.RemoveAll(workDir)
	if err := os.Chmod(workDir, 0o700); err != nil {
		return nil, apierr.Wrap(apierr.KindInternal, "failed to secure sandbox directory", err)
	}

	sourcePath := filepath.Join(workDir, "source.py")
	if err := os.WriteFile(sourcePath, req.Source, 0o600); err != nil {
		return nil, apierr.Wrap(apierr.KindInternal, "failed to write source file", err)
	}

	execCtx, cancel := context.WithTimeout(ctx, time.Duration(limits.TimeoutSeconds)*time.Second)
	defer cancel()

	script := ulimitPreamble(limits) + fmt.Sprintf(`exec %q %q`, interpreter, sourcePath)
	cmd := exec.Command("sh", "-c", script)
	cmd.Dir = workDir
	cmd.Env = allowlistedEnv()
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var stdin bytes.Buffer
	stdin.WriteString(req.Stdin)
	cmd.Stdin = &stdin

	stdout := newLimitedWriter(limits.OutputBytes)
	stderr := newLimitedWriter(limits.OutputBytes)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, apierr.Wrap(apierr.KindInternal, "failed to spawn sandboxed process", err)
	}

	waitErr := make(chan error, 1)
	go func() { waitErr <- cmd.Wait() }()

	timedOut := false
	var runErr error
	select {
	case runErr = <-waitErr:
	case <-execCtx.Done():
		timedOut = true
		killProcessGroup(cmd.Process.Pid)
		select {
		case runErr = <-waitErr:
		case <-time.After(killGrace):
			syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
			runErr = <-waitErr
		}
	}
	duration := time.Since(start)

	exitCode := 0
	reason := ReasonNone
	switch {
	case timedOut:
		reason = ReasonTimeout
		exitCode = -1
	case runErr != nil:
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
			if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
				sig := status.Signal()
				if sig == syscall.SIGKILL || sig == syscall.SIGSEGV || sig == syscall.SIGBUS || sig == syscall.SIGXFSZ {
					reason = ReasonMemoryExceeded
				} else {
					reason = ReasonNonZeroExit
				}
			} else {
				reason = ReasonNonZeroExit
			}
		} else {
			return nil, apierr.Wrap(apierr.KindInternal, "sandboxed process failed to run", runErr)
		}
	}

	sum := hashSource(req.Source)
	return &Result{
		ID:              uuid.NewString(),
		CodeHash:        sum,
		Stdout:          stdout.String(),
		Stderr:          stderr.String(),
		ExitCode:        exitCode,
		Reason:          reason,
		StdoutTruncated: stdout.truncated,
		StderrTruncated: stderr.truncated,
		DurationMs:      duration.Milliseconds(),
		PeakMemoryBytes: peakRSSBytes(cmd),
	}, nil
}

// peakRSSBytes reports the child's peak resident-set size where the OS
// exposes it via wait4 rusage, grounded on
// theRebelliousNerd-codenerd/internal/tactile/platform_unix.go's
// getProcessResourceUsage. On Linux, Maxrss is in kilobytes, so it is
// scaled to bytes here.
func peakRSSBytes(cmd *exec.Cmd) int64 {
	if cmd.ProcessState == nil {
		return 0
	}
	rusage, ok := cmd.ProcessState.SysUsage().(*syscall.Rusage)
	if !ok || rusage == nil {
		return 0
	}
	return int64(rusage.Maxrss) * 1024
}

// killProcessGroup sends SIGTERM to the whole process group, the first
// half of the SIGTERM→grace→SIGKILL sequence requires.
func killProcessGroup(pid int) {
	pgid, err := syscall.Getpgid(pid)
	if err != nil {
		pgid = pid
	}
	_ = syscall.Kill(-pgid, syscall.SIGTERM)
}

// ulimitPreamble renders the shell ulimit commands that apply this
// request's resource limits to the child before it execs the real
// interpreter, the portable substitute for a native pre-exec rlimit
// hook. Units: ulimit -v is KB, -f is 512-byte blocks, -t is seconds.
func ulimitPreamble(l Limits) string {
	memKB := l.MemoryBytes / 1024
	fileBlocks := l.FileSizeBytes / 512
	return fmt.Sprintf("ulimit -v %d; ulimit -f %d; ulimit -t %d; ulimit -u 64; ", memKB, fileBlocks, l.TimeoutSeconds+2)
}

// allowlistedEnv strips the sandboxed process down to the minimum
// environment it needs to locate its interpreter and standard library.
func allowlistedEnv() []string {
	return []string{
		"PATH=/usr/bin:/bin",
		"LANG=C.UTF-8",
		"HOME=/nonexistent",
	}
}

func hashSource(source []byte) string {
	sum := sha256.Sum256(source)
	return hex.EncodeToString(sum[:])
}

func (s *Service) persist(ctx context.Context, r *Result) error {
	const query = `
MERGE (x:ExecutionResult {id: $id})
SET x.code_hash = $code_hash,
    x.exit_code = $exit_code,
    x.reason = $reason,
    x.duration_ms = $duration_ms,
    x.peak_memory_bytes = $peak_memory_bytes,
    x.stdout_truncated = $stdout_truncated,
    x.stderr_truncated = $stderr_truncated,
    x.stdout = $stdout,
    x.stderr = $stderr,
    x.timestamp = timestamp()`

	params := map[string]any{
		"id":                r.ID,
		"code_hash":         r.CodeHash,
		"exit_code":         r.ExitCode,
		"reason":            string(r.Reason),
		"duration_ms":       r.DurationMs,
		"peak_memory_bytes": r.PeakMemoryBytes,
		"stdout_truncated":  r.StdoutTruncated,
		"stderr_truncated":  r.StderrTruncated,
		"stdout":            r.Stdout,
		"stderr":            r.Stderr,
	}
	return s.client.ExecuteWrite(ctx, query, params, []string{"ExecutionResult"})
}

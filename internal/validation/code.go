// Package validation implements the AST-based code validator, the
// graph-query mutation guard, and the identifier/path checkers that
// every tool in internal/tools calls before doing anything else. The
// parsing approach is grounded on the teacher pack's tree-sitter usage
// in theRebelliousNerd-codenerd/internal/world/python_parser.go: parse
// first, walk the real tree, never trust a regex alone.
package validation

import (
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/ultimatemcp/platform/internal/apierr"
)

// Limits bounds a single Validate call. Zero values fall back to the
// package defaults.
type Limits struct {
	SourceMaxBytes int // S_MAX
	DepthMax       int // D_MAX
	NodeCountMax   int // N_MAX
}

const (
	defaultSourceMaxBytes = 100 * 1024
	defaultDepthMax       = 200
	defaultNodeCountMax   = 20000
)

func (l Limits) withDefaults() Limits {
	if l.SourceMaxBytes <= 0 {
		l.SourceMaxBytes = defaultSourceMaxBytes
	}
	if l.DepthMax <= 0 {
		l.DepthMax = defaultDepthMax
	}
	if l.NodeCountMax <= 0 {
		l.NodeCountMax = defaultNodeCountMax
	}
	return l
}

// dangerousModules is the default module denylist. Configurable via
// CodeValidator.DangerousModules.
var dangerousModules = map[string]bool{
	"os": true, "os.path": true, "subprocess": true, "socket": true,
	"asyncio": true, "selectors": true, "signal": true,
	"shutil": true, "pathlib": true, "tempfile": true, "glob": true,
	"importlib": true, "imp": true, "pkgutil": true,
	"ctypes": true, "ctypes.util": true, "mmap": true,
	"multiprocessing": true, "threading": true, "resource": true,
	"sysconfig": true, "pty": true, "fcntl": true, "posix": true,
}

// networkModules is layered onto dangerousModules in strict mode.
var networkModules = map[string]bool{
	"http": true, "http.client": true, "urllib": true, "urllib.request": true,
	"ftplib": true, "telnetlib": true, "smtplib": true, "asyncio.base_events": true,
}

// dangerousFunctions is the default bare-callee denylist.
var dangerousFunctions = map[string]bool{
	"eval": true, "exec": true, "compile": true, "__import__": true,
	"input": true, "help": true, "globals": true, "locals": true, "vars": true,
	"getattr": true, "setattr": true, "delattr": true,
}

// dangerousDunders names interpreter-internal attributes that must never
// be reached, directly or through a subscript.
var dangerousDunders = map[string]bool{
	"__builtins__": true, "__globals__": true, "__import__": true,
	"__subclasses__": true, "__mro__": true, "__dict__": true,
	"__class__": true, "__bases__": true, "__code__": true,
	"__closure__": true, "__func__": true, "__self__": true,
}

// CodeValidator walks a tree-sitter parse tree looking for the
// constructs forbids. The parser is keyed by language so
// additional grammars can be registered without changing callers.
type CodeValidator struct {
	Limits             Limits
	DangerousModules   map[string]bool
	DangerousFunctions map[string]bool
	DangerousDunders   map[string]bool
	NetworkModules     map[string]bool

	parsers map[string]*sitter.Parser
}

// NewCodeValidator builds a validator with Python registered, the only
// grammar this system ships a parser for today.
func NewCodeValidator() *CodeValidator {
	py := sitter.NewParser()
	py.SetLanguage(python.GetLanguage())

	return &CodeValidator{
		Limits:             Limits{}.withDefaults(),
		DangerousModules:   dangerousModules,
		DangerousFunctions: dangerousFunctions,
		DangerousDunders:   dangerousDunders,
		NetworkModules:     networkModules,
		parsers:            map[string]*sitter.Parser{"python": py},
	}
}

// Validate parses source in the given language and rejects it if it
// contains any construct forbids, or exceeds the
// configured size/shape limits. strict additionally denies network I/O.
func (v *CodeValidator) Validate(source []byte, language string, strict bool) error {
	limits := v.Limits.withDefaults()

	if len(source) > limits.SourceMaxBytes {
		return apierr.New(apierr.KindInvalidInput,
			fmt.Sprintf("source exceeds maximum size of %d bytes", limits.SourceMaxBytes))
	}

	parser, ok := v.parsers[language]
	if !ok {
		return apierr.New(apierr.KindInvalidInput, "unsupported language: "+language)
	}

	tree, err := parser.ParseCtx(nil, nil, source)
	if err != nil {
		return apierr.Wrap(apierr.KindInvalidInput, "failed to parse source", err)
	}
	defer tree.Close()

	root := tree.RootNode()

	nodeCount := 0
	var walk func(n *sitter.Node, depth int) error
	walk = func(n *sitter.Node, depth int) error {
		nodeCount++
		if nodeCount > limits.NodeCountMax {
			return apierr.New(apierr.KindInvalidInput,
				fmt.Sprintf("source exceeds maximum node count of %d", limits.NodeCountMax))
		}
		if depth > limits.DepthMax {
			return apierr.New(apierr.KindInvalidInput,
				fmt.Sprintf("source exceeds maximum AST depth of %d", limits.DepthMax))
		}

		if err := v.checkNode(n, source, strict); err != nil {
			return err
		}

		for i := 0; i < int(n.NamedChildCount()); i++ {
			if err := walk(n.NamedChild(i), depth+1); err != nil {
				return err
			}
		}
		return nil
	}

	return walk(root, 0)
}

func (v *CodeValidator) checkNode(n *sitter.Node, source []byte, strict bool) error {
	text := func(n *sitter.Node) string { return string(source[n.StartByte():n.EndByte()]) }

	switch n.Type() {
	case "import_statement", "import_from_statement":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			child := n.NamedChild(i)
			if child.Type() != "dotted_name" && child.Type() != "identifier" {
				continue
			}
			module := text(child)
			if v.DangerousModules[module] || v.rootDenied(module) {
				return denyf(n, "import of disallowed module %q", module)
			}
			if strict && (v.NetworkModules[module] || v.rootNetworkDenied(module)) {
				return denyf(n, "import of network module %q is disallowed in strict mode", module)
			}
		}

	case "call":
		fn := n.ChildByFieldName("function")
		if fn == nil {
			break
		}
		switch fn.Type() {
		case "identifier":
			name := text(fn)
			if v.DangerousFunctions[name] {
				return denyf(n, "call to disallowed function %q", name)
			}
			if name == "open" && isWriteModeOpen(n, source) {
				return denyf(n, "open() in write mode is disallowed")
			}
		case "attribute":
			attr := fn.ChildByFieldName("attribute")
			if attr != nil && v.DangerousDunders[text(attr)] {
				return denyf(n, "call through interpreter-internal attribute %q", text(attr))
			}
		}

	case "attribute":
		attr := n.ChildByFieldName("attribute")
		if attr != nil && v.DangerousDunders[text(attr)] {
			return denyf(n, "access to interpreter-internal attribute %q", text(attr))
		}

	case "subscript":
		// globals()['__builtins__'] and friends: reject when the
		// subscript key is a string literal naming a dangerous dunder.
		for i := 0; i < int(n.NamedChildCount()); i++ {
			child := n.NamedChild(i)
			if child.Type() == "string" {
				key := strings.Trim(text(child), `"'`)
				if v.DangerousDunders[key] {
					return denyf(n, "subscript access to interpreter-internal name %q", key)
				}
			}
		}
	}
	return nil
}

// rootDenied checks whether the first dotted-path segment of module is
// itself denylisted (e.g. "os.path" denies via "os").
func (v *CodeValidator) rootDenied(module string) bool {
	root := strings.SplitN(module, ".", 2)[0]
	return v.DangerousModules[root]
}

func (v *CodeValidator) rootNetworkDenied(module string) bool {
	root := strings.SplitN(module, ".", 2)[0]
	return v.NetworkModules[root]
}

// isWriteModeOpen inspects an open(...) call's mode argument, if
// present, for any of the write-capable mode characters.
func isWriteModeOpen(call *sitter.Node, source []byte) bool {
	args := call.ChildByFieldName("arguments")
	if args == nil {
		return false
	}
	for i := 0; i < int(args.NamedChildCount()); i++ {
		arg := args.NamedChild(i)
		if arg.Type() == "keyword_argument" {
			name := arg.ChildByFieldName("name")
			if name == nil || string(source[name.StartByte():name.EndByte()]) != "mode" {
				continue
			}
			arg = arg.ChildByFieldName("value")
		} else if i != 1 {
			continue
		}
		if arg == nil || arg.Type() != "string" {
			continue
		}
		mode := string(source[arg.StartByte():arg.EndByte()])
		if strings.ContainsAny(mode, "wax+") {
			return true
		}
	}
	return false
}

func denyf(n *sitter.Node, format string, args ...any) error {
	reason := fmt.Sprintf(format, args...)
	return apierr.New(apierr.KindInvalidInput, reason).
		WithDetails(map[string]any{"offending_token": reason, "byte_offset": n.StartByte()})
}

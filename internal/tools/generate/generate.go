// Package generate implements the generate_code tool: pure text/template
// rendering with no filesystem or network access and a render context
// restricted to scalars and flat sequences. No templating library covers
// this narrow a concern better than the standard library's own
// text/template, which is why this package reaches for it directly.
package generate

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/ultimatemcp/platform/internal/apierr"
)

const (
	templateMaxBytes = 64 * 1024
	contextMaxDepth  = 2
)

// Result is what Render returns. The render context is intentionally
// not persisted anywhere: generation has no durable
// side effect beyond producing text.
type Result struct {
	Output string
}

// Render parses tmplSource with a zero-function FuncMap and executes it
// against context, rejecting anything in context deeper than a flat
// sequence of scalars.
func Render(tmplSource string, context map[string]any) (*Result, error) {
	if len(tmplSource) > templateMaxBytes {
		return nil, apierr.New(apierr.KindInvalidInput, fmt.Sprintf("template exceeds maximum size of %d bytes", templateMaxBytes))
	}
	if err := validateContext(context, 0); err != nil {
		return nil, err
	}

	tmpl, err := template.New("generate").Option("missingkey=error").Funcs(template.FuncMap{}).Parse(tmplSource)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindInvalidInput, "failed to parse template", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, context); err != nil {
		return nil, apierr.Wrap(apierr.KindInvalidInput, "failed to render template", err)
	}

	return &Result{Output: buf.String()}, nil
}

// validateContext walks context rejecting anything deeper than a flat
// sequence of scalars: maps/slices of scalars are allowed one level
// deep, nested maps/slices are not.
func validateContext(value any, depth int) error {
	if depth > contextMaxDepth {
		return apierr.New(apierr.KindInvalidInput, "template context is nested too deeply")
	}
	switch v := value.(type) {
	case nil, bool, string, int, int64, float64, float32, uint, uint64:
		return nil
	case map[string]any:
		for k, item := range v {
			if err := validateContext(item, depth+1); err != nil {
				return apierr.New(apierr.KindInvalidInput, fmt.Sprintf("template context field %q: %s", k, err.(*apierr.Error).Message))
			}
		}
		return nil
	case []any:
		for i, item := range v {
			if err := validateContext(item, depth+1); err != nil {
				return apierr.New(apierr.KindInvalidInput, fmt.Sprintf("template context index %d: %s", i, err.(*apierr.Error).Message))
			}
		}
		return nil
	case []string:
		return nil
	default:
		return apierr.New(apierr.KindInvalidInput, fmt.Sprintf("template context contains an unsupported type %T", value))
	}
}

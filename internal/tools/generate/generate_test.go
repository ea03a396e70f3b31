package generate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_SubstitutesScalarsAndFlatSequences(t *testing.T) {
	result, err := Render("Hello {{.Name}}! Tags: {{range .Tags}}{{.}} {{end}}", map[string]any{
		"Name": "world",
		"Tags": []any{"a", "b"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello world! Tags: a b ", result.Output)
}

func TestRender_RejectsNestedMaps(t *testing.T) {
	_, err := Render("{{.Outer.Inner.Deep}}", map[string]any{
		"Outer": map[string]any{
			"Inner": map[string]any{
				"Deep": "too far",
			},
		},
	})
	require.Error(t, err)
}

func TestRender_RejectsOversizedTemplate(t *testing.T) {
	huge := make([]byte, templateMaxBytes+1)
	_, err := Render(string(huge), nil)
	require.Error(t, err)
}

func TestRender_MissingKeyIsAnError(t *testing.T) {
	_, err := Render("{{.DoesNotExist}}", map[string]any{})
	require.Error(t, err)
}

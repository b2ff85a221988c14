// Package prompt builds the extraction prompt sent for each batch.
package prompt

import (
	_ "embed"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed instructions.txt
var defaultInstructions string

// DefaultPreamble introduces the rendered batch.
const DefaultPreamble = "Here is a dataset:"

// Template is the fixed instruction text wrapped around every batch.
type Template struct {
	Preamble     string `yaml:"preamble"`
	Instructions string `yaml:"instructions"`
}

// Default returns the built-in job-listing extraction template.
func Default() Template {
	return Template{
		Preamble:     DefaultPreamble,
		Instructions: defaultInstructions,
	}
}

// Load reads a YAML template from path. An empty path returns Default. Fields
// left empty in the file fall back to the built-in values.
func Load(path string) (Template, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Template{}, eris.Wrap(err, "prompt: read template")
	}

	var t Template
	if err := yaml.Unmarshal(data, &t); err != nil {
		return Template{}, eris.Wrapf(err, "prompt: parse template %s", path)
	}

	def := Default()
	if strings.TrimSpace(t.Preamble) == "" {
		t.Preamble = def.Preamble
	}
	if strings.TrimSpace(t.Instructions) == "" {
		t.Instructions = def.Instructions
	}
	return t, nil
}

// Build joins the preamble, the rendered batch excerpt and the instructions.
// It has no side effects.
func (t Template) Build(excerpt string) string {
	var sb strings.Builder
	sb.Grow(len(t.Preamble) + len(excerpt) + len(t.Instructions) + 2)
	sb.WriteString(t.Preamble)
	sb.WriteByte('\n')
	sb.WriteString(excerpt)
	sb.WriteByte('\n')
	sb.WriteString(t.Instructions)
	return sb.String()
}

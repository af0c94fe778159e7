// Package templates provides embedded TOML prompt templates with user override support.
// Templates are loaded with resolution order:
// 1. User override: templatesDir/{name}.toml
// 2. Embedded default: internal/templates/{name}.toml
package templates

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/pelletier/go-toml/v2"
)

//go:embed *.toml
var fs embed.FS

// StockAnalysis is the name of the per-stock decision dashboard prompt
const StockAnalysis = "stock_analysis"

// Template represents a loaded prompt template
type Template struct {
	Name        string `toml:"name"`
	Description string `toml:"description"`
	System      string `toml:"system"`        // System instruction for the model
	Prompt      string `toml:"prompt"`        // text/template body rendered with PromptData
	OutputShape string `toml:"output_schema"` // JSON example appended to the prompt
}

// PromptData is the data available to a prompt template
type PromptData struct {
	Code        string
	Name        string
	Date        string
	ContextJSON string
}

// GetTemplate loads a template by name with resolution order:
// 1. User override: templatesDir/{name}.toml
// 2. Embedded default: internal/templates/{name}.toml
func GetTemplate(name string, templatesDir string) (*Template, error) {
	if templatesDir != "" {
		userPath := filepath.Join(templatesDir, name+".toml")
		if data, err := os.ReadFile(userPath); err == nil {
			return parseTemplate(data)
		}
	}

	data, err := fs.ReadFile(name + ".toml")
	if err != nil {
		return nil, fmt.Errorf("template '%s' not found (checked user override and embedded)", name)
	}
	return parseTemplate(data)
}

// ListEmbeddedTemplates returns names of all embedded templates
func ListEmbeddedTemplates() ([]string, error) {
	entries, err := fs.ReadDir(".")
	if err != nil {
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".toml") {
			names = append(names, strings.TrimSuffix(entry.Name(), ".toml"))
		}
	}
	return names, nil
}

// Render executes the prompt body and appends the output schema
func (t *Template) Render(data PromptData) (string, error) {
	tmpl, err := template.New(t.Name).Option("missingkey=error").Parse(t.Prompt)
	if err != nil {
		return "", fmt.Errorf("failed to parse prompt template %s: %w", t.Name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render prompt template %s: %w", t.Name, err)
	}

	if shape := strings.TrimSpace(t.OutputShape); shape != "" {
		buf.WriteString("\n\n")
		buf.WriteString(shape)
		buf.WriteString("\n")
	}
	return buf.String(), nil
}

func parseTemplate(data []byte) (*Template, error) {
	var t Template
	if err := toml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}
	if strings.TrimSpace(t.Prompt) == "" {
		return nil, fmt.Errorf("template %q has an empty prompt", t.Name)
	}
	return &t, nil
}

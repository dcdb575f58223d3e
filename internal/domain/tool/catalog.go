package tool

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

//go:embed catalog.schema.json
var catalogSchema []byte

const catalogSchemaURL = "catalog.schema.json"

type catalogFile struct {
	Tools []catalogTool `yaml:"tools"`
}

type catalogTool struct {
	Name           string         `yaml:"name"`
	Category       string         `yaml:"category"`
	Endpoint       string         `yaml:"endpoint"`
	Description    string         `yaml:"description"`
	Parameters     []catalogParam `yaml:"parameters"`
	RequiredScopes []string       `yaml:"requiredScopes"`
}

type catalogParam struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Required bool   `yaml:"required,omitempty"`
	Default  any    `yaml:"default,omitempty"`
	Enum     []any  `yaml:"enum,omitempty"`
	Format   string `yaml:"format,omitempty"`
}

// DefaultCatalog returns the embedded catalog document.
func DefaultCatalog() []byte {
	return bytes.Clone(defaultCatalog)
}

// LoadDefaultRegistry builds the registry from the embedded catalog.
func LoadDefaultRegistry() (*Registry, error) {
	return LoadCatalog(defaultCatalog)
}

// LoadCatalogFile builds the registry from a YAML file on disk.
func LoadCatalogFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return LoadCatalog(data)
}

// LoadCatalog parses a YAML catalog, checks it against the catalog JSON
// Schema and builds a Registry from it.
func LoadCatalog(data []byte) (*Registry, error) {
	if err := validateCatalogDocument(data); err != nil {
		return nil, err
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	defs := make([]ToolDefinition, 0, len(file.Tools))
	for _, t := range file.Tools {
		params := make(ParamSchema, 0, len(t.Parameters))
		for _, p := range t.Parameters {
			spec, err := NewParam(ParamType(p.Type), catalogParamOptions(p)...)
			if err != nil {
				return nil, fmt.Errorf("catalog tool %s param %s: %w", t.Name, p.Name, err)
			}
			params = append(params, Parameter{Name: p.Name, Spec: spec})
		}
		defs = append(defs, ToolDefinition{
			Name:           t.Name,
			Category:       Category(t.Category),
			Description:    t.Description,
			Endpoint:       t.Endpoint,
			Params:         params,
			RequiredScopes: t.RequiredScopes,
		})
	}
	return NewRegistry(defs)
}

func catalogParamOptions(p catalogParam) []ParamOption {
	opts := make([]ParamOption, 0, 4)
	if p.Required {
		opts = append(opts, Required())
	}
	if p.Default != nil {
		opts = append(opts, WithDefault(p.Default))
	}
	if len(p.Enum) > 0 {
		opts = append(opts, WithEnum(p.Enum...))
	}
	if p.Format != "" {
		opts = append(opts, WithFormat(p.Format))
	}
	return opts
}

func validateCatalogDocument(data []byte) error {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode catalog: %w", err)
	}
	// Round-trip through JSON so the validator sees plain JSON values.
	asJSON, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("catalog is not representable as JSON: %w", err)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(asJSON))
	if err != nil {
		return fmt.Errorf("catalog is not representable as JSON: %w", err)
	}

	schemaDoc, err := jsonschema.UnmarshalJSON(bytes.NewReader(catalogSchema))
	if err != nil {
		return fmt.Errorf("catalog schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(catalogSchemaURL, schemaDoc); err != nil {
		return fmt.Errorf("catalog schema: %w", err)
	}
	sch, err := c.Compile(catalogSchemaURL)
	if err != nil {
		return fmt.Errorf("catalog schema: %w", err)
	}
	if err := sch.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDefinition, err)
	}
	return nil
}

type catalogToolOut struct {
	Name           string         `yaml:"name"`
	Category       Category       `yaml:"category"`
	Endpoint       string         `yaml:"endpoint"`
	Description    string         `yaml:"description"`
	Parameters     []catalogParam `yaml:"parameters,omitempty"`
	RequiredScopes []string       `yaml:"requiredScopes,omitempty"`
}

// EncodeCatalogYAML renders defs back into the catalog YAML layout.
func EncodeCatalogYAML(defs []ToolDefinition) ([]byte, error) {
	out := struct {
		Tools []catalogToolOut `yaml:"tools"`
	}{Tools: make([]catalogToolOut, 0, len(defs))}

	for _, d := range defs {
		params := make([]catalogParam, 0, len(d.Params))
		for _, p := range d.Params {
			params = append(params, catalogParam{
				Name:     p.Name,
				Type:     string(p.Spec.Type),
				Required: p.Spec.Required,
				Default:  p.Spec.Default,
				Enum:     p.Spec.Enum,
				Format:   p.Spec.Format,
			})
		}
		out.Tools = append(out.Tools, catalogToolOut{
			Name:           d.Name,
			Category:       d.Category,
			Endpoint:       d.Endpoint,
			Description:    d.Description,
			Parameters:     params,
			RequiredScopes: d.RequiredScopes,
		})
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

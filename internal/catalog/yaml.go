package catalog

import (
	"fmt"
	"io"
	"os"

	"venturelab/internal/domain"

	"gopkg.in/yaml.v3"
)

// templatePack is the YAML file structure for template packs
type templatePack struct {
	Version   string                      `yaml:"version"`
	Templates []domain.ExperimentTemplate `yaml:"templates"`
}

// ParseYAML decodes a template pack
func ParseYAML(r io.Reader) ([]domain.ExperimentTemplate, error) {
	var pack templatePack
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&pack); err != nil {
		return nil, fmt.Errorf("failed to parse template pack: %w", err)
	}
	if len(pack.Templates) == 0 {
		return nil, fmt.Errorf("template pack contains no templates")
	}
	return pack.Templates, nil
}

// LoadYAML parses a template pack and replaces the catalog contents
func (c *Catalog) LoadYAML(r io.Reader) error {
	templates, err := ParseYAML(r)
	if err != nil {
		return err
	}
	return c.Replace(templates)
}

// LoadFile reads a template pack from disk
func (c *Catalog) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open template pack: %w", err)
	}
	defer f.Close()

	return c.LoadYAML(f)
}

// ExportYAML writes the catalog as a template pack
func (c *Catalog) ExportYAML(w io.Writer) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(templatePack{Version: "1", Templates: c.List()}); err != nil {
		return fmt.Errorf("failed to encode template pack: %w", err)
	}
	return encoder.Close()
}

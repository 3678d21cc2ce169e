package builder

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// SeedLibrary returns the demo entries a fresh builder starts with.
// Seed entries carry no extraction timestamp.
func SeedLibrary() []ComponentPrimitive {
	return []ComponentPrimitive{
		{ID: "1", Name: "Primary Button", Category: CategoryElements, Tags: []string{"ui", "atomic"}},
		{ID: "2", Name: "Input Field", Category: CategoryForms, Tags: []string{"input", "tailwind"}},
	}
}

type seedFile struct {
	Components []seedEntry `yaml:"components"`
}

type seedEntry struct {
	Name     string   `yaml:"name"`
	Category string   `yaml:"category"`
	Tags     []string `yaml:"tags"`
	Code     string   `yaml:"code"`
}

// LoadSeedFile reads a YAML seed-library file. Entries get fresh ids;
// unknown categories are rejected so a typo in the file fails loudly
// instead of producing unfilterable entries.
func LoadSeedFile(path string) ([]ComponentPrimitive, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}

	var f seedFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}

	out := make([]ComponentPrimitive, 0, len(f.Components))
	for i, e := range f.Components {
		if e.Name == "" {
			return nil, fmt.Errorf("seed entry %d: missing name", i)
		}
		if !ValidCategory(e.Category) {
			return nil, fmt.Errorf("seed entry %q: unknown category %q", e.Name, e.Category)
		}
		out = append(out, ComponentPrimitive{
			ID:       uuid.New().String(),
			Name:     e.Name,
			Category: e.Category,
			Tags:     e.Tags,
			Code:     e.Code,
		})
	}
	return out, nil
}

package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roadsafety/backend/internal/domain"
)

// DefaultCurrency applies to costs that omit a currency
const DefaultCurrency = "USD"

type file struct {
	Countermeasures []domain.Countermeasure `yaml:"countermeasures"`
}

// Load reads a countermeasure catalog from a YAML file
func Load(path string) ([]domain.Countermeasure, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	return Parse(b)
}

// Parse decodes a YAML catalog, fills defaults and validates every entry
func Parse(b []byte) ([]domain.Countermeasure, error) {
	var f file
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("catalog: parse yaml: %w", err)
	}

	seen := make(map[string]struct{}, len(f.Countermeasures))
	for i := range f.Countermeasures {
		c := &f.Countermeasures[i]
		// Defaults
		if c.Status == "" {
			c.Status = domain.CountermeasureProposed
		}
		if c.ImplementationCost.Currency == "" {
			c.ImplementationCost.Currency = DefaultCurrency
		}
		if c.ExpectedAnnualSavings != nil && c.ExpectedAnnualSavings.Currency == "" {
			c.ExpectedAnnualSavings.Currency = c.ImplementationCost.Currency
		}

		if c.ID == "" {
			return nil, fmt.Errorf("catalog: entry %d has no id", i)
		}
		if _, dup := seen[c.ID]; dup {
			return nil, fmt.Errorf("catalog: %w: %s", domain.ErrDuplicateIdentifier, c.ID)
		}
		seen[c.ID] = struct{}{}
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("catalog: %w", err)
		}
	}
	return f.Countermeasures, nil
}

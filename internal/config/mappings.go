package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// KeywordRule maps a discipline keyword to a category slug. Rules are applied
// in order; the first keyword found as a substring of the raw label wins.
type KeywordRule struct {
	Keyword  string `mapstructure:"keyword"`
	Category string `mapstructure:"category"`
}

// Mappings holds the static alias and fallback tables loaded at startup.
// Supplier batches arrive with free-form manufacturer and category labels;
// these tables pin them to canonical catalog slugs.
type Mappings struct {
	// ManufacturerAliases maps a raw manufacturer label exactly as it appears
	// in supplier data to a canonical manufacturer slug.
	ManufacturerAliases map[string]string `mapstructure:"manufacturer_aliases"`

	// CategoryMappings maps a raw category label to a category slug. This
	// table also absorbs known data errors (SKUs or manufacturer names that
	// ended up in the category column).
	CategoryMappings map[string]string `mapstructure:"category_mappings"`

	// CategoryKeywords are substring heuristics tried after the exact table.
	CategoryKeywords []KeywordRule `mapstructure:"category_keywords"`

	// DefaultCategory is the fallback slug; every label must resolve to
	// something, so this is required.
	DefaultCategory string `mapstructure:"default_category"`
}

// LoadMappings reads the mapping tables from a YAML file.
func LoadMappings(path string) (Mappings, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return Mappings{}, fmt.Errorf("read mapping file %s: %w", path, err)
	}

	var m Mappings
	if err := v.Unmarshal(&m); err != nil {
		return Mappings{}, fmt.Errorf("parse mapping file %s: %w", path, err)
	}

	if strings.TrimSpace(m.DefaultCategory) == "" {
		return Mappings{}, fmt.Errorf("mapping file %s: default_category is required", path)
	}
	if m.ManufacturerAliases == nil {
		m.ManufacturerAliases = map[string]string{}
	}
	if m.CategoryMappings == nil {
		m.CategoryMappings = map[string]string{}
	}

	return m, nil
}

// ProvideMappings loads the mapping tables from the configured file.
func ProvideMappings(cfg Config) (Mappings, error) {
	return LoadMappings(cfg.MappingFile)
}

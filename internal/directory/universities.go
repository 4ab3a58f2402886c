package directory

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

var defaultUniversities = map[string][]string{
	"Москва": {
		"Московский государственный университет",
		"НИУ ВШЭ",
		"МГТУ им. Баумана",
		"РЭУ им. Плеханова",
	},
	"Санкт-Петербург": {
		"СПбГУ",
		"ИТМО",
		"Политех Петра Великого",
		"ГЭУ",
	},
	"Новосибирск": {
		"НГУ",
		"НГТУ",
		"СибГУТИ",
	},
	"Казань": {
		"КФУ",
		"КНИТУ",
		"КАИ",
	},
	"Екатеринбург": {
		"УрФУ",
		"УрГЮУ",
		"УрГЭУ",
	},
}

// Universities maps a city name to its known universities.
type Universities struct {
	byCity map[string][]string
}

// DefaultUniversities returns the built-in table.
func DefaultUniversities() *Universities {
	return &Universities{byCity: defaultUniversities}
}

// NewUniversities wraps a custom table. The map is copied.
func NewUniversities(table map[string][]string) *Universities {
	byCity := make(map[string][]string, len(table))
	for city, list := range table {
		byCity[city] = append([]string(nil), list...)
	}
	return &Universities{byCity: byCity}
}

// LoadUniversities reads a YAML document of the form
//
//	Москва:
//	  - НИУ ВШЭ
//
// and merges it over the built-in table. Cities listed in the file replace
// their built-in entry.
func LoadUniversities(path string) (*Universities, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read universities file: %w", err)
	}
	var table map[string][]string
	if err := yaml.Unmarshal(raw, &table); err != nil {
		return nil, fmt.Errorf("parse universities file: %w", err)
	}

	merged := make(map[string][]string, len(defaultUniversities)+len(table))
	for city, list := range defaultUniversities {
		merged[city] = list
	}
	for city, list := range table {
		merged[city] = list
	}
	return NewUniversities(merged), nil
}

// For returns the universities known for city by exact match. An empty
// result means the caller must accept a free-text university name.
func (u *Universities) For(city string) []string {
	if city == "" {
		return []string{}
	}
	list, ok := u.byCity[city]
	if !ok {
		return []string{}
	}
	return append([]string(nil), list...)
}

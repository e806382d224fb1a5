package units

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Category groups units that can be converted into each other.
type Category string

const (
	CategoryLength      Category = "length"
	CategoryMass        Category = "mass"
	CategoryTemperature Category = "temperature"
)

// Categories lists every supported category in display order.
var Categories = []Category{CategoryLength, CategoryMass, CategoryTemperature}

// Linear reports whether units of the category convert through a factor.
func (c Category) Linear() bool {
	return c == CategoryLength || c == CategoryMass
}

// Formula relates a temperature unit to Celsius:
// celsius = (value - Offset) * Numerator / Denominator.
type Formula struct {
	Offset      float64 `yaml:"offset" json:"offset"`
	Numerator   float64 `yaml:"numerator" json:"numerator" validate:"required"`
	Denominator float64 `yaml:"denominator" json:"denominator" validate:"required"`
}

// ToCelsius converts a value expressed in the formula's unit to Celsius.
func (f Formula) ToCelsius(v float64) float64 {
	return (v - f.Offset) * f.Numerator / f.Denominator
}

// FromCelsius converts a Celsius value into the formula's unit.
func (f Formula) FromCelsius(c float64) float64 {
	return c*f.Denominator/f.Numerator + f.Offset
}

// Definition describes one supported unit.
type Definition struct {
	Symbol   string   `json:"symbol"`
	Name     string   `json:"name"`
	Category Category `json:"-"`
	// Factor is the size of the unit in base units. Zero for temperature.
	Factor  float64  `json:"factor,omitempty"`
	Formula *Formula `json:"-"`
	Aliases []string `json:"aliases,omitempty"`
}

type unitDoc struct {
	Symbol  string   `yaml:"symbol" validate:"required"`
	Name    string   `yaml:"name" validate:"required"`
	Factor  float64  `yaml:"factor" validate:"gte=0"`
	Formula *Formula `yaml:"formula"`
	Aliases []string `yaml:"aliases" validate:"dive,required"`
}

type categoryDoc struct {
	Base  string    `yaml:"base" validate:"required"`
	Units []unitDoc `yaml:"units" validate:"required,min=1,dive"`
}

//go:embed catalog.yaml
var defaultCatalog []byte

var validate = validator.New(validator.WithRequiredStructEnabled())

// Catalog is the immutable unit table. Build it once with Parse, Default or
// LoadFile and share it freely; nothing mutates it after construction.
type Catalog struct {
	index  map[string]Definition
	groups map[Category][]Definition
	bases  map[Category]string
}

// Default returns the catalog bundled with the binary.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// LoadFile reads a catalog from a YAML file on disk.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read units file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML catalog document.
func Parse(data []byte) (*Catalog, error) {
	var doc map[Category]categoryDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode units catalog: %w", err)
	}

	c := &Catalog{
		index:  make(map[string]Definition),
		groups: make(map[Category][]Definition),
		bases:  make(map[Category]string),
	}
	for name := range doc {
		if !knownCategory(name) {
			return nil, fmt.Errorf("units catalog: unknown category %q", name)
		}
	}
	for _, cat := range Categories {
		cd, ok := doc[cat]
		if !ok {
			continue
		}
		if err := validate.Struct(cd); err != nil {
			return nil, fmt.Errorf("units catalog: category %s: %w", cat, err)
		}
		if err := c.addCategory(cat, cd); err != nil {
			return nil, err
		}
	}
	if len(c.index) == 0 {
		return nil, fmt.Errorf("units catalog: no units defined")
	}
	return c, nil
}

func (c *Catalog) addCategory(cat Category, cd categoryDoc) error {
	defs := make([]Definition, 0, len(cd.Units))
	baseFound := false
	for _, u := range cd.Units {
		def := Definition{
			Symbol:   u.Symbol,
			Name:     u.Name,
			Category: cat,
			Aliases:  append([]string(nil), u.Aliases...),
		}
		if cat.Linear() {
			if u.Factor <= 0 {
				return fmt.Errorf("units catalog: %s unit %q needs a positive factor", cat, u.Symbol)
			}
			if u.Formula != nil {
				return fmt.Errorf("units catalog: %s unit %q cannot carry a formula", cat, u.Symbol)
			}
			def.Factor = u.Factor
		} else {
			if u.Formula == nil {
				return fmt.Errorf("units catalog: %s unit %q needs a formula", cat, u.Symbol)
			}
			if u.Factor != 0 {
				return fmt.Errorf("units catalog: %s unit %q cannot carry a factor", cat, u.Symbol)
			}
			f := *u.Formula
			def.Formula = &f
		}

		// A unit may list spellings that normalize alike; any key already
		// held by another entry is a conflict, even under the same symbol.
		own := make(map[string]struct{})
		for _, key := range append([]string{u.Symbol}, u.Aliases...) {
			norm := Normalize(key)
			if norm == "" {
				return fmt.Errorf("units catalog: %s unit %q has an empty alias", cat, u.Symbol)
			}
			if _, mine := own[norm]; mine {
				continue
			}
			if prev, dup := c.index[norm]; dup {
				return fmt.Errorf("units catalog: %q is claimed by both %s %s and %s %s", key, prev.Category, prev.Symbol, cat, def.Symbol)
			}
			own[norm] = struct{}{}
			c.index[norm] = def
		}
		if u.Symbol == cd.Base {
			baseFound = true
		}
		defs = append(defs, def)
	}
	if !baseFound {
		return fmt.Errorf("units catalog: %s base unit %q is not defined", cat, cd.Base)
	}
	c.groups[cat] = defs
	c.bases[cat] = cd.Base
	return nil
}

func knownCategory(c Category) bool {
	for _, k := range Categories {
		if k == c {
			return true
		}
	}
	return false
}

// Lookup resolves a symbol or alias, ignoring case, a degree sign and a
// leading "degree(s)" word.
func (c *Catalog) Lookup(symbol string) (Definition, bool) {
	def, ok := c.index[Normalize(symbol)]
	return def, ok
}

// Base returns the base unit symbol of a category.
func (c *Catalog) Base(cat Category) string {
	return c.bases[cat]
}

// SupportedUnits returns the catalog grouped by category. The returned map
// is a copy.
func (c *Catalog) SupportedUnits() map[Category][]Definition {
	out := make(map[Category][]Definition, len(c.groups))
	for cat, defs := range c.groups {
		out[cat] = append([]Definition(nil), defs...)
	}
	return out
}

// Symbols returns the canonical symbols of a category in catalog order.
func (c *Catalog) Symbols(cat Category) []string {
	defs := c.groups[cat]
	out := make([]string, len(defs))
	for i, d := range defs {
		out[i] = d.Symbol
	}
	return out
}

// Normalize folds a user supplied unit string into its lookup key.
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "°", "")
	fields := strings.Fields(s)
	if len(fields) > 1 && (fields[0] == "degree" || fields[0] == "degrees" || fields[0] == "deg") {
		fields = fields[1:]
	}
	return strings.Join(fields, " ")
}

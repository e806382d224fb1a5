// Package converter performs deterministic unit conversions against a
// units.Catalog.
package converter

import (
	"math"
	"strconv"

	"unit-converter/internal/units"
)

const (
	DefaultPrecision = 6
	MaxPrecision     = 12
)

// Request is a validated conversion request.
type Request struct {
	Value    float64
	FromUnit string
	ToUnit   string
	// Precision overrides the service default when non-nil.
	Precision *int
}

// Result is the outcome of one conversion.
type Result struct {
	Value      float64        `json:"value"`
	Unit       string         `json:"unit"`
	Precision  int            `json:"precision"`
	Category   units.Category `json:"category"`
	InputValue float64        `json:"input_value"`
	FromUnit   string         `json:"from_unit"`
}

// String renders the result as "100 cm = 39.370079 in".
func (r Result) String() string {
	return strconv.FormatFloat(r.InputValue, 'f', -1, 64) + " " + r.FromUnit + " = " +
		strconv.FormatFloat(r.Value, 'f', -1, 64) + " " + r.Unit
}

// Service converts values between units of the same category.
type Service struct {
	catalog          *units.Catalog
	defaultPrecision int
}

// NewService builds a Service. defaultPrecision is clamped to [0, MaxPrecision].
func NewService(catalog *units.Catalog, defaultPrecision int) *Service {
	return &Service{
		catalog:          catalog,
		defaultPrecision: ClampPrecision(defaultPrecision),
	}
}

// Convert resolves both units and converts req.Value. The returned error is
// one of *UnsupportedUnitError, *CategoryMismatchError or
// *MalformedArgumentsError.
func (s *Service) Convert(req Request) (Result, error) {
	if math.IsNaN(req.Value) || math.IsInf(req.Value, 0) {
		return Result{}, &MalformedArgumentsError{Field: "value", Reason: "must be a finite number"}
	}
	from, ok := s.catalog.Lookup(req.FromUnit)
	if !ok {
		return Result{}, &UnsupportedUnitError{Unit: req.FromUnit, Field: "from_unit"}
	}
	to, ok := s.catalog.Lookup(req.ToUnit)
	if !ok {
		return Result{}, &UnsupportedUnitError{Unit: req.ToUnit, Field: "to_unit"}
	}
	if from.Category != to.Category {
		return Result{}, &CategoryMismatchError{
			From:         from.Symbol,
			To:           to.Symbol,
			FromCategory: from.Category,
			ToCategory:   to.Category,
		}
	}

	precision := s.defaultPrecision
	if req.Precision != nil {
		precision = ClampPrecision(*req.Precision)
	}

	return Result{
		Value:      Round(convert(req.Value, from, to), precision),
		Unit:       to.Symbol,
		Precision:  precision,
		Category:   from.Category,
		InputValue: req.Value,
		FromUnit:   from.Symbol,
	}, nil
}

// ConvertValue is Convert with an explicit precision.
func (s *Service) ConvertValue(value float64, fromUnit, toUnit string, precision int) (Result, error) {
	return s.Convert(Request{Value: value, FromUnit: fromUnit, ToUnit: toUnit, Precision: &precision})
}

// SupportedUnits returns the unit table grouped by category.
func (s *Service) SupportedUnits() map[units.Category][]units.Definition {
	return s.catalog.SupportedUnits()
}

// Catalog returns the catalog backing the service.
func (s *Service) Catalog() *units.Catalog {
	return s.catalog
}

func convert(v float64, from, to units.Definition) float64 {
	if from.Symbol == to.Symbol {
		return v
	}
	if from.Category.Linear() {
		return v * from.Factor / to.Factor
	}
	return to.Formula.FromCelsius(from.Formula.ToCelsius(v))
}

// ClampPrecision limits p to [0, MaxPrecision].
func ClampPrecision(p int) int {
	return min(max(p, 0), MaxPrecision)
}

// Round rounds v to precision decimal places. Rounding is exact on the
// binary value; ties that are exactly representable go to the even digit.
func Round(v float64, precision int) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', precision, 64), 64)
	if err != nil {
		return v
	}
	if r == 0 {
		return 0
	}
	return r
}

package orchestrator

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"unit-converter/internal/converter"
)

// convertArgs is the strict form of the convert tool arguments.
type convertArgs struct {
	Value     *float64 `json:"value" validate:"required"`
	FromUnit  string   `json:"from_unit" validate:"required,max=64"`
	ToUnit    string   `json:"to_unit" validate:"required,max=64"`
	Precision *int     `json:"precision"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ParseConvertArguments turns raw model-produced JSON into a validated
// conversion request. Numbers may arrive as JSON numbers or numeric strings;
// anything else yields a *converter.MalformedArgumentsError.
func ParseConvertArguments(raw string) (converter.Request, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = "{}"
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return converter.Request{}, &converter.MalformedArgumentsError{Reason: "arguments must be a JSON object"}
	}

	var args convertArgs
	if v, ok := present(fields, "value"); ok {
		f, err := parseNumber(v)
		if err != nil {
			return converter.Request{}, &converter.MalformedArgumentsError{Field: "value", Reason: err.Error()}
		}
		args.Value = &f
	}
	for _, f := range []struct {
		name string
		dst  *string
	}{{"from_unit", &args.FromUnit}, {"to_unit", &args.ToUnit}} {
		v, ok := present(fields, f.name)
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return converter.Request{}, &converter.MalformedArgumentsError{Field: f.name, Reason: "must be a string"}
		}
		*f.dst = strings.TrimSpace(s)
	}
	if v, ok := present(fields, "precision"); ok {
		f, err := parseNumber(v)
		if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
			return converter.Request{}, &converter.MalformedArgumentsError{Field: "precision", Reason: "must be an integer"}
		}
		p := int(f)
		args.Precision = &p
	}

	if err := validate.Struct(args); err != nil {
		return converter.Request{}, validationError(err)
	}
	return converter.Request{
		Value:     *args.Value,
		FromUnit:  args.FromUnit,
		ToUnit:    args.ToUnit,
		Precision: args.Precision,
	}, nil
}

// requestArgs renders a validated request as tool call arguments.
func requestArgs(req converter.Request) map[string]any {
	args := map[string]any{
		"value":     req.Value,
		"from_unit": req.FromUnit,
		"to_unit":   req.ToUnit,
	}
	if req.Precision != nil {
		args["precision"] = *req.Precision
	}
	return args
}

func present(fields map[string]json.RawMessage, name string) (json.RawMessage, bool) {
	v, ok := fields[name]
	if !ok || bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
		return nil, false
	}
	return v, true
}

func parseNumber(raw json.RawMessage) (float64, error) {
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		var s string
		if json.Unmarshal(raw, &s) != nil {
			return 0, errors.New("must be a number")
		}
		f, err = strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, fmt.Errorf("must be a number, got %q", s)
		}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errors.New("must be a finite number")
	}
	return f, nil
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &converter.MalformedArgumentsError{Reason: err.Error()}
	}
	fe := verrs[0]
	reason := "is invalid"
	switch fe.Tag() {
	case "required":
		reason = "is required"
	case "max":
		reason = "is too long"
	}
	return &converter.MalformedArgumentsError{Field: fe.Field(), Reason: reason}
}

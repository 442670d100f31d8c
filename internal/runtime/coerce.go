package runtime

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/aretw0/formflow/pkg/domain"
)

// CoerceAnswer converts a submitted raw value to the stored value for field.
// ok is false when a numeric field received text that is not a number; the value is then null.
func CoerceAnswer(field domain.Field, raw any) (v domain.Value, ok bool) {
	if raw == nil {
		return domain.Null(), true
	}
	if field.MultiValued() {
		return coerceList(raw), true
	}

	switch field.DataType {
	case domain.DataBoolean:
		return domain.Bool(coerceBool(raw)), true
	case domain.DataInteger, domain.DataDecimal:
		f, ok := coerceFloat(raw)
		if !ok {
			return domain.Null(), false
		}
		return domain.Number(f), true
	case domain.DataDate, domain.DataDatetime:
		return domain.Date(stringOf(raw)), true
	}

	if field.InputType == domain.InputSelect {
		return domain.Choice(stringOf(raw)), true
	}
	return domain.Text(stringOf(raw)), true
}

func coerceBool(raw any) bool {
	switch v := raw.(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
		return v != ""
	case []any:
		return len(v) > 0
	}
	if f, ok := coerceFloat(raw); ok {
		return f != 0
	}
	return true
}

func coerceFloat(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil && finite(f)
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil && finite(f)
	}
	return 0, false
}

// finite rejects NaN and infinities, which have no JSON representation.
func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func coerceList(raw any) domain.Value {
	items, isList := raw.([]any)
	if !isList {
		if ss, ok := raw.([]string); ok {
			return domain.List(ss...)
		}
		return domain.List(stringOf(raw))
	}
	codes := make([]string, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		codes = append(codes, stringOf(item))
	}
	return domain.List(codes...)
}

// stringOf renders scalars the way Value.AsString does.
func stringOf(raw any) string {
	switch v := raw.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case json.Number:
		return v.String()
	}
	return fmt.Sprint(raw)
}

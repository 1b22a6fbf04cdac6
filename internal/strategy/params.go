package strategy

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/rxtech-lab/argo-replay/pkg/errors"
	"github.com/shopspring/decimal"
)

// Params is a strategy's private parameter set. The runner passes it through unvalidated.
// Accessors accept the YAML scalar types and strings, so CLI overrides work for every key.
type Params map[string]any

// Clone copies the top level of the parameter set.
func (p Params) Clone() Params {
	clone := make(Params, len(p))
	for key, value := range p {
		clone[key] = value
	}

	return clone
}

// Merge returns a copy of p with overrides applied on top.
func (p Params) Merge(overrides Params) Params {
	merged := p.Clone()
	for key, value := range overrides {
		merged[key] = value
	}

	return merged
}

// Keys returns the parameter names in order.
func (p Params) Keys() []string {
	keys := make([]string, 0, len(p))
	for key := range p {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}

func invalidParam(key string, value any, expected string) error {
	return errors.Newf(errors.ErrCodeStrategyConfigError, "parameter %s: expected %s, got %T(%v)", key, expected, value, value)
}

// String returns the parameter as a string, or def when absent.
func (p Params) String(key, def string) (string, error) {
	value, ok := p[key]
	if !ok {
		return def, nil
	}

	switch v := value.(type) {
	case string:
		return v, nil
	case fmt.Stringer:
		return v.String(), nil
	default:
		return "", invalidParam(key, value, "string")
	}
}

// Int returns the parameter as an int, or def when absent.
func (p Params) Int(key string, def int) (int, error) {
	value, ok := p[key]
	if !ok {
		return def, nil
	}

	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case uint64:
		return int(v), nil
	case float64:
		if v != float64(int(v)) {
			return 0, invalidParam(key, value, "integer")
		}

		return int(v), nil
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, invalidParam(key, value, "integer")
		}

		return parsed, nil
	default:
		return 0, invalidParam(key, value, "integer")
	}
}

// Decimal returns the parameter as a decimal, or def when absent.
func (p Params) Decimal(key string, def decimal.Decimal) (decimal.Decimal, error) {
	value, ok := p[key]
	if !ok {
		return def, nil
	}

	return toDecimal(key, value)
}

func toDecimal(key string, value any) (decimal.Decimal, error) {
	switch v := value.(type) {
	case decimal.Decimal:
		return v, nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case float64:
		return decimal.NewFromFloat(v), nil
	case string:
		parsed, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return decimal.Zero, invalidParam(key, value, "decimal")
		}

		return parsed, nil
	default:
		return decimal.Zero, invalidParam(key, value, "decimal")
	}
}

// Bool returns the parameter as a bool, or def when absent.
func (p Params) Bool(key string, def bool) (bool, error) {
	value, ok := p[key]
	if !ok {
		return def, nil
	}

	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return false, invalidParam(key, value, "bool")
		}

		return parsed, nil
	default:
		return false, invalidParam(key, value, "bool")
	}
}

// Strings returns a list parameter. A comma separated string is split.
func (p Params) Strings(key string, def []string) ([]string, error) {
	value, ok := p[key]
	if !ok {
		return def, nil
	}

	switch v := value.(type) {
	case []string:
		return v, nil
	case []any:
		result := make([]string, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, invalidParam(key, value, "list of strings")
			}

			result[i] = s
		}

		return result, nil
	case string:
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))

		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				result = append(result, trimmed)
			}
		}

		return result, nil
	default:
		return nil, invalidParam(key, value, "list of strings")
	}
}

// Decimals returns a list of decimals. A comma separated string is split.
func (p Params) Decimals(key string, def []decimal.Decimal) ([]decimal.Decimal, error) {
	value, ok := p[key]
	if !ok {
		return def, nil
	}

	var items []any

	switch v := value.(type) {
	case []decimal.Decimal:
		return v, nil
	case []any:
		items = v
	case string:
		for _, part := range strings.Split(v, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				items = append(items, trimmed)
			}
		}
	default:
		return nil, invalidParam(key, value, "list of decimals")
	}

	result := make([]decimal.Decimal, len(items))
	for i, item := range items {
		d, err := toDecimal(key, item)
		if err != nil {
			return nil, err
		}

		result[i] = d
	}

	return result, nil
}

// ParseOverride parses a "key=value" CLI override.
func ParseOverride(raw string) (string, string, error) {
	key, value, ok := strings.Cut(raw, "=")
	key = strings.TrimSpace(key)

	if !ok || key == "" {
		return "", "", errors.Newf(errors.ErrCodeInvalidParameter, "parameter override %q is not key=value", raw)
	}

	return key, value, nil
}

package contracts

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/HACK3R-CRYPTO/property-tycoon-mantle-sub000/internal/errors"
)

// NormalizeNumeric converts any of the numeric shapes seen at the chain
// boundary into one arbitrary-precision integer:
//
//   - native integers (int/int64/uint64/float64 without a fraction)
//   - big-number wrapper objects carrying a "hex"/"_hex" field
//   - strings, hexadecimal ("0x...") or decimal
//
// When a wrapper carries both a hex field and a decimal field the hex field
// wins: decimal-string conversion has been a source of corrupted values and
// the corruption guard exists because of it. The ambiguous shape never
// propagates past this function.
func NormalizeNumeric(v interface{}) (*big.Int, error) {
	switch val := v.(type) {
	case nil:
		return nil, errors.NewDecodingError("normalizeNumeric", v, fmt.Errorf("nil value"))
	case *big.Int:
		if val == nil {
			return nil, errors.NewDecodingError("normalizeNumeric", v, fmt.Errorf("nil big.Int"))
		}
		return new(big.Int).Set(val), nil
	case int:
		return big.NewInt(int64(val)), nil
	case int64:
		return big.NewInt(val), nil
	case uint64:
		return new(big.Int).SetUint64(val), nil
	case float64:
		// JSON unmarshalling hands every number over as float64
		if val != float64(int64(val)) {
			return nil, errors.NewDecodingError("normalizeNumeric", v, fmt.Errorf("non-integral float"))
		}
		return big.NewInt(int64(val)), nil
	case json.Number:
		return parseNumericString(string(val))
	case string:
		return parseNumericString(val)
	case map[string]interface{}:
		return normalizeWrapper(val)
	default:
		return nil, errors.NewDecodingError("normalizeNumeric", v, fmt.Errorf("unsupported type %T", v))
	}
}

// normalizeWrapper handles big-number wrapper objects. Hex fields are
// preferred over any decimal representation present alongside them.
func normalizeWrapper(m map[string]interface{}) (*big.Int, error) {
	for _, key := range []string{"hex", "_hex"} {
		if raw, ok := m[key]; ok {
			s, ok := raw.(string)
			if !ok {
				return nil, errors.NewDecodingError("normalizeNumeric", m, fmt.Errorf("%s field is not a string", key))
			}
			return parseHex(s)
		}
	}
	if raw, ok := m["value"]; ok {
		return NormalizeNumeric(raw)
	}
	return nil, errors.NewDecodingError("normalizeNumeric", m, fmt.Errorf("wrapper object has no hex or value field"))
}

func parseNumericString(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.NewDecodingError("normalizeNumeric", s, fmt.Errorf("empty string"))
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return parseHex(s)
	}
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, errors.NewDecodingError("normalizeNumeric", s, fmt.Errorf("not a decimal integer"))
	}
	return n, nil
}

func parseHex(s string) (*big.Int, error) {
	trimmed := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if trimmed == "" {
		return nil, errors.NewDecodingError("normalizeNumeric", s, fmt.Errorf("empty hex string"))
	}
	n, ok := new(big.Int).SetString(trimmed, 16)
	if !ok {
		return nil, errors.NewDecodingError("normalizeNumeric", s, fmt.Errorf("not a hex integer"))
	}
	return n, nil
}

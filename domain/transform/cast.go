package transform

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind names a primitive type a value can be cast to.
type Kind string

const (
	KindNumber  Kind = "number"
	KindString  Kind = "string"
	KindBoolean Kind = "boolean"
)

// Cast coerces v to the given primitive kind. A number cast whose result
// would not be a finite parseable number yields nil rather than NaN; callers
// depend on that normalization. Unknown kinds are an OperationError.
func Cast(v any, kind Kind) (any, error) {
	switch kind {
	case KindNumber:
		return castNumber(v), nil
	case KindString:
		return castString(v), nil
	case KindBoolean:
		return castBoolean(v), nil
	default:
		return v, opErrorf("cast", kind, "unknown primitive type %q", string(kind))
	}
}

func castNumber(v any) any {
	switch val := v.(type) {
	case nil:
		return float64(0)
	case float64:
		if math.IsNaN(val) {
			return nil
		}
		return val
	case float32:
		return float64(val)
	case int:
		return float64(val)
	case int64:
		return float64(val)
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return nil
		}
		return f
	case bool:
		if val {
			return float64(1)
		}
		return float64(0)
	case string:
		trimmed := strings.TrimSpace(val)
		if trimmed == "" {
			return float64(0)
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil || math.IsNaN(f) {
			return nil
		}
		return f
	default:
		// Objects and arrays have no numeric form.
		return nil
	}
}

func castString(v any) any {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	default:
		if b, err := json.Marshal(v); err == nil {
			return string(b)
		}
		return fmt.Sprintf("%v", v)
	}
}

func castBoolean(v any) any {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case float64:
		return val != 0 && !math.IsNaN(val)
	case float32:
		return val != 0
	case int:
		return val != 0
	case int64:
		return val != 0
	case string:
		return val != ""
	default:
		return true
	}
}

// stringKey renders a value the way map tables key on it.
func stringKey(v any) string {
	s, _ := castString(v).(string)
	return s
}

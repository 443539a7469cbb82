package doc

import (
	"encoding/json"
	"fmt"
)

// Copy deep-copies a document value. Scalars pass through.
func Copy(v any) any {
	switch x := v.(type) {
	case map[string]any:
		res := make(map[string]any, len(x))
		for k, xv := range x {
			res[k] = Copy(xv)
		}
		return res
	case []any:
		res := make([]any, len(x))
		for i, xv := range x {
			res[i] = Copy(xv)
		}
		return res
	default:
		return v
	}
}

func fmtVal(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return x
	default:
		d, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(d)
	}
}

package auth

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

const (
	// TimestampKey is the header parameter folded into the canonical form.
	TimestampKey = "timestamp"
	// SignatureKey is never part of the canonical form.
	SignatureKey = "signature"
)

// Params is a flat request parameter set. Values are scalars: text, numbers,
// or already-serialized JSON text. Nested objects are expected to be
// pre-flattened by the caller.
type Params map[string]any

// Canonicalize renders a parameter set into the byte string that gets signed.
// The signature parameter is dropped, the timestamp (when supplied) is folded
// in under the timestamp key, keys are sorted byte-wise ascending, and the
// stringified values are concatenated in that order with no separator.
//
// The missing separator makes adjacent values ambiguous ("12"+"3" == "1"+"23").
// That is how existing clients sign requests; changing it breaks every signature
// in the wild, so it stays until a protocol version bump.
func Canonicalize(params Params, timestamp string) []byte {
	merged := make(map[string]string, len(params)+1)
	for key, value := range params {
		if key == SignatureKey {
			continue
		}
		merged[key] = stringify(value)
	}
	if timestamp != "" {
		merged[TimestampKey] = timestamp
	}

	keys := make([]string, 0, len(merged))
	for key := range merged {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	for _, key := range keys {
		buf.WriteString(merged[key])
	}
	return buf.Bytes()
}

// stringify renders a scalar the way signing clients do: text as-is, numbers
// in plain decimal with no locale formatting.
func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

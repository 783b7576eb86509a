// Package payload parses, normalizes, and generates multi-platform push
// notification payloads. A payload maps a platform service key (default, GCM,
// APNS) to either plain text or the platform's structured wire format.
package payload

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Platform service keys.
const (
	ServiceDefault = "default"
	ServiceGCM     = "GCM"
	ServiceAPNS    = "APNS"
)

// serviceOrder is the fixed enumeration order for service keys, independent
// of the order they appear in a raw payload.
var serviceOrder = []string{ServiceDefault, ServiceGCM, ServiceAPNS}

// Viewer modes.
const (
	ModeOpenInternal = "OpenInternal"
	ModeOpenExternal = "OpenExternal"
	ModeViewText     = "ViewText"
)

// Command actions.
const (
	ActionViewMessageList    = "ViewMessageList"
	ActionViewMessageDetail  = "ViewMessageDetail"
	ActionViewPrivateMessage = "ViewPrivateMessage"
)

var validModes = map[string]bool{
	ModeOpenInternal: true,
	ModeOpenExternal: true,
	ModeViewText:     true,
}

var validActions = map[string]bool{
	ActionViewMessageList:    true,
	ActionViewMessageDetail:  true,
	ActionViewPrivateMessage: true,
}

// Viewer tells the client how to open a notification's content.
type Viewer struct {
	Mode string `json:"mode,omitempty"`
	URL  string `json:"url,omitempty"`
}

// Command tells the client which action to perform on tap.
type Command struct {
	Action string         `json:"action,omitempty"`
	Params map[string]any `json:"params,omitempty"`
}

// UnknownServiceError reports a platform key outside the supported set.
type UnknownServiceError struct {
	Service string
}

func (e *UnknownServiceError) Error() string {
	return fmt.Sprintf("unknown platform service %q", e.Service)
}

// MissingKeyError reports a required key absent from a platform's structure.
type MissingKeyError struct {
	Service string
	Key     string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("%s payload missing key %q", e.Service, e.Key)
}

// InvalidValueError reports a field whose value is outside its allowed set.
type InvalidValueError struct {
	Field string
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("invalid value for %s", e.Field)
}

// toObject coerces a per-service payload value into a JSON object. String
// values are treated as JSON text and decoded; decode errors propagate to the
// caller unwrapped.
func toObject(value any) (map[string]any, error) {
	switch v := value.(type) {
	case map[string]any:
		return v, nil
	case string:
		var obj map[string]any
		if err := json.Unmarshal([]byte(v), &obj); err != nil {
			return nil, err
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("payload value is %T, want object or JSON text", value)
	}
}

// asText renders a scalar payload value as plain text.
func asText(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case nil:
		return ""
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(encoded)
	}
}

// checkServiceKeys rejects unrecognized platform keys, scanning in sorted
// order so the reported key is deterministic.
func checkServiceKeys(root map[string]any) error {
	keys := make([]string, 0, len(root))
	for key := range root {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if key != ServiceDefault && key != ServiceGCM && key != ServiceAPNS {
			return &UnknownServiceError{Service: key}
		}
	}
	return nil
}

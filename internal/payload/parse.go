package payload

// Message is the normalized, per-service view of a raw multi-platform
// payload. Each Parse call returns an independently owned Message; nothing is
// shared between calls. SetViewTextURL is the only mutation and must not be
// called concurrently on one instance.
type Message struct {
	entries map[string]*entry
}

type entry struct {
	title   string
	body    string
	viewer  *Viewer
	command *Command
}

// Parse normalizes a raw payload, given either as JSON text or as a decoded
// object mapping service keys to per-platform values. Per-platform values may
// themselves be JSON text or objects.
func Parse(raw any) (*Message, error) {
	root, err := toObject(raw)
	if err != nil {
		return nil, err
	}
	if err := checkServiceKeys(root); err != nil {
		return nil, err
	}

	msg := &Message{entries: make(map[string]*entry, len(root))}
	for _, service := range serviceOrder {
		value, ok := root[service]
		if !ok {
			continue
		}

		var e *entry
		switch service {
		case ServiceDefault:
			e = &entry{title: asText(value)}
		case ServiceGCM:
			e, err = parseGCM(value)
		case ServiceAPNS:
			e, err = parseAPNS(value)
		}
		if err != nil {
			return nil, err
		}
		msg.entries[service] = e
	}
	return msg, nil
}

// parseAPNS handles the Apple shape: {aps: {alert: {title, body} | "text"}}
// with the optional custom section (viewer/command) beside aps at the root.
func parseAPNS(value any) (*entry, error) {
	obj, err := toObject(value)
	if err != nil {
		return nil, err
	}

	aps, ok := obj["aps"].(map[string]any)
	if !ok {
		return nil, &MissingKeyError{Service: ServiceAPNS, Key: "aps"}
	}

	e := &entry{}
	switch alert := aps["alert"].(type) {
	case string:
		// A bare string alert is the title; there is no body.
		e.title = alert
	case map[string]any:
		title, ok := alert["title"].(string)
		if !ok || title == "" {
			return nil, &MissingKeyError{Service: ServiceAPNS, Key: "title"}
		}
		e.title = title
		if body, ok := alert["body"].(string); ok {
			e.body = body
		}
	default:
		return nil, &MissingKeyError{Service: ServiceAPNS, Key: "alert"}
	}

	if e.viewer, e.command, err = parseCustom(obj); err != nil {
		return nil, err
	}
	return e, nil
}

// parseGCM handles the Google shape: {notification: {title, body}, data: {...}}
// with the custom section nested under data.
func parseGCM(value any) (*entry, error) {
	obj, err := toObject(value)
	if err != nil {
		return nil, err
	}

	notification, ok := obj["notification"].(map[string]any)
	if !ok {
		return nil, &MissingKeyError{Service: ServiceGCM, Key: "notification"}
	}

	e := &entry{}
	title, ok := notification["title"].(string)
	if !ok || title == "" {
		return nil, &MissingKeyError{Service: ServiceGCM, Key: "title"}
	}
	e.title = title
	if body, ok := notification["body"].(string); ok {
		e.body = body
	}

	if data, ok := obj["data"].(map[string]any); ok {
		if e.viewer, e.command, err = parseCustom(data); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// parseCustom validates the shared viewer/command extension section. Both are
// optional; set fields must come from the closed mode/action sets.
func parseCustom(section map[string]any) (*Viewer, *Command, error) {
	var viewer *Viewer
	if raw, ok := section["viewer"].(map[string]any); ok {
		viewer = &Viewer{}
		if mode, ok := raw["mode"].(string); ok && mode != "" {
			if !validModes[mode] {
				return nil, nil, &InvalidValueError{Field: "Mode"}
			}
			viewer.Mode = mode
		}
		if url, ok := raw["url"].(string); ok {
			viewer.URL = url
		}
	}

	var command *Command
	if raw, ok := section["command"].(map[string]any); ok {
		command = &Command{}
		if action, ok := raw["action"].(string); ok && action != "" {
			if !validActions[action] {
				return nil, nil, &InvalidValueError{Field: "Action"}
			}
			command.Action = action
			if action == ActionViewPrivateMessage {
				cmdParams, ok := raw["params"].(map[string]any)
				if !ok || len(cmdParams) == 0 {
					return nil, nil, &InvalidValueError{Field: "Params"}
				}
				command.Params = cmdParams
			}
		}
	}

	return viewer, command, nil
}

// ServiceKeys returns the services present in the message, always in the
// fixed default, GCM, APNS order.
func (m *Message) ServiceKeys() []string {
	keys := make([]string, 0, len(m.entries))
	for _, service := range serviceOrder {
		if _, ok := m.entries[service]; ok {
			keys = append(keys, service)
		}
	}
	return keys
}

// HasService reports whether the raw payload carried the service.
func (m *Message) HasService(service string) bool {
	_, ok := m.entries[service]
	return ok
}

// Title returns the normalized title for the service.
func (m *Message) Title(service string) string {
	if e, ok := m.entries[service]; ok {
		return e.title
	}
	return ""
}

// Body returns the normalized body, empty when the platform carried none.
func (m *Message) Body(service string) string {
	if e, ok := m.entries[service]; ok {
		return e.body
	}
	return ""
}

// Viewer returns the service's viewer extension, nil when absent.
func (m *Message) Viewer(service string) *Viewer {
	if e, ok := m.entries[service]; ok {
		return e.viewer
	}
	return nil
}

// Command returns the service's command extension, nil when absent.
func (m *Message) Command(service string) *Command {
	if e, ok := m.entries[service]; ok {
		return e.command
	}
	return nil
}

func (m *Message) ViewerMode(service string) string {
	if v := m.Viewer(service); v != nil {
		return v.Mode
	}
	return ""
}

func (m *Message) ViewerURL(service string) string {
	if v := m.Viewer(service); v != nil {
		return v.URL
	}
	return ""
}

func (m *Message) HasViewer(service string) bool {
	return m.Viewer(service) != nil
}

func (m *Message) HasViewerMode(service string) bool {
	return m.ViewerMode(service) != ""
}

func (m *Message) HasViewerURL(service string) bool {
	return m.ViewerURL(service) != ""
}

func (m *Message) HasCommand(service string) bool {
	return m.Command(service) != nil
}

// IsViewTextMode reports whether the service's viewer mode is exactly ViewText.
func (m *Message) IsViewTextMode(service string) bool {
	return m.ViewerMode(service) == ModeViewText
}

// SetViewTextURL replaces the placeholder viewer URL once the archived
// content's storage URL is known. It only applies when the service's viewer
// mode is ViewText; any other mode leaves the URL untouched.
func (m *Message) SetViewTextURL(service, url string) {
	if !m.IsViewTextMode(service) {
		return
	}
	m.entries[service].viewer.URL = url
}

package payload

import "encoding/json"

// InboxEntry is a condensed title/body for one platform.
type InboxEntry struct {
	Title string `json:"title"`
	Body  string `json:"body,omitempty"`
}

// InboxRecord is the archived rendering of a sent notification for history
// listing. It is derived directly from the caller's raw parameters, not from
// the normalized Message: the two precedence chains overlap but are not
// identical, and existing history was written with this one.
type InboxRecord struct {
	Default string     `json:"default"`
	GCM     InboxEntry `json:"GCM"`
	APNS    InboxEntry `json:"APNS"`
}

// BuildInbox renders the inbox record for one send. Per field, the first
// non-empty source wins: the long-form full_title/full_body parameters, then
// the platform's own payload fields, then the plain title/body parameters.
func BuildInbox(content Content) (InboxRecord, error) {
	src := &inboxSource{payload: content.Payload}
	var record InboxRecord

	// default text: full_title, payload default, title.
	record.Default = content.FullTitle
	if record.Default == "" {
		text, err := src.defaultText()
		if err != nil {
			return record, err
		}
		record.Default = text
	}
	if record.Default == "" {
		record.Default = content.Title
	}

	if err := buildGCMEntry(&record.GCM, content, src); err != nil {
		return record, err
	}
	if err := buildAPNSEntry(&record.APNS, content, src); err != nil {
		return record, err
	}
	return record, nil
}

func buildGCMEntry(entry *InboxEntry, content Content, src *inboxSource) error {
	notification, err := src.gcmNotification()
	if err != nil {
		return err
	}

	entry.Title = content.FullTitle
	if entry.Title == "" && notification != nil {
		if title, ok := notification["title"].(string); ok {
			entry.Title = title
		}
	}
	if entry.Title == "" {
		entry.Title = content.Title
	}

	entry.Body = content.FullBody
	if entry.Body == "" && notification != nil {
		if body, ok := notification["body"].(string); ok {
			entry.Body = body
		}
	}
	if entry.Body == "" {
		entry.Body = content.Body
	}
	return nil
}

func buildAPNSEntry(entry *InboxEntry, content Content, src *inboxSource) error {
	alertTitle, alertBody, err := src.apnsAlert()
	if err != nil {
		return err
	}

	entry.Title = content.FullTitle
	if entry.Title == "" {
		entry.Title = alertTitle
	}
	if entry.Title == "" {
		entry.Title = content.Title
	}

	entry.Body = content.FullBody
	if entry.Body == "" {
		entry.Body = alertBody
	}
	if entry.Body == "" {
		entry.Body = content.Body
	}
	return nil
}

// inboxSource decodes the raw payload at most once and hands out the pieces
// each precedence chain reads.
type inboxSource struct {
	payload string
	root    map[string]any
	decoded bool
}

func (s *inboxSource) ensure() error {
	if s.decoded || s.payload == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(s.payload), &s.root); err != nil {
		return err
	}
	s.decoded = true
	return nil
}

func (s *inboxSource) defaultText() (string, error) {
	if err := s.ensure(); err != nil {
		return "", err
	}
	value, ok := s.root[ServiceDefault]
	if !ok {
		return "", nil
	}
	return asText(value), nil
}

// serviceObject decodes the per-service value, which may itself be JSON text.
func (s *inboxSource) serviceObject(service string) (map[string]any, error) {
	if err := s.ensure(); err != nil {
		return nil, err
	}
	value, ok := s.root[service]
	if !ok {
		return nil, nil
	}
	return toObject(value)
}

func (s *inboxSource) gcmNotification() (map[string]any, error) {
	obj, err := s.serviceObject(ServiceGCM)
	if err != nil || obj == nil {
		return nil, err
	}
	notification, _ := obj["notification"].(map[string]any)
	return notification, nil
}

// apnsAlert extracts the alert title and body, handling both the dictionary
// and bare-string alert forms.
func (s *inboxSource) apnsAlert() (title, body string, err error) {
	obj, err := s.serviceObject(ServiceAPNS)
	if err != nil || obj == nil {
		return "", "", err
	}
	aps, _ := obj["aps"].(map[string]any)
	if aps == nil {
		return "", "", nil
	}
	switch alert := aps["alert"].(type) {
	case string:
		return alert, "", nil
	case map[string]any:
		title, _ := alert["title"].(string)
		body, _ := alert["body"].(string)
		return title, body, nil
	}
	return "", "", nil
}

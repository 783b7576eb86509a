package payload

import "encoding/json"

// Content is the caller-supplied source material for one notification send.
// Payload, when set, is the raw multi-service payload as JSON text and takes
// precedence over the simple Title/Body pair. FullTitle/FullBody are the
// long-form fields used for inbox rendering.
type Content struct {
	Title     string
	Body      string
	Payload   string
	FullTitle string
	FullBody  string
}

// Generate builds the outbound fan-out payload: a mapping from service key to
// plain text (default) or JSON text (APNS, GCM). Every APNS/GCM payload leaves
// here with a complete custom section: viewer, command, meta, and the request
// correlation id.
//
// When content carries a raw payload, each service present in it is completed
// in place; otherwise APNS and GCM shells are built from Title/Body. JSON
// errors on caller-supplied payload text propagate unwrapped.
func Generate(content Content, requestID, storageURL string) (map[string]string, error) {
	if content.Payload != "" {
		return generateFromRaw(content.Payload, requestID, storageURL)
	}
	return generateFromTitle(content, requestID, storageURL)
}

func generateFromRaw(rawPayload, requestID, storageURL string) (map[string]string, error) {
	var root map[string]any
	if err := json.Unmarshal([]byte(rawPayload), &root); err != nil {
		return nil, err
	}
	if err := checkServiceKeys(root); err != nil {
		return nil, err
	}

	out := make(map[string]string, len(root))
	if value, ok := root[ServiceDefault]; ok {
		out[ServiceDefault] = asText(value)
	}

	if value, ok := root[ServiceAPNS]; ok {
		obj, err := toObject(value)
		if err != nil {
			return nil, err
		}
		// APNS carries its custom section at the payload root, beside aps.
		completeCustom(obj, requestID, storageURL)
		if err := putJSON(out, ServiceAPNS, obj); err != nil {
			return nil, err
		}
	}

	if value, ok := root[ServiceGCM]; ok {
		obj, err := toObject(value)
		if err != nil {
			return nil, err
		}
		completeCustom(gcmData(obj), requestID, storageURL)
		if err := putJSON(out, ServiceGCM, obj); err != nil {
			return nil, err
		}
	}

	return out, nil
}

func generateFromTitle(content Content, requestID, storageURL string) (map[string]string, error) {
	out := make(map[string]string, 3)
	out[ServiceDefault] = content.Title

	alert := map[string]any{"title": content.Title}
	notification := map[string]any{"title": content.Title}
	if content.Body != "" {
		alert["body"] = content.Body
		notification["body"] = content.Body
	}

	apns := map[string]any{"aps": map[string]any{"alert": alert}}
	completeCustom(apns, requestID, storageURL)
	if err := putJSON(out, ServiceAPNS, apns); err != nil {
		return nil, err
	}

	gcm := map[string]any{"notification": notification, "data": map[string]any{}}
	completeCustom(gcmData(gcm), requestID, storageURL)
	if err := putJSON(out, ServiceGCM, gcm); err != nil {
		return nil, err
	}

	return out, nil
}

// gcmData returns the data object of a GCM payload, creating it when absent.
func gcmData(obj map[string]any) map[string]any {
	if data, ok := obj["data"].(map[string]any); ok {
		return data
	}
	data := map[string]any{}
	obj["data"] = data
	return data
}

// completeCustom fills in the defaults every outbound payload carries: a
// ViewText viewer pointing at the archived content, a ViewMessageDetail
// command, an empty meta, and the request correlation id. A caller-supplied
// viewer keeps its mode; only its URL is replaced once a storage URL exists.
func completeCustom(section map[string]any, requestID, storageURL string) {
	if raw, ok := section["viewer"]; ok {
		if viewer, isObject := raw.(map[string]any); isObject && storageURL != "" {
			viewer["url"] = storageURL
		}
	} else {
		section["viewer"] = map[string]any{"mode": ModeViewText, "url": storageURL}
	}

	if _, ok := section["command"]; !ok {
		section["command"] = map[string]any{"action": ActionViewMessageDetail}
	}
	if _, ok := section["meta"]; !ok {
		section["meta"] = map[string]any{}
	}
	section["req_id"] = requestID
}

func putJSON(out map[string]string, service string, obj map[string]any) error {
	encoded, err := json.Marshal(obj)
	if err != nil {
		return err
	}
	out[service] = string(encoded)
	return nil
}

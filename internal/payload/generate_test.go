package payload_test

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mithileshchellappan/pushgate/internal/payload"
)

func decodeService(t *testing.T, out map[string]string, service string) map[string]any {
	t.Helper()
	text, ok := out[service]
	if !ok {
		t.Fatalf("generated payload has no %s entry", service)
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err != nil {
		t.Fatalf("%s entry is not JSON: %v", service, err)
	}
	return obj
}

func TestGenerateTitleBodyMode(t *testing.T) {
	out, err := payload.Generate(payload.Content{Title: "Hi", Body: "Yo"}, "req-1", "https://x/y")
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	if got := out[payload.ServiceDefault]; got != "Hi" {
		t.Errorf("default entry = %q, want plain title", got)
	}

	apns := decodeService(t, out, payload.ServiceAPNS)
	wantAlert := map[string]any{"title": "Hi", "body": "Yo"}
	aps, _ := apns["aps"].(map[string]any)
	if aps == nil {
		t.Fatal("APNS payload missing aps")
	}
	if diff := cmp.Diff(wantAlert, aps["alert"]); diff != "" {
		t.Errorf("aps.alert mismatch (-want +got):\n%s", diff)
	}

	gcm := decodeService(t, out, payload.ServiceGCM)
	wantNotification := map[string]any{"title": "Hi", "body": "Yo"}
	if diff := cmp.Diff(wantNotification, gcm["notification"]); diff != "" {
		t.Errorf("notification mismatch (-want +got):\n%s", diff)
	}

	wantCustom := map[string]any{
		"viewer":  map[string]any{"mode": "ViewText", "url": "https://x/y"},
		"command": map[string]any{"action": "ViewMessageDetail"},
		"meta":    map[string]any{},
		"req_id":  "req-1",
	}
	// APNS custom section sits at the root beside aps; GCM's under data.
	apnsCustom := map[string]any{}
	for key, value := range apns {
		if key != "aps" {
			apnsCustom[key] = value
		}
	}
	if diff := cmp.Diff(wantCustom, apnsCustom); diff != "" {
		t.Errorf("APNS custom section mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(wantCustom, gcm["data"]); diff != "" {
		t.Errorf("GCM data section mismatch (-want +got):\n%s", diff)
	}
}

func TestGenerateTitleOnlyOmitsBody(t *testing.T) {
	out, err := payload.Generate(payload.Content{Title: "Hi"}, "req-2", "")
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	apns := decodeService(t, out, payload.ServiceAPNS)
	alert := apns["aps"].(map[string]any)["alert"].(map[string]any)
	if _, ok := alert["body"]; ok {
		t.Error("alert carries a body when none was supplied")
	}
}

func TestGenerateRawMode(t *testing.T) {
	raw := `{
		"default": "plain",
		"APNS": {"aps": {"alert": {"title": "T"}}, "viewer": {"mode": "OpenExternal", "url": "https://orig"}},
		"GCM": {"notification": {"title": "T"}, "data": {"command": {"action": "ViewMessageList"}}}
	}`
	out, err := payload.Generate(payload.Content{Payload: raw}, "req-3", "https://store/obj")
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	if got := out[payload.ServiceDefault]; got != "plain" {
		t.Errorf("default entry = %q, want passthrough", got)
	}

	apns := decodeService(t, out, payload.ServiceAPNS)
	viewer, _ := apns["viewer"].(map[string]any)
	if viewer == nil {
		t.Fatal("APNS viewer missing")
	}
	// Supplied viewer keeps its mode, URL is replaced by the storage URL.
	if got := viewer["mode"]; got != "OpenExternal" {
		t.Errorf("viewer mode = %v, want caller's mode preserved", got)
	}
	if got := viewer["url"]; got != "https://store/obj" {
		t.Errorf("viewer url = %v, want storage URL", got)
	}
	if got := apns["req_id"]; got != "req-3" {
		t.Errorf("APNS req_id = %v, want req-3", got)
	}
	if _, ok := apns["meta"]; !ok {
		t.Error("APNS meta default not installed")
	}

	gcm := decodeService(t, out, payload.ServiceGCM)
	data, _ := gcm["data"].(map[string]any)
	if data == nil {
		t.Fatal("GCM data missing")
	}
	command, _ := data["command"].(map[string]any)
	if command == nil || command["action"] != "ViewMessageList" {
		t.Errorf("caller's command was not preserved: %v", data["command"])
	}
	wantViewer := map[string]any{"mode": "ViewText", "url": "https://store/obj"}
	if diff := cmp.Diff(wantViewer, data["viewer"]); diff != "" {
		t.Errorf("GCM default viewer mismatch (-want +got):\n%s", diff)
	}
	if got := data["req_id"]; got != "req-3" {
		t.Errorf("GCM req_id = %v, want req-3", got)
	}
}

func TestGenerateRawModeCreatesData(t *testing.T) {
	out, err := payload.Generate(payload.Content{
		Payload: `{"GCM": {"notification": {"title": "T"}}}`,
	}, "req-4", "")
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	gcm := decodeService(t, out, payload.ServiceGCM)
	data, _ := gcm["data"].(map[string]any)
	if data == nil {
		t.Fatal("data object was not created")
	}
	if got := data["req_id"]; got != "req-4" {
		t.Errorf("req_id = %v, want req-4", got)
	}
}

func TestGenerateRawModeNestedJSONText(t *testing.T) {
	// Per-service values may arrive double-encoded.
	out, err := payload.Generate(payload.Content{
		Payload: `{"APNS": "{\"aps\": {\"alert\": \"T\"}}"}`,
	}, "req-5", "https://x")
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	apns := decodeService(t, out, payload.ServiceAPNS)
	if got := apns["req_id"]; got != "req-5" {
		t.Errorf("req_id = %v, want req-5", got)
	}
}

func TestGenerateRawModeBadJSON(t *testing.T) {
	if _, err := payload.Generate(payload.Content{Payload: `{broken`}, "req", ""); err == nil {
		t.Error("Generate() accepted malformed payload JSON")
	}
	if _, err := payload.Generate(payload.Content{Payload: `{"GCM": "{broken"}`}, "req", ""); err == nil {
		t.Error("Generate() accepted malformed nested JSON")
	}
}

func TestGenerateWithoutStorageURLKeepsViewerURL(t *testing.T) {
	raw := `{"APNS": {"aps": {"alert": "T"}, "viewer": {"mode": "OpenInternal", "url": "https://orig"}}}`
	out, err := payload.Generate(payload.Content{Payload: raw}, "req-6", "")
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	apns := decodeService(t, out, payload.ServiceAPNS)
	viewer := apns["viewer"].(map[string]any)
	if got := viewer["url"]; got != "https://orig" {
		t.Errorf("viewer url = %v, want untouched without a storage URL", got)
	}
}

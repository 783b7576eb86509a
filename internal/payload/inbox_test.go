package payload_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mithileshchellappan/pushgate/internal/payload"
)

func TestBuildInbox(t *testing.T) {
	tests := map[string]struct {
		content payload.Content
		want    payload.InboxRecord
	}{
		"full_title wins everywhere": {
			content: payload.Content{
				Title:     "short",
				FullTitle: "long title",
				Payload:   `{"default": "from payload", "GCM": {"notification": {"title": "gcm title"}}}`,
			},
			want: payload.InboxRecord{
				Default: "long title",
				GCM:     payload.InboxEntry{Title: "long title"},
				APNS:    payload.InboxEntry{Title: "long title"},
			},
		},

		"payload fields beat plain title": {
			content: payload.Content{
				Title: "short",
				Body:  "short body",
				Payload: `{
					"default": "default text",
					"GCM": {"notification": {"title": "gcm title", "body": "gcm body"}},
					"APNS": {"aps": {"alert": {"title": "ios title", "body": "ios body"}}}
				}`,
			},
			want: payload.InboxRecord{
				Default: "default text",
				GCM:     payload.InboxEntry{Title: "gcm title", Body: "gcm body"},
				APNS:    payload.InboxEntry{Title: "ios title", Body: "ios body"},
			},
		},

		"title fallback when payload silent": {
			content: payload.Content{
				Title:   "short",
				Body:    "short body",
				Payload: `{"default": ""}`,
			},
			want: payload.InboxRecord{
				Default: "short",
				GCM:     payload.InboxEntry{Title: "short", Body: "short body"},
				APNS:    payload.InboxEntry{Title: "short", Body: "short body"},
			},
		},

		"string alert form": {
			content: payload.Content{
				Payload: `{"APNS": {"aps": {"alert": "ios title"}}}`,
			},
			want: payload.InboxRecord{
				APNS: payload.InboxEntry{Title: "ios title"},
			},
		},

		"double-encoded service values": {
			content: payload.Content{
				Payload: `{"GCM": "{\"notification\": {\"title\": \"gcm title\"}}", "APNS": "{\"aps\": {\"alert\": {\"title\": \"ios title\"}}}"}`,
			},
			want: payload.InboxRecord{
				GCM:  payload.InboxEntry{Title: "gcm title"},
				APNS: payload.InboxEntry{Title: "ios title"},
			},
		},

		"full_body beats payload body": {
			content: payload.Content{
				FullBody: "long body",
				Payload:  `{"GCM": {"notification": {"title": "gcm title", "body": "gcm body"}}}`,
			},
			want: payload.InboxRecord{
				GCM:  payload.InboxEntry{Title: "gcm title", Body: "long body"},
				APNS: payload.InboxEntry{Body: "long body"},
			},
		},

		"body omitted when no source has one": {
			content: payload.Content{
				Title:   "short",
				Payload: `{"GCM": {"notification": {"title": "gcm title"}}}`,
			},
			want: payload.InboxRecord{
				Default: "short",
				GCM:     payload.InboxEntry{Title: "gcm title"},
				APNS:    payload.InboxEntry{Title: "short"},
			},
		},

		"title and body only": {
			content: payload.Content{Title: "Hi", Body: "Yo"},
			want: payload.InboxRecord{
				Default: "Hi",
				GCM:     payload.InboxEntry{Title: "Hi", Body: "Yo"},
				APNS:    payload.InboxEntry{Title: "Hi", Body: "Yo"},
			},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := payload.BuildInbox(tt.content)
			if err != nil {
				t.Fatalf("BuildInbox() error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("BuildInbox() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBuildInboxBadPayload(t *testing.T) {
	_, err := payload.BuildInbox(payload.Content{Payload: `{broken`})
	if err == nil {
		t.Error("BuildInbox() accepted malformed payload JSON")
	}

	// full_title short-circuits the title chain, but the body chain still
	// reads the payload, so the parse error surfaces anyway.
	_, err = payload.BuildInbox(payload.Content{FullTitle: "t", FullBody: "b", Payload: `{broken`})
	if err == nil {
		t.Error("BuildInbox() skipped payload decode errors")
	}
}

// The inbox builder and the payload parser intentionally derive overlapping
// fields through different precedence chains. This pins the known divergence:
// the parser rejects a GCM payload without notification.title, while the inbox
// builder falls back to the plain title parameter.
func TestInboxParserDivergence(t *testing.T) {
	content := payload.Content{
		Title:   "fallback",
		Payload: `{"GCM": {"notification": {"body": "only body"}}}`,
	}

	if _, err := payload.Parse(content.Payload); err == nil {
		t.Error("Parse() accepted a GCM payload without a title")
	}

	record, err := payload.BuildInbox(content)
	if err != nil {
		t.Fatalf("BuildInbox() error: %v", err)
	}
	if record.GCM.Title != "fallback" {
		t.Errorf("inbox GCM title = %q, want fallback to the title parameter", record.GCM.Title)
	}
}

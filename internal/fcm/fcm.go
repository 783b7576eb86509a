package fcm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/mithileshchellappan/pushgate/internal/storage"
)

const (
	fcmScope    = "https://www.googleapis.com/auth/firebase.messaging"
	fcmEndpoint = "https://fcm.googleapis.com/v1/projects/%s/messages:send"
)

type Client struct {
	httpClient *http.Client
	projectID  string
}

type fcmRequest struct {
	Message fcmMessage `json:"message"`
}

type fcmMessage struct {
	Token        string            `json:"token"`
	Notification notification      `json:"notification"`
	Data         map[string]string `json:"data,omitempty"`
}

type notification struct {
	Title string `json:"title"`
	Body  string `json:"body,omitempty"`
}

// gcmPayload is the generator's GCM wire shape: notification plus the custom
// section under data.
type gcmPayload struct {
	Notification notification   `json:"notification"`
	Data         map[string]any `json:"data"`
}

func NewClient(ctx context.Context, serviceAccountJson []byte) (*Client, error) {
	creds, err := google.CredentialsFromJSON(ctx, serviceAccountJson, fcmScope)
	if err != nil {
		return nil, err
	}
	var rawJSON map[string]interface{}
	if err := json.Unmarshal(serviceAccountJson, &rawJSON); err != nil {
		return nil, err
	}
	projectID, ok := rawJSON["project_id"].(string)
	if !ok {
		return nil, fmt.Errorf("service account JSON has no project_id")
	}
	httpClient := oauth2.NewClient(ctx, creds.TokenSource)
	httpClient.Timeout = 10 * time.Second

	return &Client{httpClient: httpClient, projectID: projectID}, nil
}

// Send translates the generator's GCM payload into an FCM v1 send request.
// FCM v1 only accepts string data values, so structured custom fields (viewer,
// command, meta) ride along JSON-encoded.
func (c *Client) Send(ctx context.Context, token *storage.DeviceToken, wirePayload string) error {
	var payload gcmPayload
	if err := json.Unmarshal([]byte(wirePayload), &payload); err != nil {
		return fmt.Errorf("malformed GCM payload: %w", err)
	}

	message := fcmMessage{
		Token:        token.Token,
		Notification: payload.Notification,
		Data:         flattenData(payload.Data),
	}

	payloadBytes, err := json.Marshal(fcmRequest{Message: message})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", fmt.Sprintf(fcmEndpoint, c.projectID), bytes.NewBuffer(payloadBytes))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to send notification: %s", resp.Status)
	}

	return nil
}

func flattenData(data map[string]any) map[string]string {
	if len(data) == 0 {
		return nil
	}
	out := make(map[string]string, len(data))
	for key, value := range data {
		if s, ok := value.(string); ok {
			out[key] = s
			continue
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			continue
		}
		out[key] = string(encoded)
	}
	return out
}

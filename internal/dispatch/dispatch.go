package dispatch

import (
	"context"

	"github.com/mithileshchellappan/pushgate/internal/storage"
)

// Platform names used for device registration and dispatcher selection.
const (
	PlatformAPNS = "apns"
	PlatformFCM  = "fcm"
)

// Dispatcher delivers one pre-rendered wire payload to one device. The
// payload text is exactly what the generator produced for the dispatcher's
// platform (APNS or GCM JSON); dispatchers do not reshape message content.
type Dispatcher interface {
	Send(ctx context.Context, token *storage.DeviceToken, wirePayload string) error
}

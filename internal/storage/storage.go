package storage

import (
	"context"
	"errors"
)

// Message statuses.
const (
	StatusPending    = "PENDING"
	StatusInProgress = "IN_PROGRESS"
	StatusCompleted  = "COMPLETED"
)

// Message is a sent (or queued) notification with its rendered outbound
// payload, stored as the service-to-text mapping JSON-encoded.
type Message struct {
	ID        string `json:"id"`
	Domain    string `json:"domain"`
	RequestID string `json:"request_id"`
	Payload   string `json:"payload"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

// InboxMessage is the archived inbox rendering of a sent notification.
type InboxMessage struct {
	ID        string `json:"id"`
	Domain    string `json:"domain"`
	MessageID string `json:"message_id"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

// DeviceToken is a registered push target within a domain.
type DeviceToken struct {
	ID        string `json:"id"`
	Domain    string `json:"domain"`
	Platform  string `json:"platform"`
	Token     string `json:"token"`
	CreatedAt string `json:"created_at"`
}

type TokenBatch struct {
	Tokens     []DeviceToken
	HasMore    bool
	NextCursor string
}

// DeliveryReceipt records the outcome of one dispatch attempt.
type DeliveryReceipt struct {
	ID           string `json:"id"`
	MessageID    string `json:"message_id"`
	TokenID      string `json:"token_id"`
	Status       string `json:"status"`
	StatusReason string `json:"status_reason"`
	DispatchedAt string `json:"dispatched_at"`
}

var Errors = struct {
	NotFound      error
	AlreadyExists error
}{
	NotFound:      errors.New("not found"),
	AlreadyExists: errors.New("already exists"),
}

type Store interface {
	CreateMessage(ctx context.Context, msg *Message) error
	GetMessage(ctx context.Context, messageID string) (*Message, error)
	UpdateMessageStatus(ctx context.Context, messageID string, status string) error
	FetchPendingMessages(ctx context.Context, limit int) ([]Message, error)

	CreateInboxMessage(ctx context.Context, msg *InboxMessage) error
	ListInbox(ctx context.Context, domain string, limit int) ([]InboxMessage, error)

	RegisterToken(ctx context.Context, token *DeviceToken) error
	DeleteToken(ctx context.Context, tokenID string) error
	GetTokenBatchForDomain(ctx context.Context, domain string, cursor string, batchSize int) (*TokenBatch, error)

	BulkInsertReceipts(ctx context.Context, receipts []DeliveryReceipt) error

	Close() error
}

package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/mithileshchellappan/pushgate/internal/archive"
	"github.com/mithileshchellappan/pushgate/internal/dispatch"
	"github.com/mithileshchellappan/pushgate/internal/params"
	"github.com/mithileshchellappan/pushgate/internal/payload"
	"github.com/mithileshchellappan/pushgate/internal/storage"
)

type PushgateService struct {
	store    storage.Store
	archiver archive.Archiver
}

// SendRequest is one validated-and-queued notification send.
type SendRequest struct {
	Domain  string
	Content payload.Content
	Archive bool
}

// ServiceDetail is the normalized view of one platform's payload within a
// stored message.
type ServiceDetail struct {
	Service string           `json:"service"`
	Title   string           `json:"title"`
	Body    string           `json:"body,omitempty"`
	Viewer  *payload.Viewer  `json:"viewer,omitempty"`
	Command *payload.Command `json:"command,omitempty"`
}

// MessageDetail is the answer to a "get notification detail" query.
type MessageDetail struct {
	ID        string          `json:"id"`
	Domain    string          `json:"domain"`
	RequestID string          `json:"request_id"`
	Status    string          `json:"status"`
	CreatedAt string          `json:"created_at"`
	Services  []ServiceDetail `json:"services"`
}

func NewPushgateService(store storage.Store, archiver archive.Archiver) *PushgateService {
	return &PushgateService{store: store, archiver: archiver}
}

// SendMessage validates the request, renders the outbound payload, archives
// the inbox record when asked to, and stores the message as PENDING for the
// fan-out workers. The returned message carries the rendered payload.
func (s *PushgateService) SendMessage(ctx context.Context, req SendRequest) (*storage.Message, error) {
	set := params.Set{
		"domain":  req.Domain,
		"title":   req.Content.Title,
		"payload": req.Content.Payload,
	}
	required := []string{"domain"}
	if req.Content.Payload == "" {
		required = append(required, "title")
	}
	if err := params.Validate(set, required...); err != nil {
		return nil, err
	}
	if err := params.ValidateCustom(set, "domain_name"); err != nil {
		return nil, err
	}

	requestID := uuid.New().String()

	// Parse up front so malformed payloads are rejected before anything is
	// archived or stored.
	var view *payload.Message
	if req.Content.Payload != "" {
		var err error
		view, err = payload.Parse(req.Content.Payload)
		if err != nil {
			return nil, err
		}
	}

	storageURL := ""
	if req.Archive && s.archiver != nil {
		url, err := s.archiver.Save(ctx, "messages/"+requestID+".txt", []byte(archiveText(req.Content)), "")
		if err != nil {
			return nil, fmt.Errorf("error archiving message content: %w", err)
		}
		storageURL = url
		if view != nil {
			for _, service := range view.ServiceKeys() {
				view.SetViewTextURL(service, storageURL)
			}
		}
	}

	out, err := payload.Generate(req.Content, requestID, storageURL)
	if err != nil {
		return nil, err
	}
	outJSON, err := json.Marshal(out)
	if err != nil {
		return nil, err
	}

	msg := &storage.Message{
		ID:        uuid.New().String(),
		Domain:    req.Domain,
		RequestID: requestID,
		Payload:   string(outJSON),
		Status:    storage.StatusPending,
	}
	if err := s.store.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}

	if req.Archive {
		record, err := payload.BuildInbox(req.Content)
		if err != nil {
			return nil, err
		}
		content, err := json.Marshal(record)
		if err != nil {
			return nil, err
		}
		inbox := &storage.InboxMessage{
			ID:        uuid.New().String(),
			Domain:    req.Domain,
			MessageID: msg.ID,
			Content:   string(content),
		}
		if err := s.store.CreateInboxMessage(ctx, inbox); err != nil {
			return nil, err
		}
	}

	return msg, nil
}

// archiveText picks the content worth archiving: the long-form body when
// present, otherwise the plain body, otherwise the title.
func archiveText(content payload.Content) string {
	if content.FullBody != "" {
		return content.FullBody
	}
	if content.Body != "" {
		return content.Body
	}
	return content.Title
}

// GetMessageDetail loads a stored message and re-parses its outbound payload
// into the normalized per-service view.
func (s *PushgateService) GetMessageDetail(ctx context.Context, messageID string) (*MessageDetail, error) {
	msg, err := s.store.GetMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}

	var out map[string]string
	if err := json.Unmarshal([]byte(msg.Payload), &out); err != nil {
		return nil, err
	}
	raw := make(map[string]any, len(out))
	for service, text := range out {
		raw[service] = text
	}
	view, err := payload.Parse(raw)
	if err != nil {
		return nil, err
	}

	detail := &MessageDetail{
		ID:        msg.ID,
		Domain:    msg.Domain,
		RequestID: msg.RequestID,
		Status:    msg.Status,
		CreatedAt: msg.CreatedAt,
	}
	for _, service := range view.ServiceKeys() {
		detail.Services = append(detail.Services, ServiceDetail{
			Service: service,
			Title:   view.Title(service),
			Body:    view.Body(service),
			Viewer:  view.Viewer(service),
			Command: view.Command(service),
		})
	}
	return detail, nil
}

// ListInbox returns the archived inbox history for a domain, newest first.
func (s *PushgateService) ListInbox(ctx context.Context, domain string, limit int) ([]storage.InboxMessage, error) {
	set := params.Set{"domain": domain}
	if err := params.Validate(set, "domain"); err != nil {
		return nil, err
	}
	if err := params.ValidateCustom(set, "domain_name"); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.store.ListInbox(ctx, domain, limit)
}

// RegisterToken stores a device push target for a domain.
func (s *PushgateService) RegisterToken(ctx context.Context, domain, platform, token string) (*storage.DeviceToken, error) {
	set := params.Set{"domain": domain, "platform": platform, "token": token}
	if err := params.Validate(set, "domain", "platform", "token"); err != nil {
		return nil, err
	}
	if err := params.ValidateCustom(set, "domain_name"); err != nil {
		return nil, err
	}
	if platform != dispatch.PlatformAPNS && platform != dispatch.PlatformFCM {
		return nil, &params.InvalidFormatError{Field: "platform"}
	}

	record := &storage.DeviceToken{
		ID:       uuid.New().String(),
		Domain:   domain,
		Platform: platform,
		Token:    token,
	}
	if err := s.store.RegisterToken(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *PushgateService) RemoveToken(ctx context.Context, tokenID string) error {
	return s.store.DeleteToken(ctx, tokenID)
}

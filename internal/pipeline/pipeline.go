package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mithileshchellappan/pushgate/internal/dispatch"
	"github.com/mithileshchellappan/pushgate/internal/events"
	"github.com/mithileshchellappan/pushgate/internal/payload"
	"github.com/mithileshchellappan/pushgate/internal/storage"
	"github.com/mithileshchellappan/pushgate/pkg/metrics"
	"github.com/mithileshchellappan/pushgate/pkg/retry"
)

type NotificationPipeline struct {
	store       storage.Store
	dispatchers map[string]dispatch.Dispatcher
	publisher   *events.Publisher
	metrics     *metrics.Metrics
	numSenders  int
	batchSize   int
}

func NewNotificationPipeline(store storage.Store, dispatchers map[string]dispatch.Dispatcher, publisher *events.Publisher, m *metrics.Metrics, numSenders int, batchSize int) *NotificationPipeline {
	return &NotificationPipeline{
		store:       store,
		dispatchers: dispatchers,
		publisher:   publisher,
		metrics:     m,
		numSenders:  numSenders,
		batchSize:   batchSize,
	}
}

// ProcessMessage fans one stored message out to every device token registered
// for its domain: token batches stream into sender goroutines, receipts are
// collected and batch-inserted.
func (p *NotificationPipeline) ProcessMessage(ctx context.Context, msg *storage.Message) error {
	slog.Info("starting fan-out", "message", msg.ID, "domain", msg.Domain)

	var wire map[string]string
	if err := json.Unmarshal([]byte(msg.Payload), &wire); err != nil {
		return fmt.Errorf("message %s has malformed payload: %w", msg.ID, err)
	}

	tokensChan := make(chan storage.DeviceToken, p.batchSize)
	resultsChan := make(chan storage.DeliveryReceipt, p.batchSize)

	p.store.UpdateMessageStatus(ctx, msg.ID, storage.StatusInProgress)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		p.collectResults(ctx, resultsChan)
	}()
	go p.fetchTokens(ctx, msg, tokensChan)

	p.startSenders(ctx, msg, wire, tokensChan, resultsChan)
	wg.Wait()
	p.store.UpdateMessageStatus(ctx, msg.ID, storage.StatusCompleted)

	return nil
}

func (p *NotificationPipeline) fetchTokens(ctx context.Context, msg *storage.Message, tokensChan chan<- storage.DeviceToken) {
	defer close(tokensChan)
	cursor := ""

	for {
		batch, err := p.store.GetTokenBatchForDomain(ctx, msg.Domain, cursor, p.batchSize)
		if err != nil {
			slog.Error("error fetching tokens", "message", msg.ID, "error", err)
			return
		}

		for _, token := range batch.Tokens {
			select {
			case tokensChan <- token:
			case <-ctx.Done():
				return
			}
		}

		if !batch.HasMore {
			return
		}
		cursor = batch.NextCursor
	}
}

func (p *NotificationPipeline) startSenders(ctx context.Context, msg *storage.Message, wire map[string]string, tokensChan <-chan storage.DeviceToken, resultsChan chan<- storage.DeliveryReceipt) {
	var wg sync.WaitGroup
	for i := 0; i < p.numSenders; i++ {
		wg.Add(1)
		go p.sender(ctx, msg, wire, tokensChan, resultsChan, &wg)
	}
	wg.Wait()
	close(resultsChan)
}

// wireForPlatform maps a device platform to the rendered payload it receives.
func wireForPlatform(wire map[string]string, platform string) (string, bool) {
	switch platform {
	case dispatch.PlatformAPNS:
		text, ok := wire[payload.ServiceAPNS]
		return text, ok
	case dispatch.PlatformFCM:
		text, ok := wire[payload.ServiceGCM]
		return text, ok
	}
	return "", false
}

func (p *NotificationPipeline) sender(ctx context.Context, msg *storage.Message, wire map[string]string, tokensChan <-chan storage.DeviceToken, resultsChan chan<- storage.DeliveryReceipt, wg *sync.WaitGroup) {
	defer wg.Done()

	for token := range tokensChan {
		receipt := storage.DeliveryReceipt{
			ID:           uuid.New().String(),
			MessageID:    msg.ID,
			TokenID:      token.ID,
			Status:       "SUCCESS",
			DispatchedAt: time.Now().UTC().Format(time.RFC3339),
		}

		dispatcher, ok := p.dispatchers[token.Platform]
		if !ok {
			receipt.Status = "FAILED"
			receipt.StatusReason = fmt.Sprintf("no dispatcher for platform: %s", token.Platform)
			p.metrics.IncFailed()
			resultsChan <- receipt
			continue
		}

		wirePayload, ok := wireForPlatform(wire, token.Platform)
		if !ok {
			receipt.Status = "FAILED"
			receipt.StatusReason = fmt.Sprintf("message has no payload for platform: %s", token.Platform)
			p.metrics.IncFailed()
			resultsChan <- receipt
			continue
		}

		err := retry.Do(ctx, retry.Config{MaxAttempts: 3, InitialBackoff: 200 * time.Millisecond}, func() error {
			return dispatcher.Send(ctx, &token, wirePayload)
		})
		if err != nil {
			receipt.Status = "FAILED"
			receipt.StatusReason = err.Error()
			p.metrics.IncFailed()
		} else {
			p.metrics.IncDispatched()
		}
		resultsChan <- receipt
	}
}

func (p *NotificationPipeline) collectResults(ctx context.Context, resultsChan <-chan storage.DeliveryReceipt) {
	var batch []storage.DeliveryReceipt

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}

		if err := p.store.BulkInsertReceipts(ctx, batch); err != nil {
			slog.Error("failed to bulk insert delivery receipts", "error", err)
		}
		if p.publisher != nil {
			if err := p.publisher.PublishReceipts(ctx, batch); err != nil {
				slog.Warn("failed to publish delivery events", "error", err)
			}
		}

		batch = batch[:0]
	}

	for {
		select {
		case receipt, ok := <-resultsChan:
			if !ok {
				flush()
				return
			}

			batch = append(batch, receipt)
			if len(batch) >= 1000 {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-ctx.Done():
			flush()
			return
		}
	}
}

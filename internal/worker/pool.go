package worker

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mithileshchellappan/pushgate/internal/dispatch"
	"github.com/mithileshchellappan/pushgate/internal/events"
	"github.com/mithileshchellappan/pushgate/internal/pipeline"
	"github.com/mithileshchellappan/pushgate/internal/storage"
	"github.com/mithileshchellappan/pushgate/pkg/metrics"
)

type Pool struct {
	store       storage.Store
	dispatchers map[string]dispatch.Dispatcher
	publisher   *events.Publisher
	metrics     *metrics.Metrics
	msgChan     chan *storage.Message
	numWorkers  int
	numSenders  int
	batchSize   int
	wg          sync.WaitGroup
	closed      bool
	mu          sync.RWMutex
}

func NewPool(store storage.Store, dispatchers map[string]dispatch.Dispatcher, publisher *events.Publisher, m *metrics.Metrics, numWorkers, numSenders, queueSize, batchSize int) *Pool {
	return &Pool{
		store:       store,
		dispatchers: dispatchers,
		publisher:   publisher,
		metrics:     m,
		msgChan:     make(chan *storage.Message, queueSize),
		numWorkers:  numWorkers,
		numSenders:  numSenders,
		batchSize:   batchSize,
	}
}

func (p *Pool) Start() {
	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	pipe := pipeline.NewNotificationPipeline(p.store, p.dispatchers, p.publisher, p.metrics, p.numSenders, p.batchSize)
	slog.Debug("worker pipeline created", "worker", id, "senders", p.numSenders)

	for msg := range p.msgChan {
		slog.Info("processing message", "worker", id, "message", msg.ID)

		if err := pipe.ProcessMessage(context.Background(), msg); err != nil {
			slog.Error("error processing message", "worker", id, "message", msg.ID, "error", err)
		}
	}

	slog.Debug("worker exiting", "worker", id)
}

func (p *Pool) Submit(msg *storage.Message) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		slog.Warn("worker pool is closed, rejecting message", "message", msg.ID)
		return false
	}
	p.msgChan <- msg
	return true
}

func (p *Pool) Stop() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	close(p.msgChan)
	p.wg.Wait()
	slog.Info("worker pool stopped")
}

package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/mithileshchellappan/pushgate/internal/storage"
	"github.com/mithileshchellappan/pushgate/internal/worker"
)

// Scheduler re-queues messages stuck in PENDING, e.g. after a crash between
// accepting a send and the worker picking it up.
type Scheduler struct {
	store      storage.Store
	workerPool *worker.Pool
	stopChan   chan struct{}
	interval   int
}

func New(store storage.Store, workerPool *worker.Pool, interval int) *Scheduler {
	return &Scheduler{
		store:      store,
		workerPool: workerPool,
		interval:   interval,
		stopChan:   make(chan struct{}),
	}
}

func (s *Scheduler) Start() {
	go func() {
		ticker := time.NewTicker(time.Duration(s.interval) * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.requeueStalled()
			case <-s.stopChan:
				return
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.stopChan <- struct{}{}
}

func (s *Scheduler) requeueStalled() {
	messages, err := s.store.FetchPendingMessages(context.Background(), 100)
	if err != nil {
		slog.Error("error fetching pending messages", "error", err)
		return
	}

	// Freshly accepted messages are PENDING too; only pick up ones old
	// enough that the in-memory queue has clearly dropped them. RFC 3339
	// UTC timestamps compare correctly as strings.
	cutoff := time.Now().UTC().Add(-time.Minute).Format(time.RFC3339)
	for i := range messages {
		if messages[i].CreatedAt < cutoff {
			s.workerPool.Submit(&messages[i])
		}
	}
}

package storage

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/dyike/FinDocHub/models"
)

var ErrRecorderClosed = errors.New("recorder is closed")

type recordJob struct {
	rec     models.HistoryRecord
	flushed chan struct{} // set for flush markers only
}

// AsyncRecorder hands records to a single writer goroutine so that slow disk
// writes never hold up a tool slot's completion.
type AsyncRecorder struct {
	store *Store

	mu     sync.Mutex
	closed bool
	jobs   chan recordJob
	wg     sync.WaitGroup
}

func NewAsyncRecorder(store *Store) (*AsyncRecorder, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	r := &AsyncRecorder{
		store: store,
		jobs:  make(chan recordJob, 64),
	}
	r.wg.Add(1)
	go r.loop()
	return r, nil
}

func (r *AsyncRecorder) loop() {
	defer r.wg.Done()
	ctx := context.Background()
	for job := range r.jobs {
		if job.flushed != nil {
			close(job.flushed)
			continue
		}
		if err := r.store.Record(ctx, job.rec); err != nil {
			log.Printf("storage: record %s: %v", job.rec.Tool, err)
		}
	}
}

// Record queues rec. It blocks only while the queue is full.
func (r *AsyncRecorder) Record(ctx context.Context, rec models.HistoryRecord) error {
	return r.enqueue(ctx, recordJob{rec: rec})
}

// Flush waits until every record queued before the call has been written.
func (r *AsyncRecorder) Flush(ctx context.Context) error {
	done := make(chan struct{})
	if err := r.enqueue(ctx, recordJob{flushed: done}); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *AsyncRecorder) enqueue(ctx context.Context, job recordJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRecorderClosed
	}
	select {
	case r.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close flushes queued records and stops the writer. The store stays open.
func (r *AsyncRecorder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.jobs)
	r.mu.Unlock()
	r.wg.Wait()
}

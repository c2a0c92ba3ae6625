package worker

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	amqp "github.com/rabbitmq/amqp091-go"
)

// fakeAcker records ack/nack calls on a delivery.
type fakeAcker struct {
	mu      sync.Mutex
	acks    int
	nacks   int
	requeue bool
}

func (f *fakeAcker) Ack(tag uint64, multiple bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acks++
	return nil
}

func (f *fakeAcker) Nack(tag uint64, multiple, requeue bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nacks++
	f.requeue = requeue
	return nil
}

func (f *fakeAcker) Reject(tag uint64, requeue bool) error {
	return f.Nack(tag, false, requeue)
}

type recordingRunner struct {
	mu   sync.Mutex
	jobs []string
	done chan struct{}
}

func (r *recordingRunner) Run(ctx context.Context, jobID string) {
	r.mu.Lock()
	r.jobs = append(r.jobs, jobID)
	r.mu.Unlock()
	if r.done != nil {
		r.done <- struct{}{}
	}
}

func newTestWorker(runner JobRunner) *Worker {
	return NewWorker(&Config{
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		Runner:      runner,
		WorkerID:    "test-worker",
		Concurrency: 1,
	})
}

func TestDispatch_MalformedJSON(t *testing.T) {
	w := newTestWorker(&recordingRunner{})
	acker := &fakeAcker{}

	w.dispatch(context.Background(), amqp.Delivery{
		Acknowledger: acker,
		Body:         []byte("{not json"),
	})

	assert.Equal(t, 1, acker.nacks)
	assert.False(t, acker.requeue, "malformed message must not be requeued")
	assert.Equal(t, 0, acker.acks)
}

func TestDispatch_InvalidJobID(t *testing.T) {
	w := newTestWorker(&recordingRunner{})
	acker := &fakeAcker{}

	w.dispatch(context.Background(), amqp.Delivery{
		Acknowledger: acker,
		Body:         []byte(`{"job_id":"not-a-uuid"}`),
	})

	assert.Equal(t, 1, acker.nacks)
	assert.False(t, acker.requeue)
}

func TestDispatch_ValidMessage(t *testing.T) {
	w := newTestWorker(&recordingRunner{})
	acker := &fakeAcker{}

	const jobID = "7b1de1a3-0a44-4f88-9f6e-0f2b7a2c9d11"
	go w.dispatch(context.Background(), amqp.Delivery{
		Acknowledger: acker,
		Body:         []byte(`{"job_id":"` + jobID + `"}`),
	})

	select {
	case msg := <-w.jobsChan:
		assert.Equal(t, jobID, msg.JobID)
	case <-time.After(time.Second):
		t.Fatal("job was not dispatched")
	}
	assert.Equal(t, 0, acker.nacks)
}

func TestDispatch_ShutdownRequeues(t *testing.T) {
	w := newTestWorker(&recordingRunner{})
	acker := &fakeAcker{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// No pool is draining jobsChan, so dispatch can only exit via ctx.
	w.dispatch(ctx, amqp.Delivery{
		Acknowledger: acker,
		Body:         []byte(`{"job_id":"7b1de1a3-0a44-4f88-9f6e-0f2b7a2c9d11"}`),
	})

	assert.Equal(t, 1, acker.nacks)
	assert.True(t, acker.requeue, "in-flight message must be requeued on shutdown")
}

func TestWorkerLoop_RunsJobAndAcks(t *testing.T) {
	runner := &recordingRunner{done: make(chan struct{}, 1)}
	w := newTestWorker(runner)
	acker := &fakeAcker{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.spawnWorkerPool(ctx)

	const jobID = "7b1de1a3-0a44-4f88-9f6e-0f2b7a2c9d11"
	w.jobsChan <- &jobMessage{
		JobID:    jobID,
		delivery: amqp.Delivery{Acknowledger: acker, DeliveryTag: 7},
	}

	select {
	case <-runner.done:
	case <-time.After(time.Second):
		t.Fatal("runner was not invoked")
	}

	// Ack happens after Run returns.
	require.Eventually(t, func() bool {
		acker.mu.Lock()
		defer acker.mu.Unlock()
		return acker.acks == 1
	}, time.Second, 10*time.Millisecond)

	runner.mu.Lock()
	defer runner.mu.Unlock()
	assert.Equal(t, []string{jobID}, runner.jobs)

	cancel()
	w.Stop()
}

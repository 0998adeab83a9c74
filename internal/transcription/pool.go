package transcription

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"subflick/internal/worker"
)

// Pool serializes access to a Transcriber through a fixed number of workers
// and a bounded queue. When the queue is full callers get ErrBusy at once.
type Pool struct {
	inner      Transcriber
	dispatcher *worker.Dispatcher
	log        logrus.FieldLogger
}

// NewPool starts workers goroutines in front of inner.
func NewPool(inner Transcriber, workers, queueSize int, log logrus.FieldLogger) *Pool {
	if log == nil {
		log = logrus.StandardLogger()
	}
	d := worker.NewDispatcher(workers, queueSize, log.WithField("pool", "transcription"))
	d.Run()
	return &Pool{inner: inner, dispatcher: d, log: log}
}

type outcome struct {
	transcript *Transcript
	err        error
}

type transcribeJob struct {
	id     string
	ctx    context.Context
	audio  Audio
	inner  Transcriber
	result chan outcome
}

func (j *transcribeJob) ID() string { return j.id }

// Execute runs under the caller's context and is also cancelled when the
// pool stops.
func (j *transcribeJob) Execute(poolCtx context.Context) (err error) {
	var t *Transcript
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("transcriber panicked: %v", r)
		}
		j.result <- outcome{transcript: t, err: err}
	}()

	ctx, cancel := context.WithCancel(j.ctx)
	defer cancel()
	stop := context.AfterFunc(poolCtx, cancel)
	defer stop()

	if err := ctx.Err(); err != nil {
		return err
	}
	t, err = j.inner.Transcribe(ctx, j.audio)
	return err
}

// Transcribe queues the request and waits for a worker to finish it or for
// ctx to end.
func (p *Pool) Transcribe(ctx context.Context, audio Audio) (*Transcript, error) {
	job := &transcribeJob{
		id:     uuid.NewString(),
		ctx:    ctx,
		audio:  audio,
		inner:  p.inner,
		result: make(chan outcome, 1),
	}
	if err := p.dispatcher.Submit(job); err != nil {
		if errors.Is(err, worker.ErrQueueFull) || errors.Is(err, worker.ErrStopped) {
			p.log.WithField("pending", p.dispatcher.Pending()).Warn("transcription request rejected")
			return nil, fmt.Errorf("%w: %v", ErrBusy, err)
		}
		return nil, err
	}
	select {
	case out := <-job.result:
		return out.transcript, out.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Pending reports how many requests are waiting for a worker.
func (p *Pool) Pending() int { return p.dispatcher.Pending() }

// Close stops the workers. Queued requests fail with a cancellation error.
func (p *Pool) Close() {
	p.dispatcher.Stop()
}

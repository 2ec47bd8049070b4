package notify

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/kanjiarena/kanji-arena/internal/metrics"
)

const (
	defaultQueueSize   = 64
	defaultSendTimeout = 10 * time.Second
)

// evaluator is satisfied by *Notifier.
type evaluator interface {
	Evaluate(ctx context.Context, job Job) (Result, error)
}

// Worker drains notification jobs in the background so a win response never
// waits on ranking lookups or mail delivery.
type Worker struct {
	notifier evaluator
	queue    chan Job
	timeout  time.Duration
	logger   zerolog.Logger
}

func NewWorker(notifier evaluator, queueSize int, timeout time.Duration, logger zerolog.Logger) *Worker {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	return &Worker{
		notifier: notifier,
		queue:    make(chan Job, queueSize),
		timeout:  timeout,
		logger:   logger.With().Str("component", "notification_worker").Logger(),
	}
}

// Enqueue hands a job to the worker without blocking. It reports false, and
// the job is lost, when the queue is full.
func (w *Worker) Enqueue(job Job) bool {
	select {
	case w.queue <- job:
		return true
	default:
		metrics.Notifications.WithLabelValues(string(ResultDropped)).Inc()
		w.logger.Warn().Str("record_id", job.RecordID.String()).Msg("notification queue full, job dropped")
		return false
	}
}

// Run processes jobs until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("notification worker stopping")
			return ctx.Err()
		case job := <-w.queue:
			w.handle(ctx, job)
		}
	}
}

func (w *Worker) handle(ctx context.Context, job Job) {
	jobCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	result, err := w.notifier.Evaluate(jobCtx, job)
	metrics.Notifications.WithLabelValues(string(result)).Inc()
	if err != nil {
		w.logger.Warn().Err(err).
			Str("record_id", job.RecordID.String()).
			Str("mode", job.Mode.String()).
			Msg("out-of-ranking notification failed")
		return
	}
	w.logger.Debug().Str("record_id", job.RecordID.String()).Str("result", string(result)).Msg("notification evaluated")
}

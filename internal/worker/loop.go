package worker

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sahanbull/wikichunker/internal/enrich"
)

// Default loop intervals. Connection errors back off briefly; an empty queue
// sleeps longer before re-polling; a malformed reply waits longest since it
// usually means the collaborator is mid-deploy.
const (
	DefaultTransportBackoff = 5 * time.Second
	DefaultIdleSleep        = 10 * time.Second
	DefaultMalformedSleep   = 60 * time.Second
)

var (
	tasksProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "worker_tasks_processed_total",
		Help: "Enrichment tasks completed successfully.",
	})
	tasksFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "worker_tasks_failed_total",
		Help: "Enrichment tasks that ended in a failed enrichment.",
	})
)

// Chunkifier captures the pipeline entry point the loop drives.
type Chunkifier interface {
	Chunkify(ctx context.Context, res enrich.Resource) (enrich.Enrichment, error)
}

// Loop polls the queue, runs the chunkifier on each claimed resource and
// reports the result back. It alternates between exactly two states, idle
// (polling) and processing, and never terminates on a single task's failure.
type Loop struct {
	Client     *Client
	Chunkifier Chunkifier
	Logger     *log.Logger

	TransportBackoff time.Duration
	IdleSleep        time.Duration
	MalformedSleep   time.Duration
}

func NewLoop(client *Client, chunkifier Chunkifier, logger *log.Logger) *Loop {
	return &Loop{
		Client:           client,
		Chunkifier:       chunkifier,
		Logger:           logger,
		TransportBackoff: DefaultTransportBackoff,
		IdleSleep:        DefaultIdleSleep,
		MalformedSleep:   DefaultMalformedSleep,
	}
}

// Run blocks until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	l.Logger.Printf("enrichment worker starting, polling %s", l.Client.BaseURL)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		res, info, err := l.Client.PullTask(ctx)
		switch {
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			return ctx.Err()
		case errors.Is(err, ErrMalformedResponse):
			l.Logger.Printf("queue response malformed, waiting")
			l.sleep(ctx, l.MalformedSleep)
		case err != nil:
			l.Logger.Printf("queue unreachable (%v), waiting for it to respond", err)
			l.sleep(ctx, l.TransportBackoff)
		case res != nil:
			l.process(ctx, *res)
		default:
			l.Logger.Printf("queue says: %s", info)
			l.sleep(ctx, l.IdleSleep)
		}
	}
}

// process runs one chunkify-then-report cycle. Pipeline errors become a
// failed enrichment reported to the queue; push errors are only logged, the
// lease expiry will eventually hand the task to another worker.
func (l *Loop) process(ctx context.Context, res enrich.Resource) {
	l.Logger.Printf("processing %s (%s)", res.URL, enrich.Classify(res.URL))
	enrichment, err := l.Chunkifier.Chunkify(ctx, res)

	var errMessage *string
	if err != nil {
		msg := err.Error()
		errMessage = &msg
		tasksFailed.Inc()
		l.Logger.Printf("enrichment of %s failed: %s", res.URL, msg)
	} else {
		tasksProcessed.Inc()
		l.Logger.Printf("enriched %s: %d chunks", res.URL, len(enrichment.Chunks))
	}

	if err := l.Client.PushEnrichment(ctx, res.URL, enrichment, errMessage); err != nil {
		l.Logger.Printf("report for %s did not reach the queue: %v", res.URL, err)
	}
}

func (l *Loop) sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

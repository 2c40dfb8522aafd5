package broker

import (
	"context"

	"github.com/segmentio/kafka-go"
	"github.com/wb-go/wbf/retry"
)

// Producer is the ingestion-side half of the job queue: it enqueues an
// analysis job for a freshly created record.
type Producer interface {
	Enqueue(ctx context.Context, imageID string) error
	Close() error
}

// Consumer is the worker-side half: it feeds raw messages to the worker
// pool and commits them once handled.
type Consumer interface {
	StartConsuming(ctx context.Context, out chan<- kafka.Message, strategy retry.Strategy)
	Commit(ctx context.Context, msg kafka.Message) error
	Close() error
}

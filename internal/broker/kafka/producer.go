package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"image-analyzer/internal/config"
	"image-analyzer/internal/domain"

	"github.com/google/uuid"
	wbkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/retry"
)

type ProducerClient struct {
	producer *wbkafka.Producer
	retries  retry.Strategy
}

func NewProducerClient(cfg *config.Config) *ProducerClient {
	return &ProducerClient{
		producer: wbkafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.AnalysisTopic),
		retries:  cfg.DefaultRetryStrategy(),
	}
}

// Enqueue publishes an analysis task for the record. The record id is the
// message key so jobs for one record land on one partition.
func (p *ProducerClient) Enqueue(ctx context.Context, imageID string) error {
	task := domain.AnalysisTask{
		ID:      uuid.New().String(),
		ImageID: imageID,
	}

	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal analysis task: %w", err)
	}

	if err := p.producer.SendWithRetry(ctx, p.retries, []byte(imageID), payload); err != nil {
		return fmt.Errorf("failed to enqueue analysis task: %w", err)
	}

	return nil
}

func (p *ProducerClient) Close() error {
	return p.producer.Close()
}

package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"image-analyzer/internal/analyzer"
	kafka_impl "image-analyzer/internal/broker/kafka"
	"image-analyzer/internal/config"
	"image-analyzer/internal/domain"
	postgres_repo "image-analyzer/internal/repository/image/db/postgres"
	"image-analyzer/internal/storage"
	"image-analyzer/internal/usecase/analysis"

	"github.com/segmentio/kafka-go"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/zlog"
)

// Worker consumes analysis tasks and drives the pipeline. One failed record
// never takes the worker down; its job is committed and the next one runs.
type Worker struct {
	cfg      *config.Config
	logger   *zlog.Zerolog
	db       *dbpg.DB
	consumer *kafka_impl.ConsumerClient
	pipeline *analysis.Pipeline
	wg       sync.WaitGroup
}

func NewWorker(cfg *config.Config, logger *zlog.Zerolog) (*Worker, error) {
	retries := cfg.DefaultRetryStrategy()

	dbOpts := &dbpg.Options{
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
	}

	db, err := dbpg.New(cfg.DBDSN(), []string{}, dbOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	fileRepo, err := storage.New(context.Background(), cfg, retries, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage gateway: %w", err)
	}

	imageRepo := postgres_repo.NewImagesRepository(db, retries)

	pipeline := analysis.NewPipeline(
		imageRepo,
		fileRepo,
		analyzer.NewResolutionQuality(cfg.Analysis.MinResolution),
		analyzer.NewEcommerceCompliance(),
		analyzer.NewGrayscaleEmbedding(),
		analyzer.NewCosineDuplicate(cfg.Analysis.DuplicateThreshold),
		cfg.Analysis.EmbeddingSampleLimit,
		logger,
	)

	return &Worker{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		consumer: kafka_impl.NewConsumerClient(cfg),
		pipeline: pipeline,
	}, nil
}

func (w *Worker) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	messages := make(chan kafka.Message, w.cfg.Worker.Concurrency)

	go w.consumer.StartConsuming(ctx, messages, w.cfg.DefaultRetryStrategy())

	for i := 0; i < w.cfg.Worker.Concurrency; i++ {
		w.wg.Add(1)
		go w.worker(ctx, i, messages)
	}

	w.logger.Info().Int("concurrency", w.cfg.Worker.Concurrency).Msg("Worker started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	w.logger.Info().Str("signal", sig.String()).Msg("Received signal, shutting down")
	cancel()

	w.wg.Wait()

	if w.db != nil && w.db.Master != nil {
		w.db.Master.Close()
	}

	return w.consumer.Close()
}

func (w *Worker) worker(ctx context.Context, id int, messages <-chan kafka.Message) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Int("worker_id", id).Msg("Worker stopped")
			return
		case msg := <-messages:
			w.processMessage(ctx, id, msg)
		}
	}
}

func (w *Worker) processMessage(ctx context.Context, workerID int, msg kafka.Message) {
	var task domain.AnalysisTask
	if err := json.Unmarshal(msg.Value, &task); err != nil {
		w.logger.Error().Err(err).Int("worker_id", workerID).Msg("Failed to unmarshal task, dropping message")
		w.commit(ctx, msg, task.ImageID)
		return
	}

	w.logger.Info().
		Int("worker_id", workerID).
		Str("task_id", task.ID).
		Str("image_id", task.ImageID).
		Msg("Processing analysis task")

	// The job layer owns timeout enforcement; the pipeline maps hitting it
	// into the regular failed transition.
	jobCtx, cancel := context.WithTimeout(ctx, w.cfg.Worker.JobTimeout)
	outcome, err := w.pipeline.Run(jobCtx, task.ImageID)
	cancel()

	switch {
	case err != nil:
		w.logger.Warn().Err(err).Str("image_id", task.ImageID).Msg("Analysis job not run")
	case outcome.Status == domain.StatusCompleted:
		w.logger.Info().
			Int("worker_id", workerID).
			Str("image_id", outcome.ImageID).
			Float64("quality_score", outcome.QualityScore).
			Bool("compliant", outcome.IsCompliant).
			Bool("duplicate", outcome.IsDuplicate).
			Msg("Analysis task completed")
	default:
		w.logger.Warn().
			Int("worker_id", workerID).
			Str("image_id", outcome.ImageID).
			Str("error", outcome.Error).
			Msg("Analysis task failed")
	}

	w.commit(ctx, msg, task.ImageID)
}

func (w *Worker) commit(ctx context.Context, msg kafka.Message, imageID string) {
	if err := w.consumer.Commit(ctx, msg); err != nil {
		w.logger.Error().Err(err).Str("image_id", imageID).Msg("Failed to commit message")
	}
}

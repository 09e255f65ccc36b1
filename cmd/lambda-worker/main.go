package main

// Build the Lambda handler binary:
//   GOOS=linux GOARCH=amd64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-worker

import (
	"context"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"talentranker/internal/bootstrap"
	"talentranker/internal/shared/config"
	"talentranker/internal/shared/metrics"
	"talentranker/internal/shared/telemetry"
	"talentranker/internal/workerproc"
)

var (
	initOnce sync.Once
	initErr  error
	app      *bootstrap.App
)

func initApp() {
	cfg := config.Load()
	telemetry.Configure(cfg.LogLevel, cfg.Env)
	app, initErr = bootstrap.Build(context.Background(), cfg, bootstrap.RoleWorker)
}

func handler(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
	initOnce.Do(initApp)
	if initErr != nil {
		telemetry.Error("lambda.worker.bootstrap_failed", map[string]any{"error": initErr})
		failures := make([]events.SQSBatchItemFailure, 0, len(event.Records))
		for _, record := range event.Records {
			failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
		}
		return events.SQSEventResponse{BatchItemFailures: failures}, initErr
	}
	return processRecords(ctx, app.RankingsSvc, event.Records), nil
}

// processRecords reports only retryable failures; poison messages are logged and dropped.
func processRecords(ctx context.Context, proc workerproc.Processor, records []events.SQSMessage) events.SQSEventResponse {
	failures := make([]events.SQSBatchItemFailure, 0)
	for _, record := range records {
		metrics.IncWorkerJob("received")
		err := workerproc.HandleBody(ctx, proc, record.Body)
		switch {
		case err == nil:
			metrics.IncWorkerJob("completed")
		case workerproc.Unrecoverable(err):
			telemetry.Error("lambda.worker.unrecoverable", map[string]any{
				"sqs_message_id": record.MessageId,
				"body_sha256":    workerproc.ComputeMeta(record.Body).BodySHA,
				"error":          err,
			})
			metrics.IncWorkerJob("deleted_unrecoverable")
		default:
			telemetry.Error("lambda.worker.failed", map[string]any{
				"sqs_message_id": record.MessageId,
				"error":          err,
			})
			metrics.IncWorkerJob("failed")
			failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
		}
	}
	return events.SQSEventResponse{BatchItemFailures: failures}
}

func main() {
	lambda.Start(handler)
}

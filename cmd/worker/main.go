package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"talentranker/internal/bootstrap"
	"talentranker/internal/shared/config"
	"talentranker/internal/shared/metrics"
	"talentranker/internal/shared/telemetry"
	"talentranker/internal/workerproc"
)

func main() {
	cfg := config.Load()
	telemetry.Configure(cfg.LogLevel, cfg.Env)
	defer telemetry.Sync()

	if cfg.RankingQueueURL == "" {
		telemetry.Error("worker.config_invalid", map[string]any{"error": "RANKING_QUEUE_URL is required"})
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		telemetry.Error("worker.aws_config_failed", map[string]any{"error": err})
		os.Exit(1)
	}
	var sqsClient sqsAPI = sqs.NewFromConfig(awsCfg)

	app, err := bootstrap.Build(ctx, cfg, bootstrap.RoleWorker)
	if err != nil {
		telemetry.Error("worker.bootstrap_failed", map[string]any{"error": err})
		os.Exit(1)
	}
	defer app.Close()

	run(ctx, sqsClient, app.RankingsSvc, cfg)
}

type sqsAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

func run(ctx context.Context, client sqsAPI, proc workerproc.Processor, cfg config.Config) {
	concurrency := max(1, cfg.WorkerConcurrency)
	visibility := int32(cfg.WorkerVisibilityTimeout / time.Second)
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	telemetry.Info("worker.started", map[string]any{
		"queue":              cfg.RankingQueueURL,
		"concurrency":        concurrency,
		"visibility_seconds": visibility,
	})

pollLoop:
	for {
		select {
		case <-ctx.Done():
			break pollLoop
		default:
		}

		resp, err := client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(cfg.RankingQueueURL),
			MaxNumberOfMessages: 10,
			WaitTimeSeconds:     20,
			VisibilityTimeout:   visibility,
			MessageSystemAttributeNames: []sqstypes.MessageSystemAttributeName{
				sqstypes.MessageSystemAttributeNameApproximateReceiveCount,
			},
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
				break pollLoop
			}
			telemetry.Error("worker.receive_failed", map[string]any{"error": err})
			continue
		}

		for _, msg := range resp.Messages {
			select {
			case <-ctx.Done():
				break pollLoop
			case sem <- struct{}{}:
			}
			metrics.IncWorkerJob("received")
			wg.Add(1)
			go func(m sqstypes.Message) {
				defer wg.Done()
				defer func() { <-sem }()
				// In-flight rankings finish after shutdown starts so reservations settle.
				handleMessage(context.WithoutCancel(ctx), client, cfg.RankingQueueURL, proc, m)
			}(msg)
		}
	}

	timeout := cfg.WorkerShutdownTimeout
	telemetry.Info("worker.shutdown", map[string]any{"wait": timeout.String()})
	waitDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(waitDone)
	}()
	select {
	case <-waitDone:
	case <-time.After(timeout):
		telemetry.Warn("worker.shutdown_timeout", map[string]any{"wait": timeout.String()})
	}
}

func handleMessage(ctx context.Context, client sqsAPI, queueURL string, proc workerproc.Processor, msg sqstypes.Message) {
	body := aws.ToString(msg.Body)
	decoded, meta, err := workerproc.ParseMessage(body)
	if err != nil {
		fields := baseFields(msg, "", "")
		fields["body_len"] = meta.BodyLen
		if meta.BodySHA != "" {
			fields["body_sha256"] = meta.BodySHA
		}
		fields["error"] = err.Error()
		var missing workerproc.ErrMissingRankingID
		if errors.As(err, &missing) {
			fields["request_id"] = missing.RequestID
		}
		telemetry.Error("worker.ranking.invalid_message", fields)
		if deleteMessage(ctx, client, queueURL, msg, "", "") {
			metrics.IncWorkerJob("deleted_unrecoverable")
		}
		return
	}

	telemetry.Info("worker.ranking.received", baseFields(msg, decoded.RankingID, decoded.RequestID))

	if err := workerproc.HandleMessage(ctx, proc, decoded); err != nil {
		fields := baseFields(msg, decoded.RankingID, decoded.RequestID)
		fields["error"] = err.Error()
		if workerproc.Unrecoverable(err) {
			telemetry.Error("worker.ranking.unrecoverable", fields)
			if deleteMessage(ctx, client, queueURL, msg, decoded.RankingID, decoded.RequestID) {
				metrics.IncWorkerJob("deleted_unrecoverable")
			}
			return
		}
		telemetry.Error("worker.ranking.failed", fields)
		metrics.IncWorkerJob("failed")
		return
	}

	if deleteMessage(ctx, client, queueURL, msg, decoded.RankingID, decoded.RequestID) {
		telemetry.Info("worker.ranking.completed", baseFields(msg, decoded.RankingID, decoded.RequestID))
		metrics.IncWorkerJob("completed")
	}
}

func deleteMessage(ctx context.Context, client sqsAPI, queueURL string, msg sqstypes.Message, rankingID, requestID string) bool {
	receipt := aws.ToString(msg.ReceiptHandle)
	if receipt == "" {
		fields := baseFields(msg, rankingID, requestID)
		fields["error"] = "missing receipt handle"
		telemetry.Error("worker.ranking.delete_failed", fields)
		return false
	}
	if _, err := client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(queueURL),
		ReceiptHandle: aws.String(receipt),
	}); err != nil {
		fields := baseFields(msg, rankingID, requestID)
		fields["error"] = err.Error()
		telemetry.Error("worker.ranking.delete_failed", fields)
		return false
	}
	return true
}

func baseFields(msg sqstypes.Message, rankingID, requestID string) map[string]any {
	fields := map[string]any{
		"ranking_id":     rankingID,
		"sqs_message_id": aws.ToString(msg.MessageId),
		"receive_count":  receiveCount(msg),
	}
	if strings.TrimSpace(requestID) != "" {
		fields["request_id"] = requestID
	}
	return fields
}

func receiveCount(msg sqstypes.Message) int {
	raw := msg.Attributes[string(sqstypes.MessageSystemAttributeNameApproximateReceiveCount)]
	if raw == "" {
		return 0
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return parsed
}

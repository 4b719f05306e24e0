package index

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"

	"github.com/nats-io/nats.go"

	"github.com/NormaAI/norma-mvp/pkg/natsutil"
)

// retryHeader counts redeliveries of one job.
const retryHeader = "X-Retry-Count"

// dlqMessage wraps a job that exhausted its retries.
type dlqMessage struct {
	Job     Job    `json:"job"`
	Error   string `json:"error"`
	Retries int    `json:"retries"`
}

// StartConsumer subscribes the indexer to the job subject in the shared
// queue group. A failed job is republished with an incremented retry
// header and parked on the DLQ subject after MaxRetries.
func StartConsumer(nc *nats.Conn, ix *Indexer, logger *slog.Logger) (*nats.Subscription, error) {
	if logger == nil {
		logger = slog.Default()
	}
	return nc.QueueSubscribe(SubjectDocs, QueueGroup, func(msg *nats.Msg) {
		var job Job
		if err := json.Unmarshal(msg.Data, &job); err != nil {
			logger.Error("index: bad job payload", "err", err)
			return
		}
		ctx := natsutil.Extract(msg)

		retries := 0
		if msg.Header != nil {
			if v := msg.Header.Get(retryHeader); v != "" {
				retries, _ = strconv.Atoi(v)
			}
		}

		receipt, err := ix.IndexFile(ctx, job.Path, job.Rebuild)
		switch {
		case err != nil:
			retries++
			logger.Error("index: job failed", "path", job.Path, "retry", retries, "err", err)
			if retries >= MaxRetries {
				parkJob(nc, logger, job, err.Error(), retries)
			} else {
				retry := nats.NewMsg(SubjectDocs)
				retry.Data = msg.Data
				retry.Header.Set(retryHeader, strconv.Itoa(retries))
				if err := nc.PublishMsg(retry); err != nil {
					logger.Error("index: retry publish failed", "err", err)
				}
			}
		case receipt.Skipped:
			logger.Info("index: job skipped, unchanged", "doc_id", receipt.DocID)
		default:
			logger.Info("index: job done", "doc_id", receipt.DocID, "chunks", receipt.Chunks)
		}

		if msg.Reply != "" {
			_ = msg.Ack()
		}
	})
}

func parkJob(nc *nats.Conn, logger *slog.Logger, job Job, reason string, retries int) {
	data, err := json.Marshal(dlqMessage{Job: job, Error: reason, Retries: retries})
	if err != nil {
		logger.Error("index: dlq marshal failed", "err", err)
		return
	}
	if err := nc.Publish(SubjectDLQ, data); err != nil {
		logger.Error("index: dlq publish failed", "err", err)
	}
}

// PublishJob enqueues one file for the consumer pool.
func PublishJob(ctx context.Context, nc *nats.Conn, job Job) error {
	return natsutil.Publish(ctx, nc, SubjectDocs, job)
}

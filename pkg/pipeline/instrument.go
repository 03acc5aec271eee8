package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"github.com/mosajjal/alertmailer/pkg/provider"
)

// Handler is the Lambda entry signature for an SQS batch.
type Handler func(ctx context.Context, ev events.SQSEvent) error

// Instrument wraps h with START, END and ERROR log lines.
func Instrument(service string, logger *slog.Logger, h Handler) Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, ev events.SQSEvent) error {
		requestID := provider.RequestID(ctx)
		log := logger.With("service", service, "request_id", requestID)
		start := time.Now()

		log.Info("START", "event", Summary(ev))
		if err := h(ctx, ev); err != nil {
			log.Error("ERROR", "err", err, "duration", time.Since(start))
			return err
		}
		log.Info("END", "status", "SUCCESS", "duration", time.Since(start))
		return nil
	}
}

// Summary describes a batch for the START line.
func Summary(ev events.SQSEvent) string {
	return fmt.Sprintf("SQS records=%d", len(ev.Records))
}

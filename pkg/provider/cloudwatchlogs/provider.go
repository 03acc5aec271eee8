// Package cloudwatchlogs extracts notification records from CloudWatch Logs
// subscription filter payloads.
package cloudwatchlogs

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/mosajjal/alertmailer/pkg/models"
	"github.com/mosajjal/alertmailer/pkg/provider"
)

const (
	// SummaryLimit is the number of log messages shown in the message field
	SummaryLimit = 5
	// FullSeparator joins every message in the original-message field
	FullSeparator = "\n---\n"

	severity = "ALARM"
	msgCode  = "CW-LOGS"
	plugin   = "CloudWatch Logs"
)

// Provider implements provider.Adapter for CloudWatch Logs
type Provider struct {
	clock provider.Clock
}

// NewProvider creates a new CloudWatch Logs adapter
func NewProvider(clock provider.Clock) *Provider {
	return &Provider{clock: clock}
}

// Kind returns the event family handled by this adapter
func (p *Provider) Kind() models.Kind {
	return models.KindLogBatch
}

// envelope is the subscription filter payload. Data is base64 and gzip
type envelope struct {
	AWSLogs struct {
		Data string `json:"data"`
	} `json:"awslogs"`
}

// Extract decodes the compressed payload and builds a record. Log batches
// are never skipped.
func (p *Provider) Extract(ctx context.Context, raw []byte) (provider.Result, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return provider.Result{}, fmt.Errorf("failed to unmarshal CloudWatch Logs: %w", err)
	}

	decodedData, err := decodeCloudWatchData(env.AWSLogs.Data)
	if err != nil {
		return provider.Result{}, fmt.Errorf("failed to decode CloudWatch data: %w", err)
	}

	var data events.CloudwatchLogsData
	if err := json.Unmarshal(decodedData, &data); err != nil {
		return provider.Result{}, fmt.Errorf("failed to parse CloudWatch Logs data: %w", err)
	}

	messages := make([]string, 0, len(data.LogEvents))
	for _, e := range data.LogEvents {
		messages = append(messages, e.Message)
	}

	generated := p.clock.Current()
	if len(data.LogEvents) > 0 {
		generated = time.UnixMilli(data.LogEvents[0].Timestamp)
	}

	description := fmt.Sprintf("Log monitor (%s)", data.LogGroup)
	return provider.Emit(models.Record{
		models.KeyPriority:           severity,
		models.KeyMsgCode:            msgCode,
		models.KeyPluginName:         plugin,
		models.KeyMonitorID:          data.LogGroup,
		models.KeyMonitorDetail:      data.LogStream,
		models.KeyMonitorDescription: description,
		models.KeyScope:              data.LogGroup,
		models.KeyGenerationDate:     p.clock.Format(generated),
		models.KeyApplication:        description,
		models.KeyMessage:            Summarize(messages),
		models.KeyOrgMessage:         strings.Join(messages, FullSeparator),
		models.KeyNotifyUUID:         provider.RequestID(ctx),
	}), nil
}

// Summarize joins the first SummaryLimit messages and notes how many were
// left out
func Summarize(messages []string) string {
	if len(messages) <= SummaryLimit {
		return strings.Join(messages, "\n")
	}
	summary := strings.Join(messages[:SummaryLimit], "\n")
	return fmt.Sprintf("%s\n... %d more", summary, len(messages)-SummaryLimit)
}

func decodeCloudWatchData(data string) ([]byte, error) {
	// Decode base64
	base64Decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64: %w", err)
	}

	// Decompress gzip
	gz, err := gzip.NewReader(bytes.NewReader(base64Decoded))
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gz.Close()

	decompressed, err := io.ReadAll(gz)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress gzip: %w", err)
	}

	return decompressed, nil
}

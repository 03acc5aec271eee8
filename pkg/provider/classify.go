package provider

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mosajjal/alertmailer/pkg/models"
)

const (
	sourceECS        = "aws.ecs"
	detailTypeECS    = "ECS Task State Change"
	sourceAlarm      = "aws.cloudwatch"
	detailTypeAlarm  = "CloudWatch Alarm State Change"
	logsContainerKey = "awslogs"
)

// ErrUnsupportedEvent is matched by every UnsupportedEventError
var ErrUnsupportedEvent = errors.New("unsupported event")

// UnsupportedEventError carries the shape of an event no adapter accepts
type UnsupportedEventError struct {
	Source     string
	DetailType string
}

func (e *UnsupportedEventError) Error() string {
	return fmt.Sprintf("unsupported event: detail-type=%q, source=%q", e.DetailType, e.Source)
}

func (e *UnsupportedEventError) Is(target error) bool {
	return target == ErrUnsupportedEvent
}

// Classify inspects the shape of raw and returns its event family. The
// compressed-log check runs first since a subscription payload may be
// wrapped in an envelope that also carries source fields.
func Classify(raw []byte) (models.Kind, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return models.KindUnknown, fmt.Errorf("failed to unmarshal event: %w", err)
	}

	if _, ok := probe[logsContainerKey]; ok {
		return models.KindLogBatch, nil
	}

	source := stringField(probe, "source")
	detailType := stringField(probe, "detail-type")

	switch {
	case source == sourceECS && detailType == detailTypeECS:
		return models.KindTaskState, nil
	case source == sourceAlarm && detailType == detailTypeAlarm:
		return models.KindAlarmState, nil
	}
	return models.KindUnknown, &UnsupportedEventError{Source: source, DetailType: detailType}
}

func stringField(m map[string]json.RawMessage, key string) string {
	raw, ok := m[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

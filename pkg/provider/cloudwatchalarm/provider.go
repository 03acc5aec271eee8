// Package cloudwatchalarm extracts notification records from EventBridge
// "CloudWatch Alarm State Change" events.
//
// Single-metric and composite alarms go through the same path. The alarm is
// described exactly once; children of a composite alarm are never expanded.
package cloudwatchalarm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/mosajjal/alertmailer/pkg/models"
	"github.com/mosajjal/alertmailer/pkg/provider"
)

const (
	defaultSeverity    = "ALARM"
	msgCode            = "CW-ALARM"
	plugin             = "CloudWatch Alarm"
	compositeNamespace = "Composite"
	noDimensions       = "-"
)

// AlarmDescriber is the subset of the CloudWatch client used for enrichment
type AlarmDescriber interface {
	DescribeAlarms(ctx context.Context, params *cloudwatch.DescribeAlarmsInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.DescribeAlarmsOutput, error)
}

// Provider implements provider.Adapter for alarm state changes
type Provider struct {
	describer AlarmDescriber
	clock     provider.Clock
	logger    *slog.Logger
}

// NewProvider creates a new alarm adapter. describer may be nil, in which
// case records are built from event fields only.
func NewProvider(describer AlarmDescriber, clock provider.Clock, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{describer: describer, clock: clock, logger: logger}
}

// Kind returns the event family handled by this adapter
func (p *Provider) Kind() models.Kind {
	return models.KindAlarmState
}

type alarmEvent struct {
	Time   string `json:"time"`
	Region string `json:"region"`
	Detail struct {
		AlarmName string `json:"alarmName"`
		State     struct {
			Value      string `json:"value"`
			Reason     string `json:"reason"`
			ReasonData string `json:"reasonData"`
		} `json:"state"`
	} `json:"detail"`
}

// alarmInfo is what enrichment contributes. Metric and composite alarms are
// folded into the same shape.
type alarmInfo struct {
	namespace   string
	metric      string
	description string
	dimensions  string
}

// Extract builds a record from the event, enriched by one DescribeAlarms
// call when it succeeds
func (p *Provider) Extract(ctx context.Context, raw []byte) (provider.Result, error) {
	var ev alarmEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return provider.Result{}, fmt.Errorf("failed to unmarshal alarm event: %w", err)
	}

	name := ev.Detail.AlarmName
	info := p.describe(ctx, name)

	severity := ev.Detail.State.Value
	if severity == "" {
		severity = defaultSeverity
	}

	detail := name
	if info.metric != "" {
		detail = fmt.Sprintf("%s/%s", info.namespace, info.metric)
	}
	description := info.description
	if description == "" {
		description = fmt.Sprintf("CloudWatch Alarm (%s)", name)
	}
	application := info.namespace
	if application == "" {
		application = "CloudWatch"
	}

	return provider.Emit(models.Record{
		models.KeyPriority:           severity,
		models.KeyMsgCode:            msgCode,
		models.KeyPluginName:         plugin,
		models.KeyMonitorID:          name,
		models.KeyMonitorDetail:      detail,
		models.KeyMonitorDescription: description,
		models.KeyScope:              info.dimensions,
		models.KeyGenerationDate:     p.clock.Format(p.clock.ParseEventTime(ev.Time)),
		models.KeyApplication:        application,
		models.KeyMessage:            ev.Detail.State.Reason,
		models.KeyOrgMessage:         ev.Detail.State.ReasonData,
		models.KeyNotifyUUID:         provider.RequestID(ctx),
	}), nil
}

// describe looks the alarm up once. Any failure is logged and yields the
// empty enrichment.
func (p *Provider) describe(ctx context.Context, name string) alarmInfo {
	info := alarmInfo{dimensions: noDimensions}
	if p.describer == nil || name == "" {
		return info
	}

	out, err := p.describer.DescribeAlarms(ctx, &cloudwatch.DescribeAlarmsInput{
		AlarmNames: []string{name},
		AlarmTypes: []types.AlarmType{types.AlarmTypeMetricAlarm, types.AlarmTypeCompositeAlarm},
	})
	if err != nil {
		p.logger.Warn("DescribeAlarms failed, using event data only", "alarm", name, "err", err)
		return info
	}

	switch {
	case out != nil && len(out.MetricAlarms) > 0:
		a := out.MetricAlarms[0]
		info.namespace = aws.ToString(a.Namespace)
		info.metric = aws.ToString(a.MetricName)
		info.description = aws.ToString(a.AlarmDescription)
		info.dimensions = formatDimensions(a.Dimensions)
	case out != nil && len(out.CompositeAlarms) > 0:
		a := out.CompositeAlarms[0]
		info.namespace = compositeNamespace
		info.metric = aws.ToString(a.AlarmRule)
		info.description = aws.ToString(a.AlarmDescription)
	default:
		p.logger.Warn("DescribeAlarms returned no alarm, using event data only", "alarm", name)
	}
	return info
}

func formatDimensions(dims []types.Dimension) string {
	if len(dims) == 0 {
		return noDimensions
	}
	parts := make([]string, 0, len(dims))
	for _, d := range dims {
		parts = append(parts, fmt.Sprintf("%s=%s", aws.ToString(d.Name), aws.ToString(d.Value)))
	}
	return strings.Join(parts, ", ")
}

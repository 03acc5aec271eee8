// Package ecstask extracts notification records from EventBridge
// "ECS Task State Change" events. Only tasks with at least one failed
// container produce a record.
package ecstask

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/mosajjal/alertmailer/pkg/models"
	"github.com/mosajjal/alertmailer/pkg/provider"
)

const (
	severity = "TASK_STOPPED"
	msgCode  = "ECS-TASK"
	plugin   = "ECS Task Monitor"
)

// Provider implements provider.Adapter for ECS task state changes
type Provider struct {
	region string
	clock  provider.Clock
}

// NewProvider creates a new ECS adapter. region is used for the console link
// when the event itself carries none.
func NewProvider(region string, clock provider.Clock) *Provider {
	return &Provider{region: region, clock: clock}
}

// Kind returns the event family handled by this adapter
func (p *Provider) Kind() models.Kind {
	return models.KindTaskState
}

// Container is one entry of the task's container list
type Container struct {
	Name     string `json:"name"`
	ExitCode *int   `json:"exitCode"`
	Reason   string `json:"reason"`
}

// Failed reports whether the container exited non-zero or carries a reason.
// A zero exit with a non-empty reason also counts as failed.
func (c Container) Failed() bool {
	return (c.ExitCode != nil && *c.ExitCode != 0) || c.Reason != ""
}

type taskEvent struct {
	Time   string `json:"time"`
	Region string `json:"region"`
	Detail struct {
		ClusterArn        string      `json:"clusterArn"`
		TaskArn           string      `json:"taskArn"`
		TaskDefinitionArn string      `json:"taskDefinitionArn"`
		StoppedReason     string      `json:"stoppedReason"`
		Containers        []Container `json:"containers"`
	} `json:"detail"`
}

// Extract returns a record listing the failed containers, or a skip result
// when every container stopped cleanly
func (p *Provider) Extract(ctx context.Context, raw []byte) (provider.Result, error) {
	var ev taskEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return provider.Result{}, fmt.Errorf("failed to unmarshal ECS task event: %w", err)
	}
	d := ev.Detail

	var lines []string
	for _, c := range d.Containers {
		if !c.Failed() {
			continue
		}
		lines = append(lines, fmt.Sprintf("Container: %s / exitCode: %s / reason: %s", c.Name, exitCodeString(c.ExitCode), c.Reason))
	}
	if len(lines) == 0 {
		return provider.Skip("no failed containers"), nil
	}

	cluster := provider.LastSegment(d.ClusterArn)
	task := provider.LastSegment(d.TaskArn)
	taskDef := provider.LastSegment(d.TaskDefinitionArn)

	region := ev.Region
	if region == "" {
		region = p.region
	}

	orgMessage := strings.Join(lines, "\n")
	if link := ConsoleURL(region, cluster, task); link != "" {
		orgMessage += "\n\nECS Task URL:\n" + link
	}

	return provider.Emit(models.Record{
		models.KeyPriority:           severity,
		models.KeyMsgCode:            msgCode,
		models.KeyPluginName:         plugin,
		models.KeyMonitorID:          taskDef,
		models.KeyMonitorDetail:      d.StoppedReason,
		models.KeyMonitorDescription: fmt.Sprintf("ECS task monitor (%s)", taskDef),
		models.KeyScope:              cluster,
		models.KeyGenerationDate:     p.clock.Format(p.clock.ParseEventTime(ev.Time)),
		models.KeyApplication:        fmt.Sprintf("ECS (%s/%s)", cluster, taskDef),
		models.KeyMessage:            d.StoppedReason,
		models.KeyOrgMessage:         orgMessage,
		models.KeyNotifyUUID:         provider.RequestID(ctx),
	}), nil
}

// ConsoleURL links to the task's page in the ECS console. It returns an
// empty string when cluster or task is unknown.
func ConsoleURL(region, cluster, task string) string {
	if cluster == "" || task == "" {
		return ""
	}
	u := url.URL{
		Scheme:   "https",
		Host:     region + ".console.aws.amazon.com",
		Path:     fmt.Sprintf("/ecs/v2/clusters/%s/tasks/%s/details", cluster, task),
		RawQuery: url.Values{"region": {region}}.Encode(),
	}
	return u.String()
}

func exitCodeString(code *int) string {
	if code == nil {
		return "-"
	}
	return strconv.Itoa(*code)
}

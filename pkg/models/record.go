package models

import "time"

// Kind identifies the event family a raw event belongs to
type Kind int

const (
	KindUnknown Kind = iota
	KindLogBatch
	KindAlarmState
	KindTaskState
)

func (k Kind) String() string {
	switch k {
	case KindLogBatch:
		return "cloudwatch_logs"
	case KindAlarmState:
		return "cloudwatch_alarm"
	case KindTaskState:
		return "ecs_task"
	default:
		return "unknown"
	}
}

// Canonical record keys. Every adapter fills the same set so the renderer
// never has to know which event family a record came from.
const (
	KeyPriority           = "priority"
	KeyPriorityLabel      = "priority_label"
	KeyMsgCode            = "msg_code"
	KeyPluginName         = "plugin_name"
	KeyMonitorID          = "monitor_id"
	KeyMonitorDetail      = "monitor_detail"
	KeyMonitorDescription = "monitor_description"
	KeyScope              = "scope"
	KeyGenerationDate     = "generation_date"
	KeyApplication        = "application"
	KeyMessage            = "message"
	KeyOrgMessage         = "org_message"
	KeyNotifyUUID         = "notify_uuid"

	KeyEnvName           = "env_name"
	KeyFacilityID        = "facility_id"
	KeyFacilityName      = "facility_name"
	KeyNotifyDescription = "notify_description"
)

// Record is the normalized field map produced from any accepted event
type Record map[string]string

// Clone returns a shallow copy of r
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Merge returns a new record holding common plus r. Values already present
// in r win over common.
func (r Record) Merge(common map[string]string) Record {
	out := make(Record, len(r)+len(common))
	for k, v := range common {
		out[k] = v
	}
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Notification is a rendered, ready-to-send message
type Notification struct {
	ID      string    `json:"id"`
	Time    time.Time `json:"time"`
	Subject string    `json:"subject"`
	Text    string    `json:"text"`
	HTML    string    `json:"html"`
}

package provider

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/google/uuid"
	"github.com/mosajjal/alertmailer/pkg/models"
)

func TestResult_Skipped(t *testing.T) {
	if !Skip("nothing failed").Skipped() {
		t.Error("Expected Skip result to report Skipped")
	}
	if Emit(models.Record{}).Skipped() {
		t.Error("Expected Emit result not to report Skipped")
	}
}

func TestClock_Format(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	c := Clock{Location: tokyo}

	// 2024-02-14T01:00:00Z
	got := c.Format(time.UnixMilli(1707872400000).UTC())
	if got != "2024/02/14 10:00:00" {
		t.Errorf("Expected '2024/02/14 10:00:00', got '%s'", got)
	}
}

func TestClock_ParseEventTime(t *testing.T) {
	fixed := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	c := Clock{Now: func() time.Time { return fixed }}

	tests := []struct {
		name  string
		value string
		want  time.Time
	}{
		{"valid", "2026-02-14T01:00:00Z", time.Date(2026, 2, 14, 1, 0, 0, 0, time.UTC)},
		{"with offset", "2026-02-14T10:00:00+09:00", time.Date(2026, 2, 14, 1, 0, 0, 0, time.UTC)},
		{"empty", "", fixed},
		{"garbage", "yesterday", fixed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.ParseEventTime(tt.value)
			if !got.Equal(tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestRequestID(t *testing.T) {
	ctx := lambdacontext.NewContext(context.Background(), &lambdacontext.LambdaContext{AwsRequestID: "req-123"})
	if got := RequestID(ctx); got != "req-123" {
		t.Errorf("Expected 'req-123', got '%s'", got)
	}

	got := RequestID(context.Background())
	if _, err := uuid.Parse(got); err != nil {
		t.Errorf("Expected a UUID outside Lambda, got '%s'", got)
	}
}

func TestLastSegment(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"arn:aws:ecs:ap-northeast-1:123456789012:cluster/my-cluster", "my-cluster"},
		{"arn:aws:ecs:ap-northeast-1:123456789012:task/my-cluster/abc123", "abc123"},
		{"no-slash", "no-slash"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := LastSegment(tt.in); got != tt.want {
			t.Errorf("LastSegment(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

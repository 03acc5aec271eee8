package provider

import (
	"context"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/google/uuid"
	"github.com/mosajjal/alertmailer/pkg/models"
)

// DisplayLayout is the timestamp layout used in notifications
const DisplayLayout = "2006/01/02 15:04:05"

// Adapter converts one event family into a canonical record
type Adapter interface {
	// Kind returns the event family this adapter handles
	Kind() models.Kind

	// Extract parses raw and returns either a record or a skip result
	Extract(ctx context.Context, raw []byte) (Result, error)
}

// Result is the outcome of a successful extraction. A zero Record with a
// non-empty SkipReason means no notification is warranted.
type Result struct {
	Record     models.Record
	SkipReason string
}

// Skipped reports whether the adapter decided not to notify
func (r Result) Skipped() bool {
	return r.Record == nil
}

// Skip builds a skip result
func Skip(reason string) Result {
	return Result{SkipReason: reason}
}

// Emit builds a result carrying rec
func Emit(rec models.Record) Result {
	return Result{Record: rec}
}

// Clock carries the processing-time source and display location shared by
// all adapters
type Clock struct {
	Now      func() time.Time
	Location *time.Location
}

// Current returns the processing time
func (c Clock) Current() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

// Format renders t in the display location
func (c Clock) Format(t time.Time) string {
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(DisplayLayout)
}

// ParseEventTime parses an ISO-8601 event timestamp, falling back to the
// processing time when value is empty or malformed
func (c Clock) ParseEventTime(value string) time.Time {
	if value == "" {
		return c.Current()
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t
	}
	return c.Current()
}

// RequestID returns the Lambda request id of ctx, or a fresh UUID outside
// the Lambda runtime
func RequestID(ctx context.Context) string {
	if lc, ok := lambdacontext.FromContext(ctx); ok && lc.AwsRequestID != "" {
		return lc.AwsRequestID
	}
	return uuid.New().String()
}

// LastSegment returns the part of a slash-delimited identifier after the
// final slash
func LastSegment(arn string) string {
	if arn == "" {
		return ""
	}
	return arn[strings.LastIndex(arn, "/")+1:]
}

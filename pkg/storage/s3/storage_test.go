package s3

import (
	"bufio"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/mosajjal/alertmailer/pkg/models"
	"github.com/mosajjal/alertmailer/pkg/storage"
)

type fakeS3 struct {
	inputs []*s3.PutObjectInput
	err    error
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.inputs = append(f.inputs, params)
	return &s3.PutObjectOutput{}, f.err
}

func TestParseURL(t *testing.T) {
	tests := []struct {
		name       string
		url        string
		wantBucket string
		wantPrefix string
		wantErr    bool
	}{
		{"virtual hosted", "https://my-bucket.s3.ap-northeast-1.amazonaws.com/alerts/", "my-bucket", "alerts", false},
		{"virtual hosted dash", "https://my-bucket.s3-ap-northeast-1.amazonaws.com/", "my-bucket", "", false},
		{"path style", "https://s3.ap-northeast-1.amazonaws.com/my-bucket/a/b", "my-bucket", "a/b", false},
		{"no bucket", "https://s3.ap-northeast-1.amazonaws.com/", "", "", true},
		{"bad url", "://", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bucket, prefix, err := ParseURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseURL() error = %v, wantErr %v", err, tt.wantErr)
			}
			if bucket != tt.wantBucket || prefix != tt.wantPrefix {
				t.Errorf("Expected (%s, %s), got (%s, %s)", tt.wantBucket, tt.wantPrefix, bucket, prefix)
			}
		})
	}
}

func TestStorage_Store(t *testing.T) {
	client := &fakeS3{}
	s, err := NewStorageWithClient(storage.StorageConfig{
		Provider: "s3",
		URL:      "https://my-bucket.s3.ap-northeast-1.amazonaws.com/alerts/",
	}, client)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	s.now = func() time.Time { return time.Date(2026, 2, 14, 1, 2, 3, 0, time.UTC) }

	notifications := []*models.Notification{
		{ID: "n1", Subject: "[Critical] CloudWatch Alarm : a", Text: "t1", HTML: "<p>1</p>"},
		{ID: "n2", Subject: "[Warning] ECS Task Monitor : b", Text: "t2", HTML: "<p>2</p>"},
	}
	if err := s.Store(context.Background(), notifications); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(client.inputs) != 1 {
		t.Fatalf("Expected 1 upload, got %d", len(client.inputs))
	}
	in := client.inputs[0]
	if aws.ToString(in.Bucket) != "my-bucket" {
		t.Errorf("Expected bucket 'my-bucket', got '%s'", aws.ToString(in.Bucket))
	}
	key := aws.ToString(in.Key)
	if !strings.HasPrefix(key, "alerts/2026/02/14/01/2026-02-14T01:02:03.000Z-") || !strings.HasSuffix(key, ".json.gz") {
		t.Errorf("Unexpected key '%s'", key)
	}

	gz, err := gzip.NewReader(in.Body)
	if err != nil {
		t.Fatalf("Expected gzip body, got %v", err)
	}
	var ids []string
	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		var n models.Notification
		if err := json.Unmarshal(scanner.Bytes(), &n); err != nil {
			t.Fatalf("Expected JSON line, got %v", err)
		}
		ids = append(ids, n.ID)
	}
	if strings.Join(ids, ",") != "n1,n2" {
		t.Errorf("Expected ids n1,n2, got %v", ids)
	}
}

func TestStorage_StoreError(t *testing.T) {
	client := &fakeS3{err: errors.New("AccessDenied")}
	s, err := NewStorageWithClient(storage.StorageConfig{URL: "https://s3.us-east-1.amazonaws.com/bucket"}, client)
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Store(context.Background(), []*models.Notification{{ID: "n1"}}); err == nil {
		t.Error("Expected error from failed upload, got nil")
	}
}

func TestStorage_KeyWithoutPrefix(t *testing.T) {
	s, err := NewStorageWithClient(storage.StorageConfig{URL: "https://s3.us-east-1.amazonaws.com/bucket"}, &fakeS3{})
	if err != nil {
		t.Fatal(err)
	}
	key := s.objectKey(time.Date(2026, 1, 2, 3, 0, 0, 0, time.UTC))
	if !strings.HasPrefix(key, "2026/01/02/03/") {
		t.Errorf("Expected key without leading prefix, got '%s'", key)
	}
}

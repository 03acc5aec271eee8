// Package ses sends notifications through Amazon SES
package ses

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

const charset = "UTF-8"

// SendEmailAPI is the subset of the SES client used by Sender
type SendEmailAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// Config holds addressing for outgoing mail
type Config struct {
	From          string
	To            []string
	CC            []string
	BCC           []string
	SubjectPrefix string
}

// Sender delivers mail through SES
type Sender struct {
	config Config
	client SendEmailAPI
}

// NewSender creates a new SES sender
func NewSender(cfg Config, client SendEmailAPI) (*Sender, error) {
	if cfg.From == "" {
		return nil, fmt.Errorf("ses: sender address is required")
	}
	if len(cfg.To) == 0 {
		return nil, fmt.Errorf("ses: at least one recipient is required")
	}
	return &Sender{config: cfg, client: client}, nil
}

// Send delivers one multipart mail. The subject prefix is prepended here.
func (s *Sender) Send(ctx context.Context, subject, text, html string) error {
	out, err := s.client.SendEmail(ctx, &ses.SendEmailInput{
		Source: aws.String(s.config.From),
		Destination: &types.Destination{
			ToAddresses:  s.config.To,
			CcAddresses:  s.config.CC,
			BccAddresses: s.config.BCC,
		},
		Message: &types.Message{
			Subject: content(s.config.SubjectPrefix + subject),
			Body: &types.Body{
				Text: content(text),
				Html: content(html),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("ses: failed to send email: %w", err)
	}
	if out != nil {
		slog.Debug("ses: email sent", "message_id", aws.ToString(out.MessageId))
	}
	return nil
}

func content(data string) *types.Content {
	return &types.Content{Data: aws.String(data), Charset: aws.String(charset)}
}

// SplitAddresses splits a comma or semicolon separated address list,
// dropping blanks
func SplitAddresses(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' })
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

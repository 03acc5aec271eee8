// Package config loads the alert mailer's settings from the environment.
package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alexflint/go-arg"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"

	"github.com/mosajjal/alertmailer/pkg/dispatch/ses"
	"github.com/mosajjal/alertmailer/pkg/models"
)

// SecretPrefix marks a value that must be fetched from Secrets Manager.
const SecretPrefix = "arn:aws:secretsmanager:"

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	Region            string        `arg:"env:AWS_REGION" default:"ap-northeast-1"`
	AccountID         string        `arg:"env:AWS_ACCOUNT_ID"`
	EnvName           string        `arg:"env:ENV_NAME"`
	FacilityName      string        `arg:"env:FACILITY_NAME"`
	NotifyDescription string        `arg:"env:NOTIFY_DESCRIPTION"`
	MailFrom          string        `arg:"env:MAIL_FROM,required"`
	MailTo            string        `arg:"env:MAIL_TO,required" help:"comma or semicolon separated, may be a secretsmanager ARN"`
	MailCC            string        `arg:"env:MAIL_CC"`
	MailBCC           string        `arg:"env:MAIL_BCC"`
	SubjectPrefix     string        `arg:"env:MAIL_SUBJECT_PREFIX"`
	SendInterval      time.Duration `arg:"env:SEND_INTERVAL" default:"1s"`
	DisplayTimezone   string        `arg:"env:DISPLAY_TIMEZONE" default:"Asia/Tokyo"`
	FieldCatalogPath  string        `arg:"env:FIELD_CATALOG_PATH"`
	PriorityCatalog   string        `arg:"env:PRIORITY_CATALOG_PATH"`
	LogLevel          string        `arg:"env:LOG_LEVEL" default:"info"`
	LogFormat         string        `arg:"env:LOG_FORMAT" default:"json"`

	S3URL             string `arg:"env:S3_URL" help:"failure archive, example: https://YOURBUCKET.s3.ap-northeast-1.amazonaws.com/YOURFOLDER/"`
	S3ArchiveURL      string `arg:"env:S3_ARCHIVE_URL" help:"archive of every notification"`
	S3AccessKeyID     string `arg:"env:S3_ACCESS_KEY_ID"`
	S3AccessKeySecret string `arg:"env:S3_ACCESS_KEY_SECRET"`

	HECEndpoints     []string      `arg:"env:HEC_ENDPOINTS"`
	HECToken         string        `arg:"env:HEC_TOKEN"`
	HECIndex         string        `arg:"env:HEC_INDEX" default:"main"`
	HECSource        string        `arg:"env:HEC_SOURCE" default:"alertmailer"`
	HECSourcetype    string        `arg:"env:HEC_SOURCETYPE" default:"alertmailer:notification"`
	HECHost          string        `arg:"env:HEC_HOST" default:"lambda"`
	HECChannelID     string        `arg:"env:HEC_CHANNEL_ID"`
	HECTLSSkipVerify bool          `arg:"env:HEC_TLS_SKIP_VERIFY" default:"false"`
	HECProxy         string        `arg:"env:HEC_PROXY"`
	HECBalance       string        `arg:"env:HEC_BALANCE" default:"roundrobin"`
	HECTimeout       time.Duration `arg:"env:HEC_TIMEOUT" default:"2s"`
}

// Load parses args and the environment into a Config. Validation is left to
// the caller so secrets can be resolved first.
func Load(args []string) (*Config, error) {
	var cfg Config
	p, err := arg.NewParser(arg.Config{Program: "alertmailer"}, &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build argument parser: %w", err)
	}
	if err := p.Parse(args); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the values go-arg cannot.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.MailFrom) == "" {
		return fmt.Errorf("%w: MAIL_FROM is empty", ErrInvalidConfig)
	}
	if len(c.Recipients()) == 0 {
		return fmt.Errorf("%w: MAIL_TO has no addresses", ErrInvalidConfig)
	}
	if c.SendInterval < 0 {
		return fmt.Errorf("%w: SEND_INTERVAL must not be negative", ErrInvalidConfig)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("%w: DISPLAY_TIMEZONE %q: %v", ErrInvalidConfig, c.DisplayTimezone, err)
	}
	return nil
}

// Location returns the display timezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.DisplayTimezone)
}

func (c *Config) Recipients() []string {
	return ses.SplitAddresses(c.MailTo)
}

// MailConfig builds the SES sender settings.
func (c *Config) MailConfig() ses.Config {
	return ses.Config{
		From:          c.MailFrom,
		To:            c.Recipients(),
		CC:            ses.SplitAddresses(c.MailCC),
		BCC:           ses.SplitAddresses(c.MailBCC),
		SubjectPrefix: c.SubjectPrefix,
	}
}

// CommonFields returns the values merged into every record.
func (c *Config) CommonFields() map[string]string {
	facilityID := "-"
	if c.AccountID != "" || c.Region != "" {
		facilityID = fmt.Sprintf("%s-%s", orDash(c.AccountID), orDash(c.Region))
	}
	return map[string]string{
		models.KeyEnvName:           orDash(c.EnvName),
		models.KeyFacilityID:        facilityID,
		models.KeyFacilityName:      orDash(c.FacilityName),
		models.KeyNotifyDescription: orDash(c.NotifyDescription),
	}
}

// HECEnabled reports whether a Splunk mirror is configured.
func (c *Config) HECEnabled() bool {
	for _, e := range c.HECEndpoints {
		if strings.TrimSpace(e) != "" {
			return true
		}
	}
	return false
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// SecretGetter is the subset of the Secrets Manager client used here.
type SecretGetter interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// ResolveSecrets replaces every secret-valued setting with the secret string.
func (c *Config) ResolveSecrets(ctx context.Context, sm SecretGetter) error {
	for name, field := range map[string]*string{
		"HEC_TOKEN": &c.HECToken,
		"MAIL_TO":   &c.MailTo,
	} {
		if !strings.HasPrefix(*field, SecretPrefix) {
			continue
		}
		if sm == nil {
			return fmt.Errorf("%s references a secret but no secrets client is configured", name)
		}
		out, err := sm.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
			SecretId: aws.String(*field),
		})
		if err != nil {
			return fmt.Errorf("failed to get %s from Secrets Manager: %w", name, err)
		}
		if out == nil || out.SecretString == nil {
			return fmt.Errorf("secret for %s has no string value", name)
		}
		*field = strings.TrimSpace(*out.SecretString)
	}
	return nil
}

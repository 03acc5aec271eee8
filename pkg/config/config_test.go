package config

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mosajjal/alertmailer/pkg/models"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("MAIL_FROM", "alerts@example.com")
	t.Setenv("MAIL_TO", "ops@example.com; oncall@example.com")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)
	t.Setenv("AWS_REGION", "ap-northeast-1")

	cfg, err := Load(nil)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, time.Second, cfg.SendInterval)
	assert.Equal(t, "Asia/Tokyo", cfg.DisplayTimezone)
	assert.Equal(t, []string{"ops@example.com", "oncall@example.com"}, cfg.Recipients())
	assert.False(t, cfg.HECEnabled())
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("SEND_INTERVAL", "0s")
	t.Setenv("DISPLAY_TIMEZONE", "UTC")
	t.Setenv("HEC_ENDPOINTS", "https://hec1:8088,https://hec2:8088")
	t.Setenv("MAIL_CC", "lead@example.com")

	cfg, err := Load(nil)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, time.Duration(0), cfg.SendInterval)
	assert.Equal(t, []string{"https://hec1:8088", "https://hec2:8088"}, cfg.HECEndpoints)
	assert.True(t, cfg.HECEnabled())

	mail := cfg.MailConfig()
	assert.Equal(t, "alerts@example.com", mail.From)
	assert.Equal(t, []string{"lead@example.com"}, mail.CC)
	assert.Empty(t, mail.BCC)
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("MAIL_FROM", "alerts@example.com")
	t.Setenv("MAIL_TO", "")
	require.NoError(t, os.Unsetenv("MAIL_TO"))

	_, err := Load(nil)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			MailFrom:        "alerts@example.com",
			MailTo:          "ops@example.com",
			SendInterval:    time.Second,
			DisplayTimezone: "Asia/Tokyo",
		}
	}

	tests := []struct {
		name   string
		modify func(c *Config)
	}{
		{"empty recipients", func(c *Config) { c.MailTo = " ; , " }},
		{"empty sender", func(c *Config) { c.MailFrom = "" }},
		{"negative interval", func(c *Config) { c.SendInterval = -time.Second }},
		{"bad timezone", func(c *Config) { c.DisplayTimezone = "Mars/Olympus" }},
	}

	require.NoError(t, valid().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.modify(cfg)
			err := cfg.Validate()
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestCommonFields(t *testing.T) {
	cfg := &Config{
		Region:       "ap-northeast-1",
		AccountID:    "123456789012",
		EnvName:      "prod",
		FacilityName: "payments",
	}
	got := cfg.CommonFields()

	assert.Equal(t, "prod", got[models.KeyEnvName])
	assert.Equal(t, "123456789012-ap-northeast-1", got[models.KeyFacilityID])
	assert.Equal(t, "payments", got[models.KeyFacilityName])
	assert.Equal(t, "-", got[models.KeyNotifyDescription])

	empty := (&Config{}).CommonFields()
	assert.Equal(t, "-", empty[models.KeyFacilityID])
}

type fakeSecrets struct {
	values map[string]string
	err    error
	calls  int
}

func (f *fakeSecrets) GetSecretValue(_ context.Context, in *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &secretsmanager.GetSecretValueOutput{SecretString: aws.String(f.values[*in.SecretId])}, nil
}

func TestResolveSecrets(t *testing.T) {
	tokenARN := "arn:aws:secretsmanager:ap-northeast-1:123456789012:secret:hec"
	cfg := &Config{HECToken: tokenARN, MailTo: "ops@example.com"}
	sm := &fakeSecrets{values: map[string]string{tokenARN: " 0000-token\n"}}

	require.NoError(t, cfg.ResolveSecrets(context.Background(), sm))
	assert.Equal(t, "0000-token", cfg.HECToken)
	assert.Equal(t, "ops@example.com", cfg.MailTo)
	assert.Equal(t, 1, sm.calls)
}

func TestResolveSecrets_Errors(t *testing.T) {
	cfg := &Config{MailTo: "arn:aws:secretsmanager:ap-northeast-1:123456789012:secret:mail"}

	err := cfg.ResolveSecrets(context.Background(), nil)
	assert.Error(t, err)

	boom := errors.New("access denied")
	err = cfg.ResolveSecrets(context.Background(), &fakeSecrets{err: boom})
	assert.ErrorIs(t, err, boom)
}

func TestResolveSecrets_NothingToResolve(t *testing.T) {
	cfg := &Config{HECToken: "plain", MailTo: "ops@example.com"}
	sm := &fakeSecrets{}
	require.NoError(t, cfg.ResolveSecrets(context.Background(), sm))
	assert.Equal(t, 0, sm.calls)
}

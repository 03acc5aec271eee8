package main

import (
	"context"
	"log/slog"
	"os"
	_ "time/tzdata"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	awsses "github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"

	"github.com/mosajjal/alertmailer/pkg/catalog"
	appconfig "github.com/mosajjal/alertmailer/pkg/config"
	"github.com/mosajjal/alertmailer/pkg/dispatch"
	"github.com/mosajjal/alertmailer/pkg/dispatch/ses"
	"github.com/mosajjal/alertmailer/pkg/hec"
	"github.com/mosajjal/alertmailer/pkg/logging"
	"github.com/mosajjal/alertmailer/pkg/pipeline"
	"github.com/mosajjal/alertmailer/pkg/provider"
	"github.com/mosajjal/alertmailer/pkg/provider/cloudwatchalarm"
	"github.com/mosajjal/alertmailer/pkg/provider/cloudwatchlogs"
	"github.com/mosajjal/alertmailer/pkg/provider/ecstask"
	"github.com/mosajjal/alertmailer/pkg/storage"
	s3storage "github.com/mosajjal/alertmailer/pkg/storage/s3"
)

const serviceName = "alertmailer"

var handler pipeline.Handler

func fatal(msg string, err error) {
	slog.Error(msg, "err", err)
	os.Exit(1)
}

func init() {
	ctx := context.Background()

	cfg, err := appconfig.Load(os.Args[1:])
	if err != nil {
		fatal("Unable to load configuration", err)
	}
	logger := logging.Init(cfg.LogFormat, logging.ParseLevel(cfg.LogLevel))

	// Load AWS config
	awsConfig, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		fatal("Unable to load AWS config", err)
	}

	// Resolve secret-valued settings before validating them
	if err := cfg.ResolveSecrets(ctx, secretsmanager.NewFromConfig(awsConfig)); err != nil {
		fatal("Failed to resolve secrets", err)
	}
	if err := cfg.Validate(); err != nil {
		fatal("Invalid configuration", err)
	}

	fields, err := catalog.LoadFields(cfg.FieldCatalogPath)
	if err != nil {
		fatal("Failed to load field catalog", err)
	}
	priorities, err := catalog.LoadPriorities(cfg.PriorityCatalog)
	if err != nil {
		fatal("Failed to load priority catalog", err)
	}

	loc, err := cfg.Location()
	if err != nil {
		fatal("Failed to load display timezone", err)
	}
	clock := provider.Clock{Location: loc}

	mailer, err := ses.NewSender(cfg.MailConfig(), awsses.NewFromConfig(awsConfig))
	if err != nil {
		fatal("Failed to create mail sender", err)
	}

	opts := []dispatch.Option{dispatch.WithLogger(logger)}

	if cfg.HECEnabled() {
		hecClient, err := hec.NewClient(hec.Config{
			Endpoints:       cfg.HECEndpoints,
			TLSSkipVerify:   cfg.HECTLSSkipVerify,
			Proxy:           cfg.HECProxy,
			Token:           cfg.HECToken,
			ChannelID:       cfg.HECChannelID,
			Index:           cfg.HECIndex,
			Source:          cfg.HECSource,
			SourceType:      cfg.HECSourcetype,
			Host:            cfg.HECHost,
			Timeout:         cfg.HECTimeout,
			BalanceStrategy: cfg.HECBalance,
		})
		if err != nil {
			// the mirror is optional, mail still goes out
			logger.Warn("Failed to create HEC mirror", "err", err)
		} else {
			opts = append(opts, dispatch.WithMirror(hecClient))
		}
	}

	// Archives may use their own credentials
	s3Config := awsConfig
	if cfg.S3AccessKeyID != "" && cfg.S3AccessKeySecret != "" {
		s3Config = awsConfig.Copy()
		s3Config.Credentials = credentials.NewStaticCredentialsProvider(cfg.S3AccessKeyID, cfg.S3AccessKeySecret, "")
	}
	if cfg.S3URL != "" {
		failureStorage, err := s3storage.NewStorage(storage.StorageConfig{Provider: "s3", URL: cfg.S3URL}, s3Config)
		if err != nil {
			logger.Warn("Failed to setup failure storage", "err", err)
		} else {
			opts = append(opts, dispatch.WithFailureStorage(failureStorage))
		}
	}
	if cfg.S3ArchiveURL != "" {
		coldStorage, err := s3storage.NewStorage(storage.StorageConfig{Provider: "s3", URL: cfg.S3ArchiveURL}, s3Config)
		if err != nil {
			logger.Warn("Failed to setup cold storage", "err", err)
		} else {
			opts = append(opts, dispatch.WithColdStorage(coldStorage))
		}
	}

	p, err := pipeline.New(pipeline.Config{
		Fields:     fields,
		Priorities: priorities,
		Common:     cfg.CommonFields(),
		Sender:     dispatch.NewDispatcher(mailer, opts...),
		Pacer:      pipeline.NewPacer(cfg.SendInterval),
		Logger:     logger,
	},
		cloudwatchlogs.NewProvider(clock),
		cloudwatchalarm.NewProvider(cloudwatch.NewFromConfig(awsConfig), clock, logger),
		ecstask.NewProvider(cfg.Region, clock),
	)
	if err != nil {
		fatal("Failed to build pipeline", err)
	}

	handler = pipeline.Instrument(serviceName, logger, p.HandleBatch)
	logger.Info("AWS Lambda handler initialized successfully", "region", cfg.Region, "timezone", loc.String())
}

func main() {
	lambda.Start(handler)
}

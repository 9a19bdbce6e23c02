// Package bootstrap holds the flags and wiring shared by the linkdb binaries:
// logging, the storage backend, short URL generation and tracking.
package bootstrap

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/ronny/linkdb"
	"github.com/ronny/linkdb/awsutil"
	"github.com/ronny/linkdb/ids"
	"github.com/ronny/linkdb/storage"
	"github.com/ronny/linkdb/tracking"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	StorageFile     = "file"
	StorageDynamoDB = "dynamodb"
)

type Flags struct {
	Database          *string
	Storage           *string
	DynamoDBTableName *string
	AWSRegion         *string
	DynamoDBEndpoint  *string
	AWSAccessKeyID    *string
	SNSTopicARN       *string
	ShortURLBase      *string
	ShortCodeLength   *int
	DenylistFilename  *string
	PrettyLog         *bool
	LogLevel          *string

	tracker tracking.Tracker
}

// RegisterFlags defines the shared flags on fs.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	return &Flags{
		Database:          fs.String("database", linkdb.DefaultDatabase, "the link database: an existing JSON file path for -storage=file (relative to the working directory, the repository ships an empty data/links.json), the item key for -storage=dynamodb"),
		Storage:           fs.String("storage", StorageFile, "the storage backend, `file` or `dynamodb`"),
		DynamoDBTableName: fs.String("dynamodb-tablename", storage.DynamoDBDefaultTableName, "the dynamodb table name"),
		AWSRegion:         fs.String("aws-region", storage.DynamoDBDefaultRegion, "the AWS region used for dynamodb and sns"),
		DynamoDBEndpoint:  fs.String("dynamodb-endpoint", "", "custom dynamodb endpoint URL to use, e.g. `http://localhost:8000` for dynamodb-local (optional)"),
		AWSAccessKeyID:    fs.String("aws-access-key-id", "", "override AWS_ACCESS_KEY_ID used for dynamodb, only for local development with dynamodb-local (optional)"),
		SNSTopicARN:       fs.String("sns-topic-arn", "", "SNS topic to publish link events to (optional)"),
		ShortURLBase:      fs.String("short-url-base", "", "when specified, links created without a short URL get one generated under this base URL (optional)"),
		ShortCodeLength:   fs.Int("short-code-length", ids.NanoIDDefaultLength, "the length of generated short codes, see https://zelark.github.io/nano-id-cc/"),
		DenylistFilename:  fs.String("denylist", "", "custom denylist.txt file to use for checking generated short codes (optional)"),
		PrettyLog:         fs.Bool("pretty-log", false, "whether to enable logs pretty-printing (inefficient), otherwise json"),
		LogLevel:          fs.String("log-level", "info", "set the minimum log level"),
	}
}

// SetupLogging configures the global zerolog logger from the flags.
func (f *Flags) SetupLogging() error {
	level, err := zerolog.ParseLevel(*f.LogLevel)
	if err != nil {
		return fmt.Errorf("zerolog.ParseLevel: %w", err)
	}
	zerolog.SetGlobalLevel(level)

	if *f.PrettyLog {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	return nil
}

// LinkDBOptions builds the LinkDB options selected by the flags.
func (f *Flags) LinkDBOptions(ctx context.Context) ([]func(*linkdb.LinkDB), error) {
	options := []func(*linkdb.LinkDB){
		linkdb.WithDefaultDatabase(*f.Database),
	}

	// Storage
	switch *f.Storage {
	case StorageFile:
		options = append(options, linkdb.WithStorage(storage.NewFileStorage()))
	case StorageDynamoDB:
		cfg, err := awsutil.LoadConfig(ctx, awsutil.Options{
			Region:      *f.AWSRegion,
			Endpoint:    *f.DynamoDBEndpoint,
			AccessKeyID: *f.AWSAccessKeyID,
		})
		if err != nil {
			return nil, err
		}
		ddb, err := storage.NewDynamoDBStorage(ctx,
			storage.WithDynamoDBConfig(cfg),
			storage.WithDynamoDBTableName(*f.DynamoDBTableName),
			storage.WithDynamoDBRegion(*f.AWSRegion),
		)
		if err != nil {
			return nil, fmt.Errorf("storage.NewDynamoDBStorage: %w", err)
		}
		options = append(options, linkdb.WithStorage(ddb))
	default:
		return nil, fmt.Errorf("unknown storage %q, expected %q or %q", *f.Storage, StorageFile, StorageDynamoDB)
	}

	// Short URLs
	if *f.ShortURLBase != "" {
		nanoidOpts := []func(*ids.NanoIDGenerator){
			ids.WithNanoIDLength(*f.ShortCodeLength),
		}
		if *f.DenylistFilename != "" {
			denylist, err := ids.LoadDenylist(*f.DenylistFilename)
			if err != nil {
				return nil, fmt.Errorf("ids.LoadDenylist: %w", err)
			}
			nanoidOpts = append(nanoidOpts, ids.WithNanoIDDenylist(denylist))
		}
		generator, err := ids.NewNanoIDGenerator(nanoidOpts...)
		if err != nil {
			return nil, fmt.Errorf("ids.NewNanoIDGenerator: %w", err)
		}
		options = append(options,
			linkdb.WithShortURLBase(*f.ShortURLBase),
			linkdb.WithIDGenerator(generator),
		)
	}

	// Tracking
	if tracker, err := f.Tracker(ctx); err != nil {
		return nil, err
	} else if tracker != nil {
		options = append(options, linkdb.WithTracker(tracker))
	}

	log.Debug().
		Str("database", *f.Database).
		Str("storage", *f.Storage).
		Str("dynamodbEndpoint", *f.DynamoDBEndpoint).
		Str("snsTopicARN", *f.SNSTopicARN).
		Str("shortURLBase", *f.ShortURLBase).
		Msg("linkdb options")

	return options, nil
}

// Tracker returns the SNS tracker, or nil when no topic is configured. The
// tracker is built once and shared by every caller, LinkDBOptions included.
func (f *Flags) Tracker(ctx context.Context) (tracking.Tracker, error) {
	if *f.SNSTopicARN == "" {
		return nil, nil
	}
	if f.tracker != nil {
		return f.tracker, nil
	}

	cfg, err := awsutil.LoadConfig(ctx, awsutil.Options{
		Region:      *f.AWSRegion,
		AccessKeyID: *f.AWSAccessKeyID,
	})
	if err != nil {
		return nil, err
	}

	tracker, err := tracking.NewSNSTracker(ctx, *f.SNSTopicARN, tracking.WithSNSConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("tracking.NewSNSTracker: %w", err)
	}
	f.tracker = tracker
	return tracker, nil
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/ronny/linkdb/models"
	"github.com/rs/zerolog/log"
)

const (
	DynamoDBDefaultTableName = "linkdb"
	DynamoDBDefaultRegion    = "us-east-1"

	ddbDatabaseSK = "database"
)

// DynamoDBStorage implements the Storage interface using Amazon DynamoDB as the
// backend. Each link database is stored as a single item whose partition key
// is the database name, so Load and Save keep the read-everything,
// write-everything semantics of FileStorage. A database is limited to the
// DynamoDB maximum item size (400 KB).
//
// `NewDynamoDBStorage` will create the table automatically if the table
// doesn’t exist (requires `dynamodb:CreateTable` IAM permission).
//
// The minimum required permissions are:
// - `dynamodb:PutItem`
// - `dynamodb:GetItem`
// - `dynamodb:DescribeTable`
// - `dynamodb:CreateTable` (only if you want the table to be created automatically)
//
// (or check `DynamoDBClient` interface if this list is out of date)
type DynamoDBStorage struct {
	tableName       string
	region          string
	awsConfig       *aws.Config
	client          DynamoDBClient
	backoffSchedule []time.Duration
}

var _ Storage = (*DynamoDBStorage)(nil)

func (d *DynamoDBStorage) Load(ctx context.Context, name string) (models.Database, error) {
	output, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(d.tableName),
		ConsistentRead: aws.Bool(true),
		Key:            ddbDatabaseKey(name),
	})
	if err != nil {
		return nil, fmt.Errorf("ddb.GetItem: %w", err)
	}

	if len(output.Item) == 0 {
		return nil, &ErrDatabaseNotFound{Name: name}
	}

	var item ddbDatabaseItem
	err = attributevalue.UnmarshalMap(output.Item, &item)
	if err != nil {
		return nil, fmt.Errorf("ddbAV.UnmarshalMap: %w", err)
	}

	db := item.Links
	if db == nil {
		db = models.Database{}
	}
	db.Normalize()
	return db, nil
}

func (d *DynamoDBStorage) Save(ctx context.Context, name string, db models.Database) error {
	if db == nil {
		db = models.Database{}
	}
	item := &ddbDatabaseItem{
		Type:      "LinkDatabase",
		PK:        name,
		SK:        ddbDatabaseSK,
		Links:     db,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
	}

	avItem, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("ddbAV.MarshalMap: %w", err)
	}

	_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.tableName),
		Item:      avItem,
	})
	if err != nil {
		return fmt.Errorf("ddb.PutItem: %w", err)
	}
	return nil
}

type ddbDatabaseItem struct {
	Type      string          `dynamodbav:"_type"`
	PK        string          `dynamodbav:"pk"`
	SK        string          `dynamodbav:"sk"`
	Links     models.Database `dynamodbav:"links"`
	UpdatedAt string          `dynamodbav:"updatedAt"`
}

func ddbDatabaseKey(name string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"pk": &types.AttributeValueMemberS{Value: name},
		"sk": &types.AttributeValueMemberS{Value: ddbDatabaseSK},
	}
}

// NewDynamoDBStorage returns an initialised `*DynamoDBStorage`.
//
// It checks if the DynamoDB table exists, if not it will create one first. This
// may fail if the assumed IAM role (or user) doesn't have
// `dynamodb:CreateTable` permission.
func NewDynamoDBStorage(ctx context.Context, options ...func(*DynamoDBStorage)) (*DynamoDBStorage, error) {
	s := &DynamoDBStorage{
		backoffSchedule: []time.Duration{
			1 * time.Second,
			3 * time.Second,
			10 * time.Second,
		},
	}

	for _, option := range options {
		option(s)
	}

	if s.tableName == "" {
		s.tableName = DynamoDBDefaultTableName
	}

	if s.region == "" {
		s.region = DynamoDBDefaultRegion
	}

	if s.client == nil {
		if s.awsConfig == nil {
			cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(s.region))
			if err != nil {
				return nil, fmt.Errorf("awsConfig.LoadDefaultConfig: %w", err)
			}
			s.awsConfig = &cfg
		}
		s.client = dynamodb.NewFromConfig(*s.awsConfig)
	}

	err := s.EnsureTable(ctx)
	if err != nil {
		return nil, err
	}

	return s, nil
}

func (s *DynamoDBStorage) EnsureTable(ctx context.Context) error {
	var err error
	for _, backoff := range s.backoffSchedule {
		var output *dynamodb.DescribeTableOutput
		output, err = s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
			TableName: aws.String(s.tableName),
		})
		if err == nil && output != nil && output.Table != nil && output.Table.TableStatus == types.TableStatusActive {
			log.Info().Str("table", s.tableName).Msg("dynamodb table is active")
			return nil
		}

		if err != nil {
			var rnfe *types.ResourceNotFoundException
			if !errors.As(err, &rnfe) {
				return fmt.Errorf("client.DescribeTable: %w", err)
			}
			log.Warn().Str("table", s.tableName).Msg("table missing")
			if err := s.CreateTable(ctx); err != nil {
				return fmt.Errorf("CreateTable: %w", err)
			}
		}

		log.Info().Msgf("waiting for %s...", backoff)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	if err != nil {
		return fmt.Errorf("describe/create table: %w", err)
	}
	return fmt.Errorf("table %s is not active after %d attempts", s.tableName, len(s.backoffSchedule))
}

func (s *DynamoDBStorage) CreateTable(ctx context.Context) error {
	if s.client == nil {
		return errors.New("BUG: createTable called before s.client is set")
	}
	if s.tableName == "" {
		return errors.New("BUG: createTable called before s.tableName is set")
	}

	log.Info().Str("table", s.tableName).Msg("creating table...")

	_, err := s.client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName:   aws.String(s.tableName),
		BillingMode: types.BillingModePayPerRequest,
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("pk"), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String("sk"), KeyType: types.KeyTypeRange},
		},
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("pk"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("sk"), AttributeType: types.ScalarAttributeTypeS},
		},
	})
	return err
}

func WithDynamoDBTableName(tableName string) func(*DynamoDBStorage) {
	return func(s *DynamoDBStorage) {
		s.tableName = tableName
	}
}

func WithDynamoDBRegion(region string) func(*DynamoDBStorage) {
	return func(s *DynamoDBStorage) {
		s.region = region
	}
}

func WithDynamoDBConfig(cfg aws.Config) func(*DynamoDBStorage) {
	return func(s *DynamoDBStorage) {
		s.awsConfig = &cfg
	}
}

func WithDynamoDBClient(client DynamoDBClient) func(*DynamoDBStorage) {
	return func(s *DynamoDBStorage) {
		s.client = client
	}
}

// WithDynamoDBBackoffSchedule sets the waits between table status checks in
// EnsureTable. Its length is the number of checks.
func WithDynamoDBBackoffSchedule(schedule []time.Duration) func(*DynamoDBStorage) {
	return func(s *DynamoDBStorage) {
		s.backoffSchedule = schedule
	}
}

type DynamoDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
}

package storage

import (
	"context"
	"errors"
	"io/fs"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/ronny/linkdb/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDynamoDB struct {
	mu           sync.Mutex
	tableExists  bool
	createCalls  int
	items        map[string]map[string]types.AttributeValue
	describeErr  error
	getItemInput *dynamodb.GetItemInput
}

func newFakeDynamoDB(tableExists bool) *fakeDynamoDB {
	return &fakeDynamoDB{
		tableExists: tableExists,
		items:       make(map[string]map[string]types.AttributeValue),
	}
}

func (f *fakeDynamoDB) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pk := params.Item["pk"].(*types.AttributeValueMemberS).Value
	f.items[pk] = params.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamoDB) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getItemInput = params
	pk := params.Key["pk"].(*types.AttributeValueMemberS).Value
	return &dynamodb.GetItemOutput{Item: f.items[pk]}, nil
}

func (f *fakeDynamoDB) DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.describeErr != nil {
		return nil, f.describeErr
	}
	if !f.tableExists {
		return nil, &types.ResourceNotFoundException{Message: aws.String("no such table")}
	}
	return &dynamodb.DescribeTableOutput{
		Table: &types.TableDescription{
			TableName:   params.TableName,
			TableStatus: types.TableStatusActive,
		},
	}, nil
}

func (f *fakeDynamoDB) CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	f.tableExists = true
	return &dynamodb.CreateTableOutput{}, nil
}

func newTestDynamoDBStorage(t *testing.T, client *fakeDynamoDB) *DynamoDBStorage {
	t.Helper()
	s, err := NewDynamoDBStorage(context.Background(),
		WithDynamoDBClient(client),
		WithDynamoDBTableName("links-test"),
		WithDynamoDBBackoffSchedule([]time.Duration{time.Millisecond, time.Millisecond}),
	)
	require.NoError(t, err)
	return s
}

func TestDynamoDBStorageCreatesMissingTable(t *testing.T) {
	client := newFakeDynamoDB(false)
	newTestDynamoDBStorage(t, client)
	assert.Equal(t, 1, client.createCalls)
}

func TestDynamoDBStorageExistingTable(t *testing.T) {
	client := newFakeDynamoDB(true)
	newTestDynamoDBStorage(t, client)
	assert.Equal(t, 0, client.createCalls)
}

func TestDynamoDBStorageDescribeError(t *testing.T) {
	client := newFakeDynamoDB(true)
	client.describeErr = errors.New("access denied")

	_, err := NewDynamoDBStorage(context.Background(),
		WithDynamoDBClient(client),
		WithDynamoDBBackoffSchedule([]time.Duration{time.Millisecond}),
	)
	assert.ErrorContains(t, err, "access denied")
}

func TestDynamoDBStorageLoadSave(t *testing.T) {
	ctx := context.Background()
	client := newFakeDynamoDB(true)
	s := newTestDynamoDBStorage(t, client)

	_, err := s.Load(ctx, "docs")
	assert.True(t, errors.Is(err, fs.ErrNotExist))

	db := models.Database{
		"http://stdlib.io/": {
			ID:          "stdlib",
			Description: "A standard library for JavaScript and Node.js.",
			Keywords:    []string{"standard", "library", "lib"},
		},
		"http://usejsdoc.org/": {
			ID:          "jsdoc",
			Description: "The official website of JSDoc.",
			Keywords:    []string{},
		},
	}
	require.NoError(t, s.Save(ctx, "docs", db))

	loaded, err := s.Load(ctx, "docs")
	require.NoError(t, err)
	assert.Equal(t, db, loaded)
	assert.Equal(t, "links-test", aws.ToString(client.getItemInput.TableName))
	assert.True(t, aws.ToBool(client.getItemInput.ConsistentRead))
}

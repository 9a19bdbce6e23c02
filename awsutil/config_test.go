package awsutil

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTargetPathFunc(t *testing.T) {
	r := httptest.NewRequest("POST", "https://dynamodb.us-east-1.amazonaws.com/", nil)
	assert.Equal(t, "/", TargetPathFunc(r))

	r.Header.Set("X-Amz-Target", "DynamoDB_20120810.GetItem")
	assert.Equal(t, "DynamoDB_20120810.GetItem", TargetPathFunc(r))
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(context.Background(), Options{
		Region:      "ap-southeast-2",
		Endpoint:    "http://localhost:8000",
		AccessKeyID: "local",
	})
	require.NoError(t, err)
	assert.Equal(t, "ap-southeast-2", cfg.Region)

	creds, err := cfg.Credentials.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "local", creds.AccessKeyID)

	endpoint, err := cfg.EndpointResolverWithOptions.ResolveEndpoint("DynamoDB", cfg.Region)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000", endpoint.URL)
}

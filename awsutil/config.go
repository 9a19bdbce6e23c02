// Package awsutil builds the aws.Config shared by the DynamoDB storage and the
// SNS tracker.
package awsutil

import (
	"context"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/ronny/linkdb/debug"
)

type Options struct {
	Region string
	// Endpoint overrides the service endpoint, e.g. `http://localhost:8000`
	// for dynamodb-local.
	Endpoint string
	// AccessKeyID, when set, is used as static credentials. Only meant for
	// local development against dynamodb-local, which uses the value for
	// namespacing.
	AccessKeyID string
}

// LoadConfig loads the default AWS config with the given overrides applied.
// Outgoing requests are instrumented with the debug package metrics.
func LoadConfig(ctx context.Context, opts Options) (aws.Config, error) {
	awsConfigOpts := []func(*config.LoadOptions) error{
		config.WithHTTPClient(&http.Client{
			Transport: debug.NewRoundTripper(nil, TargetPathFunc),
		}),
	}

	if opts.Region != "" {
		awsConfigOpts = append(awsConfigOpts, config.WithRegion(opts.Region))
	}

	if opts.Endpoint != "" {
		endpoint := opts.Endpoint
		awsConfigOpts = append(awsConfigOpts, config.WithEndpointResolverWithOptions(
			aws.EndpointResolverWithOptionsFunc(
				func(service, region string, options ...interface{}) (aws.Endpoint, error) {
					return aws.Endpoint{URL: endpoint}, nil
				},
			),
		))
	}

	if opts.AccessKeyID != "" {
		awsConfigOpts = append(awsConfigOpts, config.WithCredentialsProvider(
			credentials.StaticCredentialsProvider{
				Value: aws.Credentials{
					AccessKeyID:     opts.AccessKeyID, // the value is used by dynamodb-local for namespacing
					SecretAccessKey: opts.AccessKeyID, // the value doesn't matter, just needs to exist for dynamodb-local
					SessionToken:    opts.AccessKeyID, // the value doesn't matter, just needs to exist for dynamodb-local
				},
			},
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, awsConfigOpts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("(aws)config.LoadDefaultConfig: %w", err)
	}
	return cfg, nil
}

// TargetPathFunc labels AWS JSON protocol requests (DynamoDB) by their
// X-Amz-Target operation, since they're all sent to `/`.
func TargetPathFunc(r *http.Request) string {
	if target := r.Header.Get("X-Amz-Target"); target != "" {
		return target
	}
	return r.URL.Path
}

package tracking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// SNSTracker publishes tracking payloads as JSON messages to an SNS topic.
// Every message carries an `event` attribute so subscribers can filter.
type SNSTracker struct {
	topicARN  string
	awsConfig *aws.Config
	client    SNSPublisher
}

var _ Tracker = (*SNSTracker)(nil)

func (t *SNSTracker) TrackLinkCreated(ctx context.Context, payload *LinkCreatedPayload) error {
	if payload == nil || payload.Link == nil {
		return errors.New("missing payload")
	}
	return t.publish(ctx, payload, map[string]string{
		"event":    payload.Event,
		"database": payload.Database,
		"linkId":   payload.Link.ID,
	})
}

func (t *SNSTracker) TrackLinkLookup(ctx context.Context, payload *LinkLookupPayload) error {
	if payload == nil {
		return errors.New("missing payload")
	}
	return t.publish(ctx, payload, map[string]string{
		"event":       payload.Event,
		"requestHost": payload.RequestHost,
		"linkId":      payload.LinkID,
	})
}

func (t *SNSTracker) publish(ctx context.Context, payload interface{}, attributes map[string]string) error {
	messageJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("json.Marshal: %w", err)
	}

	messageAttributes := make(map[string]types.MessageAttributeValue, len(attributes))
	for name, value := range attributes {
		// SNS rejects empty attribute values
		if value == "" {
			continue
		}
		messageAttributes[name] = types.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String(value),
		}
	}

	_, err = t.client.Publish(ctx, &sns.PublishInput{
		TopicArn:          aws.String(t.topicARN),
		Message:           aws.String(string(messageJSON)),
		MessageAttributes: messageAttributes,
	})
	if err != nil {
		return fmt.Errorf("sns.Publish: %w", err)
	}
	return nil
}

type SNSPublisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

func NewSNSTracker(ctx context.Context, topicARN string, options ...func(*SNSTracker)) (*SNSTracker, error) {
	if topicARN == "" {
		return nil, errors.New("missing topicARN")
	}

	t := &SNSTracker{
		topicARN: topicARN,
	}

	for _, option := range options {
		option(t)
	}

	if t.client == nil {
		if t.awsConfig == nil {
			cfg, err := config.LoadDefaultConfig(ctx)
			if err != nil {
				return nil, fmt.Errorf("awsConfig.LoadDefaultConfig: %w", err)
			}
			t.awsConfig = &cfg
		}
		t.client = sns.NewFromConfig(*t.awsConfig)
	}

	return t, nil
}

func WithSNSClient(client SNSPublisher) func(*SNSTracker) {
	return func(t *SNSTracker) {
		t.client = client
	}
}

func WithSNSConfig(cfg aws.Config) func(*SNSTracker) {
	return func(t *SNSTracker) {
		t.awsConfig = &cfg
	}
}

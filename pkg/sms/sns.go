package sms

import (
	"context"
	"errors"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"

	pkgerrors "github.com/angelmondragon/tollwatch-backend/pkg/errors"
)

const (
	snsSenderIDAttribute = "AWS.SNS.SMS.SenderID"
	snsSMSTypeAttribute  = "AWS.SNS.SMS.SMSType"
	snsTransactional     = "Transactional"
)

type snsPublisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSGateway sends SMS through AWS SNS direct-to-phone publishing.
type SNSGateway struct {
	client   snsPublisher
	senderID string
}

// SNSOption configures optional SNS behavior.
type SNSOption func(*SNSGateway)

// WithSenderID sets the alphanumeric sender id attached to each message.
func WithSenderID(senderID string) SNSOption {
	return func(g *SNSGateway) {
		g.senderID = strings.TrimSpace(senderID)
	}
}

// NewSNSGateway loads the default AWS credential chain for region.
func NewSNSGateway(ctx context.Context, region string, opts ...SNSOption) (*SNSGateway, error) {
	if strings.TrimSpace(region) == "" {
		return nil, errors.New("sns region is required")
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return newSNSGateway(sns.NewFromConfig(awsCfg), opts...), nil
}

func newSNSGateway(client snsPublisher, opts ...SNSOption) *SNSGateway {
	g := &SNSGateway{client: client}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

func (g *SNSGateway) Send(ctx context.Context, to, body string) error {
	if strings.TrimSpace(to) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "sms recipient is required")
	}

	attrs := map[string]types.MessageAttributeValue{
		snsSMSTypeAttribute: {DataType: aws.String("String"), StringValue: aws.String(snsTransactional)},
	}
	if g.senderID != "" {
		attrs[snsSenderIDAttribute] = types.MessageAttributeValue{DataType: aws.String("String"), StringValue: aws.String(g.senderID)}
	}

	_, err := g.client.Publish(ctx, &sns.PublishInput{
		PhoneNumber:       aws.String(to),
		Message:           aws.String(body),
		MessageAttributes: attrs,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeChannel, err, "sns publish")
	}
	return nil
}

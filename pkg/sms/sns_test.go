package sms

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/tollwatch-backend/pkg/errors"
)

type fakePublisher struct {
	inputs []*sns.PublishInput
	err    error
}

func (f *fakePublisher) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.inputs = append(f.inputs, params)
	if f.err != nil {
		return nil, f.err
	}
	return &sns.PublishOutput{MessageId: aws.String("msg-1")}, nil
}

func TestSNSGatewayPublishesToPhone(t *testing.T) {
	publisher := &fakePublisher{}
	gateway := newSNSGateway(publisher, WithSenderID("TOLLWT"))

	require.NoError(t, gateway.Send(context.Background(), "+919800000000", "Toll Alert"))
	require.Len(t, publisher.inputs, 1)

	input := publisher.inputs[0]
	assert.Equal(t, "+919800000000", aws.ToString(input.PhoneNumber))
	assert.Equal(t, "Toll Alert", aws.ToString(input.Message))
	assert.Equal(t, "TOLLWT", aws.ToString(input.MessageAttributes[snsSenderIDAttribute].StringValue))
	assert.Equal(t, snsTransactional, aws.ToString(input.MessageAttributes[snsSMSTypeAttribute].StringValue))
}

func TestSNSGatewayOmitsBlankSenderID(t *testing.T) {
	publisher := &fakePublisher{}
	gateway := newSNSGateway(publisher, WithSenderID("  "))

	require.NoError(t, gateway.Send(context.Background(), "+919800000000", "hi"))
	_, ok := publisher.inputs[0].MessageAttributes[snsSenderIDAttribute]
	assert.False(t, ok)
}

func TestSNSGatewayWrapsPublishError(t *testing.T) {
	publisher := &fakePublisher{err: errors.New("InvalidParameter: PhoneNumber")}
	gateway := newSNSGateway(publisher)

	err := gateway.Send(context.Background(), "+919800000000", "hi")
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeChannel))
	assert.Contains(t, err.Error(), "InvalidParameter")
}

func TestNewSNSGatewayRequiresRegion(t *testing.T) {
	_, err := NewSNSGateway(context.Background(), "")
	assert.Error(t, err)
}

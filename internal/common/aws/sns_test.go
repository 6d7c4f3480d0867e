package aws

import (
	"context"
	"errors"
	"testing"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSNS struct {
	mock.Mock
}

func (m *mockSNS) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	args := m.Called(ctx, params)
	out, _ := args.Get(0).(*sns.PublishOutput)
	return out, args.Error(1)
}

func TestSNSClient_PublishMessage(t *testing.T) {
	api := new(mockSNS)
	client := &SNSClient{client: api, topicARN: "arn:aws:sns:ap-south-1:123456789012:registration-audit"}

	api.On("Publish", mock.Anything, mock.MatchedBy(func(in *sns.PublishInput) bool {
		return awssdk.ToString(in.TopicArn) == "arn:aws:sns:ap-south-1:123456789012:registration-audit" &&
			awssdk.ToString(in.Subject) == "UPDATE WorkflowInstanceService" &&
			awssdk.ToString(in.MessageAttributes["eventId"].StringValue) == "RPR_402"
	})).Return(&sns.PublishOutput{MessageId: awssdk.String("msg-1")}, nil)

	id, err := client.PublishMessage(context.Background(), "UPDATE WorkflowInstanceService", `{}`, map[string]string{"eventId": "RPR_402"})

	require.NoError(t, err)
	assert.Equal(t, "msg-1", id)
	api.AssertExpectations(t)
}

func TestSNSClient_PublishMessage_Error(t *testing.T) {
	api := new(mockSNS)
	client := &SNSClient{client: api, topicARN: "arn"}

	api.On("Publish", mock.Anything, mock.Anything).Return(nil, errors.New("throttled"))

	_, err := client.PublishMessage(context.Background(), "s", "m", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")
}

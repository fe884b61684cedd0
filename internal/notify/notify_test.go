package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/hackgods/clinic-booking-engine/internal/config"
	"github.com/hackgods/clinic-booking-engine/internal/dispatch"
)

func sampleNotification() dispatch.Notification {
	return dispatch.Notification{
		Kind:          dispatch.KindConfirmation,
		AppointmentID: "a-1",
		Recipient:     dispatch.Recipient{PatientID: "p-1", Name: "Ana", Email: "ana@example.com"},
		TemplateData:  map[string]string{"date": "2026-10-19", "time": "08:20"},
	}
}

type fakePublisher struct {
	exchange, key string
	msg           amqp091.Publishing
	err           error
}

func (f *fakePublisher) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp091.Publishing) error {
	f.exchange, f.key, f.msg = exchange, key, msg
	return f.err
}

func TestAMQPNotifierPublishesJSON(t *testing.T) {
	pub := &fakePublisher{}
	n := &AMQPNotifier{channel: pub, queue: "clinic.notifications"}

	require.NoError(t, n.Send(context.Background(), sampleNotification()))

	assert.Equal(t, "", pub.exchange)
	assert.Equal(t, "clinic.notifications", pub.key)
	assert.Equal(t, "application/json", pub.msg.ContentType)
	assert.Equal(t, amqp091.Persistent, pub.msg.DeliveryMode)
	assert.Equal(t, "confirmation", pub.msg.Headers["notification_kind"])

	var got dispatch.Notification
	require.NoError(t, json.Unmarshal(pub.msg.Body, &got))
	assert.Equal(t, sampleNotification(), got)
}

func TestAMQPNotifierWrapsPublishError(t *testing.T) {
	pub := &fakePublisher{err: amqp091.ErrClosed}
	n := &AMQPNotifier{channel: pub, queue: "q"}

	err := n.Send(context.Background(), sampleNotification())
	assert.ErrorIs(t, err, amqp091.ErrClosed)
	assert.NoError(t, n.Close())
}

type fakeSQS struct {
	input *sqs.SendMessageInput
	err   error
}

func (f *fakeSQS) SendMessage(_ context.Context, in *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return &sqs.SendMessageOutput{MessageId: aws.String("m-1")}, nil
}

func TestSQSNotifierSends(t *testing.T) {
	client := &fakeSQS{}
	n := NewSQSNotifier(client, "https://sqs.us-east-1.amazonaws.com/123/clinic")

	require.NoError(t, n.Send(context.Background(), sampleNotification()))
	require.NotNil(t, client.input)
	assert.Equal(t, "https://sqs.us-east-1.amazonaws.com/123/clinic", aws.ToString(client.input.QueueUrl))
	assert.Equal(t, "confirmation", aws.ToString(client.input.MessageAttributes["notification_kind"].StringValue))

	var got dispatch.Notification
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(client.input.MessageBody)), &got))
	assert.Equal(t, "a-1", got.AppointmentID)
}

func TestSQSNotifierError(t *testing.T) {
	n := NewSQSNotifier(&fakeSQS{err: errors.New("throttled")}, "url")
	assert.ErrorContains(t, n.Send(context.Background(), sampleNotification()), "throttled")
}

func TestNewSQSNotifierRequiresQueue(t *testing.T) {
	assert.Panics(t, func() { NewSQSNotifier(&fakeSQS{}, "") })
}

func TestLogNotifier(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	n := NewLogNotifier(zap.New(core))

	require.NoError(t, n.Send(context.Background(), sampleNotification()))
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "notification", entry.Message)
	assert.Equal(t, "confirmation", entry.ContextMap()["kind"])
}

func TestNewSelectsNotifier(t *testing.T) {
	n, closeFn, err := New(context.Background(), config.Config{Notifier: "log"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &LogNotifier{}, n)
	assert.NoError(t, closeFn())

	_, _, err = New(context.Background(), config.Config{Notifier: "pigeon"}, nil)
	assert.Error(t, err)
}

package mq_test

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/docvault/pkg/configs"
	"github.com/yeisme/docvault/pkg/internal/storage/mq"
)

func openGoChannel(t *testing.T) *mq.Client {
	t.Helper()

	client, err := mq.Open(context.Background(), configs.MQConfig{
		Type:      configs.MQTypeGoChannel,
		GoChannel: configs.MQGoChannelConfig{OutputBuffer: 8},
	}, false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return client
}

func TestGoChannelPublishSubscribe(t *testing.T) {
	client := openGoChannel(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ch, err := client.Subscribe(ctx, "dv.item.created")
	require.NoError(t, err)

	msg := message.NewMessage(watermill.NewUUID(), []byte(`{"id":"1"}`))
	require.NoError(t, client.Publish(ctx, "dv.item.created", msg))

	select {
	case got := <-ch:
		assert.Equal(t, msg.UUID, got.UUID)
		assert.JSONEq(t, `{"id":"1"}`, string(got.Payload))
		got.Ack()
	case <-ctx.Done():
		t.Fatal("message not delivered")
	}
}

func TestRouterConsumer(t *testing.T) {
	client := openGoChannel(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	received := make(chan string, 1)

	client.AddConsumer("test-consumer", "dv.item.deleted", func(msg *message.Message) error {
		received <- string(msg.Payload)
		return nil
	})

	go func() { _ = client.Run(ctx) }()

	select {
	case <-client.Running():
	case <-ctx.Done():
		t.Fatal("router did not start")
	}

	require.NoError(t, client.Publish(ctx, "dv.item.deleted", message.NewMessage(watermill.NewUUID(), []byte("bye"))))

	select {
	case p := <-received:
		assert.Equal(t, "bye", p)
	case <-ctx.Done():
		t.Fatal("consumer not invoked")
	}
}

func TestOpenUnsupportedType(t *testing.T) {
	_, err := mq.Open(context.Background(), configs.MQConfig{Type: "kafka"}, false)
	require.Error(t, err)
	assert.Contains(t, mq.GetRegisteredTypes(), configs.MQTypeGoChannel)
}

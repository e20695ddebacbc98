package queue_test

import (
	"context"
	"testing"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/docvault/pkg/queue"
)

type capture struct {
	topic string
	msgs  []*message.Message
}

func (c *capture) Publish(_ context.Context, topic string, msgs ...*message.Message) error {
	c.topic = topic
	c.msgs = append(c.msgs, msgs...)

	return nil
}

func TestPublishItemDeleted(t *testing.T) {
	pub := &capture{}
	payload := queue.ItemDeletedPayload{
		Item:        queue.ItemRef{ID: "A", Type: "FOLDER", Name: "Finance"},
		Deleted:     3,
		Descendants: []string{"D", "B"},
	}

	err := queue.Publish(context.Background(), pub, queue.TopicItemDeleted, payload,
		queue.WithProducer("docvault"), queue.WithTraceID("t-1"))
	require.NoError(t, err)

	require.Len(t, pub.msgs, 1)
	assert.Equal(t, queue.TopicItemDeleted, pub.topic)
	assert.Equal(t, "t-1", pub.msgs[0].Metadata.Get("trace_id"))

	env, err := queue.ParseItemDeleted(pub.msgs[0])
	require.NoError(t, err)
	assert.Equal(t, queue.TopicItemDeleted, env.Header.Topic)
	assert.Equal(t, "docvault", env.Header.Producer)
	assert.Equal(t, 3, env.Payload.Deleted)
	assert.Equal(t, []string{"D", "B"}, env.Payload.Descendants)
}

func TestAllTopicsUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, topic := range queue.AllTopics() {
		assert.False(t, seen[topic], topic)
		seen[topic] = true
	}
}

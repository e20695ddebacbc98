//go:build !no_redis

package mq

import (
	"testing"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeKeepsMetadata(t *testing.T) {
	msg := message.NewMessage("uuid-1", []byte("payload"))
	msg.Metadata.Set("trace_id", "abc")

	data, err := encodeEnvelope(msg)
	require.NoError(t, err)

	got, err := decodeEnvelope(data)
	require.NoError(t, err)
	assert.Equal(t, "uuid-1", got.UUID)
	assert.Equal(t, "abc", got.Metadata.Get("trace_id"))
	assert.Equal(t, []byte("payload"), []byte(got.Payload))
}

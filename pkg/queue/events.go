package queue

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
)

// Publisher 发布消息的最小接口，mq.Client 满足该接口.
type Publisher interface {
	Publish(ctx context.Context, topic string, msgs ...*message.Message) error
}

// Publish 封装负载并发布到指定主题.
func Publish[T any](ctx context.Context, pub Publisher, topic string, payload T, opts ...HeaderOption) error {
	msg, err := NewWatermillMessage(topic, payload, opts...)
	if err != nil {
		return err
	}

	msg.SetContext(ctx)

	return pub.Publish(ctx, topic, msg)
}

// ParseItemCreated 解析 dv.item.created 消息.
func ParseItemCreated(msg *message.Message) (Message[ItemCreatedPayload], error) {
	return ParseWatermillMessage[ItemCreatedPayload](msg)
}

// ParseDocumentUploaded 解析 dv.document.uploaded 消息.
func ParseDocumentUploaded(msg *message.Message) (Message[DocumentUploadedPayload], error) {
	return ParseWatermillMessage[DocumentUploadedPayload](msg)
}

// ParseItemDeleted 解析 dv.item.deleted 消息.
func ParseItemDeleted(msg *message.Message) (Message[ItemDeletedPayload], error) {
	return ParseWatermillMessage[ItemDeletedPayload](msg)
}

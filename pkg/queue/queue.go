// Package queue 定义条目变更事件：主题、负载与统一的 JSON 信封.
//
// 每条消息的 payload 都是 {"header": {...}, "payload": {...}}，header 同时镜像到 watermill 元数据，
// 消费者不解码也能按 topic/trace_id 路由. 新增字段只做追加，消费者应忽略未知字段.
//
//	err := queue.Publish(ctx, client, queue.TopicItemCreated,
//		queue.ItemCreatedPayload{Item: ref}, queue.WithProducer(configs.AppName))
//
//	env, err := queue.ParseItemCreated(msg)
package queue

import (
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/bytedance/sonic"
)

// PayloadVersionV1 当前信封版本.
const PayloadVersionV1 = "v1"

// 镜像到 watermill 元数据的键.
const (
	MetaTopic      = "topic"
	MetaTraceID    = "trace_id"
	MetaProducer   = "producer"
	MetaOccurredAt = "occurred_at"
	MetaVersion    = "version"
)

// EventHeader 所有事件共有的头部.
type EventHeader struct {
	Topic      string    `json:"topic"`
	TraceID    string    `json:"trace_id,omitempty"`
	Producer   string    `json:"producer,omitempty"`
	OccurredAt time.Time `json:"occurred_at"` // UTC
	Version    string    `json:"version,omitempty"`
}

// Message 信封.
type Message[T any] struct {
	Header  EventHeader `json:"header"`
	Payload T           `json:"payload"`
}

// HeaderOption 调整事件头.
type HeaderOption func(*EventHeader)

// WithTraceID 关联的 trace id，空串忽略.
func WithTraceID(id string) HeaderOption { return func(h *EventHeader) { h.TraceID = id } }

// WithProducer 生产者标识.
func WithProducer(p string) HeaderOption { return func(h *EventHeader) { h.Producer = p } }

// NewEventHeader 以当前 UTC 时间创建事件头.
func NewEventHeader(topic string, opts ...HeaderOption) EventHeader {
	h := EventHeader{Topic: topic, OccurredAt: time.Now().UTC(), Version: PayloadVersionV1}
	for _, opt := range opts {
		opt(&h)
	}

	return h
}

// Encode 序列化信封.
func Encode[T any](m Message[T]) ([]byte, error) { return sonic.Marshal(m) }

// Decode 反序列化信封.
func Decode[T any](b []byte) (Message[T], error) {
	var m Message[T]
	err := sonic.Unmarshal(b, &m)

	return m, err
}

// NewWatermillMessage 构造带 ULID 消息 ID 的 watermill 消息，header 非空字段写入元数据.
func NewWatermillMessage[T any](topic string, payload T, opts ...HeaderOption) (*message.Message, error) {
	h := NewEventHeader(topic, opts...)

	data, err := Encode(Message[T]{Header: h, Payload: payload})
	if err != nil {
		return nil, err
	}

	msg := message.NewMessage(watermill.NewULID(), data)

	for k, v := range map[string]string{
		MetaTopic:      h.Topic,
		MetaTraceID:    h.TraceID,
		MetaProducer:   h.Producer,
		MetaOccurredAt: h.OccurredAt.Format(time.RFC3339Nano),
		MetaVersion:    h.Version,
	} {
		if v != "" {
			msg.Metadata.Set(k, v)
		}
	}

	return msg, nil
}

// ParseWatermillMessage 解码 watermill 消息的信封.
func ParseWatermillMessage[T any](msg *message.Message) (Message[T], error) {
	return Decode[T](msg.Payload)
}

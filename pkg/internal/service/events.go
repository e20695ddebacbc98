package service

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"

	"github.com/yeisme/docvault/pkg/configs"
	ctxPkg "github.com/yeisme/docvault/pkg/context"
	"github.com/yeisme/docvault/pkg/internal/model"
	"github.com/yeisme/docvault/pkg/internal/storage/mq"
	"github.com/yeisme/docvault/pkg/queue"
)

// eventSink 按配置开关发布条目事件，发布失败只记录日志.
type eventSink struct {
	pub queue.Publisher
	cfg configs.EventsConfig
	log zerolog.Logger
}

func newEventSink(pub queue.Publisher, cfg configs.EventsConfig, l zerolog.Logger) *eventSink {
	return &eventSink{pub: pub, cfg: cfg, log: l}
}

func (e *eventSink) enabled(topic string) bool {
	if e == nil || e.pub == nil || !e.cfg.Enabled {
		return false
	}

	switch topic {
	case queue.TopicItemCreated:
		return e.cfg.Item.Created
	case queue.TopicDocumentUploaded:
		return e.cfg.Item.Uploaded
	case queue.TopicItemDeleted:
		return e.cfg.Item.Deleted
	case queue.TopicRegistryReconciled:
		return e.cfg.Item.Reconciled
	default:
		return false
	}
}

func publish[T any](ctx context.Context, e *eventSink, topic string, payload T) {
	if !e.enabled(topic) {
		return
	}

	opts := []queue.HeaderOption{queue.WithProducer(e.cfg.Producer)}
	if traceID := ctxPkg.TraceID(ctx); traceID != "" {
		opts = append(opts, queue.WithTraceID(traceID))
	}

	if err := queue.Publish(ctx, e.pub, topic, payload, opts...); err != nil {
		e.log.Warn().Err(err).Str("topic", topic).Msg("failed to publish event")
	}
}

func refOf(item *model.Item) queue.ItemRef {
	return queue.ItemRef{
		ID:        item.ID,
		Type:      string(item.Type),
		Name:      item.Name,
		ParentID:  item.ParentID,
		CreatedBy: item.CreatedBy,
	}
}

func (e *eventSink) itemCreated(ctx context.Context, item *model.Item) {
	publish(ctx, e, queue.TopicItemCreated, queue.ItemCreatedPayload{Item: refOf(item)})
}

func (e *eventSink) documentUploaded(ctx context.Context, item *model.Item, st *Staged, backend string) {
	publish(ctx, e, queue.TopicDocumentUploaded, queue.DocumentUploadedPayload{
		Item:         refOf(item),
		OriginalName: st.OriginalName,
		StoredName:   st.Key,
		Size:         st.Size,
		MimeType:     st.MimeType,
		Checksum:     st.Checksum,
		Backend:      backend,
	})
}

func (e *eventSink) itemDeleted(ctx context.Context, root *model.Item, removed []model.Item, filesRemoved int) {
	descendants := make([]string, 0, len(removed))
	for _, it := range removed {
		if it.ID != root.ID {
			descendants = append(descendants, it.ID)
		}
	}

	publish(ctx, e, queue.TopicItemDeleted, queue.ItemDeletedPayload{
		Item:         refOf(root),
		Deleted:      len(removed),
		Descendants:  descendants,
		FilesRemoved: filesRemoved,
	})
}

// RegisterAuditConsumers 为每个条目主题注册只记录日志的消费者.
func RegisterAuditConsumers(client *mq.Client, l zerolog.Logger) {
	for _, topic := range queue.AllTopics() {
		client.AddConsumer("audit."+topic, topic, auditHandler(l))
	}
}

func auditHandler(l zerolog.Logger) message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		env, err := queue.ParseWatermillMessage[map[string]any](msg)
		if err != nil {
			// 无法解析的消息直接丢弃，避免反复重投
			l.Warn().Err(err).Str("uuid", msg.UUID).Msg("drop malformed event")
			return nil
		}

		l.Info().
			Str("topic", env.Header.Topic).
			Str("trace_id", env.Header.TraceID).
			Str("producer", env.Header.Producer).
			Time("occurred_at", env.Header.OccurredAt).
			Interface("payload", env.Payload).
			Msg("item event")

		return nil
	}
}

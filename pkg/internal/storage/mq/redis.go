//go:build !no_redis

package mq

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"github.com/yeisme/docvault/pkg/configs"
)

const (
	// DefaultChannelBufferSize 默认通道缓冲区大小.
	DefaultChannelBufferSize = 100
)

// envelope Redis 上传输的消息格式，保留 UUID 与 Metadata.
type envelope struct {
	UUID     string            `json:"uuid"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Payload  []byte            `json:"payload"`
}

func encodeEnvelope(msg *message.Message) ([]byte, error) {
	return sonic.Marshal(envelope{UUID: msg.UUID, Metadata: msg.Metadata, Payload: msg.Payload})
}

func decodeEnvelope(data []byte) (*message.Message, error) {
	var env envelope
	if err := sonic.Unmarshal(data, &env); err != nil {
		return nil, err
	}

	if env.UUID == "" {
		env.UUID = watermill.NewUUID()
	}

	msg := message.NewMessage(env.UUID, env.Payload)
	for k, v := range env.Metadata {
		msg.Metadata.Set(k, v)
	}

	return msg, nil
}

// RedisPublisher Redis Publisher 实现.
type RedisPublisher struct {
	client *redis.Client
}

// RedisSubscriber Redis Subscriber 实现，每个主题一个 PubSub.
type RedisSubscriber struct {
	client  *redis.Client
	logger  watermill.LoggerAdapter
	subs    []*redis.PubSub
	mu      sync.Mutex
	closed  bool
	closeCh chan struct{}
	wg      sync.WaitGroup
}

// init 注册 Redis 工厂.
func init() {
	RegisterFactory(configs.MQTypeRedis, redisFactory)
}

func newRedisClient(cfg *configs.MQRedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// redisFactory 创建 Redis Publisher & Subscriber，两者使用独立连接.
func redisFactory(
	ctx context.Context,
	cfg *configs.MQConfig,
	logger watermill.LoggerAdapter) (
	message.Publisher, message.Subscriber, error) {
	pubClient := newRedisClient(&cfg.Redis)

	// 测试连接
	if err := pubClient.Ping(ctx).Err(); err != nil {
		_ = pubClient.Close()
		return nil, nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	pub := &RedisPublisher{client: pubClient}
	sub := &RedisSubscriber{
		client:  newRedisClient(&cfg.Redis),
		logger:  logger,
		closeCh: make(chan struct{}),
	}

	return pub, sub, nil
}

// Publish 实现 Publisher 接口.
func (p *RedisPublisher) Publish(topic string, msgs ...*message.Message) error {
	for _, msg := range msgs {
		data, err := encodeEnvelope(msg)
		if err != nil {
			return fmt.Errorf("encode message %s: %w", msg.UUID, err)
		}

		if err := p.client.Publish(context.Background(), topic, data).Err(); err != nil {
			return err
		}
	}

	return nil
}

// Close 实现 Publisher 接口.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

// Subscribe 实现 Subscriber 接口，消息在 Ack 或 Nack 之后才投递下一条.
func (s *RedisSubscriber) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, errors.New("subscriber closed")
	}

	ps := s.client.Subscribe(ctx, topic)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}

	s.subs = append(s.subs, ps)

	out := make(chan *message.Message, DefaultChannelBufferSize)

	s.wg.Add(1)

	go func() {
		defer s.wg.Done()
		defer close(out)

		in := ps.Channel()

		for {
			select {
			case <-s.closeCh:
				return
			case <-ctx.Done():
				return
			case raw, ok := <-in:
				if !ok {
					return
				}

				msg, err := decodeEnvelope([]byte(raw.Payload))
				if err != nil {
					s.logger.Error("drop undecodable message", err, watermill.LogFields{"topic": topic})
					continue
				}

				msg.SetContext(ctx)

				select {
				case out <- msg:
				case <-s.closeCh:
					return
				case <-ctx.Done():
					return
				}

				// Redis Pub/Sub 不支持重投，Nack 仅记录
				select {
				case <-msg.Acked():
				case <-msg.Nacked():
					s.logger.Info("message nacked", watermill.LogFields{"uuid": msg.UUID, "topic": topic})
				case <-s.closeCh:
					return
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// Close 实现 Subscriber 接口.
func (s *RedisSubscriber) Close() error {
	s.mu.Lock()

	if s.closed {
		s.mu.Unlock()
		return nil
	}

	s.closed = true
	close(s.closeCh)

	var err error

	for _, ps := range s.subs {
		err = errors.Join(err, ps.Close())
	}

	s.mu.Unlock()

	s.wg.Wait()

	return errors.Join(err, s.client.Close())
}

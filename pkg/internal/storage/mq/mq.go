// Package mq 提供基于 Watermill 库的统一消息队列操作接口。
// 支持发布/订阅模式，并通过工厂模式抽象不同的 MQ 实现。
//
// 支持的 MQ 类型：
//   - gochannel（进程内，默认）
//   - NATS（支持 JetStream）
//   - Redis Pub/Sub
//
// 使用示例：
//
//	client, err := mq.Open(ctx, cfg.MQ, false)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	msg := message.NewMessage(watermill.NewUUID(), []byte("hello world"))
//	err = client.Publish(ctx, "dv.item.created", msg)
package mq

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	watermill "github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/components/metrics"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/yeisme/docvault/pkg/configs"
	nlog "github.com/yeisme/docvault/pkg/log"
	pmetrics "github.com/yeisme/docvault/pkg/metrics"
)

// Factory 定义创建 Publisher + Subscriber 的工厂函数.
type Factory func(ctx context.Context, cfg *configs.MQConfig, logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber, error)

var factories = map[configs.MQType]Factory{}

// RegisterFactory 注册指定 MQType 的工厂.
func RegisterFactory(t configs.MQType, f Factory) {
	factories[t] = f
}

// GetRegisteredTypes 返回已注册的 MQ 类型.
func GetRegisteredTypes() []configs.MQType {
	types := make([]configs.MQType, 0, len(factories))
	for t := range factories {
		types = append(types, t)
	}

	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	return types
}

// Client 封装 watermill Publisher、Subscriber 与 Router.
type Client struct {
	mqType      configs.MQType
	publisher   message.Publisher
	subscriber  message.Subscriber
	router      *message.Router
	topicPrefix string

	closeOnce sync.Once
}

// Type 当前 MQ 类型.
func (c *Client) Type() configs.MQType { return c.mqType }

// Topic 返回加上前缀后的实际主题名.
func (c *Client) Topic(topic string) string { return c.topicPrefix + topic }

// Publish 便捷发布.
func (c *Client) Publish(_ context.Context, topic string, msgs ...*message.Message) error {
	if c == nil || c.publisher == nil {
		return errors.New("mq publisher not initialized")
	}

	return c.publisher.Publish(c.Topic(topic), msgs...)
}

// Subscribe 便捷订阅.
func (c *Client) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	if c == nil || c.subscriber == nil {
		return nil, errors.New("mq subscriber not initialized")
	}

	return c.subscriber.Subscribe(ctx, c.Topic(topic))
}

// AddConsumer 在 Router 上注册只消费不发布的处理器，需在 Run 之前调用.
func (c *Client) AddConsumer(name, topic string, handler message.NoPublishHandlerFunc) {
	c.router.AddNoPublisherHandler(name, c.Topic(topic), c.subscriber, handler)
}

// Run 启动 Router，阻塞直到 ctx 结束或 Router 关闭.
func (c *Client) Run(ctx context.Context) error {
	return c.router.Run(ctx)
}

// Running Router 启动完成后关闭的通道.
func (c *Client) Running() chan struct{} {
	return c.router.Running()
}

// Close 关闭资源.
func (c *Client) Close() error {
	var err error

	c.closeOnce.Do(func() {
		if c.router != nil {
			// 停止 router，确保所有 handler 停止运行
			if e := c.router.Close(); e != nil {
				err = errors.Join(err, e)
			}
		}

		if c.publisher != nil {
			if e := c.publisher.Close(); e != nil {
				err = errors.Join(err, e)
			}
		}

		if c.subscriber != nil {
			if e := c.subscriber.Close(); e != nil {
				err = errors.Join(err, e)
			}
		}
	})

	return err
}

// New 使用全局配置初始化消息队列.
func New(ctx context.Context) (*Client, error) {
	cfg := configs.GetConfig()
	return Open(ctx, cfg.MQ, cfg.Metrics.Enabled && cfg.MQ.Common.EnableMetrics)
}

// Open 按配置创建消息队列客户端，withMetrics 时用 Prometheus 装饰 Publisher 与 Subscriber.
func Open(ctx context.Context, cfg configs.MQConfig, withMetrics bool) (*Client, error) {
	factory, ok := factories[cfg.Type]
	if !ok {
		return nil, fmt.Errorf("unsupported mq type: %s", cfg.Type)
	}

	logger := NewLoggerAdapter(nlog.Logger())

	pub, sub, err := factory(ctx, &cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("init mq (%s): %w", cfg.Type, err)
	}

	router, err := message.NewRouter(message.RouterConfig{}, logger)
	if err != nil {
		return nil, fmt.Errorf("create router: %w", err)
	}

	if withMetrics {
		metricsBuilder := metrics.NewPrometheusMetricsBuilder(pmetrics.GetRegistry(), configs.AppName, "mq")
		metricsBuilder.AddPrometheusRouterMetrics(router)

		// 装饰publisher和subscriber
		if pub, err = metricsBuilder.DecoratePublisher(pub); err != nil {
			return nil, fmt.Errorf("decorate publisher with metrics: %w", err)
		}

		if sub, err = metricsBuilder.DecorateSubscriber(sub); err != nil {
			return nil, fmt.Errorf("decorate subscriber with metrics: %w", err)
		}

		nlog.Logger().Debug().Msg("MQ metrics enabled")
	}

	client := &Client{
		mqType:     cfg.Type,
		publisher:  pub,
		subscriber: sub,
		router:     router,
	}

	if cfg.Type == configs.MQTypeNATS {
		client.topicPrefix = cfg.NATS.SubjectPrefix
	}

	nlog.Logger().Info().Str("type", string(cfg.Type)).Msg("MQ 已初始化")

	return client, nil
}

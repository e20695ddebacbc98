//go:build !no_nats

package mq

import (
	"context"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	nc "github.com/nats-io/nats.go"

	"github.com/yeisme/docvault/pkg/configs"
)

const (
	DefaultDrainTimeout   = 30 * time.Second
	DefaultFlusherTimeout = 10 * time.Second
)

// init 注册 NATS 工厂.
func init() {
	RegisterFactory(configs.MQTypeNATS, natsFactory)
}

// buildNatsOptions 构建 NATS 连接选项.
func buildNatsOptions(cfg *configs.MQConfig) []nc.Option {
	common := cfg.Common

	opts := []nc.Option{
		nc.Name(common.ClientID),
		nc.MaxReconnects(common.MaxReconnects),
		nc.ReconnectWait(time.Duration(common.ReconnectWait) * time.Second),
		nc.PingInterval(time.Duration(common.PingInterval) * time.Second),
		nc.MaxPingsOutstanding(common.MaxPingsOut),
		nc.ReconnectBufSize(common.BufferSize),
		nc.DrainTimeout(DefaultDrainTimeout),
		nc.FlusherTimeout(DefaultFlusherTimeout),
		nc.RetryOnFailedConnect(true),
	}

	return appendAuthOptions(opts, cfg)
}

// appendAuthOptions 添加认证选项，JWT 优先，其次 NKey，最后用户名密码.
func appendAuthOptions(opts []nc.Option, cfg *configs.MQConfig) []nc.Option {
	switch {
	case cfg.NATS.JWT != "":
		opts = append(opts, nc.UserJWTAndSeed(cfg.NATS.JWT, cfg.NATS.NKey))
	case cfg.NATS.NKey != "":
		opts = append(opts, nc.Nkey(cfg.NATS.NKey, nil))
	case cfg.Common.User != "":
		opts = append(opts, nc.UserInfo(cfg.Common.User, cfg.Common.Password))
	}

	return opts
}

// buildJetStreamConfig 构建 JetStream 配置.
func buildJetStreamConfig(cfg *configs.MQConfig, logger watermill.LoggerAdapter) nats.JetStreamConfig {
	n := cfg.NATS

	jsCfg := nats.JetStreamConfig{
		Disabled: !n.JetStreamEnabled,
	}

	if n.JetStreamEnabled {
		jsCfg.AutoProvision = n.JetStreamAutoProvision
		jsCfg.TrackMsgId = n.JetStreamTrackMsgID
		jsCfg.AckAsync = n.JetStreamAckAsync
		jsCfg.DurablePrefix = n.JetStreamDurablePrefix

		logger.Debug("JetStream 配置信息", watermill.LogFields{
			"auto_provision": n.JetStreamAutoProvision,
			"track_msg_id":   n.JetStreamTrackMsgID,
			"ack_async":      n.JetStreamAckAsync,
			"durable_prefix": n.JetStreamDurablePrefix,
			"subject_prefix": n.SubjectPrefix,
		})
	}

	return jsCfg
}

// buildURL 构建连接 URL，配置了集群地址时优先使用.
func buildURL(cfg *configs.MQConfig) string {
	if len(cfg.NATS.ClusterURLs) > 0 {
		return strings.Join(cfg.NATS.ClusterURLs, ",")
	}

	return cfg.Common.URL
}

// natsFactory 创建 NATS Publisher & Subscriber.
func natsFactory(
	_ context.Context,
	cfg *configs.MQConfig,
	logger watermill.LoggerAdapter) (
	message.Publisher, message.Subscriber, error) {
	opts := buildNatsOptions(cfg)
	jsCfg := buildJetStreamConfig(cfg, logger)
	marshaler := &nats.JSONMarshaler{}
	url := buildURL(cfg)

	pub, err := nats.NewPublisher(nats.PublisherConfig{
		URL:         url,
		NatsOptions: opts,
		JetStream:   jsCfg,
		Marshaler:   marshaler,
	}, logger)
	if err != nil {
		return nil, nil, err
	}

	sub, err := nats.NewSubscriber(nats.SubscriberConfig{
		URL:         url,
		NatsOptions: opts,
		JetStream:   jsCfg,
		Unmarshaler: marshaler,
	}, logger)
	if err != nil {
		_ = pub.Close()
		return nil, nil, err
	}

	return pub, sub, nil
}

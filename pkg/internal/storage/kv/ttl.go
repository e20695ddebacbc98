package kv

import (
	"bytes"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
)

// envelopePrefix 标记带过期时间的值，用于没有按键 TTL 的后端.
var envelopePrefix = []byte("dv.ttl\x00")

type envelope struct {
	Value    []byte `json:"v"`
	ExpireAt int64  `json:"x"` // unix 毫秒
}

// seal 在 ttl>0 时包装值，否则原样返回.
func seal(value []byte, ttl time.Duration, now time.Time) ([]byte, error) {
	if ttl <= 0 {
		return value, nil
	}

	b, err := sonic.Marshal(envelope{Value: value, ExpireAt: now.Add(ttl).UnixMilli()})
	if err != nil {
		return nil, fmt.Errorf("kv: seal value: %w", err)
	}

	return append(bytes.Clone(envelopePrefix), b...), nil
}

// unseal 拆出原始值，live 为 false 表示已过期.
func unseal(raw []byte, now time.Time) (value []byte, live bool, err error) {
	body, wrapped := bytes.CutPrefix(raw, envelopePrefix)
	if !wrapped {
		return raw, true, nil
	}

	var env envelope
	if err := sonic.Unmarshal(body, &env); err != nil {
		return nil, false, fmt.Errorf("kv: unseal value: %w", err)
	}

	if env.ExpireAt > 0 && now.UnixMilli() >= env.ExpireAt {
		return nil, false, nil
	}

	return env.Value, true, nil
}

package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"bqrelay/relay/config"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// RedisSink 每行一条 stream 消息，字段 insert_id 和 payload
type RedisSink struct {
	client *goredis.Client
	stream string
	newID  func() string
}

// NewRedisSink 连接 redis 并检查连通性
func NewRedisSink(ctx context.Context, cfg config.RedisConfig) (*RedisSink, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return newRedisSink(client, cfg.Stream), nil
}

func newRedisSink(client *goredis.Client, stream string) *RedisSink {
	return &RedisSink{
		client: client,
		stream: stream,
		newID:  func() string { return uuid.New().String() },
	}
}

func (s *RedisSink) Insert(ctx context.Context, payload any) error {
	rows := Rows(payload)
	if len(rows) == 0 {
		return NewError(http.StatusBadRequest, "nothing to insert", nil)
	}

	entries := make([]string, 0, len(rows))
	for i, row := range rows {
		data, err := json.Marshal(row)
		if err != nil {
			return NewError(http.StatusBadRequest, fmt.Sprintf("row %d is not serializable", i), err)
		}
		entries = append(entries, string(data))
	}

	// 同一个 payload 的多行放在一个事务里，要么全部写入要么全部失败
	_, err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		for _, entry := range entries {
			pipe.XAdd(ctx, &goredis.XAddArgs{
				Stream: s.stream,
				Values: map[string]any{
					"insert_id": s.newID(),
					"payload":   entry,
				},
			})
		}
		return nil
	})
	if err != nil {
		return NewError(0, "redis insert failed", err)
	}
	return nil
}

func (s *RedisSink) Close() error {
	return s.client.Close()
}

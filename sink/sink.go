package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"bqrelay/relay/config"
	"bqrelay/tools/logger"
)

// Row 写入下游的一行数据，字段名到值
type Row map[string]any

// Sink 下游存储。实现需要支持并发调用，Insert 只尝试一次，不做重试。
type Sink interface {
	// Insert 写入一个已通过校验的 payload（对象或数组），下游应忽略未知字段
	Insert(ctx context.Context, payload any) error
	Close() error
}

// Error 下游写入失败，Code 为可选的 HTTP 状态码，Message 可以直接返回给客户端
type Error struct {
	Code    int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError 创建下游错误
func NewError(code int, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// StatusCode 返回失败对应的 HTTP 状态码，没有携带合法状态码时返回 400
func StatusCode(err error) int {
	var se *Error
	if errors.As(err, &se) && se.Code >= 100 && se.Code <= 599 {
		return se.Code
	}
	return http.StatusBadRequest
}

// PublicMessage 返回可以暴露给客户端的错误描述
func PublicMessage(err error) string {
	var se *Error
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	return "insert failed"
}

// Rows 把 payload 展开成行：对象是一行，数组每个元素一行，非对象元素放在 "value" 字段里
func Rows(payload any) []Row {
	switch v := payload.(type) {
	case map[string]any:
		return []Row{Row(v)}
	case []any:
		rows := make([]Row, 0, len(v))
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				rows = append(rows, Row(m))
				continue
			}
			rows = append(rows, Row{"value": item})
		}
		return rows
	default:
		return nil
	}
}

// plainNumbers 把 json.Number 转成 int64 或 float64，用于不认识 json.Number 的编码器
func plainNumbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := strconv.ParseInt(t.String(), 10, 64); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = plainNumbers(item)
		}
		return out
	case Row:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = plainNumbers(item)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = plainNumbers(item)
		}
		return out
	default:
		return v
	}
}

// New 按配置类型创建 sink，并套上超时与指标
func New(ctx context.Context, cfg config.SinkConfig, log *logger.Logger) (Sink, error) {
	var (
		s   Sink
		err error
	)

	switch cfg.Type {
	case config.SinkBigQuery:
		s, err = NewBigQuerySink(ctx, cfg.BigQuery)
	case config.SinkMySQL:
		s, err = NewMySQLSink(cfg.MySQL)
	case config.SinkPostgres:
		s, err = NewPostgresSink(ctx, cfg.Postgres)
	case config.SinkDynamoDB:
		s, err = NewDynamoDBSink(ctx, cfg.DynamoDB)
	case config.SinkRedis:
		s, err = NewRedisSink(ctx, cfg.Redis)
	case config.SinkHTTP:
		s = NewHTTPSink(cfg.HTTP)
	case config.SinkLog:
		s = NewLogSink(log)
	default:
		return nil, fmt.Errorf("unsupported sink type: %s", cfg.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("init %s sink: %w", cfg.Type, err)
	}

	log.Info("%s sink initialized", cfg.Type)
	return NewInstrumented(s, cfg.Type, cfg.Timeout), nil
}

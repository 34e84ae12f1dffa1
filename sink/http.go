package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"bqrelay/relay/config"
	"bqrelay/tools/httpclient"
)

// HTTPSink 把行以 JSON 数组转发给另一个 HTTP 服务
type HTTPSink struct {
	client *http.Client
	url    string
}

// NewHTTPSink 连接池参数来自配置
func NewHTTPSink(cfg config.HTTPConfig) *HTTPSink {
	return &HTTPSink{
		client: httpclient.New(httpclient.Options{
			MaxIdleConns:        cfg.MaxIdleConns,
			MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
			IdleConnTimeout:     cfg.IdleConnTimeout,
		}),
		url: cfg.URL,
	}
}

func (s *HTTPSink) Insert(ctx context.Context, payload any) error {
	rows := Rows(payload)
	if len(rows) == 0 {
		return NewError(http.StatusBadRequest, "nothing to insert", nil)
	}

	data, err := json.Marshal(rows)
	if err != nil {
		return NewError(http.StatusBadRequest, "rows are not serializable", err)
	}

	body, code, err := httpclient.RequestC(ctx, s.client, http.MethodPost, s.url, bytes.NewReader(data), nil)
	if err != nil {
		return NewError(0, "upstream request failed", err)
	}
	if code < 200 || code > 299 {
		// 上游响应体只进日志，客户端只看到状态描述
		msg := http.StatusText(code)
		if msg == "" {
			msg = "upstream rejected the insert"
		}
		return NewError(code, msg, fmt.Errorf("upstream returned status %d: %s", code, strings.TrimSpace(string(body))))
	}
	return nil
}

func (s *HTTPSink) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

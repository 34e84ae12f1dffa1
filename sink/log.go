package sink

import (
	"context"
	"net/http"

	"bqrelay/tools/logger"
)

// LogSink 只记录日志，不落地数据，用于本地调试
type LogSink struct {
	log *logger.Logger
}

func NewLogSink(log *logger.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Insert(ctx context.Context, payload any) error {
	rows := Rows(payload)
	if len(rows) == 0 {
		return NewError(http.StatusBadRequest, "nothing to insert", nil)
	}
	s.log.Debug("log sink accepted %d rows", len(rows))
	return nil
}

func (s *LogSink) Close() error {
	return nil
}

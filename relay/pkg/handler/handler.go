package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"bqrelay/relay/pkg/validator"
	"bqrelay/sink"
	"bqrelay/tools/logger"
)

const msgInvalidRequest = "Invalid or empty request"

// Response 单个请求的处理结果，Body 为空时不写响应体
type Response struct {
	Status int
	Body   string
}

// Handler 解码、校验、写入下游，并把结果映射成 HTTP 状态码
type Handler struct {
	sink    sink.Sink
	logger  *logger.Logger
	maxBody int64
}

// NewHandler 创建请求处理器，maxBody 为请求体上限（字节）
func NewHandler(s sink.Sink, log *logger.Logger, maxBody int64) *Handler {
	return &Handler{
		sink:    s,
		logger:  log,
		maxBody: maxBody,
	}
}

// Handle 按方法处理一次请求。OPTIONS 直接返回 200，POST 最多写入一次下游，其它方法 405
func (h *Handler) Handle(ctx context.Context, method string, rawBody []byte) Response {
	switch method {
	case http.MethodOptions:
		return Response{Status: http.StatusOK}
	case http.MethodPost:
		return h.insert(ctx, rawBody)
	default:
		return Response{Status: http.StatusMethodNotAllowed}
	}
}

func (h *Handler) insert(ctx context.Context, rawBody []byte) Response {
	payload, err := decode(rawBody)
	if err != nil {
		h.logger.Warn("Invalid request body: %v", err)
		return Response{Status: http.StatusBadRequest, Body: fmt.Sprintf("invalid JSON: %v", err)}
	}

	if err := validator.Check(payload); err != nil {
		h.logger.Debug("Validation failed: %v", err)
		return Response{Status: http.StatusBadRequest, Body: msgInvalidRequest}
	}

	if err := h.sink.Insert(ctx, payload); err != nil {
		status := sink.StatusCode(err)
		h.logger.Error("Insert failed (status %d): %v", status, err)
		return Response{Status: status, Body: sink.PublicMessage(err)}
	}
	return Response{Status: http.StatusOK}
}

// decode 把请求体解析成单个 JSON 值，数字保留为 json.Number
func decode(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty body")
		}
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after top-level value")
	}
	return v, nil
}

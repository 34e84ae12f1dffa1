package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var requestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "relay_requests_total",
		Help: "入口请求数，按方法和状态码统计",
	},
	[]string{"method", "code"},
)

func init() {
	prometheus.MustRegister(requestsTotal)
}

// Dispatch gin 适配层：读取请求体，交给 Handle，写回状态码和响应体
func (h *Handler) Dispatch(c *gin.Context) {
	var body []byte
	if c.Request.Method == http.MethodPost {
		b, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBody))
		if err != nil {
			h.logger.Warn("Failed to read request body: %v", err)
			h.write(c, Response{Status: http.StatusBadRequest, Body: readErrorBody(err)})
			return
		}
		body = b
	}

	// 已接收的写入不随客户端断开而中止
	ctx := context.WithoutCancel(c.Request.Context())
	h.write(c, h.Handle(ctx, c.Request.Method, body))
}

// MethodNotAllowed 未注册的方法
func (h *Handler) MethodNotAllowed(c *gin.Context) {
	h.write(c, Response{Status: http.StatusMethodNotAllowed})
}

func (h *Handler) write(c *gin.Context, resp Response) {
	requestsTotal.WithLabelValues(methodLabel(c.Request.Method), strconv.Itoa(resp.Status)).Inc()

	if resp.Body == "" {
		c.Status(resp.Status)
		c.Writer.WriteHeaderNow()
		return
	}
	c.Data(resp.Status, "text/plain; charset=utf-8", []byte(resp.Body))
}

func readErrorBody(err error) string {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return "request body too large"
	}
	return "failed to read request body"
}

// methodLabel 非标准方法归为 OTHER，避免指标标签无限增长
func methodLabel(method string) string {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut, http.MethodPatch,
		http.MethodDelete, http.MethodConnect, http.MethodOptions, http.MethodTrace:
		return method
	default:
		return "OTHER"
	}
}

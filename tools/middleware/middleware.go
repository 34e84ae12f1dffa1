package middleware

import (
	"net/http"
	"os"
	"runtime/debug"
	"time"

	"bqrelay/tools/logger"

	"github.com/gin-gonic/gin"
)

const (
	allowMethods = "OPTIONS, POST"
	allowHeaders = "Accept, Cache-Control, Content-Type, Origin, X-Requested-With"
)

// exit 测试中替换
var exit = os.Exit

// ShapeHeaders 统一设置入口响应头，所有方法都经过这里
//
// echoOrigin 为 true 时回显请求的 Origin，没有 Origin 时退回 "*"。
// POST 额外禁止缓存；allow-origin 是具体的源时同步 Timing-Allow-Origin。
func ShapeHeaders(h http.Header, method, origin string, echoOrigin bool) {
	allowOrigin := "*"
	if echoOrigin {
		h.Add("Vary", "Origin")
		if origin != "" {
			allowOrigin = origin
		}
	}

	h.Set("Access-Control-Allow-Origin", allowOrigin)
	h.Set("Access-Control-Allow-Methods", allowMethods)
	h.Set("Access-Control-Allow-Headers", allowHeaders)

	if method != http.MethodPost {
		return
	}
	h.Set("Cache-Control", "no-store, no-cache, private")
	h.Set("Pragma", "no-cache")
	if allowOrigin != "*" {
		h.Set("Timing-Allow-Origin", allowOrigin)
	}
}

// CrsMiddleware 跨域中间件，OPTIONS 也交给后续处理器响应
func CrsMiddleware(echoOrigin bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		ShapeHeaders(c.Writer.Header(), c.Request.Method, c.GetHeader("Origin"), echoOrigin)
		c.Next()
	}
}

// AccessLog 请求日志
func AccessLog(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("%s %s %d %s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

// ExitOnPanic 处理器 panic 时记录日志并以状态码 2 退出进程，由 supervisor 拉起新的 worker
func ExitOnPanic(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			// net/http 用它中断连接，不算崩溃
			if r == http.ErrAbortHandler {
				panic(r)
			}
			log.Fatal("panic serving %s %s: %v\n%s", c.Request.Method, c.Request.URL.Path, r, debug.Stack())
			exit(2)
		}()
		c.Next()
	}
}

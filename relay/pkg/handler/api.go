package handler

import (
	"fmt"

	"bqrelay/relay/config"
	"bqrelay/sink"
	"bqrelay/tools/ioc"
	"bqrelay/tools/middleware"

	"github.com/gin-gonic/gin"
)

type ApiHandler struct {
	handler *Handler
}

func init() {
	ioc.Api.RegisterContainer("RelayHandler", &ApiHandler{})
}

func (h *ApiHandler) Init() error {
	c, err := config.LoadConfig()
	if err != nil {
		return err
	}

	provider, ok := ioc.ConController.GetMapContainer(sink.AppName).(*sink.Provider)
	if !ok || provider.Sink == nil {
		return fmt.Errorf("sink %q is not initialized", sink.AppName)
	}

	h.handler = NewHandler(provider, c.NewLogger(), c.MaxBodyBytes)
	h.Register(c.Application.GinServer(), c.Application.GinRootRouter(), c.AllowOrigin == config.OriginEcho)

	return nil
}

// Register 根路径上所有方法都经过统一的响应头处理
func (h *ApiHandler) Register(engine *gin.Engine, root gin.IRouter, echoOrigin bool) {
	cors := middleware.CrsMiddleware(echoOrigin)

	root.Any("/", cors, h.handler.Dispatch)
	engine.NoMethod(cors, h.handler.MethodNotAllowed)
}

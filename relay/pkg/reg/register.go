package register

import (
	"net/http"

	"bqrelay/relay/config"
	"bqrelay/tools/ioc"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RegisterHandler struct{}

func init() {
	ioc.Api.RegisterContainer("OpsRegister", &RegisterHandler{})
}

func (h *RegisterHandler) Init() error {
	c, err := config.LoadConfig()
	if err != nil {
		return err
	}

	Register(c.Application.GinRootRouter(), c.WorkerID)
	return nil
}

// Register 健康检查和指标接口，只允许 GET
func Register(r gin.IRouter, workerID string) {
	ops := r.Group("/", cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodGet},
		AllowHeaders:    []string{"Origin", "Accept"},
	}))

	ops.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{
			"message": "ok",
			"worker":  workerID,
		})
	})
	ops.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

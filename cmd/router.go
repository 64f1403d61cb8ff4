package cmd

import (
	"net/http"

	"github.com/chaos-io/cutout/config"
	"github.com/chaos-io/cutout/handler"
	"github.com/chaos-io/cutout/middleware"
	"github.com/chaos-io/cutout/session"
	"github.com/gin-gonic/gin"
)

// NewRouter 组装 HTTP 路由
func NewRouter(cfg *config.Config, m handler.ModelInfo, sessions *session.Manager) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS())
	r.MaxMultipartMemory = cfg.Upload.MaxSize + 1<<20

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"version": getVersion(),
			"model":   m.State().String(),
		})
	})

	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    getVersion(),
			"build_time": getBuildTime(),
			"git_commit": getCommit(),
		})
	})

	h := handler.NewSessionHandler(sessions, m, cfg.Model.Net, cfg.Upload.MaxSize)
	h.Register(r.Group("/api/v1"))

	return r
}

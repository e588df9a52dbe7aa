// Package livehttp 暴露只读状态查询与引擎控制接口，
// 供仪表盘等外部消费者使用。读取永远返回最近一次已知快照，
// 不会阻塞在分析周期上。
package livehttp

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jialazhu/okx1204/internal/logger"
)

// Server 最小化的 /api/live HTTP 服务。
type Server struct {
	addr   string
	router *gin.Engine
	http   *http.Server
}

// ServerConfig 服务依赖。
type ServerConfig struct {
	Addr   string
	Router *Router
}

func NewServer(cfg ServerConfig) *Server {
	if cfg.Addr == "" {
		cfg.Addr = ":9980"
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	cfg.Router.Register(router.Group("/api/live"))

	return &Server{addr: cfg.Addr, router: router}
}

// Run 阻塞运行直到 ctx 取消，随后优雅关闭。
func (s *Server) Run(ctx context.Context) error {
	s.http = &http.Server{Addr: s.addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		logger.Infof("HTTP 服务监听 %s", s.addr)
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	}
}

// Handler 暴露给测试使用。
func (s *Server) Handler() http.Handler {
	return s.router
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method
		path := c.Request.URL.Path
		c.Next()
		logger.Debugf("HTTP %s %s status=%d dur=%s",
			method, path, c.Writer.Status(), time.Since(start))
	}
}

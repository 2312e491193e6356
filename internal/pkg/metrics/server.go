package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"nf-tickets-sol/internal/pkg/logger"
)

// Server 以 go-zero service 的方式暴露 /metrics
type Server struct {
	server *http.Server
}

func NewServer(addr string, m *Metrics) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{EnableOpenMetrics: true}))
	return &Server{
		server: &http.Server{Addr: addr, Handler: mux, ReadTimeout: 5 * time.Second, WriteTimeout: 5 * time.Second},
	}
}

func (s *Server) Start() {
	logger.Infof("[Metrics] 指标服务启动: http://%s/metrics", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Errorf("[Metrics] 指标服务异常退出: %v", err)
	}
}

func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		logger.Warnf("[Metrics] 关闭指标服务失败: %v", err)
	}
	logger.Infof("[Metrics] 指标服务已停止")
}

package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"medig/internal/config"
)

// 生成/对话请求同步等待 AI 代理，写超时需覆盖全部重试
const writeTimeoutMargin = 30 * time.Second

// Server medig HTTP 服务
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger

	mu   sync.Mutex
	addr net.Addr
}

func NewServer(cfg *config.Config, handler http.Handler, logger *zap.Logger) *Server {
	s := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      writeTimeout(cfg.AI),
		IdleTimeout:       90 * time.Second,
	}
	return &Server{httpServer: s, logger: logger}
}

func writeTimeout(ai config.AIConfig) time.Duration {
	attempts := ai.RetryCount + 1
	if attempts < 1 {
		attempts = 1
	}
	return time.Duration(attempts)*ai.Timeout + writeTimeoutMargin
}

func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ln)
}

// Serve 在 ln 上提供服务；Stop 之后返回 nil
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	s.addr = ln.Addr()
	s.mu.Unlock()

	s.logger.Info("Starting medig HTTP server",
		zap.String("addr", ln.Addr().String()),
		zap.Duration("write_timeout", s.httpServer.WriteTimeout),
	)
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Addr 实际监听地址，未启动时为空串
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.addr == nil {
		return ""
	}
	return s.addr.String()
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping medig HTTP server")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Warn("HTTP server shutdown incomplete", zap.Error(err))
		return err
	}
	return nil
}

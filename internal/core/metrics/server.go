package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dep2p/go-ssdprelay/internal/util/logger"
)

var log = logger.Logger("metrics")

// Server 指标 HTTP 服务
type Server struct {
	addr     string
	path     string
	registry *prometheus.Registry

	server   *http.Server
	listener net.Listener

	running bool
	mu      sync.Mutex
}

// NewServer 创建指标服务
func NewServer(addr, path string, reg *prometheus.Registry) *Server {
	if path == "" {
		path = "/metrics"
	}
	return &Server{
		addr:     addr,
		path:     path,
		registry: reg,
	}
}

// Start 启动服务，重复调用无效果
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(s.path, promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{
		ErrorLog: slogErrorLogger{},
	}))
	mux.HandleFunc("/health", s.handleHealth)

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return err
	}
	s.listener = listener

	s.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("指标服务异常退出", "err", err)
		}
	}()

	s.running = true
	log.Info("指标服务已启动", "addr", listener.Addr().String(), "path", s.path)
	return nil
}

// Stop 停止服务
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	if err := s.server.Shutdown(ctx); err != nil {
		log.Error("关闭指标服务失败", "err", err)
		return err
	}

	s.running = false
	log.Info("指标服务已停止")
	return nil
}

// Addr 返回实际监听地址，未启动时返回配置地址
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

// slogErrorLogger 将 promhttp 的错误输出到子系统日志
type slogErrorLogger struct{}

func (slogErrorLogger) Println(v ...interface{}) {
	log.Warn("指标导出错误", "detail", v)
}

// internal/proxy/server.go
package proxy

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	maxRequestBody = 1 << 20
	maxErrorDetail = 4 << 10
)

// Server is a one-route forwarding shim: it relays JSON-RPC request bodies
// verbatim to a fixed upstream so browser clients can dodge CORS and
// rate-limit restrictions. No auth, no validation, no retry on the proxying
// path itself.
type Server struct {
	upstream   string
	httpClient *http.Client
	engine     *gin.Engine
	logger     *zap.Logger
}

func NewServer(upstream string, timeout time.Duration, logger *zap.Logger) *Server {
	s := &Server{
		upstream:   upstream,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.Named("rpc-proxy"),
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.HandleMethodNotAllowed = true
	r.NoMethod(func(c *gin.Context) {
		c.String(http.StatusMethodNotAllowed, "method not allowed")
	})

	r.POST("/rpc", s.forward)
	r.GET("/health", s.health)

	s.engine = r
	return s
}

// Handler exposes the router for http.Server wiring and tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// forward relays the request body to the upstream unchanged and mirrors the
// upstream JSON back on success. Any upstream failure becomes a 500 with a
// best-effort detail passthrough.
func (s *Server) forward(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxRequestBody))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":  "failed to read request body",
			"detail": err.Error(),
		})
		return
	}

	req, err := http.NewRequestWithContext(c.Request.Context(), http.MethodPost, s.upstream, bytes.NewReader(body))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":  "failed to build upstream request",
			"detail": err.Error(),
		})
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Warn("upstream request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":  "upstream request failed",
			"detail": err.Error(),
		})
		return
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":  "failed to read upstream response",
			"detail": err.Error(),
		})
		return
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		s.logger.Warn("upstream returned error status",
			zap.Int("status", resp.StatusCode))
		detail := respBody
		if len(detail) > maxErrorDetail {
			detail = detail[:maxErrorDetail]
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":  "upstream returned error status",
			"detail": string(detail),
		})
		return
	}

	c.Data(http.StatusOK, "application/json", respBody)
}

// health reports current upstream reachability.
func (s *Server) health(c *gin.Context) {
	if err := s.pingUpstream(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "upstream unreachable", "detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// pingUpstream posts a getHealth JSON-RPC request to the upstream.
func (s *Server) pingUpstream(ctx context.Context) error {
	payload := []byte(`{"jsonrpc":"2.0","id":1,"method":"getHealth"}`)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.upstream, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxRequestBody))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &upstreamStatusError{status: resp.StatusCode}
	}
	return nil
}

type upstreamStatusError struct {
	status int
}

func (e *upstreamStatusError) Error() string {
	return http.StatusText(e.status)
}

// WaitUpstream blocks until the upstream answers a getHealth probe, with
// exponential backoff. This is the only retry loop in the whole service and
// it runs once, at startup, before the listener opens.
func (s *Server) WaitUpstream(ctx context.Context) error {
	operation := func() (struct{}, error) {
		if err := s.pingUpstream(ctx); err != nil {
			s.logger.Debug("upstream not ready", zap.Error(err))
			return struct{}{}, err
		}
		return struct{}{}, nil
	}

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(time.Minute),
	)
	return err
}

// Run serves the proxy until the context is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	s.logger.Info("rpc proxy listening",
		zap.String("addr", addr),
		zap.String("upstream", s.upstream))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

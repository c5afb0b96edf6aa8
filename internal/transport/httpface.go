package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/catalog/internal/metrics"
	"github.com/roach88/catalog/internal/name"
)

// Response headers carrying packet metadata.
const (
	HeaderName         = "X-Name"
	HeaderFinalBlockID = "X-Final-Block-Id"
	HeaderFreshness    = "X-Freshness"
	HeaderSigner       = "X-Signer"
	HeaderSignature    = "X-Signature"
)

// DefaultRequestLifetime bounds how long an HTTP request waits for data.
const DefaultRequestLifetime = 4 * time.Second

// HTTPFace exposes a MemFace over HTTP.
//
// Routes:
//
//	GET /data/<name>   express <name>, reply with the packet content
//	GET /metrics       Prometheus metrics
//	GET /healthz       liveness
//
// The name is taken from the escaped request path, so percent-encoded
// components (JSON query payloads, segment numbers) survive unchanged.
type HTTPFace struct {
	*MemFace

	lifetime time.Duration
	logger   *slog.Logger
	router   chi.Router
}

// HTTPFaceOption configures an HTTPFace.
type HTTPFaceOption func(*HTTPFace)

// WithRequestLifetime sets how long GET /data waits for a packet.
func WithRequestLifetime(d time.Duration) HTTPFaceOption {
	return func(h *HTTPFace) {
		h.lifetime = d
	}
}

// WithHTTPLogger sets the HTTP face logger.
func WithHTTPLogger(l *slog.Logger) HTTPFaceOption {
	return func(h *HTTPFace) {
		h.logger = l
	}
}

// NewHTTPFace wraps mem.
func NewHTTPFace(mem *MemFace, opts ...HTTPFaceOption) *HTTPFace {
	h := &HTTPFace{
		MemFace:  mem,
		lifetime: DefaultRequestLifetime,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}

	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		middleware.Recoverer,
	)
	r.Get("/data/*", h.handleData)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	h.router = r

	return h
}

// Handler returns the HTTP handler.
func (h *HTTPFace) Handler() http.Handler {
	return h.router
}

// Serve listens on addr and blocks until ctx is cancelled.
func (h *HTTPFace) Serve(ctx context.Context, addr string) error {
	h.logger.Info("starting HTTP face", "addr", addr)

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    addr,
		Handler: h.router,
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		h.logger.Debug("shutting down HTTP face")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

func (h *HTTPFace) handleData(w http.ResponseWriter, r *http.Request) {
	uri := strings.TrimPrefix(r.URL.EscapedPath(), "/data")
	n, err := name.Parse(uri)
	if err != nil || n.Len() == 0 {
		fail(w, "invalid name", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.lifetime)
	defer cancel()

	p, err := h.Express(ctx, n)
	switch {
	case errors.Is(err, ErrNoRoute):
		fail(w, err.Error(), http.StatusNotFound)
		return
	case errors.Is(err, context.DeadlineExceeded):
		fail(w, "request timed out", http.StatusGatewayTimeout)
		return
	case err != nil:
		h.logger.Debug("express failed", "name", n.String(), "error", err)
		fail(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	hdr := w.Header()
	if len(p.Content) > 0 && p.Content[0] == '{' {
		hdr.Set("Content-Type", "application/json")
	} else {
		hdr.Set("Content-Type", "text/plain; charset=utf-8")
	}
	hdr.Set(HeaderName, p.Name.String())
	if p.IsFinal() {
		hdr.Set(HeaderFinalBlockID, p.FinalBlockID.String())
	}
	if p.Freshness > 0 {
		hdr.Set(HeaderFreshness, strconv.FormatInt(p.Freshness.Milliseconds(), 10))
	}
	if p.Signature != "" {
		hdr.Set(HeaderSigner, p.SignerID.String())
		hdr.Set(HeaderSignature, p.Signature)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(p.Content)
	metrics.HTTPRequestsTotal.WithLabelValues(strconv.Itoa(http.StatusOK)).Inc()
}

func fail(w http.ResponseWriter, msg string, status int) {
	http.Error(w, msg, status)
	metrics.HTTPRequestsTotal.WithLabelValues(strconv.Itoa(status)).Inc()
}

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	"thooimai-go/internal/logger"
	"thooimai-go/internal/metrics"
	"thooimai-go/internal/types"
)

const (
	RouteAnalyze = "/api/v1/analyze-report"
	RouteHealth  = "/healthz"
	RouteMetrics = "/metrics"
)

// Assembler is the part of the pipeline the transport depends on.
type Assembler interface {
	Assemble(ctx context.Context, sub types.Submission) (types.Result, error)
}

type Options struct {
	Service     string
	Assembler   Assembler
	Logger      *logger.Logger
	Metrics     *metrics.Metrics
	JWTSecret   string
	RateLimit   string
	CORSOrigins []string
	MaxUploadMB int64
}

type Server struct {
	opts    Options
	log     *logger.Logger
	limiter *stdlib.Middleware
}

func New(opts Options) (*Server, error) {
	if opts.Assembler == nil {
		return nil, fmt.Errorf("server: assembler is required")
	}
	if opts.Service == "" {
		opts.Service = "thooimai-go"
	}
	if opts.MaxUploadMB <= 0 {
		opts.MaxUploadMB = 25
	}
	if opts.Logger == nil {
		opts.Logger = logger.Discard()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	s := &Server{opts: opts, log: opts.Logger.Component("http")}

	if opts.RateLimit != "" {
		rate, err := limiter.NewRateFromFormatted(opts.RateLimit)
		if err != nil {
			return nil, fmt.Errorf("rate limit %q: %w", opts.RateLimit, err)
		}
		s.limiter = stdlib.NewMiddleware(
			limiter.New(memory.NewStore(), rate),
			stdlib.WithLimitReachedHandler(func(w http.ResponseWriter, r *http.Request) {
				writeError(w, http.StatusTooManyRequests, "too many reports, please try again later")
			}),
		)
	}
	return s, nil
}

// Handler wires the routes and the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	var analyze http.Handler = http.HandlerFunc(s.handleAnalyze)
	if s.opts.JWTSecret != "" {
		analyze = s.authenticate(analyze)
	}
	if s.limiter != nil {
		analyze = s.limiter.Handler(analyze)
	}
	mux.Handle("POST "+RouteAnalyze, analyze)
	mux.HandleFunc("GET "+RouteHealth, s.handleHealth)
	mux.Handle("GET "+RouteMetrics, s.opts.Metrics.Handler())

	return s.cors(s.logRequests(mux))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": s.opts.Service})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(logger.RequestIDHeader) == "" {
			r.Header.Set(logger.RequestIDHeader, logger.RequestID(r))
		}
		w.Header().Set(logger.RequestIDHeader, r.Header.Get(logger.RequestIDHeader))

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		switch r.URL.Path {
		case RouteAnalyze, RouteHealth:
			s.opts.Metrics.Response(r.URL.Path, strconv.Itoa(rec.status))
		case RouteMetrics:
		default:
			s.opts.Metrics.Response("other", strconv.Itoa(rec.status))
		}
		entry := s.log.WithRequest(r).
			WithField("status", rec.status).
			WithField("duration_ms", time.Since(start).Milliseconds())
		if rec.status >= 500 {
			entry.Error("request finished")
		} else {
			entry.Info("request finished")
		}
	})
}

type errorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Success: false, Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

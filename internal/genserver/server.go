package genserver

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"finitefield.org/uniform-studio/internal/observability"
	"finitefield.org/uniform-studio/internal/uniform"
)

const (
	maxRequestBytes = 64 << 10
	successMessage  = "Image generation complete."
)

const instrumentationName = "finitefield.org/uniform-studio/internal/genserver"

var tracer = otel.Tracer(instrumentationName)

// Generation outcomes recorded on the uniform.generations counter.
const (
	outcomeOK          = "ok"
	outcomeInvalid     = "invalid"
	outcomeModelError  = "model_error"
	outcomeUnparseable = "unparseable"
	outcomeLimited     = "rate_limited"
)

// Server serves the image generation endpoint.
type Server struct {
	model       ImageModel
	candidates  []string
	tokenLoaded bool
	origins     []string
	perMinute   int
	burst       int
	limiter     rateLimiter
	logger      *zap.Logger
	clock       func() time.Time
	meter       metric.Meter
	generations metric.Int64Counter
	duration    metric.Float64Histogram
}

// Option customises the server.
type Option func(*Server)

// WithCandidates sets the model slugs tried in order.
func WithCandidates(candidates []string) Option {
	return func(s *Server) { s.candidates = append([]string(nil), candidates...) }
}

// WithTokenLoaded reports whether backend credentials were configured.
func WithTokenLoaded(loaded bool) Option {
	return func(s *Server) { s.tokenLoaded = loaded }
}

// WithAllowedOrigins sets the CORS origins.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) { s.origins = append([]string(nil), origins...) }
}

// WithRateLimit limits generation requests per client. Zero disables limiting.
func WithRateLimit(perMinute, burst int) Option {
	return func(s *Server) {
		s.perMinute = perMinute
		s.burst = burst
	}
}

// WithLogger sets the base logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the clock used by the rate limiter.
func WithClock(clock func() time.Time) Option {
	return func(s *Server) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithMeter sets the OpenTelemetry meter. The global provider is used otherwise.
func WithMeter(m metric.Meter) Option {
	return func(s *Server) {
		if m != nil {
			s.meter = m
		}
	}
}

// New builds a server around the given backend.
func New(model ImageModel, opts ...Option) *Server {
	s := &Server{
		model:      model,
		candidates: Candidates("", DefaultCandidates),
		logger:     zap.NewNop(),
		clock:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.limiter = newClientRateLimiter(s.perMinute, s.burst, s.clock)
	if s.meter == nil {
		s.meter = otel.GetMeterProvider().Meter(instrumentationName)
	}
	var err error
	if s.generations, err = s.meter.Int64Counter("uniform.generations",
		metric.WithDescription("Generation requests by outcome"),
	); err != nil {
		s.logger.Warn("genserver: unable to register generation counter", zap.Error(err))
	}
	if s.duration, err = s.meter.Float64Histogram("uniform.generation.duration",
		metric.WithUnit("s"),
		metric.WithDescription("Time spent resolving a model and generating an image"),
	); err != nil {
		s.logger.Warn("genserver: unable to register duration histogram", zap.Error(err))
	}
	return s
}

func (s *Server) count(ctx context.Context, outcome string) {
	if s.generations != nil {
		s.generations.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	}
}

// Handler returns the router with the ambient middleware stack.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.InjectLoggerMiddleware(s.logger))
	r.Use(observability.TraceMiddleware)
	r.Use(observability.RequestLoggerMiddleware(nil))
	r.Use(observability.RecoveryMiddleware)
	s.Routes(r)
	return r
}

// Routes registers the endpoints on r.
func (s *Server) Routes(r chi.Router) {
	health := r.With(corsFor(s.origins, []string{http.MethodGet}))
	health.MethodFunc(http.MethodGet, "/health", s.health)
	health.MethodFunc(http.MethodOptions, "/health", noContent)

	generate := r.With(corsFor(s.origins, []string{http.MethodPost}, "Content-Type"))
	generate.MethodFunc(http.MethodOptions, "/generate-uniform", noContent)
	generate.With(s.rateLimit).MethodFunc(http.MethodPost, "/generate-uniform", s.generateUniform)
}

// healthResponse keeps replicateTokenLoaded for existing health checks;
// tokenLoaded carries the same flag for any backend.
type healthResponse struct {
	Status               string   `json:"status"`
	ReplicateTokenLoaded bool     `json:"replicateTokenLoaded"`
	TokenLoaded          bool     `json:"tokenLoaded"`
	CandidateModels      []string `json:"candidateModels"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:               "ok",
		ReplicateTokenLoaded: s.tokenLoaded,
		TokenLoaded:          s.tokenLoaded,
		CandidateModels:      s.candidates,
	})
}

func (s *Server) generateUniform(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "genserver.GenerateUniform")
	defer span.End()
	logger := observability.FromContext(ctx)

	req := decodeLenient(r.Body)
	if strings.TrimSpace(req.Keyword) == "" || strings.TrimSpace(req.Style) == "" {
		s.count(ctx, outcomeInvalid)
		writeJSON(w, http.StatusBadRequest, uniform.Response{Error: "keyword and style are required"})
		return
	}
	span.SetAttributes(
		attribute.String("uniform.sport", req.Sport),
		attribute.String("uniform.style", req.Style),
	)

	prompt := BuildPrompt(req)
	start := s.clock()
	defer func() {
		if s.duration != nil {
			s.duration.Record(ctx, s.clock().Sub(start).Seconds())
		}
	}()
	ref, err := ResolveFirst(ctx, s.model, s.candidates, logger)
	if err != nil {
		s.modelFailed(ctx, w, span, logger, err)
		return
	}
	span.SetAttributes(attribute.String("model.ref", ref))

	output, err := s.model.Generate(ctx, ref, prompt)
	if err != nil {
		s.modelFailed(ctx, w, span, logger, err)
		return
	}
	imageURL, ok := ParseImageURL(output)
	if !ok {
		logger.Error("could not parse image URL", zap.String("model", ref), zap.Any("output", output))
		span.SetStatus(codes.Error, "unparseable output")
		s.count(ctx, outcomeUnparseable)
		writeJSON(w, http.StatusInternalServerError, uniform.Response{Error: "could not parse image URL"})
		return
	}
	logger.Info("uniform generated", zap.String("model", ref))
	s.count(ctx, outcomeOK)
	writeJSON(w, http.StatusOK, uniform.Response{Message: successMessage, ImageURL: imageURL})
}

func (s *Server) modelFailed(ctx context.Context, w http.ResponseWriter, span trace.Span, logger *zap.Logger, err error) {
	logger.Error("model call failed", zap.Error(err))
	s.count(ctx, outcomeModelError)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	writeJSON(w, http.StatusInternalServerError, uniform.Response{Error: "model call failed: " + err.Error()})
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow(clientKey(r)) {
			s.count(r.Context(), outcomeLimited)
			w.Header().Set("Retry-After", "60")
			writeJSON(w, http.StatusTooManyRequests, uniform.Response{Error: "too many requests, try again later"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// decodeLenient treats an unreadable or malformed body as an empty object.
func decodeLenient(body io.Reader) uniform.Request {
	var req uniform.Request
	raw, err := io.ReadAll(io.LimitReader(body, maxRequestBytes))
	if err != nil || len(raw) == 0 {
		return uniform.Request{}
	}
	if err := json.Unmarshal(raw, &req); err != nil {
		return uniform.Request{}
	}
	return req
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func noContent(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

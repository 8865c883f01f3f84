package secrets

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	// DefaultFallbackFile holds local values for secret references during development.
	DefaultFallbackFile = ".secrets.local"

	meterName = "finitefield.org/uniform-studio/internal/secrets"
)

var newSecretManagerClient = func(ctx context.Context, opts ...option.ClientOption) (accessor, error) {
	return secretmanager.NewClient(ctx, opts...)
}

type accessor interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error)
	Close() error
}

// IsReference reports whether value is a secret reference rather than a literal.
func IsReference(value string) bool {
	v := strings.TrimSpace(value)
	return strings.HasPrefix(v, "secret://") || strings.HasPrefix(v, "sm://")
}

// Resolver expands secret://name[?version=N&project=P] references through
// Google Secret Manager, falling back to a local file when the project is not
// configured or the remote call is not permitted.
type Resolver struct {
	logger       *zap.Logger
	project      string
	fallbackPath string
	clientOpts   []option.ClientOption

	clientOnce sync.Once
	client     accessor
	clientErr  error
	ownsClient bool

	fallbackOnce sync.Once
	fallback     map[string]string
	fallbackErr  error

	mu    sync.RWMutex
	cache map[string]string

	latency   metric.Float64Histogram
	cacheHits metric.Int64Counter
}

type resolverConfig struct {
	logger       *zap.Logger
	project      string
	fallbackPath string
	meter        metric.Meter
	client       accessor
	clientOpts   []option.ClientOption
}

// Option customises Resolver construction.
type Option func(*resolverConfig)

// WithLogger sets the diagnostic logger.
func WithLogger(logger *zap.Logger) Option {
	return func(cfg *resolverConfig) { cfg.logger = logger }
}

// WithProject selects the Google Cloud project holding the secrets.
func WithProject(projectID string) Option {
	return func(cfg *resolverConfig) { cfg.project = strings.TrimSpace(projectID) }
}

// WithFallbackFile overrides the local fallback file. An empty path disables it.
func WithFallbackFile(path string) Option {
	return func(cfg *resolverConfig) { cfg.fallbackPath = strings.TrimSpace(path) }
}

// WithMeter injects the OpenTelemetry meter.
func WithMeter(m metric.Meter) Option {
	return func(cfg *resolverConfig) { cfg.meter = m }
}

// WithClientOptions forwards options to the Secret Manager client.
func WithClientOptions(opts ...option.ClientOption) Option {
	return func(cfg *resolverConfig) { cfg.clientOpts = append(cfg.clientOpts, opts...) }
}

func withAccessor(a accessor) Option {
	return func(cfg *resolverConfig) { cfg.client = a }
}

// NewResolver builds a Resolver. The Secret Manager client is created on the
// first remote lookup.
func NewResolver(opts ...Option) *Resolver {
	cfg := resolverConfig{fallbackPath: DefaultFallbackFile}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}
	if cfg.meter == nil {
		cfg.meter = otel.GetMeterProvider().Meter(meterName)
	}

	r := &Resolver{
		logger:       cfg.logger,
		project:      cfg.project,
		fallbackPath: cfg.fallbackPath,
		clientOpts:   cfg.clientOpts,
		cache:        map[string]string{},
	}
	if cfg.client != nil {
		r.clientOnce.Do(func() { r.client = cfg.client })
	}

	var err error
	r.latency, err = cfg.meter.Float64Histogram("secrets.resolve.latency",
		metric.WithUnit("ms"),
		metric.WithDescription("Latency of secret reference lookups"),
	)
	if err != nil {
		r.logger.Warn("secrets: unable to register latency metric", zap.Error(err))
	}
	r.cacheHits, err = cfg.meter.Int64Counter("secrets.resolve.cache_hits",
		metric.WithDescription("Secret lookups answered from the in-process cache"),
	)
	if err != nil {
		r.logger.Warn("secrets: unable to register cache hit metric", zap.Error(err))
	}
	return r
}

// Close releases the Secret Manager client if the resolver created it.
func (r *Resolver) Close() error {
	if r.ownsClient && r.client != nil {
		return r.client.Close()
	}
	return nil
}

// Expand returns value unchanged unless it is a secret reference, in which
// case the referenced secret is returned.
func (r *Resolver) Expand(ctx context.Context, value string) (string, error) {
	if !IsReference(value) {
		return value, nil
	}
	return r.Resolve(ctx, value)
}

// Resolve returns the secret named by ref.
func (r *Resolver) Resolve(ctx context.Context, ref string) (string, error) {
	start := time.Now()
	parsed, err := parseReference(ref)
	if err != nil {
		return "", err
	}
	key := parsed.key()

	r.mu.RLock()
	value, ok := r.cache[key]
	r.mu.RUnlock()
	if ok {
		if r.cacheHits != nil {
			r.cacheHits.Add(ctx, 1)
		}
		r.record(ctx, start, "cache")
		return value, nil
	}

	project := parsed.project
	if project == "" {
		project = r.project
	}
	if project != "" {
		value, err := r.fetchRemote(ctx, project, parsed)
		switch {
		case err == nil:
			r.store(key, value)
			r.record(ctx, start, "remote")
			return value, nil
		case !canFallBack(err):
			r.record(ctx, start, "error")
			return "", fmt.Errorf("secrets: fetch %s: %w", parsed.name, err)
		}
		r.logger.Debug("secrets: using local fallback", zap.String("secret", parsed.name), zap.Error(err))
	}

	value, ok = r.lookupFallback(parsed)
	if !ok {
		r.record(ctx, start, "error")
		if r.fallbackErr != nil {
			return "", r.fallbackErr
		}
		return "", fmt.Errorf("secrets: no value for %s", parsed.name)
	}
	r.store(key, value)
	r.record(ctx, start, "fallback")
	return value, nil
}

func (r *Resolver) fetchRemote(ctx context.Context, project string, ref reference) (string, error) {
	r.clientOnce.Do(func() {
		r.client, r.clientErr = newSecretManagerClient(ctx, r.clientOpts...)
		r.ownsClient = r.clientErr == nil
		if r.clientErr != nil {
			r.logger.Warn("secrets: secret manager client unavailable", zap.Error(r.clientErr))
		}
	})
	if r.clientErr != nil {
		return "", status.Error(codes.Unavailable, r.clientErr.Error())
	}

	name := fmt.Sprintf("projects/%s/secrets/%s/versions/%s", project, ref.name, ref.version)
	resp, err := r.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: name})
	if err != nil {
		return "", err
	}
	if resp.GetPayload() == nil {
		return "", fmt.Errorf("empty payload for %s", name)
	}
	return strings.TrimSpace(string(resp.GetPayload().GetData())), nil
}

func (r *Resolver) lookupFallback(ref reference) (string, bool) {
	r.fallbackOnce.Do(func() {
		r.fallback, r.fallbackErr = readFallbackFile(r.fallbackPath)
	})
	v, ok := r.fallback[ref.name]
	return v, ok
}

func (r *Resolver) store(key, value string) {
	r.mu.Lock()
	r.cache[key] = value
	r.mu.Unlock()
}

func (r *Resolver) record(ctx context.Context, start time.Time, source string) {
	if r.latency == nil {
		return
	}
	r.latency.Record(ctx, float64(time.Since(start))/float64(time.Millisecond),
		metric.WithAttributes(attribute.String("source", source)))
}

// readFallbackFile parses "secret://name=value" lines. Entries apply to every
// version of the named secret. Missing files are empty.
func readFallbackFile(path string) (map[string]string, error) {
	values := map[string]string{}
	if path == "" {
		return values, nil
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return values, nil
		}
		return values, fmt.Errorf("secrets: open fallback file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		// values may be base64 and end in '='
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		ref, err := parseReference(strings.TrimSpace(key))
		if err != nil {
			continue
		}
		values[ref.name] = strings.TrimSpace(value)
	}
	if err := scanner.Err(); err != nil {
		return values, fmt.Errorf("secrets: read fallback file: %w", err)
	}
	return values, nil
}

type reference struct {
	name    string
	version string
	project string
}

func (r reference) key() string { return r.name + "#" + r.version }

func parseReference(ref string) (reference, error) {
	ref = strings.TrimSpace(ref)
	if strings.HasPrefix(ref, "sm://") {
		ref = "secret://" + strings.TrimPrefix(ref, "sm://")
	}
	u, err := url.Parse(ref)
	if err != nil {
		return reference{}, fmt.Errorf("secrets: invalid reference: %w", err)
	}
	if u.Scheme != "secret" {
		return reference{}, fmt.Errorf("secrets: unsupported scheme %q", u.Scheme)
	}
	name := strings.Trim(u.Host+u.Path, "/")
	if name == "" {
		return reference{}, errors.New("secrets: missing secret name")
	}
	q := u.Query()
	version := strings.TrimSpace(q.Get("version"))
	if version == "" {
		version = "latest"
	}
	return reference{name: name, version: version, project: strings.TrimSpace(q.Get("project"))}, nil
}

func canFallBack(err error) bool {
	switch status.Code(err) {
	case codes.PermissionDenied, codes.Unauthenticated, codes.Unavailable, codes.DeadlineExceeded, codes.NotFound:
		return true
	}
	return false
}

package genserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/replicate/replicate-go"
)

const (
	defaultReplicateBaseURL  = "https://api.replicate.com"
	defaultPollInterval      = time.Second
	defaultPredictionTimeout = 4 * time.Minute
	cancelTimeout            = 10 * time.Second
)

// ReplicateModel runs models through the Replicate predictions API.
type ReplicateModel struct {
	client       *replicate.Client
	clientErr    error
	pollInterval time.Duration
	timeout      time.Duration
}

// ReplicateOption customises a ReplicateModel.
type ReplicateOption func(*ReplicateModel)

// WithPollInterval sets the delay between prediction status checks.
func WithPollInterval(d time.Duration) ReplicateOption {
	return func(m *ReplicateModel) {
		if d > 0 {
			m.pollInterval = d
		}
	}
}

// WithPredictionTimeout bounds how long Generate waits for one prediction.
func WithPredictionTimeout(d time.Duration) ReplicateOption {
	return func(m *ReplicateModel) {
		if d > 0 {
			m.timeout = d
		}
	}
}

// NewReplicateModel builds the backend. baseURL is the API host without the
// version prefix. A nil client uses http.DefaultClient. Without a token every
// call fails, so a service can still start and report it on /health.
func NewReplicateModel(baseURL, token string, client *http.Client, opts ...ReplicateOption) *ReplicateModel {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultReplicateBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	m := &ReplicateModel{
		pollInterval: defaultPollInterval,
		timeout:      defaultPredictionTimeout,
	}
	for _, opt := range opts {
		opt(m)
	}

	token = strings.TrimSpace(token)
	if token == "" {
		m.clientErr = errors.New("replicate: API token is not set")
		return m
	}
	m.client, m.clientErr = replicate.NewClient(
		replicate.WithToken(token),
		replicate.WithBaseURL(baseURL+"/v1"),
		replicate.WithHTTPClient(client),
	)
	if m.clientErr != nil {
		m.clientErr = fmt.Errorf("replicate: %w", m.clientErr)
	}
	return m
}

// Resolve returns owner/name:version for the newest version of slug.
func (m *ReplicateModel) Resolve(ctx context.Context, slug string) (string, error) {
	owner, name, ok := strings.Cut(strings.TrimSpace(slug), "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", fmt.Errorf("replicate: invalid model slug %q", slug)
	}
	if m.clientErr != nil {
		return "", m.clientErr
	}

	model, err := m.client.GetModel(ctx, owner, name)
	if err != nil {
		return "", apiError("get model "+slug, err)
	}
	version := ""
	if model.LatestVersion != nil {
		version = model.LatestVersion.ID
	}
	if version == "" {
		page, err := m.client.ListModelVersions(ctx, owner, name)
		if err != nil {
			return "", apiError("list versions of "+slug, err)
		}
		if len(page.Results) > 0 {
			version = page.Results[0].ID
		}
	}
	if version == "" {
		return "", fmt.Errorf("replicate: no versions found for %s", slug)
	}
	return owner + "/" + name + ":" + version, nil
}

// Generate creates a prediction and waits until it reaches a terminal state or
// the prediction timeout passes, in which case the prediction is canceled.
func (m *ReplicateModel) Generate(ctx context.Context, ref, prompt string) (any, error) {
	_, version, ok := strings.Cut(ref, ":")
	if !ok || version == "" {
		return nil, fmt.Errorf("replicate: model reference %q has no version", ref)
	}
	if m.clientErr != nil {
		return nil, m.clientErr
	}

	waitCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	pred, err := m.client.CreatePrediction(waitCtx, version, replicate.PredictionInput{"prompt": prompt}, nil, false)
	if err != nil {
		return nil, apiError("create prediction", err)
	}
	if err := m.client.Wait(waitCtx, pred, replicate.WithPollingInterval(m.pollInterval)); err != nil {
		if waitCtx.Err() != nil && ctx.Err() == nil {
			m.cancel(pred.ID)
			return nil, fmt.Errorf("replicate: prediction %s did not finish within %s", pred.ID, m.timeout)
		}
		return nil, apiError("wait for prediction "+pred.ID, err)
	}

	switch pred.Status {
	case replicate.Succeeded:
		return pred.Output, nil
	case replicate.Failed, replicate.Canceled:
		return nil, fmt.Errorf("replicate: prediction %s %s: %v", pred.ID, pred.Status, pred.Error)
	default:
		return nil, fmt.Errorf("replicate: prediction %s ended in state %s", pred.ID, pred.Status)
	}
}

// cancel stops a prediction nobody waits for any more.
func (m *ReplicateModel) cancel(id string) {
	if id == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), cancelTimeout)
	defer cancel()
	_, _ = m.client.CancelPrediction(ctx, id)
}

func apiError(op string, err error) error {
	var apiErr *replicate.APIError
	if errors.As(err, &apiErr) {
		detail := apiErr.Detail
		if detail == "" {
			detail = apiErr.Title
		}
		if apiErr.Status != 0 {
			return fmt.Errorf("replicate: %s: status %d: %s", op, apiErr.Status, detail)
		}
		return fmt.Errorf("replicate: %s: %s", op, detail)
	}
	return fmt.Errorf("replicate: %s: %w", op, err)
}

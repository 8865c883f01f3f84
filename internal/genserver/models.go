package genserver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// DefaultCandidates are tried in order until one resolves.
var DefaultCandidates = []string{
	"stability-ai/stable-diffusion",
	"stability-ai/sdxl",
	"runwayml/stable-diffusion-v1-5",
}

// ImageModel is an image generation backend.
type ImageModel interface {
	// Resolve turns a model slug into a runnable reference.
	Resolve(ctx context.Context, slug string) (string, error)
	// Generate runs the model and returns its raw output.
	Generate(ctx context.Context, ref, prompt string) (any, error)
}

// Candidates returns the model slugs to try, with override first when set.
func Candidates(override string, defaults []string) []string {
	out := make([]string, 0, len(defaults)+1)
	seen := map[string]struct{}{}
	add := func(slug string) {
		slug = strings.TrimSpace(slug)
		if slug == "" {
			return
		}
		if _, dup := seen[slug]; dup {
			return
		}
		seen[slug] = struct{}{}
		out = append(out, slug)
	}
	add(override)
	for _, slug := range defaults {
		add(slug)
	}
	return out
}

// ResolveFirst returns the reference of the first candidate that resolves.
func ResolveFirst(ctx context.Context, model ImageModel, candidates []string, logger *zap.Logger) (string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(candidates) == 0 {
		return "", errors.New("genserver: no candidate models configured")
	}
	var errs []error
	for _, slug := range candidates {
		ref, err := model.Resolve(ctx, slug)
		if err != nil {
			logger.Warn("model resolution failed", zap.String("model", slug), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", slug, err))
			if ctx.Err() != nil {
				break
			}
			continue
		}
		logger.Info("model resolved", zap.String("model", slug), zap.String("ref", ref))
		return ref, nil
	}
	return "", fmt.Errorf("genserver: no candidate model resolved, set REPLICATE_MODEL to a model exposing versions: %w", errors.Join(errs...))
}

// ParseImageURL extracts the image URL from a model output. It accepts a list
// whose first element is a string or an object with url, a plain string, or an
// object with image or url.
func ParseImageURL(output any) (string, bool) {
	var url string
	switch v := output.(type) {
	case []any:
		if len(v) > 0 {
			switch first := v[0].(type) {
			case string:
				url = first
			case map[string]any:
				url, _ = first["url"].(string)
			}
		}
	case []string:
		if len(v) > 0 {
			url = v[0]
		}
	case string:
		url = v
	case map[string]any:
		url, _ = v["image"].(string)
		if strings.TrimSpace(url) == "" {
			url, _ = v["url"].(string)
		}
	}
	url = strings.TrimSpace(url)
	return url, url != ""
}

package genserver

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// genaiModels is the part of genai.Models the backend needs.
type genaiModels interface {
	Get(ctx context.Context, model string, config *genai.GetModelConfig) (*genai.Model, error)
	GenerateImages(ctx context.Context, model string, prompt string, config *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error)
}

// GenAIModel generates images with the Gemini API image models.
type GenAIModel struct {
	models genaiModels
}

// NewGenAIModel creates a Gemini API client.
func NewGenAIModel(ctx context.Context, apiKey string) (*GenAIModel, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("genai: API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("genai: create client: %w", err)
	}
	return &GenAIModel{models: client.Models}, nil
}

// Resolve looks the model up and returns its resource name.
func (g *GenAIModel) Resolve(ctx context.Context, slug string) (string, error) {
	model, err := g.models.Get(ctx, slug, nil)
	if err != nil {
		return "", fmt.Errorf("genai: get model %s: %w", slug, err)
	}
	if model == nil || model.Name == "" {
		return slug, nil
	}
	return model.Name, nil
}

// Generate requests a single image and returns its URL as a one element list.
func (g *GenAIModel) Generate(ctx context.Context, ref, prompt string) (any, error) {
	resp, err := g.models.GenerateImages(ctx, ref, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		OutputMIMEType: "image/png",
	})
	if err != nil {
		return nil, fmt.Errorf("genai: generate images: %w", err)
	}
	var filtered string
	for _, generated := range resp.GeneratedImages {
		if generated == nil {
			continue
		}
		if generated.Image == nil {
			if generated.RAIFilteredReason != "" {
				filtered = generated.RAIFilteredReason
			}
			continue
		}
		if url := imageURL(generated.Image); url != "" {
			return []any{url}, nil
		}
	}
	if filtered != "" {
		return nil, fmt.Errorf("genai: image filtered: %s", filtered)
	}
	return nil, nil
}

func imageURL(img *genai.Image) string {
	if uri := strings.TrimSpace(img.GCSURI); uri != "" {
		if rest, ok := strings.CutPrefix(uri, "gs://"); ok {
			return "https://storage.googleapis.com/" + rest
		}
		return uri
	}
	if len(img.ImageBytes) == 0 {
		return ""
	}
	mime := img.MIMEType
	if mime == "" {
		mime = "image/png"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(img.ImageBytes)
}

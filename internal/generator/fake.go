package generator

import (
	"context"
	"encoding/base64"
	"fmt"
	"html"
	"net/http"
	"strings"
	"sync"

	"finitefield.org/uniform-studio/internal/uniform"
)

// StaticGenerator answers every request in-process with a drawn placeholder.
// It is used in development when no endpoint is configured.
type StaticGenerator struct {
	// Response, when set, is returned verbatim instead of the placeholder.
	Response *uniform.Response
	// Err, when set, is returned as the call error.
	Err error

	mu    sync.Mutex
	calls []uniform.Request
}

// NewStaticGenerator constructs a StaticGenerator with the placeholder reply.
func NewStaticGenerator() *StaticGenerator {
	return &StaticGenerator{}
}

// Generate records the request and returns the configured reply.
func (g *StaticGenerator) Generate(ctx context.Context, req uniform.Request) (uniform.Response, error) {
	g.mu.Lock()
	g.calls = append(g.calls, req)
	g.mu.Unlock()

	if g.Err != nil {
		return uniform.Response{}, g.Err
	}
	if g.Response != nil {
		return *g.Response, nil
	}
	return uniform.Response{
		Status:   http.StatusOK,
		ImageURL: placeholderImage(req),
		Message:  "Image generation complete.",
	}, nil
}

// Calls returns a copy of the requests received so far.
func (g *StaticGenerator) Calls() []uniform.Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]uniform.Request, len(g.calls))
	copy(out, g.calls)
	return out
}

func placeholderImage(req uniform.Request) string {
	number := req.PlayerNumber
	if number == "" {
		number = "00"
	}
	name := req.PlayerName
	if v, ok := req.Option(uniform.KeyNameUppercase); ok && v == uniform.FlagOn {
		name = strings.ToUpper(name)
	}
	svg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="320" height="360" viewBox="0 0 320 360">`+
		`<path d="M90 20 L130 40 L190 40 L230 20 L300 70 L270 130 L240 115 L240 340 L80 340 L80 115 L50 130 L20 70 Z" fill="#1f4e8c" stroke="#0d2547" stroke-width="4"/>`+
		`<text x="160" y="150" font-family="sans-serif" font-size="24" fill="#fff" text-anchor="middle">%s</text>`+
		`<text x="160" y="250" font-family="sans-serif" font-size="88" font-weight="bold" fill="#fff" text-anchor="middle">%s</text>`+
		`<text x="160" y="320" font-family="sans-serif" font-size="14" fill="#cfe0ff" text-anchor="middle">%s</text>`+
		`</svg>`,
		html.EscapeString(name), html.EscapeString(number), html.EscapeString(req.Keyword))
	return "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString([]byte(svg))
}

package content

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"gopkg.in/yaml.v3"
)

//go:embed tips/*.md
var embeddedTips embed.FS

// ErrNotFound is returned when no localized page exists.
var ErrNotFound = errors.New("content: not found")

// Page is a rendered markdown document.
type Page struct {
	Lang  string
	Title string
	// HTML is sanitized and safe to embed.
	HTML string
}

type frontMatter struct {
	Title string `yaml:"title"`
}

// Library renders markdown pages from a directory and caches the result per language.
type Library struct {
	fsys     fs.FS
	dir      string
	fallback string
	md       goldmark.Markdown
	policy   *bluemonday.Policy

	mu    sync.RWMutex
	pages map[string]Page
}

// Tips returns the library backed by the embedded design tips.
func Tips(fallback string) *Library {
	return NewLibrary(embeddedTips, "tips", fallback)
}

// NewLibrary reads <lang>.md files from dir.
func NewLibrary(fsys fs.FS, dir, fallback string) *Library {
	return &Library{
		fsys:     fsys,
		dir:      dir,
		fallback: fallback,
		md:       goldmark.New(goldmark.WithExtensions(extension.Linkify, extension.Strikethrough)),
		policy:   newPolicy(),
		pages:    map[string]Page{},
	}
}

func newPolicy() *bluemonday.Policy {
	policy := bluemonday.UGCPolicy()
	policy.RequireNoFollowOnLinks(true)
	policy.AddTargetBlankToFullyQualifiedLinks(true)
	return policy
}

// Page returns the page for lang, trying the fallback language next.
func (l *Library) Page(lang string) (Page, error) {
	priority := []string{lang}
	if lang != l.fallback {
		priority = append(priority, l.fallback)
	}
	for _, candidate := range priority {
		if candidate == "" {
			continue
		}
		page, err := l.load(candidate)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		return page, err
	}
	return Page{}, ErrNotFound
}

func (l *Library) load(lang string) (Page, error) {
	l.mu.RLock()
	page, ok := l.pages[lang]
	l.mu.RUnlock()
	if ok {
		return page, nil
	}

	raw, err := fs.ReadFile(l.fsys, path.Join(l.dir, lang+".md"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Page{}, ErrNotFound
		}
		return Page{}, err
	}
	page, err = l.render(lang, string(raw))
	if err != nil {
		return Page{}, err
	}

	l.mu.Lock()
	l.pages[lang] = page
	l.mu.Unlock()
	return page, nil
}

func (l *Library) render(lang, input string) (Page, error) {
	fm, body := splitFrontMatter(input)
	var front frontMatter
	if strings.TrimSpace(fm) != "" {
		if err := yaml.Unmarshal([]byte(fm), &front); err != nil {
			return Page{}, fmt.Errorf("content: parse front matter %s: %w", lang, err)
		}
	}
	var buf bytes.Buffer
	if err := l.md.Convert([]byte(body), &buf); err != nil {
		return Page{}, fmt.Errorf("content: render %s: %w", lang, err)
	}
	return Page{
		Lang:  lang,
		Title: strings.TrimSpace(front.Title),
		HTML:  strings.TrimSpace(l.policy.Sanitize(buf.String())),
	}, nil
}

func splitFrontMatter(input string) (string, string) {
	input = strings.TrimLeft(input, "\ufeff")
	lines := strings.Split(input, "\n")
	if strings.TrimSpace(lines[0]) != "---" {
		return "", input
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			return strings.Join(lines[1:i], "\n"), strings.TrimLeft(strings.Join(lines[i+1:], "\n"), "\n\r")
		}
	}
	return "", input
}

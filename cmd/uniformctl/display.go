package main

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
)

const maxImageBytes = 32 << 20

// terminalDisplay prints workflow updates. Phase two of a successful
// submission runs once the image was written to outPath, or right away when
// no output file was requested.
type terminalDisplay struct {
	ctx     context.Context
	out     io.Writer
	errOut  io.Writer
	outPath string
	client  *http.Client

	caption  string
	imageSrc string
	visible  bool
	fetchErr error
	invalid  map[string]string
}

func newTerminalDisplay(ctx context.Context, out, errOut io.Writer, outPath string, client *http.Client) *terminalDisplay {
	if client == nil {
		client = http.DefaultClient
	}
	return &terminalDisplay{
		ctx:     ctx,
		out:     out,
		errOut:  errOut,
		outPath: outPath,
		client:  client,
		invalid: map[string]string{},
	}
}

func (d *terminalDisplay) SetCaption(text string) {
	d.caption = text
	fmt.Fprintln(d.out, text)
}

func (d *terminalDisplay) HideImage() {
	d.visible = false
	d.imageSrc = ""
}

func (d *terminalDisplay) LoadImage(src string, onReady func()) {
	d.imageSrc = src
	if d.outPath != "" {
		if err := d.save(src); err != nil {
			d.fetchErr = err
			fmt.Fprintf(d.errOut, "could not save image: %v\n", err)
			return
		}
		fmt.Fprintf(d.errOut, "saved %s\n", d.outPath)
	}
	if onReady != nil {
		onReady()
	}
}

func (d *terminalDisplay) RevealImage() {
	d.visible = true
	if strings.HasPrefix(d.imageSrc, "data:") {
		fmt.Fprintln(d.out, "image: inline data URL")
		return
	}
	fmt.Fprintf(d.out, "image: %s\n", d.imageSrc)
}

func (d *terminalDisplay) ReportValidity(field, message string) {
	d.invalid[field] = message
	fmt.Fprintf(d.errOut, "%s: %s\n", field, message)
}

func (d *terminalDisplay) save(src string) error {
	data, err := d.fetch(src)
	if err != nil {
		return err
	}
	return os.WriteFile(d.outPath, data, 0o644)
}

func (d *terminalDisplay) fetch(src string) ([]byte, error) {
	if strings.HasPrefix(src, "data:") {
		return decodeDataURL(src)
	}
	u, err := url.Parse(src)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("unsupported image URL %q", src)
	}
	req, err := http.NewRequestWithContext(d.ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, err
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("image download: status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
}

func decodeDataURL(src string) ([]byte, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(src, "data:"), ",")
	if !ok {
		return nil, errors.New("malformed data URL")
	}
	if strings.HasSuffix(meta, ";base64") {
		return base64.StdEncoding.DecodeString(payload)
	}
	text, err := url.PathUnescape(payload)
	if err != nil {
		return nil, err
	}
	return []byte(text), nil
}

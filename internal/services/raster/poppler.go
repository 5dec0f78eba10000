package raster

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync/atomic"

	"github.com/ledongthuc/pdf"

	"github.com/Shimizu-Technology/dossier-preview/internal/viewer"
)

// Poppler counts pages in-process and renders with the pdftoppm binary.
type Poppler struct {
	binary string
}

// NewPoppler creates the pdftoppm backend. An empty path means "pdftoppm"
// from $PATH.
func NewPoppler(binary string) *Poppler {
	if binary == "" {
		binary = "pdftoppm"
	}
	return &Poppler{binary: binary}
}

// Name implements Backend.
func (p *Poppler) Name() string { return string(KindPoppler) }

// Open counts pages with ledongthuc/pdf and stages the bytes on disk for
// pdftoppm. The staging directory lives until Close.
func (p *Poppler) Open(ctx context.Context, data []byte) (viewer.Handle, error) {
	pages, err := countPages(data)
	if err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp("", "dossier-preview-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create work dir: %w", err)
	}
	input := filepath.Join(dir, "document.pdf")
	if err := os.WriteFile(input, data, 0o600); err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("failed to stage document: %w", err)
	}

	return &popplerHandle{binary: p.binary, dir: dir, input: input, pages: pages}, nil
}

// countPages reads the page tree without rendering anything.
func countPages(data []byte) (n int, err error) {
	// ledongthuc/pdf panics on some malformed trailers.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed PDF: %v", r)
		}
	}()
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("failed to read PDF: %w", err)
	}
	return reader.NumPage(), nil
}

type popplerHandle struct {
	binary string
	dir    string
	input  string
	pages  int
	seq    atomic.Uint64
}

func (h *popplerHandle) NumPages() int {
	return h.pages
}

func (h *popplerHandle) RenderPage(ctx context.Context, index int, req viewer.RenderRequest) (image.Image, error) {
	if index < 1 || index > h.pages {
		return nil, fmt.Errorf("page %d out of range 1..%d", index, h.pages)
	}

	prefix := filepath.Join(h.dir, fmt.Sprintf("page-%d-%d", index, h.seq.Add(1)))
	cmd := exec.CommandContext(ctx, h.binary, pdftoppmArgs(h.input, prefix, index, req)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("pdftoppm failed on page %d: %w (%s)", index, err, bytes.TrimSpace(stderr.Bytes()))
	}

	out := prefix + ".png"
	defer os.Remove(out)
	f, err := os.Open(out)
	if err != nil {
		return nil, fmt.Errorf("rendered image not found for page %d: %w", index, err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode page %d: %w", index, err)
	}
	return img, nil
}

func (h *popplerHandle) Close() error {
	return os.RemoveAll(h.dir)
}

// pdftoppmArgs builds a single-page PNG render. -scale-to-x/-scale-to-y with
// -1 on the free side keeps the aspect ratio.
func pdftoppmArgs(input, prefix string, page int, req viewer.RenderRequest) []string {
	args := []string{
		"-png",
		"-singlefile",
		"-f", strconv.Itoa(page),
		"-l", strconv.Itoa(page),
	}
	switch {
	case req.Width > 0:
		args = append(args, "-scale-to-x", strconv.Itoa(int(req.Width+0.5)), "-scale-to-y", "-1")
	case req.Height > 0:
		args = append(args, "-scale-to-x", "-1", "-scale-to-y", strconv.Itoa(int(req.Height+0.5)))
	}
	return append(args, input, prefix)
}

package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
)

const (
	mimePDF = "application/pdf"

	DefaultMaxBytes = 10 << 20
	DefaultTimeout  = 20 * time.Second
)

var (
	ErrUnsupportedType = errors.New("Only PDF files are allowed")
	ErrTooLarge        = errors.New("file too large")
	ErrEmpty           = errors.New("no extractable text")
)

// Error wraps a failed extraction.
type Error struct {
	Err error
}

func (e *Error) Error() string { return "extraction failed: " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// Extractor turns an uploaded document into plain text.
type Extractor struct {
	MaxBytes int64
	Timeout  time.Duration
}

func New(maxBytes int64, timeout time.Duration) *Extractor {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Extractor{MaxBytes: maxBytes, Timeout: timeout}
}

// Validate rejects unsupported media types and oversized payloads before any parsing.
func (x *Extractor) Validate(size int64, mediaType string, head []byte) error {
	if normalizeMediaType(mediaType, head) != mimePDF {
		return &Error{Err: ErrUnsupportedType}
	}
	if size > x.MaxBytes {
		return &Error{Err: fmt.Errorf("%w: File size exceeds %dMB limit", ErrTooLarge, x.MaxBytes>>20)}
	}
	return nil
}

// Extract returns normalized plain text for data.
func (x *Extractor) Extract(ctx context.Context, data []byte, mediaType string) (string, error) {
	if err := x.Validate(int64(len(data)), mediaType, data); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, x.Timeout)
	defer cancel()

	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		text, err := extractPDF(data)
		done <- result{text: text, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", &Error{Err: ctx.Err()}
	case res := <-done:
		if res.err != nil {
			return "", &Error{Err: res.err}
		}
		text := normalizeText(res.text)
		if text == "" {
			return "", &Error{Err: ErrEmpty}
		}
		return text, nil
	}
}

func extractPDF(data []byte) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("malformed pdf: %v", rec)
		}
	}()
	reader := bytes.NewReader(data)
	pdfReader, err := pdf.NewReader(reader, int64(len(data)))
	if err != nil {
		return "", err
	}
	plain, err := pdfReader.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// normalizeText collapses runs of blank lines and trims trailing spaces.
func normalizeText(raw string) string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	lines := strings.Split(raw, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.TrimRight(line, " \t ")
		if strings.TrimSpace(line) == "" {
			if blank {
				continue
			}
			blank = true
			out = append(out, "")
			continue
		}
		blank = false
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

func normalizeMediaType(mediaType string, head []byte) string {
	clean := strings.ToLower(strings.TrimSpace(strings.Split(mediaType, ";")[0]))
	if clean == "" || clean == "application/octet-stream" {
		if len(head) > 512 {
			head = head[:512]
		}
		return strings.Split(http.DetectContentType(head), ";")[0]
	}
	return clean
}

// Package ocr extracts text from screenshots to pre-fill assignment records.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"AccessDeck/internal/logger"
	"AccessDeck/internal/metrics"
)

var (
	ErrImageTooLarge    = errors.New("image too large")
	ErrUnsupportedImage = errors.New("unsupported image format")
	ErrNoEngine         = errors.New("no OCR engine configured")
	// ErrExtractFailed wraps every engine failure.
	ErrExtractFailed = errors.New("failed to extract text")
)

// Input is a single image handed to an engine.
type Input struct {
	Image     []byte
	Format    string
	Languages []string
}

type Result struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Language   string  `json:"language,omitempty"`
}

// Engine is an OCR provider: one image in, one result out.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, in Input) (Result, error)
}

type Service struct {
	engine    Engine
	languages []string
	maxPixels int
	metrics   *metrics.Registry
}

func NewService(engine Engine, languages []string, maxPixels int) *Service {
	if len(languages) == 0 {
		languages = []string{"eng"}
	}
	return &Service{engine: engine, languages: languages, maxPixels: maxPixels}
}

func (s *Service) SetMetrics(m *metrics.Registry) { s.metrics = m }

func (s *Service) EngineName() string {
	if s.engine == nil {
		return ""
	}
	return s.engine.Name()
}

// Extract normalizes the screenshot and returns the recognized text, trimmed.
func (s *Service) Extract(ctx context.Context, data []byte) (Result, error) {
	if s.engine == nil {
		return Result{}, ErrNoEngine
	}
	img, format, err := Normalize(data, s.maxPixels)
	if err != nil {
		return Result{}, err
	}

	started := time.Now()
	res, err := s.engine.Recognize(ctx, Input{Image: img, Format: format, Languages: s.languages})
	s.metrics.ObserveOCR(s.engine.Name(), started, err)
	if err != nil {
		logger.OCR.Warn().Err(err).Str("engine", s.engine.Name()).Msg("text extraction failed")
		return Result{}, fmt.Errorf("%w: %v", ErrExtractFailed, err)
	}
	res.Text = cleanText(res.Text)
	logger.OCR.Debug().
		Str("engine", s.engine.Name()).
		Int("chars", len(res.Text)).
		Dur("elapsed", time.Since(started)).
		Msg("text extracted")
	return res, nil
}

// cleanText trims the result and drops trailing spaces and runs of blank lines.
func cleanText(s string) string {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, l := range lines {
		l = strings.TrimRight(l, " \t\f\v")
		if strings.TrimSpace(l) == "" {
			if blank {
				continue
			}
			blank = true
			out = append(out, "")
			continue
		}
		blank = false
		out = append(out, l)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

package ocr

import (
	"bytes"
	"context"
	"time"

	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"

	"expense_tracker/internal/observability"
)

// RunOptions are the orchestration knobs layered on top of a single provider
// call. They configure caching, retries and preprocessing; the recognition
// algorithm itself is untouched.
type RunOptions struct {
	Template        string
	UseCache        bool
	PreprocessImage bool
	MaxRetries      int
}

// TextCache is the slice of the redis cache the runner needs.
type TextCache interface {
	GetText(ctx context.Context, image []byte) (string, bool, error)
	SetText(ctx context.Context, image []byte, text string) error
}

// Runner wraps a Recognizer with content-hash caching, bounded retries for
// transient provider faults and optional image normalization.
type Runner struct {
	provider Recognizer
	cache    TextCache // nil disables caching regardless of options
}

func NewRunner(provider Recognizer, cache TextCache) *Runner {
	return &Runner{provider: provider, cache: cache}
}

func (r *Runner) Recognize(ctx context.Context, image []byte, mimeType string, opts RunOptions) RecognizeResult {
	if opts.UseCache && r.cache != nil {
		if text, ok, err := r.cache.GetText(ctx, image); err == nil && ok {
			countOCR("cached")
			return RecognizeResult{Success: true, Text: text}
		} else if err != nil {
			logrus.WithError(err).Warn("OCR cache lookup failed")
		}
	}

	if opts.PreprocessImage {
		image, mimeType = preprocess(image, mimeType)
	}

	res := r.recognizeWithRetries(ctx, image, mimeType, opts.MaxRetries)

	if res.Success && opts.UseCache && r.cache != nil {
		if err := r.cache.SetText(ctx, image, res.Text); err != nil {
			logrus.WithError(err).Warn("Failed to cache OCR text")
		}
	}
	return res
}

// recognizeWithRetries retries provider faults with linear backoff. A clean
// "no text detected" outcome is final; retrying cannot change it.
func (r *Runner) recognizeWithRetries(ctx context.Context, image []byte, mimeType string, maxRetries int) RecognizeResult {
	start := time.Now()
	var res RecognizeResult
	for attempt := 0; ; attempt++ {
		res = r.provider.RecognizeText(ctx, image, mimeType)
		if res.Success || res.Error == NoTextDetected || attempt >= maxRetries {
			break
		}
		countRetry()
		logrus.WithFields(logrus.Fields{
			"attempt": attempt + 1,
			"error":   res.Error,
		}).Warn("OCR provider call failed, retrying")

		select {
		case <-ctx.Done():
			return RecognizeResult{Success: false, Error: ctx.Err().Error()}
		case <-time.After(time.Duration(attempt+1) * 500 * time.Millisecond):
		}
	}
	observeOCR(res, time.Since(start))
	return res
}

// preprocess normalizes the image to grayscale PNG before it reaches the
// provider. Undecodable input passes through unchanged.
func preprocess(image []byte, mimeType string) ([]byte, string) {
	img, err := imaging.Decode(bytes.NewReader(image))
	if err != nil {
		logrus.WithError(err).Warn("Image preprocessing skipped: decode failed")
		return image, mimeType
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, imaging.Grayscale(img), imaging.PNG); err != nil {
		logrus.WithError(err).Warn("Image preprocessing skipped: encode failed")
		return image, mimeType
	}
	return buf.Bytes(), "image/png"
}

func countOCR(outcome string) {
	if observability.GlobalMetrics != nil {
		observability.GlobalMetrics.OCRRequestsTotal.WithLabelValues(outcome).Inc()
	}
}

func countRetry() {
	if observability.GlobalMetrics != nil {
		observability.GlobalMetrics.OCRRetriesTotal.Inc()
	}
}

func observeOCR(res RecognizeResult, elapsed time.Duration) {
	if observability.GlobalMetrics == nil {
		return
	}
	observability.GlobalMetrics.OCRRequestDuration.Observe(elapsed.Seconds())
	switch {
	case res.Success:
		observability.GlobalMetrics.OCRRequestsTotal.WithLabelValues("success").Inc()
	case res.Error == NoTextDetected:
		observability.GlobalMetrics.OCRRequestsTotal.WithLabelValues("no_text").Inc()
	default:
		observability.GlobalMetrics.OCRRequestsTotal.WithLabelValues("error").Inc()
	}
}

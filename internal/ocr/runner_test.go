package ocr

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRecognizer returns scripted results in order, repeating the last one.
type fakeRecognizer struct {
	results []RecognizeResult
	calls   int
}

func (f *fakeRecognizer) RecognizeText(ctx context.Context, image []byte, mimeType string) RecognizeResult {
	idx := f.calls
	if idx >= len(f.results) {
		idx = len(f.results) - 1
	}
	f.calls++
	return f.results[idx]
}

type fakeTextCache struct {
	entries map[string]string
	sets    int
}

func newFakeTextCache() *fakeTextCache {
	return &fakeTextCache{entries: map[string]string{}}
}

func (f *fakeTextCache) GetText(ctx context.Context, image []byte) (string, bool, error) {
	text, ok := f.entries[string(image)]
	return text, ok, nil
}

func (f *fakeTextCache) SetText(ctx context.Context, image []byte, text string) error {
	f.entries[string(image)] = text
	f.sets++
	return nil
}

func TestRunner_CacheShortCircuit(t *testing.T) {
	provider := &fakeRecognizer{results: []RecognizeResult{{Success: true, Text: "fresh"}}}
	cache := newFakeTextCache()
	cache.entries["img"] = "cached text"
	r := NewRunner(provider, cache)

	res := r.Recognize(context.Background(), []byte("img"), "image/jpeg", RunOptions{UseCache: true})

	assert.True(t, res.Success)
	assert.Equal(t, "cached text", res.Text)
	assert.Equal(t, 0, provider.calls)
}

func TestRunner_CacheDisabledCallsProvider(t *testing.T) {
	provider := &fakeRecognizer{results: []RecognizeResult{{Success: true, Text: "fresh"}}}
	cache := newFakeTextCache()
	cache.entries["img"] = "cached text"
	r := NewRunner(provider, cache)

	res := r.Recognize(context.Background(), []byte("img"), "image/jpeg", RunOptions{UseCache: false})

	assert.Equal(t, "fresh", res.Text)
	assert.Equal(t, 1, provider.calls)
}

func TestRunner_SuccessPopulatesCache(t *testing.T) {
	provider := &fakeRecognizer{results: []RecognizeResult{{Success: true, Text: "recognized"}}}
	cache := newFakeTextCache()
	r := NewRunner(provider, cache)

	res := r.Recognize(context.Background(), []byte("img"), "image/jpeg", RunOptions{UseCache: true})

	require.True(t, res.Success)
	assert.Equal(t, 1, cache.sets)
	assert.Equal(t, "recognized", cache.entries["img"])
}

func TestRunner_RetriesTransientFailures(t *testing.T) {
	provider := &fakeRecognizer{results: []RecognizeResult{
		{Success: false, Error: "connection reset"},
		{Success: false, Error: "connection reset"},
		{Success: true, Text: "third time lucky"},
	}}
	r := NewRunner(provider, nil)

	res := r.Recognize(context.Background(), []byte("img"), "image/jpeg", RunOptions{MaxRetries: 2})

	assert.True(t, res.Success)
	assert.Equal(t, "third time lucky", res.Text)
	assert.Equal(t, 3, provider.calls)
}

func TestRunner_RetriesExhausted(t *testing.T) {
	provider := &fakeRecognizer{results: []RecognizeResult{{Success: false, Error: "connection reset"}}}
	r := NewRunner(provider, nil)

	res := r.Recognize(context.Background(), []byte("img"), "image/jpeg", RunOptions{MaxRetries: 2})

	assert.False(t, res.Success)
	assert.Equal(t, "connection reset", res.Error)
	assert.Equal(t, 3, provider.calls)
}

func TestRunner_NoTextDetectedIsFinal(t *testing.T) {
	provider := &fakeRecognizer{results: []RecognizeResult{{Success: false, Error: NoTextDetected}}}
	r := NewRunner(provider, nil)

	res := r.Recognize(context.Background(), []byte("img"), "image/jpeg", RunOptions{MaxRetries: 3})

	assert.False(t, res.Success)
	assert.Equal(t, NoTextDetected, res.Error)
	assert.Equal(t, 1, provider.calls)
}

func TestRunner_FailureDoesNotPopulateCache(t *testing.T) {
	provider := &fakeRecognizer{results: []RecognizeResult{{Success: false, Error: NoTextDetected}}}
	cache := newFakeTextCache()
	r := NewRunner(provider, cache)

	res := r.Recognize(context.Background(), []byte("img"), "image/jpeg", RunOptions{UseCache: true})

	assert.False(t, res.Success)
	assert.Equal(t, 0, cache.sets)
}

func TestRunner_UndecodablePreprocessPassesThrough(t *testing.T) {
	provider := &fakeRecognizer{results: []RecognizeResult{{Success: true, Text: "ok"}}}
	r := NewRunner(provider, nil)

	res := r.Recognize(context.Background(), []byte("not an image"), "image/jpeg", RunOptions{PreprocessImage: true})

	assert.True(t, res.Success)
	assert.Equal(t, 1, provider.calls)
}

package ocr

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expense_tracker/internal/apperr"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*VisionClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewVisionClient(ProviderConfig{
		CredentialsJSON: `{"api_key": "test-key"}`,
		Endpoint:        srv.URL,
		HTTPClient:      srv.Client(),
	})
	require.NoError(t, err)
	return client, srv
}

func TestNewVisionClient_MissingCredentials(t *testing.T) {
	_, err := NewVisionClient(ProviderConfig{})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrConfiguration)
}

func TestNewVisionClient_MissingAPIKey(t *testing.T) {
	_, err := NewVisionClient(ProviderConfig{CredentialsJSON: `{"other": "field"}`})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrConfiguration)
}

func TestNewVisionClient_MalformedCredentials(t *testing.T) {
	_, err := NewVisionClient(ProviderConfig{CredentialsJSON: `not json`})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrConfiguration)
}

func TestRecognizeText_Success(t *testing.T) {
	image := []byte("jpeg-bytes")

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))

		var req annotateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Requests, 1)
		assert.Equal(t, base64.StdEncoding.EncodeToString(image), req.Requests[0].Image.Content)
		assert.Equal(t, "TEXT_DETECTION", req.Requests[0].Features[0].Type)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"responses": [{"textAnnotations": [{"description": "Walmart\nTotal: $45.67"}]}]}`))
	})

	res := client.RecognizeText(context.Background(), image, "image/jpeg")

	assert.True(t, res.Success)
	assert.Equal(t, "Walmart\nTotal: $45.67", res.Text)
	assert.Empty(t, res.Error)
}

func TestRecognizeText_NoTextDetected(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"responses": [{}]}`))
	})

	res := client.RecognizeText(context.Background(), []byte("blank"), "image/jpeg")

	assert.False(t, res.Success)
	assert.Equal(t, NoTextDetected, res.Error)
}

func TestRecognizeText_ProviderErrorPayload(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"responses": [{"error": {"message": "image too large"}}]}`))
	})

	res := client.RecognizeText(context.Background(), []byte("huge"), "image/jpeg")

	assert.False(t, res.Success)
	assert.Equal(t, "image too large", res.Error)
}

func TestRecognizeText_HTTPErrorStatus(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	})

	res := client.RecognizeText(context.Background(), []byte("img"), "image/jpeg")

	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "429")
	assert.Contains(t, res.Error, "quota exceeded")
}

func TestRecognizeText_TransportError(t *testing.T) {
	client, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	srv.Close()

	res := client.RecognizeText(context.Background(), []byte("img"), "image/jpeg")

	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)
}

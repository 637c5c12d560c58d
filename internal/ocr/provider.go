package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"expense_tracker/internal/apperr"
)

// NoTextDetected is the failure message for images the provider processed
// but found no text in. It is a normal outcome, not a provider fault.
const NoTextDetected = "No text detected in the image"

// RecognizeResult is the provider boundary's outcome value. Provider faults
// never surface as errors past this boundary; they come back as
// Success=false with the provider's message.
type RecognizeResult struct {
	Success bool   `json:"success"`
	Text    string `json:"text,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Recognizer converts raw image bytes into text.
type Recognizer interface {
	RecognizeText(ctx context.Context, image []byte, mimeType string) RecognizeResult
}

type ProviderConfig struct {
	CredentialsJSON string // inline credentials blob, wins over the file
	CredentialsFile string
	Endpoint        string
	HTTPClient      *http.Client
}

type visionCredentials struct {
	APIKey string `json:"api_key"`
}

// VisionClient calls the vision text-detection REST endpoint. Stateless per
// invocation; construct once and share.
type VisionClient struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewVisionClient reads credentials from the inline blob or the file path.
// Missing or unreadable credentials are a fatal configuration error.
func NewVisionClient(cfg ProviderConfig) (*VisionClient, error) {
	raw := []byte(cfg.CredentialsJSON)
	if len(raw) == 0 {
		if cfg.CredentialsFile == "" {
			return nil, apperr.Configurationf("vision credentials missing: set VISION_CREDENTIALS_JSON or VISION_CREDENTIALS_FILE")
		}
		fileData, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, apperr.Configurationf("read vision credentials file: %v", err)
		}
		raw = fileData
	}

	var creds visionCredentials
	if err := json.Unmarshal(raw, &creds); err != nil {
		return nil, apperr.Configurationf("parse vision credentials: %v", err)
	}
	if creds.APIKey == "" {
		return nil, apperr.Configurationf("vision credentials missing api_key")
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = "https://vision.googleapis.com/v1/images:annotate"
	}

	return &VisionClient{
		endpoint: endpoint,
		apiKey:   creds.APIKey,
		client:   client,
	}, nil
}

type annotateRequest struct {
	Requests []annotateEntry `json:"requests"`
}

type annotateEntry struct {
	Image    annotateImage     `json:"image"`
	Features []annotateFeature `json:"features"`
}

type annotateImage struct {
	Content string `json:"content"`
}

type annotateFeature struct {
	Type string `json:"type"`
}

type annotateResponse struct {
	Responses []struct {
		TextAnnotations []struct {
			Description string `json:"description"`
		} `json:"textAnnotations"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	} `json:"responses"`
}

// RecognizeText runs text detection on the given bytes. The mime type is
// informational; the provider sniffs the encoding from the content itself.
func (c *VisionClient) RecognizeText(ctx context.Context, image []byte, mimeType string) RecognizeResult {
	start := time.Now()

	reqBody := annotateRequest{
		Requests: []annotateEntry{{
			Image:    annotateImage{Content: base64.StdEncoding.EncodeToString(image)},
			Features: []annotateFeature{{Type: "TEXT_DETECTION"}},
		}},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return RecognizeResult{Success: false, Error: fmt.Sprintf("encode request: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"?key="+c.apiKey, bytes.NewReader(payload))
	if err != nil {
		return RecognizeResult{Success: false, Error: fmt.Sprintf("build request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		logrus.WithError(err).Error("Vision request failed")
		return RecognizeResult{Success: false, Error: err.Error()}
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)

	logrus.WithFields(logrus.Fields{
		"status":     resp.StatusCode,
		"bytes":      len(raw),
		"mime_type":  mimeType,
		"elapsed_ms": time.Since(start).Milliseconds(),
	}).Debug("Vision response received")

	if resp.StatusCode/100 != 2 {
		return RecognizeResult{Success: false, Error: fmt.Sprintf("vision api status %d: %s", resp.StatusCode, bytes.TrimSpace(raw))}
	}

	var parsed annotateResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return RecognizeResult{Success: false, Error: fmt.Sprintf("decode response: %v", err)}
	}
	if len(parsed.Responses) == 0 {
		return RecognizeResult{Success: false, Error: "empty vision response"}
	}

	first := parsed.Responses[0]
	if first.Error != nil {
		return RecognizeResult{Success: false, Error: first.Error.Message}
	}
	if len(first.TextAnnotations) == 0 {
		return RecognizeResult{Success: false, Error: NoTextDetected}
	}

	// The first annotation carries the full detected text block.
	return RecognizeResult{Success: true, Text: first.TextAnnotations[0].Description}
}

// Package gemini is the HTTP client for the external AI collaborators:
// card generation with structure coordinates, document analysis, and
// clean-plate image generation. The service is treated as opaque; this
// package only shapes requests and validates the JSON coming back.
package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sgchandra/anatomify/pkg/logger"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com"
	defaultModel   = "gemini-2.0-flash"

	maxRetries = 3
	retryDelay = 500 * time.Millisecond
)

type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

type Client struct {
	cfg    Config
	client *http.Client
	log    *logger.Logger
}

func NewClient(cfg Config, log *logger.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout == 0 {
		// Generous: vision requests against large diagrams are slow.
		cfg.Timeout = 120 * time.Second
	}

	return &Client{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		log: log,
	}
}

// request/response shapes for the generateContent endpoint.

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generationConfig struct {
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
	Temperature      float64 `json:"temperature"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text       string `json:"text"`
				InlineData *struct {
					MimeType string `json:"mimeType"`
					Data     string `json:"data"`
				} `json:"inlineData"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// generate sends one generateContent call and returns the parsed response.
// Transient failures are retried a fixed number of times with a short
// delay; retry policy beyond that belongs to the caller's collaborators,
// not this core.
func (c *Client) generate(ctx context.Context, req generateRequest) (*generateResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.cfg.BaseURL, c.cfg.Model, c.cfg.APIKey)

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			c.log.Debug("retrying service request (attempt %d/%d)", attempt+1, maxRetries)
			time.Sleep(retryDelay)
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to build request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(httpReq)
		if err != nil {
			lastErr = err
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("failed to read response: %w", err)
			continue
		}

		var parsed generateResponse
		parseErr := json.Unmarshal(respBody, &parsed)

		if resp.StatusCode != http.StatusOK || (parseErr == nil && parsed.Error != nil) {
			code := resp.StatusCode
			message := http.StatusText(resp.StatusCode)
			if parseErr == nil && parsed.Error != nil {
				code = parsed.Error.Code
				message = parsed.Error.Message
			}
			lastErr = fmt.Errorf("service error %d: %s", code, message)
			if !retryableStatus(code) {
				return nil, lastErr
			}
			continue
		}

		if parseErr != nil {
			lastErr = fmt.Errorf("failed to parse response: %w", parseErr)
			continue
		}

		return &parsed, nil
	}

	return nil, fmt.Errorf("after %d attempts: %w", maxRetries, lastErr)
}

// retryableStatus reports whether a failed call is worth repeating.
// Client errors such as a rejected API key fail the same way every time;
// only throttling, timeouts, and server-side failures get another attempt.
func retryableStatus(code int) bool {
	switch {
	case code == http.StatusTooManyRequests, code == http.StatusRequestTimeout:
		return true
	case code >= 500:
		return true
	}
	return false
}

// firstText returns the first text part of the first candidate.
func (r *generateResponse) firstText() (string, error) {
	for _, cand := range r.Candidates {
		for _, p := range cand.Content.Parts {
			if p.Text != "" {
				return p.Text, nil
			}
		}
	}
	return "", fmt.Errorf("response contains no text content")
}

// firstImage returns the bytes and media type of the first inline image
// part of the first candidate.
func (r *generateResponse) firstImage() ([]byte, string, error) {
	for _, cand := range r.Candidates {
		for _, p := range cand.Content.Parts {
			if p.InlineData != nil {
				data, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
				if err != nil {
					return nil, "", fmt.Errorf("failed to decode inline image: %w", err)
				}
				return data, p.InlineData.MimeType, nil
			}
		}
	}
	return nil, "", fmt.Errorf("response contains no image content")
}

func inlinePart(data []byte, mediaType string) part {
	return part{
		InlineData: &inlineData{
			MimeType: mediaType,
			Data:     base64.StdEncoding.EncodeToString(data),
		},
	}
}

package notes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Transcriber turns an audio reference into text. The concrete provider
// is external; tests and draft generation only depend on this interface.
type Transcriber interface {
	Transcribe(ctx context.Context, audioURL string) (string, error)
}

// HTTPTranscriber is a Transcriber backed by a provider's HTTP API.
type HTTPTranscriber struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

type transcribeResponse struct {
	Text string `json:"text"`
}

func (c *HTTPTranscriber) Transcribe(ctx context.Context, audioURL string) (string, error) {
	if c.Client == nil {
		c.Client = &http.Client{Timeout: 60 * time.Second}
	}
	if c.BaseURL == "" {
		return "", fmt.Errorf("transcriber: TRANSCRIPTION_URL is not set")
	}
	base := strings.TrimRight(c.BaseURL, "/")

	bodyBytes, _ := json.Marshal(map[string]interface{}{
		"audio_url": audioURL,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/v1/transcribe", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcriber request: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("transcriber error: status %d body: %s", resp.StatusCode, string(respBody))
	}

	var data transcribeResponse
	if err := json.Unmarshal(respBody, &data); err != nil {
		return "", fmt.Errorf("transcriber response decode: %w", err)
	}
	if data.Text == "" {
		return "", fmt.Errorf("transcriber returned empty text")
	}
	return data.Text, nil
}

// DraftGenerator rewrites a transcript into LinkedIn post variants. The
// LLM provider behind it is external to this core.
type DraftGenerator interface {
	Generate(ctx context.Context, transcript string, count int) ([]GeneratedDraft, error)
}

// GeneratedDraft is one rewritten variant.
type GeneratedDraft struct {
	Title string
	Body  string
}

// HTTPDraftGenerator is a DraftGenerator backed by the same provider API
// as HTTPTranscriber.
type HTTPDraftGenerator struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

type generateResponse struct {
	Variants []struct {
		Title string `json:"title"`
		Body  string `json:"body"`
	} `json:"variants"`
}

func (c *HTTPDraftGenerator) Generate(ctx context.Context, transcript string, count int) ([]GeneratedDraft, error) {
	if c.Client == nil {
		c.Client = &http.Client{Timeout: 60 * time.Second}
	}
	if c.BaseURL == "" {
		return nil, fmt.Errorf("draft generator: TRANSCRIPTION_URL is not set")
	}
	base := strings.TrimRight(c.BaseURL, "/")

	bodyBytes, _ := json.Marshal(map[string]interface{}{
		"transcript": transcript,
		"count":      count,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/v1/generate", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("draft generator request: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("draft generator error: status %d body: %s", resp.StatusCode, string(respBody))
	}

	var data generateResponse
	if err := json.Unmarshal(respBody, &data); err != nil {
		return nil, fmt.Errorf("draft generator response decode: %w", err)
	}
	out := make([]GeneratedDraft, 0, len(data.Variants))
	for _, v := range data.Variants {
		out = append(out, GeneratedDraft{Title: v.Title, Body: v.Body})
	}
	return out, nil
}

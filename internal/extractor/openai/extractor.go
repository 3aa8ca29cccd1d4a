// Package openai implements RecordExtractor over the OpenAI chat
// completions HTTP API.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sheriffdata/gazette-etl/internal/auction"
)

// Config captures the parameters for the chat completions endpoint.
type Config struct {
	BaseURL     string
	Model       string
	APIKey      string
	Timeout     time.Duration
	MaxTokens   int
	Temperature float64
}

// Extractor calls the chat completions API to turn one auction notice
// into structured fields. Safe for concurrent use.
type Extractor struct {
	hc          *http.Client
	url         string
	apiKey      string
	model       string
	maxTokens   int
	temperature float64
}

// New builds an Extractor.
func New(cfg Config) (*Extractor, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-3.5-turbo"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1500
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.1
	}
	return &Extractor{
		hc:          &http.Client{Timeout: cfg.Timeout},
		url:         strings.TrimRight(cfg.BaseURL, "/") + "/chat/completions",
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Extract sends the notice text with the field specifications and parses
// the model's JSON reply.
func (e *Extractor) Extract(ctx context.Context, recordText string) (auction.ExtractionResult, error) {
	body, err := json.Marshal(chatRequest{
		Model: e.model,
		Messages: []chatMessage{
			{Role: "system", Content: "You are a data extraction assistant. Return only valid JSON array."},
			{Role: "user", Content: buildPrompt(recordText)},
		},
		MaxTokens:   e.maxTokens,
		Temperature: e.temperature,
	})
	if err != nil {
		return auction.ExtractionResult{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return auction.ExtractionResult{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.hc.Do(req)
	if err != nil {
		return auction.ExtractionResult{}, fmt.Errorf("chat completions call: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return auction.ExtractionResult{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return auction.ExtractionResult{}, fmt.Errorf("chat completions status %d: %s", resp.StatusCode, truncate(string(raw), 200))
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return auction.ExtractionResult{}, fmt.Errorf("decode response: %w", err)
	}
	if parsed.Error != nil {
		return auction.ExtractionResult{}, fmt.Errorf("chat completions error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return auction.ExtractionResult{}, fmt.Errorf("chat completions returned no choices")
	}

	fields, err := parseFields(parsed.Choices[0].Message.Content)
	if err != nil {
		return auction.ExtractionResult{}, err
	}
	return auction.ExtractionResult{
		Fields:     fields,
		TokensUsed: parsed.Usage.TotalTokens,
	}, nil
}

// parseFields strips optional markdown fences and accepts either a JSON
// object or a one-element array, which the model produces interchangeably.
func parseFields(content string) (auction.Fields, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "[") {
		var arr []auction.Fields
		if err := json.Unmarshal([]byte(content), &arr); err != nil {
			return nil, fmt.Errorf("decode extraction array: %w", err)
		}
		if len(arr) == 0 {
			return nil, fmt.Errorf("extraction returned an empty array")
		}
		return arr[0], nil
	}
	var fields auction.Fields
	if err := json.Unmarshal([]byte(content), &fields); err != nil {
		return nil, fmt.Errorf("decode extraction object: %w", err)
	}
	return fields, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/kaptinlin/jsonrepair"
)

var (
	ErrGeneration      = errors.New("text generation failed")
	ErrMalformedOutput = errors.New("malformed model output")
)

// DefaultModels are the Groq models a request may be routed to
var DefaultModels = []string{"llama-3.1-8b-instant", "llama-3.3-70b-versatile"}

// Generator produces text from a system and a user message
type Generator interface {
	Generate(ctx context.Context, systemMessage, userMessage string) (string, error)
}

// ModelSelector picks the API key and model used for one request
type ModelSelector interface {
	Select() (apiKey, model string)
}

// RandomSelector spreads requests uniformly over keys and models
type RandomSelector struct {
	Keys   []string
	Models []string
}

func (s RandomSelector) Select() (string, string) {
	return s.Keys[rand.Intn(len(s.Keys))], s.Models[rand.Intn(len(s.Models))]
}

// FixedSelector always returns the same key and model
type FixedSelector struct {
	Key   string
	Model string
}

func (s FixedSelector) Select() (string, string) {
	return s.Key, s.Model
}

// Message represents a message in the chat
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request represents a chat completions request
type Request struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
}

// GroqClient calls the OpenAI-compatible Groq chat completions endpoint
type GroqClient struct {
	apiURL   string
	selector ModelSelector
	client   *http.Client
}

// NewGroqClient creates a client that picks a random key and model per call
func NewGroqClient(apiURL string, apiKeys []string) (*GroqClient, error) {
	if len(apiKeys) == 0 {
		return nil, fmt.Errorf("at least one Groq API key must be set")
	}
	return NewGroqClientWithSelector(apiURL, RandomSelector{Keys: apiKeys, Models: DefaultModels}), nil
}

// NewGroqClientWithSelector creates a client with an explicit selection strategy
func NewGroqClientWithSelector(apiURL string, selector ModelSelector) *GroqClient {
	return &GroqClient{
		apiURL:   apiURL,
		selector: selector,
		client:   &http.Client{Timeout: 60 * time.Second},
	}
}

// Generate sends one chat completion. Failures are returned, never retried.
func (g *GroqClient) Generate(ctx context.Context, systemMessage, userMessage string) (string, error) {
	apiKey, model := g.selector.Select()

	reqBody := Request{
		Model: model,
		Messages: []Message{
			{Role: "system", Content: systemMessage},
			{Role: "user", Content: userMessage},
		},
		Temperature: 0.6,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.apiURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read response: %v", ErrGeneration, err)
	}

	if resp.StatusCode != http.StatusOK {
		log.Printf("Groq request with model %s failed with status %d: %s", model, resp.StatusCode, string(body))
		return "", fmt.Errorf("%w: status %d", ErrGeneration, resp.StatusCode)
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("%w: failed to decode response: %v", ErrGeneration, err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in response", ErrGeneration)
	}

	return result.Choices[0].Message.Content, nil
}

// RepairAndParseJSON strips Markdown fences from model output, repairs the
// JSON and decodes it into v.
func RepairAndParseJSON(text string, v any) error {
	cleaned := strings.ReplaceAll(text, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return fmt.Errorf("%w: empty output", ErrMalformedOutput)
	}

	repaired, err := jsonrepair.JSONRepair(cleaned)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	if err := json.Unmarshal([]byte(repaired), v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	return nil
}

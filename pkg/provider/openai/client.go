// Package openai provides a provider.ModelClient backed by an
// OpenAI-compatible Chat Completions endpoint. It covers both hosted
// OpenAI and self-hosted backends (vLLM, Ollama, llama.cpp) that speak
// the same protocol.
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

	"github.com/tally-ai/tally/pkg/provider"
)

// Client performs HTTP requests against an OpenAI-compatible Chat
// Completions backend.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// Ensure Client implements provider.ModelClient at compile time.
var _ provider.ModelClient = (*Client)(nil)

// NewClient creates a Client for the given backend. A zero timeout
// selects 120s, sized for slow completions.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		apiKey:     apiKey,
	}
}

// Complete performs one non-streaming completion request.
func (c *Client) Complete(ctx context.Context, req *provider.Request) (*provider.Output, error) {
	chatReq := translateRequest(req)

	body, err := json.Marshal(chatReq)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	url := c.baseURL + "/v1/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("backend request: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(httpResp.Body, 512))
		return nil, fmt.Errorf("backend returned %d: %s", httpResp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var chatResp chatCompletionResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("parsing backend response: %w", err)
	}

	return translateResponse(&chatResp)
}

// translateRequest converts a provider.Request to the Chat Completions
// wire format.
func translateRequest(req *provider.Request) *chatCompletionRequest {
	out := &chatCompletionRequest{
		Model: req.Model,
	}

	for _, m := range req.Messages {
		msg := chatMessage{
			Role:       m.Role,
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
		}
		for _, tc := range m.ToolCalls {
			msg.ToolCalls = append(msg.ToolCalls, chatToolCall{
				ID:   tc.ID,
				Type: "function",
				Function: chatFunctionCall{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}
		out.Messages = append(out.Messages, msg)
	}

	for _, spec := range req.Tools {
		out.Tools = append(out.Tools, chatTool{
			Type: "function",
			Function: chatFunctionDef{
				Name:        spec.Name,
				Description: spec.Description,
				Parameters:  spec.Parameters,
			},
		})
	}

	if req.ToolChoice != "" {
		out.ToolChoice = req.ToolChoice
	}

	return out
}

// translateResponse converts a Chat Completions response to a
// provider.Output.
func translateResponse(resp *chatCompletionResponse) (*provider.Output, error) {
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("backend produced no choices")
	}

	msg := resp.Choices[0].Message
	out := &provider.Output{Text: msg.Content}

	for _, tc := range msg.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, provider.ToolCallPayload{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}

	return out, nil
}

package llm

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"chaintwin/logger"
)

// Tool describes a callable function offered to the model. Parameters is
// a JSON-schema properties map.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]any
	Required    []string
}

// ToolCall is a structured invocation requested by the model.
type ToolCall struct {
	Name string
	Args json.RawMessage
}

// Result is a model response: either plain text or a tool call.
type Result struct {
	Text string
	Call *ToolCall
}

type Client struct {
	ApiKey   string
	Model    string
	Provider string // "gemini" or "openrouter"
	BaseURL  string

	// Circuit Breaker State
	failureCount    int
	lastFailureTime time.Time
	circuitOpen     bool

	// Rate Limiting
	requestCount         int
	windowStart          time.Time
	maxRequestsPerMinute int

	// Fallback Client
	fallback *Client
}

func NewClient() *Client {
	var primary *Client
	var fallback *Client

	if key := os.Getenv("OPENROUTER_API_KEY"); key != "" {
		model := os.Getenv("OPENROUTER_MODEL")
		if model == "" {
			model = "x-ai/grok-beta"
		}
		logger.Info(logger.StatusOK, "Primary LLM: OpenRouter (%s)", model)
		primary = &Client{
			ApiKey:               key,
			Model:                model,
			Provider:             "openrouter",
			BaseURL:              "https://openrouter.ai/api/v1/chat/completions",
			maxRequestsPerMinute: 60,
			windowStart:          time.Now(),
		}
	}

	if geminiKey := os.Getenv("GEMINI_API_KEY"); geminiKey != "" {
		model := os.Getenv("GEMINI_MODEL")
		if model == "" {
			model = "gemini-1.5-flash"
		}
		logger.Info(logger.StatusOK, "Fallback LLM: Google Gemini (%s)", model)
		fallback = &Client{
			ApiKey:               geminiKey,
			Model:                model,
			Provider:             "gemini",
			BaseURL:              "https://generativelanguage.googleapis.com/v1beta/models",
			maxRequestsPerMinute: 60,
			windowStart:          time.Now(),
		}
	}

	if primary != nil {
		primary.fallback = fallback
		return primary
	}
	if fallback != nil {
		return fallback
	}

	logger.Error(logger.StatusErr, "No API keys configured (OPENROUTER_API_KEY or GEMINI_API_KEY)")
	return &Client{}
}

// --- Gemini Types ---
type part struct {
	Text         string        `json:"text,omitempty"`
	FunctionCall *functionCall `json:"functionCall,omitempty"`
}
type functionCall struct {
	Name string          `json:"name"`
	Args json.RawMessage `json:"args"`
}
type content struct {
	Parts []part `json:"parts"`
}
type functionDeclaration struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}
type geminiTool struct {
	FunctionDeclarations []functionDeclaration `json:"functionDeclarations"`
}
type generateRequest struct {
	Contents []content    `json:"contents"`
	Tools    []geminiTool `json:"tools,omitempty"`
}
type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int           `json:"code"`
		Message string        `json:"message"`
		Details []errorDetail `json:"details"`
	} `json:"error"`
}
type errorDetail struct {
	Type       string `json:"@type"`
	RetryDelay string `json:"retryDelay"`
}

// --- OpenRouter / OpenAI Types ---
type chatMessage struct {
	Role      string         `json:"role"`
	Content   string         `json:"content"`
	ToolCalls []chatToolCall `json:"tool_calls,omitempty"`
}
type chatToolCall struct {
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}
type chatTool struct {
	Type     string `json:"type"`
	Function struct {
		Name        string         `json:"name"`
		Description string         `json:"description"`
		Parameters  map[string]any `json:"parameters"`
	} `json:"function"`
}
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Tools    []chatTool    `json:"tools,omitempty"`
}
type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string      `json:"message"`
		Type    string      `json:"type"`
		Code    interface{} `json:"code"` // Can be int or string
	} `json:"error"`
}

// schema builds the JSON-schema object form of a tool's parameters.
func (t Tool) schema() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": t.Parameters,
		"required":   t.Required,
	}
}

// checkCircuitBreaker determines if the circuit is open (too many failures)
func (c *Client) checkCircuitBreaker() error {
	const cooldownPeriod = 60 * time.Second

	if c.circuitOpen {
		if time.Since(c.lastFailureTime) > cooldownPeriod {
			logger.Info(logger.StatusOK, "Circuit breaker cooling down, attempting reset...")
			c.circuitOpen = false
			c.failureCount = 0
		} else {
			return fmt.Errorf("circuit breaker OPEN - too many API failures. Retry after %v", cooldownPeriod-time.Since(c.lastFailureTime))
		}
	}

	return nil
}

// recordFailure increments failure count and potentially opens circuit
func (c *Client) recordFailure() {
	c.failureCount++
	c.lastFailureTime = time.Now()

	if c.failureCount >= 5 {
		c.circuitOpen = true
		logger.Warn(logger.StatusWarn, "CIRCUIT BREAKER OPENED after %d consecutive failures", c.failureCount)
	}
}

// recordSuccess resets failure counter
func (c *Client) recordSuccess() {
	if c.failureCount > 0 {
		logger.Info(logger.StatusOK, "API call succeeded, resetting failure count")
	}
	c.failureCount = 0
	c.circuitOpen = false
}

// enforceRateLimit checks and enforces request rate limiting
func (c *Client) enforceRateLimit() error {
	now := time.Now()

	if now.Sub(c.windowStart) > time.Minute {
		c.windowStart = now
		c.requestCount = 0
	}

	if c.requestCount >= c.maxRequestsPerMinute {
		waitTime := time.Minute - now.Sub(c.windowStart)
		return fmt.Errorf("rate limit exceeded (%d requests/min). Wait %v", c.maxRequestsPerMinute, waitTime)
	}

	c.requestCount++
	return nil
}

// Complete sends a plain prompt and returns the text response.
func (c *Client) Complete(prompt string) (string, error) {
	res, err := c.CompleteWithTools(prompt, nil)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

// CompleteWithTools sends a prompt with optional callable tools. The model
// answers either with plain text or with one tool invocation.
func (c *Client) CompleteWithTools(prompt string, tools []Tool) (*Result, error) {
	if c.ApiKey == "" {
		return nil, errors.New("API_KEY not set (OPENROUTER_API_KEY or GEMINI_API_KEY)")
	}

	if err := c.checkCircuitBreaker(); err != nil {
		if c.fallback != nil {
			logger.Warn(logger.StatusWarn, "Primary LLM circuit open, using fallback (%s)", c.fallback.Provider)
			return c.fallback.CompleteWithTools(prompt, tools)
		}
		return nil, err
	}

	if err := c.enforceRateLimit(); err != nil {
		if c.fallback != nil {
			logger.Warn(logger.StatusWarn, "Primary LLM rate limited, using fallback (%s)", c.fallback.Provider)
			return c.fallback.CompleteWithTools(prompt, tools)
		}
		return nil, err
	}

	var result *Result
	var err error

	if c.Provider == "openrouter" {
		result, err = c.completeOpenRouter(prompt, tools)
	} else {
		result, err = c.completeGemini(prompt, tools)
	}

	if err != nil {
		c.recordFailure()

		if c.fallback != nil {
			logger.Warn(logger.StatusWarn, "Primary LLM failed (%v), trying fallback (%s)", err, c.fallback.Provider)
			return c.fallback.CompleteWithTools(prompt, tools)
		}
	} else {
		c.recordSuccess()
	}

	return result, err
}

func (c *Client) completeOpenRouter(prompt string, tools []Tool) (*Result, error) {
	reqBody := chatRequest{
		Model: c.Model,
		Messages: []chatMessage{
			{Role: "user", Content: prompt},
		},
	}
	for _, t := range tools {
		var ct chatTool
		ct.Type = "function"
		ct.Function.Name = t.Name
		ct.Function.Description = t.Description
		ct.Function.Parameters = t.schema()
		reqBody.Tools = append(reqBody.Tools, ct)
	}
	jsonData, _ := json.Marshal(reqBody)

	maxRetries := 3
	for attempt := 0; attempt <= maxRetries; attempt++ {
		req, _ := http.NewRequest("POST", c.BaseURL, bytes.NewBuffer(jsonData))
		req.Header.Set("Authorization", "Bearer "+c.ApiKey)
		req.Header.Set("Content-Type", "application/json")

		client := &http.Client{Timeout: 60 * time.Second}
		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)

		if resp.StatusCode == 200 {
			var chatResp chatResponse
			if err := json.Unmarshal(body, &chatResp); err != nil {
				return nil, err
			}
			if len(chatResp.Choices) == 0 {
				return nil, errors.New("no content in OpenRouter response")
			}
			msg := chatResp.Choices[0].Message
			if len(msg.ToolCalls) > 0 {
				tc := msg.ToolCalls[0]
				return &Result{Call: &ToolCall{
					Name: tc.Function.Name,
					Args: json.RawMessage(tc.Function.Arguments),
				}}, nil
			}
			return &Result{Text: msg.Content}, nil
		}

		if resp.StatusCode == 429 {
			logger.Info(logger.StatusWait, "OpenRouter Rate Limit. Retrying in 5s...")
			time.Sleep(5 * time.Second)
			continue
		}

		return nil, fmt.Errorf("OpenRouter error %d: %s", resp.StatusCode, string(body))
	}
	return nil, errors.New("max retries exceeded")
}

func (c *Client) completeGemini(prompt string, tools []Tool) (*Result, error) {
	url := fmt.Sprintf("%s/%s:generateContent?key=%s", c.BaseURL, c.Model, c.ApiKey)

	reqBody := generateRequest{
		Contents: []content{
			{Parts: []part{{Text: prompt}}},
		},
	}
	if len(tools) > 0 {
		var gt geminiTool
		for _, t := range tools {
			gt.FunctionDeclarations = append(gt.FunctionDeclarations, functionDeclaration{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.schema(),
			})
		}
		reqBody.Tools = []geminiTool{gt}
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	maxRetries := 5
	var body []byte
	var resp *http.Response

	for attempt := 0; attempt <= maxRetries; attempt++ {
		resp, err = http.Post(url, "application/json", bytes.NewBuffer(jsonData))
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, _ = io.ReadAll(resp.Body)

		if resp.StatusCode == 200 {
			break
		}

		if resp.StatusCode == 429 || resp.StatusCode == 503 {
			if attempt == maxRetries {
				break
			}

			delay := time.Duration(5*(1<<attempt)) * time.Second

			var apiErr struct {
				Error struct {
					Details []errorDetail `json:"details"`
				} `json:"error"`
			}
			if json.Unmarshal(body, &apiErr) == nil {
				for _, detail := range apiErr.Error.Details {
					if strings.Contains(detail.Type, "RetryInfo") && detail.RetryDelay != "" {
						if d, err := time.ParseDuration(detail.RetryDelay); err == nil {
							delay = d + 500*time.Millisecond
						}
					}
				}
			}

			logger.Info(logger.StatusWait, "Rate limit (%d). Retrying in %v...", resp.StatusCode, delay)
			time.Sleep(delay)
			continue
		}

		msg := fmt.Sprintf("API request failed with status %d: %s", resp.StatusCode, string(body))
		if resp.StatusCode == 404 {
			msg += fmt.Sprintf("\n[Hint] Model '%s' not found.", c.Model)
		}
		return nil, errors.New(msg)
	}

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("API request failed after retries with status %d: %s", resp.StatusCode, string(body))
	}

	var genResp generateResponse
	if err := json.Unmarshal(body, &genResp); err != nil {
		return nil, err
	}

	if genResp.Error != nil {
		return nil, fmt.Errorf("API error: %s", genResp.Error.Message)
	}

	if len(genResp.Candidates) == 0 || len(genResp.Candidates[0].Content.Parts) == 0 {
		return nil, errors.New("no content generated")
	}

	for _, p := range genResp.Candidates[0].Content.Parts {
		if p.FunctionCall != nil {
			return &Result{Call: &ToolCall{
				Name: p.FunctionCall.Name,
				Args: p.FunctionCall.Args,
			}}, nil
		}
	}
	return &Result{Text: genResp.Candidates[0].Content.Parts[0].Text}, nil
}

package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"log/slog"

	openai "github.com/sashabaranov/go-openai"
)

var (
	// ErrMalformedOutput 表示模型完成了回應，但內容無法解析為預期的 JSON
	ErrMalformedOutput = errors.New("model output is not valid JSON")
)

// Request 描述一次模型呼叫的輸入
type Request struct {
	System      string
	User        string
	MaxTokens   int
	Temperature float32
}

// Client 包裝 OpenAI 相容的聊天補全 API。
// 所有呼叫都以 JSON 模式進行，瞬時錯誤會依設定自動重試，
// 等待時間隨嘗試次數線性增加。
type Client struct {
	api     *openai.Client
	model   string
	logger  *slog.Logger
	options clientOptions
}

type clientOptions struct {
	logger       *slog.Logger
	maxAttempts  int
	retryBackoff time.Duration
	timeout      time.Duration
}

type ClientOption func(*clientOptions)

// WithClientLogger 設置日誌記錄器
func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(o *clientOptions) {
		o.logger = logger
	}
}

// WithClientMaxAttempts 設置單次請求的最大嘗試次數
func WithClientMaxAttempts(attempts int) ClientOption {
	return func(o *clientOptions) {
		if attempts > 0 {
			o.maxAttempts = attempts
		}
	}
}

// WithClientRetryBackoff 設置重試等待時間的基準值
func WithClientRetryBackoff(backoff time.Duration) ClientOption {
	return func(o *clientOptions) {
		o.retryBackoff = backoff
	}
}

// WithClientTimeout 設置單次模型呼叫的超時時間
func WithClientTimeout(timeout time.Duration) ClientOption {
	return func(o *clientOptions) {
		o.timeout = timeout
	}
}

func NewClient(apiKey, baseURL, model string, opts ...ClientOption) *Client {
	// 默認選項
	options := clientOptions{
		logger:       slog.Default(),
		maxAttempts:  3,
		retryBackoff: 1500 * time.Millisecond,
		timeout:      90 * time.Second,
	}
	for _, opt := range opts {
		opt(&options)
	}

	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}

	return &Client{
		api:   openai.NewClientWithConfig(config),
		model: model,
		logger: options.logger.With(
			slog.String("caller", "LLMClient"),
			slog.String("model", model),
		),
		options: options,
	}
}

// GenerateJSON 以 JSON 模式呼叫模型並將結果反序列化到 out。
// 呼叫失敗或輸出無法解析時會重試，直到用盡嘗試次數為止。
func (c *Client) GenerateJSON(ctx context.Context, req Request, out any) error {
	const op = "GenerateJSON"

	var lastErr error
	for attempt := 0; attempt < c.options.maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * c.options.retryBackoff):
			}
		}

		if err := c.generateOnce(ctx, req, out); err != nil {
			lastErr = err
			c.logger.Warn("LLM call failed",
				slog.Int("attempt", attempt+1),
				slog.Any("error", err),
			)
			continue
		}
		return nil
	}
	return fmt.Errorf("[%s] Fail to complete LLM call after %d attempts, err=%w", op, c.options.maxAttempts, lastErr)
}

func (c *Client) generateOnce(ctx context.Context, req Request, out any) error {
	const op = "generateOnce"

	callCtx, cancel := context.WithTimeout(ctx, c.options.timeout)
	defer cancel()

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.User,
	})

	request := openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: messages,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}
	if req.MaxTokens > 0 {
		request.MaxTokens = req.MaxTokens
	}
	if req.Temperature > 0 {
		request.Temperature = req.Temperature
	}

	resp, err := c.api.CreateChatCompletion(callCtx, request)
	if err != nil {
		return fmt.Errorf("[%s] Fail to call chat completion, err=%w", op, err)
	}
	if len(resp.Choices) == 0 {
		return fmt.Errorf("[%s] Fail to get any completion choice", op)
	}

	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), out); err != nil {
		return fmt.Errorf("[%s] %w, err=%v", op, ErrMalformedOutput, err)
	}
	return nil
}

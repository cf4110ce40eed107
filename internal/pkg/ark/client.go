package ark

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/volcengine/volcengine-go-sdk/service/arkruntime"
	"github.com/volcengine/volcengine-go-sdk/service/arkruntime/model"

	"storyreel/internal/config"
)

const (
	// DefaultBaseURL Ark API 默认地址
	DefaultBaseURL = "https://ark.cn-beijing.volces.com/api/v3"
	// DefaultModel 默认模型
	DefaultModel = "doubao-seed-1-6-flash-250615"
)

// Client Ark 客户端封装
// 用于调用火山引擎的 Ark API（豆包大模型），使用官方 volcengine-go-sdk
type Client struct {
	client      *arkruntime.Client
	model       string
	maxTokens   int
	temperature float32
	mu          sync.Mutex
}

// NewClient 创建 Ark 客户端
func NewClient(cfg *config.AIConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Ark API key is required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	modelName := cfg.Model
	if modelName == "" {
		modelName = DefaultModel
	}

	arkClient := arkruntime.NewClientWithApiKey(cfg.APIKey, arkruntime.WithBaseUrl(baseURL))

	maxTokens := cfg.Options.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &Client{
		client:      arkClient,
		model:       modelName,
		maxTokens:   maxTokens,
		temperature: float32(cfg.Options.Temperature),
	}, nil
}

// Message 消息结构
type Message struct {
	Role    string `json:"role"`    // user, assistant, system
	Content string `json:"content"` // 消息内容
}

// CreateChatCompletion 创建聊天完成，返回第一个 choice 的内容
func (c *Client) CreateChatCompletion(ctx context.Context, messages []Message) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	input := &model.ChatCompletionRequest{
		Model:       c.model,
		Messages:    convertMessages(messages),
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}

	output, err := c.client.CreateChatCompletion(ctx, input)
	if err != nil {
		log.Error().Err(err).Str("model", c.model).Msg("failed to call Ark ChatCompletion API")
		return "", fmt.Errorf("Ark API call failed: %w", err)
	}
	if len(output.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}
	msg := output.Choices[0].Message
	if msg.Content == nil || msg.Content.StringValue == nil {
		return "", fmt.Errorf("empty message content in response")
	}
	return *msg.Content.StringValue, nil
}

// CreateChatCompletionSimple 简化版本的聊天完成（只需要 prompt）
func (c *Client) CreateChatCompletionSimple(ctx context.Context, prompt string) (string, error) {
	return c.CreateChatCompletion(ctx, []Message{{Role: "user", Content: prompt}})
}

func convertMessages(messages []Message) []*model.ChatCompletionMessage {
	result := make([]*model.ChatCompletionMessage, len(messages))
	for i := range messages {
		content := messages[i].Content
		result[i] = &model.ChatCompletionMessage{
			Role: messages[i].Role,
			Content: &model.ChatCompletionMessageContent{
				StringValue: &content,
			},
		}
	}
	return result
}

package providers

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"storyreel/internal/pkg/ark"
)

// EinoProvider Eino 封装的 LLM 提供者（默认使用）
// 使用 ai/component 封装的 ChatModel（openai / azure / ark）
// 实现了 episodetools.LLMProvider 接口
type EinoProvider struct {
	chatModel    model.ChatModel
	systemPrompt string
}

// NewEinoProvider 创建基于 Eino 的 LLM 提供者
//
// Args:
//   - chatModel: 通过 ai/component.NewChatModel 创建的 ChatModel 实例
//   - systemPrompt: 可选的系统提示词，为空时不发送
//
// Returns:
//   - *EinoProvider: LLM 提供者实例
func NewEinoProvider(chatModel model.ChatModel, systemPrompt string) *EinoProvider {
	return &EinoProvider{
		chatModel:    chatModel,
		systemPrompt: systemPrompt,
	}
}

// Generate 根据提示词生成文本（使用 eino ChatModel）
func (p *EinoProvider) Generate(ctx context.Context, prompt string) (string, error) {
	if p.chatModel == nil {
		return "", fmt.Errorf("chatModel is required")
	}

	messages := make([]*schema.Message, 0, 2)
	if p.systemPrompt != "" {
		messages = append(messages, schema.SystemMessage(p.systemPrompt))
	}
	messages = append(messages, schema.UserMessage(prompt))

	response, err := p.chatModel.Generate(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}
	if response == nil || response.Content == "" {
		return "", fmt.Errorf("empty response from chat model")
	}
	return response.Content, nil
}

// ArkProvider 直接使用 volcengine arkruntime SDK 的 LLM 提供者
// 实现了 episodetools.LLMProvider 接口
type ArkProvider struct {
	client *ark.Client
}

// NewArkProvider 创建基于 Ark SDK 的 LLM 提供者
func NewArkProvider(client *ark.Client) *ArkProvider {
	return &ArkProvider{client: client}
}

// Generate 根据提示词生成文本（使用 Ark 客户端）
func (p *ArkProvider) Generate(ctx context.Context, prompt string) (string, error) {
	if p.client == nil {
		return "", fmt.Errorf("ark client is required")
	}
	return p.client.CreateChatCompletionSimple(ctx, prompt)
}

package component

import (
	"context"
	"fmt"

	arkext "github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"

	"storyreel/internal/config"
	"storyreel/internal/pkg/ark"
	"storyreel/internal/pkg/episodetools"
	"storyreel/internal/pkg/episodetools/providers"
)

// 驱动类型
const (
	DriverEino       = "eino"
	DriverArkRuntime = "arkruntime"
)

// NewLLMProvider 按配置创建流水线使用的文本生成提供者
//
// Args:
//   - cfg.Driver 为 eino（默认）时经 eino ChatModel 调用，cfg.Provider 选择 openai / azure / ark
//   - cfg.Driver 为 arkruntime 时直接使用 volcengine SDK
//   - systemPrompt: 仅 eino 驱动生效
func NewLLMProvider(ctx context.Context, cfg *config.AIConfig, systemPrompt string) (episodetools.LLMProvider, error) {
	switch cfg.Driver {
	case DriverEino, "":
		chatModel, err := NewChatModel(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("create chat model: %w", err)
		}
		return providers.NewEinoProvider(chatModel, systemPrompt), nil
	case DriverArkRuntime:
		client, err := ark.NewClient(cfg)
		if err != nil {
			return nil, fmt.Errorf("create ark client: %w", err)
		}
		return providers.NewArkProvider(client), nil
	default:
		return nil, fmt.Errorf("unsupported AI driver: %s", cfg.Driver)
	}
}

// NewChatModel 创建 ChatModel
// 支持多种 Provider: openai, azure, ark
func NewChatModel(ctx context.Context, cfg *config.AIConfig) (model.ChatModel, error) {
	switch cfg.Provider {
	case "openai", "":
		return newOpenAIChatModel(ctx, cfg, false)
	case "azure":
		return newOpenAIChatModel(ctx, cfg, true)
	case "ark":
		return newArkChatModel(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported AI provider: %s", cfg.Provider)
	}
}

// sampling 从配置中取出非零的采样参数
type sampling struct {
	temperature *float32
	topP        *float32
	maxTokens   *int
}

func samplingFrom(opts config.AIOptionsConfig) sampling {
	var s sampling
	if opts.Temperature > 0 {
		v := float32(opts.Temperature)
		s.temperature = &v
	}
	if opts.TopP > 0 {
		v := float32(opts.TopP)
		s.topP = &v
	}
	if opts.MaxTokens > 0 {
		v := opts.MaxTokens
		s.maxTokens = &v
	}
	return s
}

func newOpenAIChatModel(ctx context.Context, cfg *config.AIConfig, byAzure bool) (model.ChatModel, error) {
	if byAzure && cfg.BaseURL == "" {
		return nil, fmt.Errorf("azure provider requires base_url")
	}
	s := samplingFrom(cfg.Options)
	return openai.NewChatModel(ctx, &openai.ChatModelConfig{
		Model:       cfg.Model,
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		ByAzure:     byAzure,
		Temperature: s.temperature,
		TopP:        s.topP,
		MaxTokens:   s.maxTokens,
	})
}

func newArkChatModel(ctx context.Context, cfg *config.AIConfig) (model.ChatModel, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = ark.DefaultBaseURL
	}
	modelName := cfg.Model
	if modelName == "" {
		modelName = ark.DefaultModel
	}

	s := samplingFrom(cfg.Options)
	return arkext.NewChatModel(ctx, &arkext.ChatModelConfig{
		Model:       modelName,
		APIKey:      cfg.APIKey,
		BaseURL:     baseURL,
		Temperature: s.temperature,
		TopP:        s.topP,
		MaxTokens:   s.maxTokens,
	})
}

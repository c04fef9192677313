package openai

import (
	"context"
	"errors"
	"fmt"

	"github.com/barekit/givingfaq/pkg/llm"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// DefaultModel is the chat model the FAQ assistant has always used.
const DefaultModel = openai.ChatModelGPT3_5Turbo

type Provider struct {
	client *openai.Client
	model  string
}

func New(opts ...option.RequestOption) *Provider {
	client := openai.NewClient(opts...)
	return &Provider{
		client: &client,
		model:  DefaultModel,
	}
}

// SetModel sets the model to use.
func (p *Provider) SetModel(model string) {
	if model != "" {
		p.model = model
	}
}

func (p *Provider) Chat(ctx context.Context, messages []llm.Message, opts ...llm.CallOption) (*llm.Message, error) {
	openaiMessages, err := buildMessages(messages)
	if err != nil {
		return nil, err
	}

	o := llm.ApplyOptions(opts...)
	params := openai.ChatCompletionNewParams{
		Messages: openaiMessages,
		Model:    p.model,
	}
	if o.Temperature != nil {
		params.Temperature = openai.Float(*o.Temperature)
	}
	if o.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(o.MaxTokens))
	}

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(completion.Choices) == 0 {
		return nil, errors.New("completion returned no choices")
	}

	return &llm.Message{
		Role:    llm.RoleAssistant,
		Content: completion.Choices[0].Message.Content,
	}, nil
}

func buildMessages(messages []llm.Message) ([]openai.ChatCompletionMessageParamUnion, error) {
	openaiMessages := make([]openai.ChatCompletionMessageParamUnion, len(messages))
	for i, msg := range messages {
		switch msg.Role {
		case llm.RoleSystem:
			openaiMessages[i] = openai.SystemMessage(msg.Content)
		case llm.RoleUser:
			openaiMessages[i] = openai.UserMessage(msg.Content)
		case llm.RoleAssistant:
			openaiMessages[i] = openai.AssistantMessage(msg.Content)
		default:
			return nil, fmt.Errorf("unknown role: %s", msg.Role)
		}
	}
	return openaiMessages, nil
}

package nodes

import (
	"context"
	"strings"

	"github.com/graphflow/engine/internal/domain/execution"
	"github.com/graphflow/engine/internal/domain/workflow"
	"github.com/graphflow/engine/internal/infrastructure/llm"
)

// LLMNodeData is the shape of an LLM node's configuration.
type LLMNodeData struct {
	Provider    string
	Model       string
	SystemText  string  // template, rendered against the pool
	PromptText  string  // template, rendered against the pool
	Temperature float32
	MaxTokens   int
}

// NewLLMConstructor returns a NodeConstructor that runs completions
// against clients, keyed by provider name ("anthropic", "openai", ...).
// It streams: every chunk the client reports is forwarded as a
// StreamChunk node event before the terminal RunResult is produced.
func NewLLMConstructor(clients map[string]llm.Client) execution.NodeConstructor {
	return func(cfg workflow.NodeConfig, _ execution.GraphInitParams) (execution.Node, error) {
		data := parseLLMData(cfg.Data)
		client, ok := clients[data.Provider]
		if !ok {
			return nil, &unsupportedProviderError{provider: data.Provider}
		}
		return &llmNode{id: cfg.ID, data: data, client: client}, nil
	}
}

type llmNode struct {
	id     string
	data   LLMNodeData
	client llm.Client
}

func (n *llmNode) ID() string              { return n.id }
func (n *llmNode) Type() workflow.NodeType { return workflow.NodeTypeLLM }

func (n *llmNode) Run(ctx context.Context, pool *execution.VariablePool) (<-chan execution.NodeEvent, func() *execution.RunResult) {
	events := make(chan execution.NodeEvent)
	var result *execution.RunResult
	done := make(chan struct{})

	go func() {
		defer close(events)
		defer close(done)

		messages := []llm.Message{}
		if n.data.SystemText != "" {
			messages = append(messages, llm.Message{Role: "system", Content: renderTemplate(n.data.SystemText, pool)})
		}
		messages = append(messages, llm.Message{Role: "user", Content: renderTemplate(n.data.PromptText, pool)})

		req := llm.CompletionRequest{
			Model:       n.data.Model,
			Messages:    messages,
			Temperature: n.data.Temperature,
			MaxTokens:   n.data.MaxTokens,
			Stream:      true,
		}

		var builder strings.Builder
		resp, err := n.client.CompleteStream(ctx, req, func(chunk llm.StreamChunk) error {
			builder.WriteString(chunk.Content)
			select {
			case events <- execution.StreamChunk{Text: chunk.Content, IsFinal: chunk.FinishReason != ""}:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		if err != nil {
			result = failed(err)
			return
		}

		content := resp.Content
		if content == "" {
			content = builder.String()
		}

		result = &execution.RunResult{
			Status:  execution.RunStatusSucceeded,
			Outputs: map[string]interface{}{"text": content},
			LLMUsage: &execution.LLMUsage{
				PromptTokens:     resp.Usage.PromptTokens,
				CompletionTokens: resp.Usage.CompletionTokens,
				TotalTokens:      resp.Usage.TotalTokens,
			},
		}
	}()

	return events, func() *execution.RunResult {
		<-done
		return result
	}
}

func parseLLMData(data map[string]interface{}) LLMNodeData {
	get := func(k string) string {
		s, _ := data[k].(string)
		return s
	}
	temp := float32(0.7)
	if f, ok := data["temperature"].(float64); ok {
		temp = float32(f)
	}
	maxTokens := 1024
	if m, ok := data["max_tokens"].(float64); ok {
		maxTokens = int(m)
	}
	return LLMNodeData{
		Provider:    get("provider"),
		Model:       get("model"),
		SystemText:  get("system_text"),
		PromptText:  get("prompt_text"),
		Temperature: temp,
		MaxTokens:   maxTokens,
	}
}

type unsupportedProviderError struct{ provider string }

func (e *unsupportedProviderError) Error() string {
	return "nodes: no LLM client registered for provider " + e.provider
}

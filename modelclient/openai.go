package modelclient

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"deepagent/agent"
)

const (
	defaultBaseURL  = "https://api.openai.com/v1"
	defaultEndpoint = "/chat/completions"
	defaultTimeout  = 60 * time.Second
)

// Config configures an Adapter.
type Config struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
}

// Adapter implements agent.Model over an OpenAI-compatible chat-completions
// streaming endpoint, assembling the provider's server-sent-event deltas
// into whole Blocks via a BlockAssembler before returning.
type Adapter struct {
	apiKey      string
	model       string
	endpointURL string
	httpClient  *http.Client
}

var _ agent.Model = (*Adapter)(nil)

// New validates cfg and returns a ready Adapter.
func New(cfg Config) (*Adapter, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("modelclient: api key is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		return nil, fmt.Errorf("modelclient: model is required")
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Adapter{
		apiKey:      apiKey,
		model:       model,
		endpointURL: strings.TrimRight(baseURL, "/") + defaultEndpoint,
		httpClient:  httpClient,
	}, nil
}

// Generate issues a streaming chat-completions request and assembles the
// response into one assistant Message. A connection error, 5xx status, or
// truncated stream is wrapped in agent.ErrModelTransient so the driver's
// retry policy applies; any other non-2xx status and a malformed tool-call
// argument payload are not transient and propagate unwrapped.
func (a *Adapter) Generate(ctx context.Context, request agent.ModelRequest) (agent.Message, error) {
	payload, err := buildRequest(a.model, request)
	if err != nil {
		return agent.Message{}, fmt.Errorf("modelclient: build request: %w", err)
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return agent.Message{}, fmt.Errorf("modelclient: encode request: %w", err)
	}

	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpointURL, bytes.NewReader(encoded))
	if err != nil {
		return agent.Message{}, fmt.Errorf("modelclient: build http request: %w", err)
	}
	httpRequest.Header.Set("Authorization", "Bearer "+a.apiKey)
	httpRequest.Header.Set("Content-Type", "application/json")
	httpRequest.Header.Set("Accept", "text/event-stream")

	response, err := a.httpClient.Do(httpRequest)
	if err != nil {
		return agent.Message{}, fmt.Errorf("%w: request execute: %v", agent.ErrModelTransient, err)
	}
	defer response.Body.Close()

	if response.StatusCode >= http.StatusInternalServerError {
		body, _ := io.ReadAll(io.LimitReader(response.Body, 64<<10))
		return agent.Message{}, fmt.Errorf("%w: provider status=%d body=%s", agent.ErrModelTransient, response.StatusCode, string(body))
	}
	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(response.Body, 64<<10))
		return agent.Message{}, fmt.Errorf("modelclient: provider status=%d body=%s", response.StatusCode, string(body))
	}

	message, err := assembleStream(response.Body)
	if err != nil {
		return agent.Message{}, err
	}
	return message, nil
}

func assembleStream(body io.Reader) (agent.Message, error) {
	assembler := NewBlockAssembler()
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4<<20)

	var openToolIndex = -1
	sawDone := false

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			sawDone = true
			break
		}

		var chunk chatCompletionChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return agent.Message{}, fmt.Errorf("modelclient: decode stream chunk: %w", err)
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		choice := chunk.Choices[0]
		delta := choice.Delta

		if delta.Content != "" {
			if openToolIndex != -1 {
				if err := assembler.Push(StreamEvent{Kind: StreamEventBlockEnd}); err != nil {
					return agent.Message{}, err
				}
				openToolIndex = -1
			}
			if err := assembler.Push(StreamEvent{Kind: StreamEventTextDelta, Text: delta.Content}); err != nil {
				return agent.Message{}, err
			}
		}

		for _, tc := range delta.ToolCalls {
			if tc.Index != openToolIndex {
				if openToolIndex != -1 {
					if err := assembler.Push(StreamEvent{Kind: StreamEventBlockEnd}); err != nil {
						return agent.Message{}, err
					}
				}
				openToolIndex = tc.Index
				if err := assembler.Push(StreamEvent{
					Kind:        StreamEventToolUseStart,
					ToolUseID:   tc.ID,
					ToolUseName: tc.Function.Name,
				}); err != nil {
					return agent.Message{}, err
				}
			}
			if tc.Function.Arguments != "" {
				if err := assembler.Push(StreamEvent{Kind: StreamEventToolUseInputDelta, InputDelta: tc.Function.Arguments}); err != nil {
					return agent.Message{}, err
				}
			}
		}

		if choice.FinishReason != "" {
			if openToolIndex != -1 {
				if err := assembler.Push(StreamEvent{Kind: StreamEventBlockEnd}); err != nil {
					return agent.Message{}, err
				}
				openToolIndex = -1
			}
			if err := assembler.Push(StreamEvent{Kind: StreamEventStopReason, StopReason: choice.FinishReason}); err != nil {
				return agent.Message{}, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return agent.Message{}, fmt.Errorf("%w: stream read: %v", agent.ErrModelTransient, err)
	}
	if !sawDone {
		return agent.Message{}, fmt.Errorf("%w: stream truncated before [DONE]", agent.ErrModelTransient)
	}
	return assembler.Message()
}

type chatCompletionRequest struct {
	Model    string        `json:"model"`
	Stream   bool          `json:"stream"`
	Messages []chatMessage `json:"messages"`
	Tools    []chatTool    `json:"tools,omitempty"`
}

type chatMessage struct {
	Role       string         `json:"role"`
	Content    string         `json:"content,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
	ToolCalls  []chatToolCall `json:"tool_calls,omitempty"`
}

type chatTool struct {
	Type     string           `json:"type"`
	Function chatToolFunction `json:"function"`
}

type chatToolFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

type chatToolCall struct {
	ID       string               `json:"id"`
	Type     string               `json:"type"`
	Function chatToolCallFunction `json:"function"`
}

type chatToolCallFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments,omitempty"`
}

type chatCompletionChunk struct {
	Choices []chatChunkChoice `json:"choices"`
}

type chatChunkChoice struct {
	Delta        chatChunkDelta `json:"delta"`
	FinishReason string         `json:"finish_reason"`
}

type chatChunkDelta struct {
	Content   string              `json:"content,omitempty"`
	ToolCalls []chatChunkToolCall `json:"tool_calls,omitempty"`
}

type chatChunkToolCall struct {
	Index    int                  `json:"index"`
	ID       string               `json:"id,omitempty"`
	Function chatToolCallFunction `json:"function"`
}

func buildRequest(model string, request agent.ModelRequest) (chatCompletionRequest, error) {
	messages := make([]chatMessage, 0, len(request.Messages)+1)
	if strings.TrimSpace(request.SystemPrompt) != "" {
		messages = append(messages, chatMessage{Role: "system", Content: request.SystemPrompt})
	}
	for _, msg := range request.Messages {
		converted, err := toChatMessages(msg)
		if err != nil {
			return chatCompletionRequest{}, err
		}
		messages = append(messages, converted...)
	}

	tools := make([]chatTool, len(request.Tools))
	for i, def := range request.Tools {
		tools[i] = chatTool{
			Type: "function",
			Function: chatToolFunction{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  def.InputSchema,
			},
		}
	}

	return chatCompletionRequest{Model: model, Stream: true, Messages: messages, Tools: tools}, nil
}

// toChatMessages converts one transcript Message to zero or more provider
// messages: a user message carrying ToolResult blocks becomes one provider
// "tool" message per block, since the provider's wire format has no
// equivalent of a single message batching multiple tool observations.
func toChatMessages(msg agent.Message) ([]chatMessage, error) {
	switch msg.Role {
	case agent.RoleUser:
		var toolResults []agent.Block
		var text strings.Builder
		for _, block := range msg.Content {
			switch block.Kind {
			case agent.BlockKindToolResult:
				toolResults = append(toolResults, block)
			case agent.BlockKindText:
				text.WriteString(block.Text)
			}
		}
		if len(toolResults) > 0 {
			out := make([]chatMessage, len(toolResults))
			for i, block := range toolResults {
				content, err := toolResultContent(block)
				if err != nil {
					return nil, err
				}
				out[i] = chatMessage{Role: "tool", ToolCallID: block.ID, Content: content}
			}
			return out, nil
		}
		return []chatMessage{{Role: "user", Content: text.String()}}, nil

	case agent.RoleAssistant:
		var text strings.Builder
		var toolCalls []chatToolCall
		for _, block := range msg.Content {
			switch block.Kind {
			case agent.BlockKindText:
				text.WriteString(block.Text)
			case agent.BlockKindToolUse:
				arguments := "{}"
				if len(block.Input) > 0 {
					encoded, err := json.Marshal(block.Input)
					if err != nil {
						return nil, fmt.Errorf("modelclient: encode tool_use %q input: %w", block.Name, err)
					}
					arguments = string(encoded)
				}
				toolCalls = append(toolCalls, chatToolCall{
					ID:       block.ID,
					Type:     "function",
					Function: chatToolCallFunction{Name: block.Name, Arguments: arguments},
				})
			}
		}
		return []chatMessage{{Role: "assistant", Content: text.String(), ToolCalls: toolCalls}}, nil

	default:
		return nil, fmt.Errorf("modelclient: unsupported message role %q", msg.Role)
	}
}

func toolResultContent(block agent.Block) (string, error) {
	if text, ok := block.Payload.(string); ok {
		return text, nil
	}
	encoded, err := json.Marshal(block.Payload)
	if err != nil {
		return "", fmt.Errorf("modelclient: encode tool_result %q payload: %w", block.ID, err)
	}
	return string(encoded), nil
}

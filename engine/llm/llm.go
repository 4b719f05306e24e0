// Package llm generates answers with the Google GenAI chat models. The
// Chatter interface is the only surface the answer pipeline and the TUI
// see, mirroring how embed.Client hides embedding providers.
package llm

import "context"

// Conversation roles.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Message is one prior turn of a conversation.
type Message struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// Request is a single completion call. Zero Temperature and MaxTokens leave
// the model defaults in place.
type Request struct {
	System      string
	History     []Message
	Prompt      string
	Temperature float32
	MaxTokens   int32
}

// Usage reports token consumption of one call.
type Usage struct {
	PromptTokens int32 `json:"prompt_tokens"`
	OutputTokens int32 `json:"output_tokens"`
	TotalTokens  int32 `json:"total_tokens"`
}

// Completion is a finished model response.
type Completion struct {
	Text  string `json:"text"`
	Model string `json:"model"`
	Usage Usage  `json:"usage"`
}

// Chunk is one fragment of a streamed response. A non-nil Err is terminal;
// the channel closes after it.
type Chunk struct {
	Text  string
	Usage *Usage
	Err   error
}

// Chatter generates answers from a prompt plus conversation history.
type Chatter interface {
	// Name identifies the provider and model for logs and responses.
	Name() string
	// Complete returns the whole answer at once.
	Complete(ctx context.Context, req Request) (Completion, error)
	// Stream emits the answer incrementally. The channel closes when the
	// model finishes or after a terminal error chunk.
	Stream(ctx context.Context, req Request) (<-chan Chunk, error)
}

package types

// MessageRole defines the role of a message participant in a model conversation.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"    // RoleSystem indicates instructions that frame the model's behavior.
	RoleUser      MessageRole = "user"      // RoleUser indicates content supplied on behalf of the caller.
	RoleAssistant MessageRole = "assistant" // RoleAssistant indicates content produced by the model.
)

// Message represents a single message exchanged with a text-generation model.
type Message struct {
	// Role indicates who authored the message.
	Role MessageRole

	// Content is the message text.
	Content string
}

// NewSystemMessage creates a system message with the given content.
func NewSystemMessage(content string) *Message {
	return &Message{Role: RoleSystem, Content: content}
}

// NewUserMessage creates a user message with the given content.
func NewUserMessage(content string) *Message {
	return &Message{Role: RoleUser, Content: content}
}

// NewAssistantMessage creates an assistant message with the given content.
func NewAssistantMessage(content string) *Message {
	return &Message{Role: RoleAssistant, Content: content}
}

// ModelInfo describes the text-generation model behind a provider.
type ModelInfo struct {
	// Metadata holds provider-specific details such as a custom base URL.
	Metadata map[string]interface{}

	// Name is the model identifier, e.g. "gpt-4o".
	Name string

	// Provider is the provider family, e.g. "openai".
	Provider string

	// MaxTokens is the model's context window size in tokens.
	MaxTokens int

	// SupportsStreaming indicates whether the provider can stream responses.
	SupportsStreaming bool
}

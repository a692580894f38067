// Package tokenizer provides token counting for prompt budgeting.
package tokenizer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
	"github.com/webpilot-ai/webpilot/pkg/types"
)

const (
	// encodingName is the BPE encoding used for counting. cl100k_base covers
	// the GPT-4 family closely enough for budgeting purposes.
	encodingName = "cl100k_base"

	// messageOverheadTokens approximates the per-message framing cost of the
	// chat-completions format.
	messageOverheadTokens = 4
)

// Tokenizer counts tokens the way the chat-completions API will.
type Tokenizer struct {
	encoding *tiktoken.Tiktoken
}

// New creates a Tokenizer. It returns an error when the encoding data cannot
// be loaded; callers that only need a rough budget can fall back to Estimate.
func New() (*Tokenizer, error) {
	enc, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s encoding: %w", encodingName, err)
	}
	return &Tokenizer{encoding: enc}, nil
}

// CountTokens returns the number of tokens in text.
func (t *Tokenizer) CountTokens(text string) int {
	if text == "" {
		return 0
	}
	return len(t.encoding.EncodeOrdinary(text))
}

// CountMessagesTokens returns the token count of a full message list,
// including per-message framing overhead.
func (t *Tokenizer) CountMessagesTokens(messages []*types.Message) int {
	total := 0
	for _, msg := range messages {
		if msg == nil {
			continue
		}
		total += t.CountTokens(msg.Content) + messageOverheadTokens
	}
	return total
}

// Estimate approximates the token count of text without an encoding, using
// the ~4 characters per token rule of thumb for English prose.
func Estimate(text string) int {
	if text == "" {
		return 0
	}
	return len(text)/4 + 1
}

// Package llm provides abstractions for text-generation provider integration.
//
// Example usage:
//
//	package main
//
//	import (
//	    "context"
//	    "fmt"
//	    "log"
//	    "os"
//
//	    "github.com/webpilot-ai/webpilot/pkg/llm/openai"
//	    "github.com/webpilot-ai/webpilot/pkg/types"
//	)
//
//	func main() {
//	    provider, err := openai.NewProvider(
//	        os.Getenv("OPENAI_API_KEY"),
//	        openai.WithModel("gpt-4o"),
//	    )
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    messages := []*types.Message{
//	        types.NewUserMessage("Summarize this page."),
//	    }
//
//	    msg, err := provider.Complete(context.Background(), messages)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(msg.Content)
//	}
package llm

import (
	"context"

	"github.com/webpilot-ai/webpilot/pkg/types"
)

// Provider defines the interface for text-generation integrations.
//
// Providers handle API communication with model services and return simple
// StreamChunk instances. This keeps providers focused on transport concerns
// without coupling them to selector resolution or report compilation, the two
// consumers in this engine. Both consumers treat a provider as optional:
// absence or failure degrades behavior, it never aborts a run.
type Provider interface {
	// StreamCompletion sends messages to the model and streams back response
	// chunks.
	//
	// The returned channel emits StreamChunk instances:
	// - First chunk typically has Role set (e.g., "assistant")
	// - Subsequent chunks contain Content deltas
	// - Final chunk has Finished=true
	// - Error chunks have Error set
	//
	// The channel is closed when streaming completes or an error occurs.
	// Callers should continue reading until the channel is closed.
	//
	// Returns an error only if streaming cannot be initiated (e.g., invalid
	// configuration, network unavailable). Stream-time errors are sent as
	// StreamChunk instances with Error set.
	StreamCompletion(ctx context.Context, messages []*types.Message) (<-chan *StreamChunk, error)

	// Complete sends messages to the model and returns the full response.
	//
	// This is a convenience wrapper around StreamCompletion for the
	// single-shot calls this engine makes. It accumulates all chunks and
	// returns the complete message.
	Complete(ctx context.Context, messages []*types.Message) (*types.Message, error)

	// GetModelInfo returns information about the model being used.
	GetModelInfo() *types.ModelInfo

	// GetModel returns the model name being used.
	GetModel() string
}

package llm

// StreamChunk is a single increment of a streamed model response.
//
// A chunk carries at most one of: a content delta, a terminal Finished
// marker, or an Error. The Role is set on the first chunk of a stream.
type StreamChunk struct {
	// Error is set when the stream failed mid-flight.
	Error error

	// Content is the text delta for this chunk.
	Content string

	// Role is the speaker role reported by the model, usually "assistant".
	Role string

	// Finished is true on the final chunk of a successful stream.
	Finished bool
}

// IsError returns true if this chunk carries a stream error.
func (c *StreamChunk) IsError() bool {
	return c.Error != nil
}

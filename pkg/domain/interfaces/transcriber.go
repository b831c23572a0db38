package interfaces

import "context"

// Transcriber converts raw audio into plain transcript text. The upstream
// may be a multi-step polling protocol; this core only consumes the final
// text and optional timestamps stay opaque to it.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

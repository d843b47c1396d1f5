package transcriber

import "context"

// Transcriber recognizes speech in a single audio artifact. Implementations
// may block for the whole model invocation; callers treat an error as "no
// transcript produced", never as fatal.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath, language string) (string, error)
}

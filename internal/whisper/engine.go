// Package whisper loads speech-to-text models and runs transcriptions against
// them. The numerical work happens in an external engine; this package only
// resolves model assets, picks the execution device and drives the engine.
package whisper

import "context"

// Options are per-call transcription settings. An empty Language lets the
// engine detect the spoken language.
type Options struct {
	HalfPrecision bool
	Language      string
}

type Result struct {
	Text     string
	Language string
}

// Model is a loaded model handle. Implementations must be safe for
// concurrent use; the HTTP layer shares one handle across all requests.
type Model interface {
	Transcribe(ctx context.Context, audioPath string, opts Options) (Result, error)
}

// Loader creates a model handle for the named model on the given device.
type Loader interface {
	Load(ctx context.Context, name string, device Device) (Model, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context, name string, device Device) (Model, error)

func (f LoaderFunc) Load(ctx context.Context, name string, device Device) (Model, error) {
	return f(ctx, name, device)
}

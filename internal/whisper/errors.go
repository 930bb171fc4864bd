package whisper

import "errors"

var (
	// ErrModelLoad marks failures while loading a model at startup.
	ErrModelLoad = errors.New("model load failed")
	// ErrModelNotReady is returned when a transcription is attempted before
	// a model handle exists.
	ErrModelNotReady = errors.New("model not loaded")
	// ErrTranscription marks failures inside the engine call.
	ErrTranscription = errors.New("transcription failed")
)

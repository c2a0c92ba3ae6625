// Package services defines the narrow contracts for the external
// transcription, translation, and speech-synthesis backends, plus local
// placeholder implementations used until real providers are wired in.
package services

import "context"

// Transcriber converts an extracted audio track into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// Translator translates text into the target language. Implementations
// must preserve the full text - no silent truncation.
type Translator interface {
	Translate(ctx context.Context, text, targetLanguage string) (string, error)
}

// Synthesizer converts one chunk of text into an audio byte stream.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, language string) ([]byte, error)
}

package services

import (
	"context"
	"fmt"
	"os"
)

// The local implementations below stand in for the real transcription,
// translation, and TTS providers. They honor the same contracts, so
// swapping a provider in is a construction-time change only.

// LocalTranscriber returns a canned transcript after verifying the
// extracted audio artifact exists.
type LocalTranscriber struct{}

const placeholderTranscript = "This is a sample transcription text. " +
	"Once a speech recognition backend is configured, the actual speech " +
	"content of the video appears here. This text is translated to the " +
	"selected language and converted to speech for dubbing the video."

func (LocalTranscriber) Transcribe(ctx context.Context, audioPath string) (string, error) {
	if _, err := os.Stat(audioPath); err != nil {
		return "", fmt.Errorf("extracted audio missing: %w", err)
	}
	return placeholderTranscript, nil
}

// LocalTranslator prefixes the text with a greeting in the target
// language, leaving the body intact.
type LocalTranslator struct{}

var greetings = map[string]string{
	"es":    "¡Hola! ",
	"fr":    "Bonjour! ",
	"de":    "Hallo! ",
	"it":    "Ciao! ",
	"ja":    "こんにちは! ",
	"ko":    "안녕하세요! ",
	"pt":    "Olá! ",
	"ru":    "Привет! ",
	"zh-CN": "你好! ",
}

func (LocalTranslator) Translate(ctx context.Context, text, targetLanguage string) (string, error) {
	greeting, ok := greetings[targetLanguage]
	if !ok {
		return text, nil
	}
	return greeting + text, nil
}

// LocalSynthesizer produces a deterministic placeholder byte stream for
// each chunk. The pipeline's chunk-and-concatenate handling is identical
// for a real TTS backend.
type LocalSynthesizer struct{}

func (LocalSynthesizer) Synthesize(ctx context.Context, text, language string) ([]byte, error) {
	if text == "" {
		return nil, fmt.Errorf("empty synthesis input")
	}
	header := fmt.Sprintf("TTS[%s:%d]", language, len(text))
	return append([]byte(header), []byte(text)...), nil
}

package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msayyed72/videodubber-be/internal/dubbing/domain"
	"github.com/msayyed72/videodubber-be/internal/dubbing/services"
)

// markerSynthesizer emits one marker byte per call, so chunk ordering is
// visible in the concatenated output.
type markerSynthesizer struct {
	calls   int
	failOn  int // 1-based call number to fail on, 0 means never
	markers string
}

func (m *markerSynthesizer) Synthesize(ctx context.Context, text, language string) ([]byte, error) {
	m.calls++
	if m.failOn != 0 && m.calls == m.failOn {
		return nil, errors.New("tts quota exceeded")
	}
	marker := byte('A' + m.calls - 1)
	m.markers += string(marker)
	return []byte{marker}, nil
}

func longTranslation(chars int) string {
	sentence := strings.Repeat("w", 97) + ". " // 99 chars per sentence
	var b strings.Builder
	for b.Len() < chars {
		b.WriteString(sentence)
	}
	return b.String()
}

func testJob(translation string) *domain.Job {
	job := domain.NewJob("clip.mp4", "es")
	if translation != "" {
		job.Translation = &translation
	}
	return job
}

func TestGenerateStage_SingleChunk(t *testing.T) {
	dir := t.TempDir()
	synth := &markerSynthesizer{}
	stage := &generateStage{synthesizer: synth, uploadDir: dir}

	job := testJob("short translation.")
	out, err := stage.Execute(context.Background(), job)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, job.ID+"_audio.mp3"), out.AudioPath)
	data, err := os.ReadFile(out.AudioPath)
	require.NoError(t, err)
	assert.Equal(t, "A", string(data))
	assert.Equal(t, 1, synth.calls)
}

func TestGenerateStage_ChunksConcatenatedInOrder(t *testing.T) {
	dir := t.TempDir()
	synth := &markerSynthesizer{}
	stage := &generateStage{synthesizer: synth, uploadDir: dir}

	job := testJob(longTranslation(12000))
	out, err := stage.Execute(context.Background(), job)
	require.NoError(t, err)

	data, err := os.ReadFile(out.AudioPath)
	require.NoError(t, err)
	require.GreaterOrEqual(t, synth.calls, 3)
	assert.Equal(t, synth.markers, string(data), "chunk audio out of order")

	// Per-chunk temp files were removed after concatenation.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, filepath.Base(out.AudioPath), entries[0].Name())
}

func TestGenerateStage_ChunkFailureCleansPartials(t *testing.T) {
	dir := t.TempDir()
	synth := &markerSynthesizer{failOn: 2}
	stage := &generateStage{synthesizer: synth, uploadDir: dir}

	job := testJob(longTranslation(12000))
	_, err := stage.Execute(context.Background(), job)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrSpeechSynthesis)

	// Neither the partial chunk files nor the output survive.
	entries, readErr := os.ReadDir(dir)
	require.NoError(t, readErr)
	assert.Empty(t, entries)
}

func TestGenerateStage_NoTranslation(t *testing.T) {
	stage := &generateStage{synthesizer: &markerSynthesizer{}, uploadDir: t.TempDir()}

	_, err := stage.Execute(context.Background(), testJob(""))
	assert.ErrorIs(t, err, domain.ErrSpeechSynthesis)
}

func TestTranscribeStage_EmptyTranscript(t *testing.T) {
	stage := &transcribeStage{transcriber: emptyTranscriber{}}

	_, err := stage.Execute(context.Background(), testJob(""))
	assert.ErrorIs(t, err, domain.ErrTranscription)
}

type emptyTranscriber struct{}

func (emptyTranscriber) Transcribe(ctx context.Context, audioPath string) (string, error) {
	return "", nil
}

func TestTranslateStage_UsesTargetLanguage(t *testing.T) {
	stage := &translateStage{translator: services.LocalTranslator{}}

	transcript := "Some spoken words."
	job := domain.NewJob("clip.mp4", "fr")
	job.Transcript = &transcript

	out, err := stage.Execute(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, "Bonjour! Some spoken words.", out.Translation)
}

func TestMergeStage_MixFailureAfterBackgroundExtract(t *testing.T) {
	uploadDir := t.TempDir()
	processedDir := t.TempDir()

	runner := &mergeFailRunner{}
	stage := &mergeStage{runner: runner, uploadDir: uploadDir, processedDir: processedDir}

	job := testJob("hola")
	job.AudioPath = filepath.Join(uploadDir, job.ID+"_audio.mp3")

	_, err := stage.Execute(context.Background(), job)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrMerge)

	// Intermediate wavs never outlive the stage, even on failure.
	entries, readErr := os.ReadDir(uploadDir)
	require.NoError(t, readErr)
	for _, e := range entries {
		assert.False(t, strings.HasSuffix(e.Name(), ".wav"), "leftover %s", e.Name())
	}
}

// mergeFailRunner extracts background successfully but cannot mix.
type mergeFailRunner struct{}

func (mergeFailRunner) ExtractAudio(ctx context.Context, videoPath, audioPath string) error {
	return nil
}

func (mergeFailRunner) ExtractBackgroundAudio(ctx context.Context, videoPath, audioPath string) error {
	return os.WriteFile(audioPath, []byte("background"), 0o644)
}

func (mergeFailRunner) MixAudio(ctx context.Context, dubbedPath, backgroundPath, outputPath string) error {
	return errors.New("amix filter failed")
}

func (mergeFailRunner) Remux(ctx context.Context, videoPath, audioPath, outputPath string) error {
	return nil
}

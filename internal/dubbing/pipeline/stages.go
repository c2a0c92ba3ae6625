package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/msayyed72/videodubber-be/internal/dubbing/domain"
	"github.com/msayyed72/videodubber-be/internal/dubbing/services"
)

// Stages builds the five pipeline stages in pipeline order.
func Stages(runner MediaRunner, transcriber services.Transcriber, translator services.Translator,
	synthesizer services.Synthesizer, uploadDir, processedDir string) []Stage {
	return []Stage{
		&extractStage{runner: runner, uploadDir: uploadDir},
		&transcribeStage{transcriber: transcriber},
		&translateStage{translator: translator},
		&generateStage{synthesizer: synthesizer, uploadDir: uploadDir},
		&mergeStage{runner: runner, uploadDir: uploadDir, processedDir: processedDir},
	}
}

// extractStage pulls the mono 16kHz PCM track used for transcription.
type extractStage struct {
	runner    MediaRunner
	uploadDir string
}

func (s *extractStage) Name() domain.StageName { return domain.StageExtracting }

func (s *extractStage) Execute(ctx context.Context, job *domain.Job) (*Output, error) {
	audioPath := filepath.Join(s.uploadDir, job.ID+"_extracted.wav")

	if err := s.runner.ExtractAudio(ctx, job.VideoPath, audioPath); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrExternalTool, err)
	}
	return &Output{ExtractedAudioPath: audioPath}, nil
}

type transcribeStage struct {
	transcriber services.Transcriber
}

func (s *transcribeStage) Name() domain.StageName { return domain.StageTranscribing }

func (s *transcribeStage) Execute(ctx context.Context, job *domain.Job) (*Output, error) {
	transcript, err := s.transcriber.Transcribe(ctx, job.ExtractedAudioPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTranscription, err)
	}
	if transcript == "" {
		return nil, fmt.Errorf("%w: service returned no text", domain.ErrTranscription)
	}
	return &Output{Transcript: transcript}, nil
}

type translateStage struct {
	translator services.Translator
}

func (s *translateStage) Name() domain.StageName { return domain.StageTranslating }

func (s *translateStage) Execute(ctx context.Context, job *domain.Job) (*Output, error) {
	if job.Transcript == nil || *job.Transcript == "" {
		return nil, fmt.Errorf("%w: no transcript available", domain.ErrTranslation)
	}

	translation, err := s.translator.Translate(ctx, *job.Transcript, job.TargetLanguage)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTranslation, err)
	}
	if translation == "" {
		return nil, fmt.Errorf("%w: service returned no text", domain.ErrTranslation)
	}
	return &Output{Translation: translation}, nil
}

// generateStage synthesizes speech for the translation. Text over the
// backend's limit is split at sentence boundaries and the chunk streams
// are concatenated in original order.
type generateStage struct {
	synthesizer services.Synthesizer
	uploadDir   string
}

func (s *generateStage) Name() domain.StageName { return domain.StageGenerating }

func (s *generateStage) Execute(ctx context.Context, job *domain.Job) (*Output, error) {
	if job.Translation == nil || *job.Translation == "" {
		return nil, fmt.Errorf("%w: no translation available", domain.ErrSpeechSynthesis)
	}

	audioPath := filepath.Join(s.uploadDir, job.ID+"_audio.mp3")
	if err := s.generate(ctx, *job.Translation, job.TargetLanguage, audioPath); err != nil {
		return nil, err
	}
	return &Output{AudioPath: audioPath}, nil
}

func (s *generateStage) generate(ctx context.Context, text, language, outputPath string) error {
	chunks := services.SplitText(text, services.MaxChunkChars)

	if len(chunks) == 1 {
		audio, err := s.synthesizer.Synthesize(ctx, chunks[0], language)
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrSpeechSynthesis, err)
		}
		if err := os.WriteFile(outputPath, audio, 0o644); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrSpeechSynthesis, err)
		}
		return nil
	}

	// Synthesize each chunk to its own temp file, then concatenate in
	// order. Partials are removed whether or not the stage succeeds.
	var chunkPaths []string
	defer func() {
		for _, p := range chunkPaths {
			os.Remove(p)
		}
	}()

	for i, chunk := range chunks {
		audio, err := s.synthesizer.Synthesize(ctx, chunk, language)
		if err != nil {
			return fmt.Errorf("%w: chunk %d: %v", domain.ErrSpeechSynthesis, i, err)
		}
		chunkPath := fmt.Sprintf("%s_%d.mp3", outputPath, i)
		if err := os.WriteFile(chunkPath, audio, 0o644); err != nil {
			return fmt.Errorf("%w: chunk %d: %v", domain.ErrSpeechSynthesis, i, err)
		}
		chunkPaths = append(chunkPaths, chunkPath)
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrSpeechSynthesis, err)
	}
	defer out.Close()

	for i, chunkPath := range chunkPaths {
		data, err := os.ReadFile(chunkPath)
		if err != nil {
			return fmt.Errorf("%w: chunk %d: %v", domain.ErrSpeechSynthesis, i, err)
		}
		if _, err := out.Write(data); err != nil {
			return fmt.Errorf("%w: chunk %d: %v", domain.ErrSpeechSynthesis, i, err)
		}
	}
	return nil
}

// mergeStage produces the final dubbed video. The original audio track is
// kept as low-volume background ambience when the source has one.
type mergeStage struct {
	runner       MediaRunner
	uploadDir    string
	processedDir string
}

func (s *mergeStage) Name() domain.StageName { return domain.StageMerging }

func (s *mergeStage) Execute(ctx context.Context, job *domain.Job) (*Output, error) {
	backgroundPath := filepath.Join(s.uploadDir, job.ID+"_background.wav")
	mixedPath := filepath.Join(s.uploadDir, job.ID+"_mixed.wav")
	outputPath := filepath.Join(s.processedDir, job.ID+"_output.mp4")

	// Intermediate wavs never outlive the stage.
	defer func() {
		os.Remove(backgroundPath)
		os.Remove(mixedPath)
	}()

	audioToUse := job.AudioPath

	// Best effort: a source without an audio track fails the extraction,
	// and the synthesized track is used alone.
	if err := s.runner.ExtractBackgroundAudio(ctx, job.VideoPath, backgroundPath); err == nil {
		if err := s.runner.MixAudio(ctx, job.AudioPath, backgroundPath, mixedPath); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrMerge, err)
		}
		audioToUse = mixedPath
	}

	if err := s.runner.Remux(ctx, job.VideoPath, audioToUse, outputPath); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMerge, err)
	}
	return &Output{OutputPath: outputPath}, nil
}

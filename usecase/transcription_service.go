package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pyronotes/server/domain/entities"
	"github.com/pyronotes/server/domain/repositories"
)

// ErrTranscriptionFailed means the speech provider call failed or
// produced no usable transcript for a batch upload.
var ErrTranscriptionFailed = errors.New("transcription failed")

// TranscriptionService runs the batch pipeline: one transcription call
// over a complete audio blob, then one insight pass over the result.
type TranscriptionService struct {
	stt      repositories.SpeechToText
	insights *InsightService
	logger   *zap.Logger
}

// NewTranscriptionService creates a new batch transcription service
func NewTranscriptionService(stt repositories.SpeechToText, insights *InsightService, logger *zap.Logger) *TranscriptionService {
	return &TranscriptionService{stt: stt, insights: insights, logger: logger}
}

// TranscribeAndAnalyze transcribes the whole blob and extracts insights
// from the full transcript. The caller persists the result.
func (s *TranscriptionService) TranscribeAndAnalyze(ctx context.Context, audio []byte, config repositories.AudioConfig) (string, []entities.InsightCard, error) {
	transcript, err := s.stt.TranscribeAudio(ctx, audio, config)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrTranscriptionFailed, err)
	}
	if strings.TrimSpace(transcript) == "" {
		return "", nil, fmt.Errorf("%w: provider returned an empty transcript", ErrTranscriptionFailed)
	}

	s.logger.Info("Batch transcription completed",
		zap.Int("audioBytes", len(audio)),
		zap.Int("transcriptLength", len(transcript)))

	cards := s.insights.Extract(ctx, transcript)
	return transcript, cards, nil
}

package stt

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/pyronotes/server/domain/repositories"
)

// MockSpeechToText is a placeholder transcription provider for local
// development without Google Cloud credentials.
type MockSpeechToText struct {
	logger *zap.Logger
}

// NewMockSpeechToText creates a new mock speech-to-text service
func NewMockSpeechToText(logger *zap.Logger) repositories.SpeechToText {
	return &MockSpeechToText{logger: logger}
}

// TranscribeAudio implements repositories.SpeechToText
func (s *MockSpeechToText) TranscribeAudio(ctx context.Context, audioData []byte, config repositories.AudioConfig) (string, error) {
	s.logger.Info("Mock transcription",
		zap.Int("audioSize", len(audioData)),
		zap.Int("sampleRate", config.SampleRate),
		zap.String("encoding", config.Encoding))

	switch {
	case len(audioData) > 10000:
		return "Today we will look at cellular respiration and how mitochondria convert glucose into usable energy for the cell.", nil
	case len(audioData) > 1000:
		return "Welcome to today's lecture on cell biology.", nil
	default:
		return "Testing, one two three.", nil
	}
}

// InitTranscribeStreaming creates a new mock streaming session
func (s *MockSpeechToText) InitTranscribeStreaming(ctx context.Context, config repositories.AudioConfig) (repositories.SpeechToTextStreaming, error) {
	s.logger.Info("Initializing mock streaming transcription",
		zap.Int("sampleRate", config.SampleRate),
		zap.String("encoding", config.Encoding),
		zap.String("language", config.Language))

	return &mockStream{svc: s, cfg: config}, nil
}

type mockStream struct {
	svc      *MockSpeechToText
	cfg      repositories.AudioConfig
	received int
}

// Stream implements repositories.SpeechToTextStreaming
func (m *mockStream) Stream(data []byte) error {
	m.received += len(data)
	return nil
}

// End returns the mock transcription result
func (m *mockStream) End() (string, error) {
	if m.received == 0 {
		return "", fmt.Errorf("no audio data received")
	}
	return m.svc.TranscribeAudio(context.Background(), make([]byte, m.received), m.cfg)
}

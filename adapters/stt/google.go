package stt

import (
	"context"
	"fmt"
	"io"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"go.uber.org/zap"

	"github.com/pyronotes/server/domain/repositories"
)

// GoogleSpeechToText implements SpeechToText on Google Cloud Speech
type GoogleSpeechToText struct {
	logger *zap.Logger
}

// NewGoogleSpeechToText creates a new Google Cloud speech adapter.
// Credentials come from the usual GOOGLE_APPLICATION_CREDENTIALS chain.
func NewGoogleSpeechToText(logger *zap.Logger) *GoogleSpeechToText {
	return &GoogleSpeechToText{logger: logger}
}

// TranscribeAudio converts a complete audio blob to text. The blob is
// pushed through a streaming recognition in one go and the stream is
// closed immediately, which keeps one code path for both batch uploads
// and live audio frames.
func (g *GoogleSpeechToText) TranscribeAudio(ctx context.Context, audioData []byte, config repositories.AudioConfig) (string, error) {
	stream, err := g.InitTranscribeStreaming(ctx, config)
	if err != nil {
		return "", fmt.Errorf("failed to initialize streaming: %w", err)
	}

	if err := stream.Stream(audioData); err != nil {
		return "", fmt.Errorf("failed to stream audio data: %w", err)
	}

	return stream.End()
}

// InitTranscribeStreaming opens a streaming recognition session
func (g *GoogleSpeechToText) InitTranscribeStreaming(ctx context.Context, config repositories.AudioConfig) (repositories.SpeechToTextStreaming, error) {
	client, err := speech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create speech client: %w", err)
	}

	stream, err := client.StreamingRecognize(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to open streaming recognize: %w", err)
	}

	encoding, err := audioEncoding(config.Encoding)
	if err != nil {
		stream.CloseSend()
		client.Close()
		return nil, err
	}

	if err := stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config: &speechpb.RecognitionConfig{
					Encoding:        encoding,
					SampleRateHertz: int32(config.SampleRate),
					LanguageCode:    config.Language,
				},
				// final results only; interim hypotheses would churn
				// the accumulated transcript
				InterimResults: false,
			},
		},
	}); err != nil {
		stream.CloseSend()
		client.Close()
		return nil, fmt.Errorf("failed to send streaming config: %w", err)
	}

	s := &googleStream{
		client:     client,
		stream:     stream,
		ctx:        ctx,
		resultChan: make(chan string, 1),
		errorChan:  make(chan error, 1),
	}
	go s.receiveResults()

	return s, nil
}

type googleStream struct {
	client        *speech.Client
	stream        speechpb.Speech_StreamingRecognizeClient
	ctx           context.Context
	audioReceived bool
	resultChan    chan string
	errorChan     chan error
}

// Stream implements repositories.SpeechToTextStreaming
func (s *googleStream) Stream(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	s.audioReceived = true

	if err := s.stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{
			AudioContent: data,
		},
	}); err != nil {
		return fmt.Errorf("failed to send audio data: %w", err)
	}
	return nil
}

// End closes the audio stream and waits for the final transcript
func (s *googleStream) End() (string, error) {
	defer s.client.Close()

	if !s.audioReceived {
		return "", fmt.Errorf("no audio data received")
	}

	if err := s.stream.CloseSend(); err != nil {
		return "", fmt.Errorf("failed to close send stream: %w", err)
	}

	select {
	case <-s.ctx.Done():
		return "", fmt.Errorf("context cancelled while waiting for result: %w", s.ctx.Err())
	case err := <-s.errorChan:
		return "", err
	case result := <-s.resultChan:
		if result == "" {
			return "", fmt.Errorf("no speech detected in audio")
		}
		return result, nil
	}
}

// receiveResults drains recognition responses, concatenating every
// final alternative so long recordings keep all their segments.
func (s *googleStream) receiveResults() {
	var transcript string

	for {
		resp, err := s.stream.Recv()
		if err == io.EOF {
			s.resultChan <- transcript
			return
		}
		if err != nil {
			s.errorChan <- fmt.Errorf("failed to receive recognition response: %w", err)
			return
		}

		for _, result := range resp.Results {
			if result.IsFinal && len(result.Alternatives) > 0 {
				transcript += result.Alternatives[0].Transcript
			}
		}
	}
}

func audioEncoding(encoding string) (speechpb.RecognitionConfig_AudioEncoding, error) {
	switch encoding {
	case "WAV", "LINEAR16":
		return speechpb.RecognitionConfig_LINEAR16, nil
	case "FLAC":
		return speechpb.RecognitionConfig_FLAC, nil
	case "MULAW":
		return speechpb.RecognitionConfig_MULAW, nil
	case "OGG_OPUS":
		return speechpb.RecognitionConfig_OGG_OPUS, nil
	case "WEBM_OPUS":
		return speechpb.RecognitionConfig_WEBM_OPUS, nil
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED, fmt.Errorf("unsupported audio encoding: %s", encoding)
	}
}

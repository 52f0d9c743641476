package websocket

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/pyronotes/server/domain/entities"
	"github.com/pyronotes/server/domain/repositories"
	"github.com/pyronotes/server/usecase"
)

const testCardsJSON = `[{"type": "definition", "term": "mitosis", "text": "Cell division producing identical cells."}]`

type fakeLLM struct{}

func (f *fakeLLM) Complete(ctx context.Context, prompt string) (string, error) {
	return testCardsJSON, nil
}

type fakeSTT struct{ transcript string }

func (f *fakeSTT) TranscribeAudio(ctx context.Context, audioData []byte, config repositories.AudioConfig) (string, error) {
	return f.transcript, nil
}

func (f *fakeSTT) InitTranscribeStreaming(ctx context.Context, config repositories.AudioConfig) (repositories.SpeechToTextStreaming, error) {
	return &fakeSTTStream{transcript: f.transcript}, nil
}

type fakeSTTStream struct {
	transcript string
	received   int
}

func (s *fakeSTTStream) Stream(data []byte) error {
	s.received += len(data)
	return nil
}

func (s *fakeSTTStream) End() (string, error) {
	return s.transcript, nil
}

type fakeLectureRepo struct {
	mu         sync.Mutex
	saves      int
	transcript string
}

func (f *fakeLectureRepo) SaveSessionResult(ctx context.Context, id string, transcript string, insights []entities.InsightCard, status entities.LectureStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	f.transcript = transcript
	return nil
}

func (f *fakeLectureRepo) saveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saves
}

func (f *fakeLectureRepo) savedTranscript() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.transcript
}

func (f *fakeLectureRepo) Create(ctx context.Context, lecture *entities.Lecture) error { return nil }
func (f *fakeLectureRepo) GetByID(ctx context.Context, id string) (*entities.Lecture, error) {
	return nil, nil
}
func (f *fakeLectureRepo) List(ctx context.Context, folderID string) ([]*entities.Lecture, error) {
	return nil, nil
}
func (f *fakeLectureRepo) Update(ctx context.Context, lecture *entities.Lecture) error { return nil }
func (f *fakeLectureRepo) Delete(ctx context.Context, id string) error                 { return nil }
func (f *fakeLectureRepo) CountByFolder(ctx context.Context, folderID string) (int64, error) {
	return 0, nil
}
func (f *fakeLectureRepo) UnassignFolder(ctx context.Context, folderID string) error { return nil }
func (f *fakeLectureRepo) ExpireStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	return 0, nil
}

func setupTestStream(t *testing.T, stt repositories.SpeechToText, repo *fakeLectureRepo) *websocket.Conn {
	t.Helper()
	logger := zap.NewNop()

	live := usecase.NewLiveService(usecase.NewInsightService(&fakeLLM{}, logger), repo, logger)
	hub := NewHub(live, stt, logger)
	go hub.Run()

	e := echo.New()
	e.GET("/stream", func(c echo.Context) error {
		return HandleStream(hub, c, "lecture-test", logger)
	})

	server := httptest.NewServer(e)
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Failed to dial websocket: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	return conn
}

// readEvents collects events until a terminal done/error event arrives
func readEvents(t *testing.T, conn *websocket.Conn) []usecase.SessionEvent {
	t.Helper()

	var events []usecase.SessionEvent
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("Read failed before terminal event: %v (got %d events)", err, len(events))
		}

		var event usecase.SessionEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			t.Fatalf("Unparseable event %q: %v", payload, err)
		}
		events = append(events, event)

		if event.Type == usecase.EventDone || event.Type == usecase.EventError {
			return events
		}
	}
}

func countEvents(events []usecase.SessionEvent, kind usecase.EventType) int {
	n := 0
	for _, e := range events {
		if e.Type == kind {
			n++
		}
	}
	return n
}

func sendFrame(t *testing.T, conn *websocket.Conn, frame ClientFrame) {
	t.Helper()
	if err := conn.WriteJSON(frame); err != nil {
		t.Fatalf("Failed to write frame: %v", err)
	}
}

func TestStreamSessionLifecycle(t *testing.T) {
	repo := &fakeLectureRepo{}
	conn := setupTestStream(t, &fakeSTT{}, repo)

	small := "Mitochondria are the powerhouse of the cell."
	sendFrame(t, conn, ClientFrame{Type: FrameTranscriptChunk, Text: small})
	sendFrame(t, conn, ClientFrame{Type: FrameTranscriptChunk, Text: strings.Repeat("x", 260)})
	sendFrame(t, conn, ClientFrame{Type: FrameFinalize})

	events := readEvents(t, conn)

	if got := countEvents(events, usecase.EventTranscriptChunk); got != 2 {
		t.Errorf("Expected 2 acknowledgment events, got %d", got)
	}
	if got := countEvents(events, usecase.EventInsight); got == 0 {
		t.Error("Expected at least one insight event after crossing the threshold")
	}
	if events[len(events)-1].Type != usecase.EventDone {
		t.Errorf("Expected terminal done event, got %s", events[len(events)-1].Type)
	}

	if repo.saveCount() != 1 {
		t.Errorf("Expected one persistence write, got %d", repo.saveCount())
	}
	if !strings.HasPrefix(repo.savedTranscript(), small) {
		t.Errorf("Persisted transcript should start with the first chunk, got %q", repo.savedTranscript())
	}
}

func TestStreamTransportLossFinalizes(t *testing.T) {
	repo := &fakeLectureRepo{}
	conn := setupTestStream(t, &fakeSTT{}, repo)

	sendFrame(t, conn, ClientFrame{Type: FrameTranscriptChunk, Text: "partial transcript before the connection dies"})

	// wait for the ack so the append has been processed
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := conn.ReadMessage(); err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	// abrupt close, no finalize frame
	conn.Close()

	deadline := time.Now().Add(5 * time.Second)
	for repo.saveCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("Transport loss did not trigger finalize")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if got := repo.savedTranscript(); got != "partial transcript before the connection dies" {
		t.Errorf("Partial transcript was not persisted, got %q", got)
	}
}

func TestStreamBinaryAudioFoldedIntoTranscript(t *testing.T) {
	repo := &fakeLectureRepo{}
	recognized := "this text was recognized from audio frames"
	conn := setupTestStream(t, &fakeSTT{transcript: recognized}, repo)

	if err := conn.WriteMessage(websocket.BinaryMessage, []byte{0x01, 0x02, 0x03}); err != nil {
		t.Fatalf("Failed to write binary frame: %v", err)
	}
	sendFrame(t, conn, ClientFrame{Type: FrameFinalize})

	events := readEvents(t, conn)

	if got := countEvents(events, usecase.EventTranscriptChunk); got != 1 {
		t.Errorf("Expected the recognized audio acknowledged once, got %d", got)
	}
	if !strings.Contains(repo.savedTranscript(), recognized) {
		t.Errorf("Recognized audio missing from persisted transcript %q", repo.savedTranscript())
	}
}

func TestParseClientFrame(t *testing.T) {
	frame, err := ParseClientFrame([]byte(`{"type": "transcript_chunk", "text": "hello"}`))
	if err != nil {
		t.Fatalf("ParseClientFrame failed: %v", err)
	}
	if frame.Type != FrameTranscriptChunk || frame.Text != "hello" {
		t.Errorf("Unexpected frame %+v", frame)
	}

	if _, err := ParseClientFrame([]byte(`not json`)); err == nil {
		t.Error("Expected error for malformed frame")
	}
	if _, err := ParseClientFrame([]byte(`{"text": "missing type"}`)); err == nil {
		t.Error("Expected error for frame without type")
	}
}

package usecase

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/pyronotes/server/domain/entities"
	"github.com/pyronotes/server/domain/repositories"
)

// fakeLLM records every prompt it receives and answers with a canned
// response. It also tracks the maximum number of concurrent calls so
// tests can assert the single-in-flight invariant.
type fakeLLM struct {
	response string
	err      error

	prompts     []string
	calls       int32
	inFlight    int32
	maxInFlight int32
}

func (f *fakeLLM) Complete(ctx context.Context, prompt string) (string, error) {
	cur := atomic.AddInt32(&f.inFlight, 1)
	for {
		max := atomic.LoadInt32(&f.maxInFlight)
		if cur <= max || atomic.CompareAndSwapInt32(&f.maxInFlight, max, cur) {
			break
		}
	}
	defer atomic.AddInt32(&f.inFlight, -1)

	atomic.AddInt32(&f.calls, 1)
	f.prompts = append(f.prompts, prompt)
	return f.response, f.err
}

func (f *fakeLLM) callCount() int {
	return int(atomic.LoadInt32(&f.calls))
}

type fakeSTT struct {
	transcript string
	err        error
	calls      int
}

func (f *fakeSTT) TranscribeAudio(ctx context.Context, audioData []byte, config repositories.AudioConfig) (string, error) {
	f.calls++
	return f.transcript, f.err
}

func (f *fakeSTT) InitTranscribeStreaming(ctx context.Context, config repositories.AudioConfig) (repositories.SpeechToTextStreaming, error) {
	return nil, errors.New("streaming not supported by fake")
}

// fakeLectureRepo records SaveSessionResult calls; everything else is
// unused by the services under test.
type fakeLectureRepo struct {
	saveErr error

	saves       int
	savedID     string
	savedText   string
	savedCards  []entities.InsightCard
	savedStatus entities.LectureStatus
}

func (f *fakeLectureRepo) SaveSessionResult(ctx context.Context, id string, transcript string, insights []entities.InsightCard, status entities.LectureStatus) error {
	f.saves++
	f.savedID = id
	f.savedText = transcript
	f.savedCards = insights
	f.savedStatus = status
	return f.saveErr
}

func (f *fakeLectureRepo) Create(ctx context.Context, lecture *entities.Lecture) error {
	return nil
}

func (f *fakeLectureRepo) GetByID(ctx context.Context, id string) (*entities.Lecture, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeLectureRepo) List(ctx context.Context, folderID string) ([]*entities.Lecture, error) {
	return nil, nil
}

func (f *fakeLectureRepo) Update(ctx context.Context, lecture *entities.Lecture) error {
	return nil
}

func (f *fakeLectureRepo) Delete(ctx context.Context, id string) error {
	return nil
}

func (f *fakeLectureRepo) CountByFolder(ctx context.Context, folderID string) (int64, error) {
	return 0, nil
}

func (f *fakeLectureRepo) UnassignFolder(ctx context.Context, folderID string) error {
	return nil
}

func (f *fakeLectureRepo) ExpireStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	return 0, nil
}

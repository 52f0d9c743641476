package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/pyronotes/server/domain/repositories"
)

const (
	// staleRecordingAge is how long a lecture may sit in the recording
	// state before the reaper considers its session lost.
	staleRecordingAge = 2 * time.Hour

	cleanupInterval     = 30 * time.Minute
	initialCleanupDelay = 1 * time.Minute
)

// CleanupService reaps lectures whose live session never finalized,
// typically after a server crash mid-recording.
type CleanupService struct {
	lectures repositories.LectureRepository
	logger   *zap.Logger
	stopChan chan struct{}
}

// NewCleanupService creates a new cleanup service
func NewCleanupService(lectures repositories.LectureRepository, logger *zap.Logger) *CleanupService {
	return &CleanupService{
		lectures: lectures,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start begins the background cleanup process
func (s *CleanupService) Start() {
	go s.cleanupLoop()
	s.logger.Info("Lecture cleanup service started")
}

// Stop gracefully stops the cleanup service
func (s *CleanupService) Stop() {
	close(s.stopChan)
	s.logger.Info("Lecture cleanup service stopped")
}

func (s *CleanupService) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	// Run initial cleanup shortly after startup to catch lectures
	// orphaned by the previous run.
	initialTimer := time.NewTimer(initialCleanupDelay)
	defer initialTimer.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-initialTimer.C:
			s.runCleanup()
		case <-ticker.C:
			s.runCleanup()
		}
	}
}

func (s *CleanupService) runCleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	expired, err := s.lectures.ExpireStale(ctx, staleRecordingAge)
	if err != nil {
		s.logger.Error("Failed to expire stale lectures", zap.Error(err))
		return
	}
	if expired > 0 {
		s.logger.Info("Expired stale recordings", zap.Int64("count", expired))
	}
}

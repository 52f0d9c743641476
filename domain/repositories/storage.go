package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/pyronotes/server/domain/entities"
)

// ErrNotFound is returned when a requested record does not exist
var ErrNotFound = errors.New("record not found")

// LectureRepository defines data access methods for lectures
type LectureRepository interface {
	Create(ctx context.Context, lecture *entities.Lecture) error
	GetByID(ctx context.Context, id string) (*entities.Lecture, error)
	// List returns lectures newest first, optionally filtered by folder
	List(ctx context.Context, folderID string) ([]*entities.Lecture, error)
	Update(ctx context.Context, lecture *entities.Lecture) error
	Delete(ctx context.Context, id string) error
	CountByFolder(ctx context.Context, folderID string) (int64, error)
	// UnassignFolder clears the folder reference on every lecture in it
	UnassignFolder(ctx context.Context, folderID string) error
	// SaveSessionResult persists the outcome of a live session or batch
	// run in a single write: transcript, collected insights and the
	// terminal status.
	SaveSessionResult(ctx context.Context, id string, transcript string, insights []entities.InsightCard, status entities.LectureStatus) error
	// ExpireStale marks lectures stuck in the recording state older than
	// olderThan as errored. Returns the number of lectures expired.
	ExpireStale(ctx context.Context, olderThan time.Duration) (int64, error)
}

// FolderRepository defines data access methods for folders
type FolderRepository interface {
	Create(ctx context.Context, folder *entities.Folder) error
	GetByID(ctx context.Context, id string) (*entities.Folder, error)
	List(ctx context.Context) ([]*entities.Folder, error)
	Delete(ctx context.Context, id string) error
}

package api

import (
	"time"

	"github.com/pyronotes/server/domain/entities"
)

// StartSessionRequest represents the request payload for starting a live
// recording session
type StartSessionRequest struct {
	Title    string `json:"title"`
	FolderID string `json:"folder_id,omitempty"`
}

// StartSessionResponse carries the created lecture and the token that
// authorizes its websocket stream
type StartSessionResponse struct {
	Lecture   *entities.Lecture `json:"lecture"`
	Token     string            `json:"token"`
	ExpiresAt time.Time         `json:"expires_at"`
}

// CreateLectureRequest represents a manual lecture creation, e.g. an
// imported transcript that never passed through the audio pipeline
type CreateLectureRequest struct {
	Title      string `json:"title"`
	FolderID   string `json:"folder_id,omitempty"`
	Transcript string `json:"transcript,omitempty"`
}

// UpdateLectureRequest represents a partial lecture update. Nil fields
// are left untouched; an empty folder_id clears the folder assignment.
type UpdateLectureRequest struct {
	Title    *string `json:"title,omitempty"`
	FolderID *string `json:"folder_id,omitempty"`
}

// CreateFolderRequest represents the request payload for creating a folder
type CreateFolderRequest struct {
	Name string `json:"name"`
}

// FolderResponse is a folder together with how many lectures it holds
type FolderResponse struct {
	*entities.Folder
	LectureCount int64 `json:"lecture_count"`
}

// GenerateRequest represents a study-material generation request.
// Scope is either "lecture" or "folder"; ID names the scoped record.
type GenerateRequest struct {
	Type  string `json:"type"`
	Scope string `json:"scope"`
	ID    string `json:"id"`
}

// GenerateResponse carries the generated material payload
type GenerateResponse struct {
	Type    entities.MaterialKind `json:"type"`
	Content interface{}           `json:"content"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

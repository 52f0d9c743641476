package entities

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LectureStatus represents the processing state of a lecture record
type LectureStatus string

const (
	LectureStatusRecording  LectureStatus = "recording"
	LectureStatusProcessing LectureStatus = "processing"
	LectureStatusReady      LectureStatus = "ready"
	LectureStatusError      LectureStatus = "error"
)

// InsightKind distinguishes the two kinds of insight cards
type InsightKind string

const (
	InsightDefinition  InsightKind = "definition"
	InsightExplanation InsightKind = "explanation"
)

// InsightCard is one explanatory unit surfaced from a transcript chunk.
// Immutable once created; only the insight pipeline produces them.
type InsightCard struct {
	Kind InsightKind `json:"subtype" bson:"subtype"`
	Term string      `json:"term" bson:"term"`
	Text string      `json:"text" bson:"text"`
}

// Lecture represents one recorded or uploaded lecture
type Lecture struct {
	ID          primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	Title       string              `json:"title" bson:"title"`
	FolderID    *primitive.ObjectID `json:"folder_id,omitempty" bson:"folder_id,omitempty"`
	DurationSec *int                `json:"duration_sec,omitempty" bson:"duration_sec,omitempty"`
	AudioPath   string              `json:"audio_path,omitempty" bson:"audio_path,omitempty"`
	Transcript  string              `json:"transcript,omitempty" bson:"transcript,omitempty"`
	Insights    []InsightCard       `json:"ai_insights" bson:"ai_insights"`
	Status      LectureStatus       `json:"status" bson:"status"`
	CreatedAt   time.Time           `json:"created_at" bson:"created_at"`
}

// NewLecture creates a lecture record in the given initial status
func NewLecture(title string, status LectureStatus) *Lecture {
	return &Lecture{
		ID:        primitive.NewObjectID(),
		Title:     title,
		Insights:  make([]InsightCard, 0),
		Status:    status,
		CreatedAt: time.Now(),
	}
}

// Validate validates the lecture data
func (l *Lecture) Validate() error {
	if l.Title == "" {
		return errors.New("title is required")
	}

	switch l.Status {
	case LectureStatusRecording, LectureStatusProcessing, LectureStatusReady, LectureStatusError:
	default:
		return errors.New("invalid lecture status")
	}

	return nil
}

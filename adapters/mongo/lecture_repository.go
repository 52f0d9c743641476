package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pyronotes/server/domain/entities"
	"github.com/pyronotes/server/domain/repositories"
)

// ErrNotFound is returned when a record does not exist
var ErrNotFound = repositories.ErrNotFound

type LectureRepository struct {
	collection *mongo.Collection
}

// NewLectureRepository creates a new MongoDB lecture repository
func NewLectureRepository(db *mongo.Database) repositories.LectureRepository {
	return &LectureRepository{
		collection: db.Collection("lectures"),
	}
}

// Create implements repositories.LectureRepository
func (r *LectureRepository) Create(ctx context.Context, lecture *entities.Lecture) error {
	if lecture == nil {
		return errors.New("lecture cannot be nil")
	}
	if err := lecture.Validate(); err != nil {
		return err
	}

	if lecture.ID.IsZero() {
		lecture.ID = primitive.NewObjectID()
	}
	if lecture.CreatedAt.IsZero() {
		lecture.CreatedAt = time.Now()
	}
	if lecture.Insights == nil {
		lecture.Insights = make([]entities.InsightCard, 0)
	}

	if _, err := r.collection.InsertOne(ctx, lecture); err != nil {
		return fmt.Errorf("failed to create lecture: %w", err)
	}
	return nil
}

// GetByID implements repositories.LectureRepository
func (r *LectureRepository) GetByID(ctx context.Context, id string) (*entities.Lecture, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid lecture ID format: %w", err)
	}

	var lecture entities.Lecture
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&lecture)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get lecture %s: %w", id, err)
	}
	return &lecture, nil
}

// List implements repositories.LectureRepository
func (r *LectureRepository) List(ctx context.Context, folderID string) ([]*entities.Lecture, error) {
	filter := bson.M{}
	if folderID != "" {
		objectID, err := primitive.ObjectIDFromHex(folderID)
		if err != nil {
			return nil, fmt.Errorf("invalid folder ID format: %w", err)
		}
		filter["folder_id"] = objectID
	}

	opts := options.Find().SetSort(bson.M{"created_at": -1})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list lectures: %w", err)
	}
	defer cursor.Close(ctx)

	lectures := make([]*entities.Lecture, 0)
	if err := cursor.All(ctx, &lectures); err != nil {
		return nil, fmt.Errorf("failed to decode lectures: %w", err)
	}
	return lectures, nil
}

// Update implements repositories.LectureRepository
func (r *LectureRepository) Update(ctx context.Context, lecture *entities.Lecture) error {
	if lecture == nil {
		return errors.New("lecture cannot be nil")
	}
	if lecture.ID.IsZero() {
		return errors.New("lecture ID cannot be empty")
	}

	update := bson.M{
		"$set": bson.M{
			"title":        lecture.Title,
			"folder_id":    lecture.FolderID,
			"duration_sec": lecture.DurationSec,
			"audio_path":   lecture.AudioPath,
			"transcript":   lecture.Transcript,
			"ai_insights":  lecture.Insights,
			"status":       lecture.Status,
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": lecture.ID}, update)
	if err != nil {
		return fmt.Errorf("failed to update lecture: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete implements repositories.LectureRepository
func (r *LectureRepository) Delete(ctx context.Context, id string) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid lecture ID format: %w", err)
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return fmt.Errorf("failed to delete lecture: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// CountByFolder implements repositories.LectureRepository
func (r *LectureRepository) CountByFolder(ctx context.Context, folderID string) (int64, error) {
	objectID, err := primitive.ObjectIDFromHex(folderID)
	if err != nil {
		return 0, fmt.Errorf("invalid folder ID format: %w", err)
	}

	count, err := r.collection.CountDocuments(ctx, bson.M{"folder_id": objectID})
	if err != nil {
		return 0, fmt.Errorf("failed to count lectures in folder %s: %w", folderID, err)
	}
	return count, nil
}

// UnassignFolder implements repositories.LectureRepository
func (r *LectureRepository) UnassignFolder(ctx context.Context, folderID string) error {
	objectID, err := primitive.ObjectIDFromHex(folderID)
	if err != nil {
		return fmt.Errorf("invalid folder ID format: %w", err)
	}

	_, err = r.collection.UpdateMany(ctx,
		bson.M{"folder_id": objectID},
		bson.M{"$unset": bson.M{"folder_id": ""}})
	if err != nil {
		return fmt.Errorf("failed to unassign lectures from folder %s: %w", folderID, err)
	}
	return nil
}

// SaveSessionResult implements repositories.LectureRepository. One
// write covers transcript, insights and terminal status.
func (r *LectureRepository) SaveSessionResult(ctx context.Context, id string, transcript string, insights []entities.InsightCard, status entities.LectureStatus) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid lecture ID format: %w", err)
	}
	if insights == nil {
		insights = make([]entities.InsightCard, 0)
	}

	update := bson.M{
		"$set": bson.M{
			"transcript":  transcript,
			"ai_insights": insights,
			"status":      status,
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, update)
	if err != nil {
		return fmt.Errorf("failed to save session result: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ExpireStale implements repositories.LectureRepository. Lectures left
// in the recording state past olderThan lost their session without a
// finalize, so they are moved to the error state.
func (r *LectureRepository) ExpireStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)

	result, err := r.collection.UpdateMany(ctx,
		bson.M{
			"status":     entities.LectureStatusRecording,
			"created_at": bson.M{"$lt": cutoff},
		},
		bson.M{"$set": bson.M{"status": entities.LectureStatusError}})
	if err != nil {
		return 0, fmt.Errorf("failed to expire stale lectures: %w", err)
	}
	return result.ModifiedCount, nil
}

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

type FolderRepository struct {
	collection *mongo.Collection
}

// NewFolderRepository creates a new MongoDB folder repository
func NewFolderRepository(db *mongo.Database) repositories.FolderRepository {
	return &FolderRepository{
		collection: db.Collection("folders"),
	}
}

// Create implements repositories.FolderRepository
func (r *FolderRepository) Create(ctx context.Context, folder *entities.Folder) error {
	if folder == nil {
		return errors.New("folder cannot be nil")
	}
	if err := folder.Validate(); err != nil {
		return err
	}

	if folder.ID.IsZero() {
		folder.ID = primitive.NewObjectID()
	}
	if folder.CreatedAt.IsZero() {
		folder.CreatedAt = time.Now()
	}

	if _, err := r.collection.InsertOne(ctx, folder); err != nil {
		return fmt.Errorf("failed to create folder: %w", err)
	}
	return nil
}

// GetByID implements repositories.FolderRepository
func (r *FolderRepository) GetByID(ctx context.Context, id string) (*entities.Folder, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid folder ID format: %w", err)
	}

	var folder entities.Folder
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&folder)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get folder %s: %w", id, err)
	}
	return &folder, nil
}

// List implements repositories.FolderRepository
func (r *FolderRepository) List(ctx context.Context) ([]*entities.Folder, error) {
	opts := options.Find().SetSort(bson.M{"created_at": -1})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}
	defer cursor.Close(ctx)

	folders := make([]*entities.Folder, 0)
	if err := cursor.All(ctx, &folders); err != nil {
		return nil, fmt.Errorf("failed to decode folders: %w", err)
	}
	return folders, nil
}

// Delete implements repositories.FolderRepository
func (r *FolderRepository) Delete(ctx context.Context, id string) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid folder ID format: %w", err)
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return fmt.Errorf("failed to delete folder: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

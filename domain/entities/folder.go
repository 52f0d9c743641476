package entities

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Folder groups lectures in the library
type Folder struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name      string             `json:"name" bson:"name"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
}

// NewFolder creates a new named folder
func NewFolder(name string) *Folder {
	return &Folder{
		ID:        primitive.NewObjectID(),
		Name:      name,
		CreatedAt: time.Now(),
	}
}

// Validate validates the folder data
func (f *Folder) Validate() error {
	if f.Name == "" {
		return errors.New("name is required")
	}
	return nil
}

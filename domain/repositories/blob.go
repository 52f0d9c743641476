package repositories

import "io"

// AudioStore abstracts audio blob storage. Save returns an opaque
// reference that later identifies the blob for Open and Delete.
type AudioStore interface {
	Save(data []byte, ext string) (string, error)
	Open(ref string) (io.ReadCloser, error)
	Delete(ref string) error
}

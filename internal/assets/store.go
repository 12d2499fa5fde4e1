// Package assets stores listing images. Two backends share the Store
// contract: BlobStore keeps compressed bytes in the local SQLite database and
// RemoteStore hands files to a remote upload endpoint that returns hosted URLs.
package assets

import (
	"context"

	"estatehub/pkg/models"
)

// Upload is one selected file from an admin form or an import.
type Upload struct {
	Name        string
	ContentType string
	Data        []byte
}

// Store is the capability set both image backends implement.
//
// Put keeps input order: refs[k] belongs to files[k] for every file that was
// stored. A partial failure returns the stored refs together with an error.
// Resolve returns "" (and no error) when the image is gone. Delete is best
// effort and reports the failures it saw.
type Store interface {
	Put(ctx context.Context, files []Upload) ([]models.ImageRef, error)
	Resolve(ctx context.Context, ref models.ImageRef) (string, error)
	Delete(ctx context.Context, refs []models.ImageRef) error
}

// Archive is implemented by stores that hold the image bytes themselves and
// can therefore take part in export and import.
type Archive interface {
	Blob(ctx context.Context, key string) (*Blob, error)
	Restore(ctx context.Context, key, contentType string, data []byte) error
}

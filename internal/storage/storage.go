// Package storage holds the file persistence capability: store bytes under a
// category/record path and hand back an externally resolvable URL.
package storage

import "context"

// Store persists file bytes and returns the public URL of the stored file.
// Delete removes one stored file by URL; it refuses (false, no mutation) any
// URL outside the upload root. DeleteFolder removes a record's whole subtree
// and prunes the category directory once empty.
type Storage interface {
	Store(ctx context.Context, data []byte, originalName, category, recordID, subpath string) (string, error)
	Delete(fileURL string) bool
	DeleteFolder(category, recordID string) bool
}

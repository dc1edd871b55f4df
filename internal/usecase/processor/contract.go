package processor

import "context"

// Source reads documents from a file system.
type Source interface {
	Exists(path string) bool
	Read(ctx context.Context, path string) (string, error)
	Extension(path string) string
	// Size is the stored byte size of path.
	Size(path string) (int64, error)
}

package object

import (
	"context"
	"io"
)

// Kind namespaces stored uploads.
type Kind string

const (
	KindJobDescription Kind = "job-descriptions"
	KindResume         Kind = "resumes"
)

// Object describes a stored upload.
type Object struct {
	Key       string
	SizeBytes int64
	MimeType  string
}

// ObjectStore defines the contract for saving and retrieving raw uploads.
type ObjectStore interface {
	Save(ctx context.Context, ownerID string, kind Kind, fileName string, r io.Reader) (Object, error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
}

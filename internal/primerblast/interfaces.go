package primerblast

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// Fetcher performs one HTTP exchange and returns the body plus metadata.
type Fetcher interface {
	Fetch(ctx context.Context, request FetchRequest) (FetchResponse, error)
}

// Pacer blocks until the caller may issue a request to rawURL.
type Pacer interface {
	Wait(ctx context.Context, rawURL string) error
}

// BlobStore writes raw artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}

// Publisher pushes run notifications to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// ResultStore persists the final records of a run.
type ResultStore interface {
	SaveResults(ctx context.Context, runID string, jobs []Job) error
	Close() error
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs.
type IDGenerator interface {
	NewRunID() (uuid.UUID, error)
}

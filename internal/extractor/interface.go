package extractor

import (
	"context"

	"github.com/byteowlz/kaextract/internal/model"
)

// Backend is the Extraction Service as seen by the client: given a target
// URL it returns the structured listing or an error.
type Backend interface {
	// Name returns the unique identifier for this backend
	Name() string

	// Extract fetches one listing. Implementations must honor ctx.
	Extract(ctx context.Context, targetURL string) (*model.Result, error)

	// IsAvailable checks if the backend is properly configured
	IsAvailable() bool
}

package extractor

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/byteowlz/kaextract/internal/fetcher"
	"github.com/byteowlz/kaextract/internal/model"
	adextract "github.com/byteowlz/kaextract/pkg/extractor"
)

// LocalBackend runs the Extraction Service in-process instead of asking a
// server. Errors are mapped to the same status codes the server would send.
type LocalBackend struct {
	ex *adextract.Extractor
}

func NewLocalBackend(ex *adextract.Extractor) *LocalBackend {
	return &LocalBackend{ex: ex}
}

func (l *LocalBackend) Name() string {
	return "local"
}

func (l *LocalBackend) IsAvailable() bool {
	return l.ex != nil
}

func (l *LocalBackend) Extract(ctx context.Context, targetURL string) (*model.Result, error) {
	res, err := l.ex.Extract(ctx, targetURL)
	if err == nil {
		return res, nil
	}
	if ctx.Err() != nil {
		return nil, fmt.Errorf("local: %w", ctx.Err())
	}

	code := adextract.StatusFor(err)
	var httpErr *fetcher.HTTPError
	if code >= http.StatusBadGateway && !errors.As(err, &httpErr) {
		return nil, &NetworkError{Backend: l.Name(), Err: err}
	}
	return nil, &StatusError{Backend: l.Name(), Code: code, Reason: err.Error()}
}

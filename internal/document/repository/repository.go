package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/sheetsync/sheetsync/backend/go-services/internal/document"
)

var (
	ErrNotFound = errors.New("document not found")
)

// Repository is the gateway to the external document store. Writes are
// atomic per document; content and permission updates are independent so a
// failed permission write never leaves partial list changes behind.
type Repository interface {
	Get(ctx context.Context, id string) (*document.Document, error)
	Create(ctx context.Context, d *document.Document) error
	UpdateContent(ctx context.Context, id string, content json.RawMessage) error
	UpdatePermissions(ctx context.Context, d *document.Document) error
	ListByOwner(ctx context.Context, ownerID string) ([]*document.Document, error)
}

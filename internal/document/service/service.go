package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sheetsync/sheetsync/backend/go-services/internal/document"
	"github.com/sheetsync/sheetsync/backend/go-services/internal/document/repository"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	ErrNotFound        = errors.New("document not found")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrInvalidArgument = errors.New("invalid argument")
)

// Service implements the access decisions and the permission workflow on top
// of the document store gateway. All capability checks run here; callers
// (websocket handler, REST handlers) only map the results to their wire
// formats.
type Service struct {
	repo repository.Repository
}

func New(repo repository.Repository) *Service { return &Service{repo: repo} }

// NewMemoryService returns a Service backed by the in-memory repository.
func NewMemoryService() *Service { return New(repository.NewMemoryRepo()) }

// NewMongoService returns a Service backed by a MongoDB collection. Caller
// is responsible for creating the collection (and client) and passing it in.
func NewMongoService(col *mongo.Collection) *Service { return New(repository.NewMongoRepo(col)) }

// Open resolves the capability of userID for docID, creating the document on
// first access with userID as owner. It is called once per joining
// connection; the returned capability stays fixed for that session. A denied
// capability is returned as ErrUnauthorized and the document is not exposed.
func (s *Service) Open(ctx context.Context, docID, userID, title string) (*document.Document, document.Capability, error) {
	if docID == "" {
		return nil, document.CapabilityDenied, ErrInvalidArgument
	}
	d, err := s.repo.Get(ctx, docID)
	if errors.Is(err, repository.ErrNotFound) {
		d = document.New(docID, userID, title)
		if err := s.repo.Create(ctx, d); err != nil {
			return nil, document.CapabilityDenied, fmt.Errorf("create document: %w", err)
		}
		return d, document.CapabilityOwner, nil
	}
	if err != nil {
		return nil, document.CapabilityDenied, fmt.Errorf("fetch document: %w", err)
	}
	cap := d.ResolveCapability(userID)
	if !cap.CanView() {
		return nil, document.CapabilityDenied, ErrUnauthorized
	}
	return d, cap, nil
}

// SaveContent writes content for docID. Last write wins; there is no merge
// and no debouncing, callers decide save cadence.
func (s *Service) SaveContent(ctx context.Context, docID string, content json.RawMessage) error {
	err := s.repo.UpdateContent(ctx, docID, content)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("save content: %w", err)
	}
	return nil
}

// ListOwned returns all documents owned by userID.
func (s *Service) ListOwned(ctx context.Context, userID string) ([]*document.Document, error) {
	docs, err := s.repo.ListByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

// SetPrivacyMode changes the default capability of docID. Owner only; the
// mode is validated before any store access.
func (s *Service) SetPrivacyMode(ctx context.Context, docID, userID string, mode document.PrivacyMode) (*document.Document, error) {
	if !mode.Valid() {
		return nil, ErrInvalidArgument
	}
	d, err := s.ownedDocument(ctx, docID, userID)
	if err != nil {
		return nil, err
	}
	d.PrivacyMode = mode
	if err := s.repo.UpdatePermissions(ctx, d); err != nil {
		return nil, fmt.Errorf("update permissions: %w", err)
	}
	return d, nil
}

// RequestAccess records an access request by userID. Idempotent; requests
// from users that already hold a grant are dropped without a store write.
func (s *Service) RequestAccess(ctx context.Context, docID, userID string) error {
	d, err := s.repo.Get(ctx, docID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("fetch document: %w", err)
	}
	if !d.AddRequest(userID) {
		return nil
	}
	if err := s.repo.UpdatePermissions(ctx, d); err != nil {
		return fmt.Errorf("update permissions: %w", err)
	}
	return nil
}

// Requests returns the pending access requests for docID. Owner only.
func (s *Service) Requests(ctx context.Context, docID, userID string) ([]string, error) {
	d, err := s.ownedDocument(ctx, docID, userID)
	if err != nil {
		return nil, err
	}
	return d.PendingRequests, nil
}

// GrantEditor promotes targetID to editor on docID. Owner only. The grant
// and the pending-request removal are persisted in a single store write.
func (s *Service) GrantEditor(ctx context.Context, docID, userID, targetID string) (*document.Document, error) {
	d, err := s.ownedDocument(ctx, docID, userID)
	if err != nil {
		return nil, err
	}
	d.GrantEditor(targetID)
	if err := s.repo.UpdatePermissions(ctx, d); err != nil {
		return nil, fmt.Errorf("update permissions: %w", err)
	}
	return d, nil
}

// GrantViewer adds targetID as viewer on docID. Owner only. An existing
// editor grant is kept (viewer grant never demotes).
func (s *Service) GrantViewer(ctx context.Context, docID, userID, targetID string) (*document.Document, error) {
	d, err := s.ownedDocument(ctx, docID, userID)
	if err != nil {
		return nil, err
	}
	d.GrantViewer(targetID)
	if err := s.repo.UpdatePermissions(ctx, d); err != nil {
		return nil, fmt.Errorf("update permissions: %w", err)
	}
	return d, nil
}

func (s *Service) ownedDocument(ctx context.Context, docID, userID string) (*document.Document, error) {
	d, err := s.repo.Get(ctx, docID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch document: %w", err)
	}
	if d.OwnerID != userID {
		return nil, ErrUnauthorized
	}
	return d, nil
}

package notifications

import (
	"context"
	"time"

	"github.com/angelmondragon/tollwatch-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/tollwatch-backend/pkg/errors"
	"github.com/angelmondragon/tollwatch-backend/pkg/pagination"
	"github.com/google/uuid"
)

// Service defines notification read operations.
type Service interface {
	MarkAsRead(ctx context.Context, ids []uuid.UUID, userID uuid.UUID) (int64, error)
	ListUnread(ctx context.Context, params ListParams) (*ListResult, error)
}

type service struct {
	repo Repository
	now  func() time.Time
}

// ListParams configures pagination for unread notifications.
type ListParams struct {
	UserID uuid.UUID
	Limit  int
	Cursor string
}

// ListResult wraps returned notifications and the cursor for the next page.
type ListResult struct {
	Items  []models.Notification `json:"items"`
	Cursor string                `json:"cursor"`
}

// NewService wires notifications dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

// MarkAsRead flips the caller's sent notifications among ids to read and
// returns how many changed. Ids owned by other users, already read or
// unknown are ignored.
func (s *service) MarkAsRead(ctx context.Context, ids []uuid.UUID, userID uuid.UUID) (int64, error) {
	if userID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	filtered := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id != uuid.Nil {
			filtered = append(filtered, id)
		}
	}
	if len(filtered) == 0 {
		return 0, nil
	}

	count, err := s.repo.MarkRead(ctx, userID, filtered, s.now().UTC())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeStore, err, "mark notifications read")
	}
	return count, nil
}

func (s *service) ListUnread(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	query := listUnreadParams{
		UserID: params.UserID,
		Limit:  params.Limit,
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.ListUnread(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStore, err, "list notifications")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}

	return &ListResult{
		Items:  rows,
		Cursor: cursor,
	}, nil
}

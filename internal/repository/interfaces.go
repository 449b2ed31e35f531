package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/YassinSultan/CoreSystem-Backend/internal/model"
	"github.com/YassinSultan/CoreSystem-Backend/internal/query"
)

var ErrNotFound = errors.New("not found")

// RecordRepository stores the generic resource envelopes. Every mutation is
// atomic per record: a data merge and its audit entry land in one statement.
type RecordRepository interface {
	Create(ctx context.Context, record *model.Record) error
	FindByID(ctx context.Context, resource string, id uuid.UUID) (*model.Record, error)
	List(ctx context.Context, resource string, opts query.Options) ([]*model.Record, error)
	Count(ctx context.Context, resource string, opts query.Options) (int64, error)
	// UpdateData merges set into the record's data. A nil value in set is
	// stored as JSON null; the key stays present on the document. When entry
	// is non-nil it is appended to the update history in the same statement.
	UpdateData(ctx context.Context, resource string, id uuid.UUID, set map[string]interface{}, entry *model.AuditEntry) (*model.Record, error)
	// SetDeletion flips the soft-deletion flag and stamps or clears the
	// deletion metadata, appending the audit entry atomically.
	SetDeletion(ctx context.Context, resource string, id uuid.UUID, deleted bool, by *uuid.UUID, entry *model.AuditEntry) (*model.Record, error)
	Delete(ctx context.Context, resource string, id uuid.UUID) error
}

type UserRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	Create(ctx context.Context, user *model.User) error
	Update(ctx context.Context, user *model.User) error
	List(ctx context.Context) ([]*model.User, error)
}

package model

import (
	"time"

	"github.com/google/uuid"
)

// FileRef points at a stored upload. FileName keeps the original (decoded)
// name; FileURL is the externally resolvable location. The two are always
// written together.
type FileRef struct {
	FileName string `json:"fileName"`
	FileURL  string `json:"fileUrl"`
}

// Change actions recorded in the update history.
const (
	ActionAdd    = "add"
	ActionModify = "modify"
	ActionDelete = "delete"
)

type FieldChange struct {
	Action   string      `json:"action"`
	Field    string      `json:"field"`
	OldValue interface{} `json:"oldValue"`
	NewValue interface{} `json:"newValue"`
}

// AuditEntry aggregates every change of one mutating call. Entries are
// append-only; nothing ever rewrites or removes them.
type AuditEntry struct {
	UpdatedBy uuid.UUID     `json:"updatedBy"`
	UpdatedAt time.Time     `json:"updatedAt"`
	Changes   []FieldChange `json:"changes"`
}

// Record is the persisted envelope shared by every resource type. Data holds
// the resource document itself (the declared fields of the ResourceType).
type Record struct {
	ID            uuid.UUID              `json:"id"`
	Resource      string                 `json:"resource"`
	Data          map[string]interface{} `json:"data"`
	IsDeleted     bool                   `json:"isDeleted"`
	DeletedBy     *uuid.UUID             `json:"deletedBy"`
	DeletedAt     *time.Time             `json:"deletedAt"`
	CreatedBy     *uuid.UUID             `json:"createdBy"`
	CreatedAt     time.Time              `json:"createdAt"`
	UpdatedAt     time.Time              `json:"updatedAt"`
	UpdateHistory []AuditEntry           `json:"updateHistory"`
}

// Document flattens the envelope and the data fields into one map, the shape
// responses and exports rely on.
func (r *Record) Document() map[string]interface{} {
	doc := make(map[string]interface{}, len(r.Data)+8)
	for k, v := range r.Data {
		doc[k] = v
	}
	doc["id"] = r.ID.String()
	doc["isDeleted"] = r.IsDeleted
	doc["deletedBy"] = uuidPtrValue(r.DeletedBy)
	doc["deletedAt"] = timePtrValue(r.DeletedAt)
	doc["createdBy"] = uuidPtrValue(r.CreatedBy)
	doc["createdAt"] = r.CreatedAt.UTC().Format(time.RFC3339Nano)
	doc["updatedAt"] = r.UpdatedAt.UTC().Format(time.RFC3339Nano)
	history := r.UpdateHistory
	if history == nil {
		history = []AuditEntry{}
	}
	doc["updateHistory"] = history
	return doc
}

// Clone returns a deep-enough copy for read-modify-write flows: the data map
// is copied one level down, history is copied as a slice.
func (r *Record) Clone() *Record {
	out := *r
	out.Data = make(map[string]interface{}, len(r.Data))
	for k, v := range r.Data {
		out.Data[k] = v
	}
	out.UpdateHistory = make([]AuditEntry, len(r.UpdateHistory))
	copy(out.UpdateHistory, r.UpdateHistory)
	return &out
}

func uuidPtrValue(v *uuid.UUID) interface{} {
	if v == nil {
		return nil
	}
	return v.String()
}

func timePtrValue(v *time.Time) interface{} {
	if v == nil {
		return nil
	}
	return v.UTC().Format(time.RFC3339Nano)
}

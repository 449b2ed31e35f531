package crud

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/YassinSultan/CoreSystem-Backend/internal/apierr"
	"github.com/YassinSultan/CoreSystem-Backend/internal/model"
	"github.com/YassinSultan/CoreSystem-Backend/internal/repository"
	"github.com/YassinSultan/CoreSystem-Backend/internal/upload"
)

// Array item operations cover the list-of-subrecords fields (protocols,
// financials, officers, item details, letter attachments). Every item gets
// its own id and registration stamp; each mutation appends one audit entry.

func (e *Engine) AddArrayItem(ctx context.Context, rt model.ResourceType, id uuid.UUID, field string, item map[string]interface{}, parts []upload.Part, principal uuid.UUID) (*model.Record, error) {
	if !rt.IsArrayField(field) {
		return nil, apierr.Validation("الحقل %s ليس قائمة", field)
	}

	existing, err := e.records.FindByID(ctx, rt.Name, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apierr.NotFound("العنصر غير موجود")
	}
	if err != nil {
		return nil, err
	}

	newItem := decodeBody(item)
	newItem["id"] = uuid.New().String()
	if _, ok := newItem["registrationDate"]; !ok {
		newItem["registrationDate"] = e.now().UTC().Format(time.RFC3339)
	}

	if len(parts) > 0 {
		ref, err := e.resolveItemFile(ctx, rt, id, field, parts)
		if err != nil {
			return nil, err
		}
		if ref != nil {
			newItem["file"] = *ref
		}
	}

	items := arrayItems(existing.Data, field)
	items = append(items, newItem)

	entry := &model.AuditEntry{
		UpdatedBy: principal,
		UpdatedAt: e.now().UTC(),
		Changes: []model.FieldChange{
			{Action: model.ActionAdd, Field: field, OldValue: nil, NewValue: newItem},
		},
	}
	return e.records.UpdateData(ctx, rt.Name, id, map[string]interface{}{field: items}, entry)
}

func (e *Engine) UpdateArrayItem(ctx context.Context, rt model.ResourceType, id uuid.UUID, field, itemID string, patch map[string]interface{}, parts []upload.Part, principal uuid.UUID) (*model.Record, error) {
	if !rt.IsArrayField(field) {
		return nil, apierr.Validation("الحقل %s ليس قائمة", field)
	}

	existing, err := e.records.FindByID(ctx, rt.Name, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apierr.NotFound("العنصر غير موجود")
	}
	if err != nil {
		return nil, err
	}

	items := arrayItems(existing.Data, field)
	index := findItem(items, itemID)
	if index < 0 {
		return nil, apierr.NotFound("العنصر غير موجود داخل %s", field)
	}

	oldItem := items[index].(map[string]interface{})
	newItem := make(map[string]interface{}, len(oldItem)+len(patch))
	for k, v := range oldItem {
		newItem[k] = v
	}
	for k, v := range decodeBody(patch) {
		if k == "id" || k == "registrationDate" {
			continue
		}
		newItem[k] = v
	}

	if len(parts) > 0 {
		ref, err := e.resolveItemFile(ctx, rt, id, field, parts)
		if err != nil {
			return nil, err
		}
		if ref != nil {
			if old, ok := oldItem["file"]; ok {
				e.deleteFileRef(old)
			}
			newItem["file"] = *ref
		}
	}

	items[index] = newItem

	entry := &model.AuditEntry{
		UpdatedBy: principal,
		UpdatedAt: e.now().UTC(),
		Changes: []model.FieldChange{
			{Action: model.ActionModify, Field: field, OldValue: oldItem, NewValue: newItem},
		},
	}
	return e.records.UpdateData(ctx, rt.Name, id, map[string]interface{}{field: items}, entry)
}

func (e *Engine) RemoveArrayItem(ctx context.Context, rt model.ResourceType, id uuid.UUID, field, itemID string, principal uuid.UUID) (*model.Record, error) {
	if !rt.IsArrayField(field) {
		return nil, apierr.Validation("الحقل %s ليس قائمة", field)
	}

	existing, err := e.records.FindByID(ctx, rt.Name, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apierr.NotFound("العنصر غير موجود")
	}
	if err != nil {
		return nil, err
	}

	items := arrayItems(existing.Data, field)
	index := findItem(items, itemID)
	if index < 0 {
		return nil, apierr.NotFound("العنصر غير موجود داخل %s", field)
	}

	removed := items[index]
	if item, ok := removed.(map[string]interface{}); ok {
		if file, ok := item["file"]; ok {
			e.deleteFileRef(file)
		}
	}
	items = append(items[:index], items[index+1:]...)

	entry := &model.AuditEntry{
		UpdatedBy: principal,
		UpdatedAt: e.now().UTC(),
		Changes: []model.FieldChange{
			{Action: model.ActionDelete, Field: field, OldValue: removed, NewValue: nil},
		},
	}
	return e.records.UpdateData(ctx, rt.Name, id, map[string]interface{}{field: items}, entry)
}

// resolveItemFile stores the parts under the array field and returns the
// single resulting FileRef. Item endpoints accept one file per call.
func (e *Engine) resolveItemFile(ctx context.Context, rt model.ResourceType, id uuid.UUID, field string, parts []upload.Part) (*model.FileRef, error) {
	for i := range parts {
		parts[i].LogicalField = field
		parts[i].Position = i
	}
	groups, err := e.resolver.Resolve(ctx, parts, rt.Name, id.String())
	if err != nil {
		return nil, err
	}
	if len(groups) == 0 || len(groups[0].Files) == 0 {
		return nil, nil
	}
	file := groups[0].Files[0]
	return &model.FileRef{FileName: file.FileName, FileURL: file.FileURL}, nil
}

func (e *Engine) deleteFileRef(value interface{}) {
	url := ""
	switch ref := value.(type) {
	case model.FileRef:
		url = ref.FileURL
	case map[string]interface{}:
		if s, ok := ref["fileUrl"].(string); ok {
			url = s
		}
	}
	if url == "" {
		return
	}
	if !e.store.Delete(url) {
		e.logger.Warn("stored file not removed", zap.String("url", url))
	}
}

func arrayItems(data map[string]interface{}, field string) []interface{} {
	items, ok := data[field].([]interface{})
	if !ok {
		return []interface{}{}
	}
	out := make([]interface{}, len(items))
	copy(out, items)
	return out
}

func findItem(items []interface{}, itemID string) int {
	for i, raw := range items {
		item, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		if id, ok := item["id"].(string); ok && id == itemID {
			return i
		}
	}
	return -1
}

// Package crud implements the generic record lifecycle shared by every
// resource type: create with attachments, filtered listing, relation
// expansion, tracked updates, soft deletion and recovery.
package crud

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/YassinSultan/CoreSystem-Backend/internal/apierr"
	"github.com/YassinSultan/CoreSystem-Backend/internal/metrics"
	"github.com/YassinSultan/CoreSystem-Backend/internal/model"
	"github.com/YassinSultan/CoreSystem-Backend/internal/query"
	"github.com/YassinSultan/CoreSystem-Backend/internal/repository"
	"github.com/YassinSultan/CoreSystem-Backend/internal/storage"
	"github.com/YassinSultan/CoreSystem-Backend/internal/tracker"
	"github.com/YassinSultan/CoreSystem-Backend/internal/upload"
)

// ListResult is the page shape handed back to list endpoints. Pagination
// metadata is attached only when the caller asked for a page.
type ListResult struct {
	Result     []map[string]interface{}
	TotalItems int64
	TotalPages int
	Page       int
	Limit      int
	Paginated  bool
}

type Engine struct {
	records  repository.RecordRepository
	resolver *upload.Resolver
	store    storage.Storage
	logger   *zap.Logger
	now      func() time.Time
}

func NewEngine(records repository.RecordRepository, resolver *upload.Resolver, store storage.Storage, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		records:  records,
		resolver: resolver,
		store:    store,
		logger:   logger,
		now:      time.Now,
	}
}

// CreateOne validates required fields, persists the record, then resolves and
// attaches uploads. The record exists before any file is written so uploads
// land under its id; a failed attachment rolls the record back.
func (e *Engine) CreateOne(ctx context.Context, rt model.ResourceType, body map[string]interface{}, parts []upload.Part, principal uuid.UUID) (*model.Record, error) {
	data := decodeBody(body)

	for _, field := range rt.Required {
		if isBlank(data[field]) {
			return nil, apierr.Validation("الحقل %s مطلوب", field)
		}
	}

	data = filterFields(rt, data)
	e.stampRegistration(rt, data)

	record := &model.Record{
		Resource:  rt.Name,
		Data:      data,
		CreatedBy: &principal,
	}
	if err := e.records.Create(ctx, record); err != nil {
		return nil, err
	}

	if len(parts) == 0 {
		metrics.IncRecordOperation(rt.Name, "create")
		return record, nil
	}

	groups, err := e.resolver.Resolve(ctx, parts, rt.Name, record.ID.String())
	if err != nil {
		e.rollbackCreate(ctx, rt, record.ID)
		return nil, err
	}

	set := attachmentSet(rt, record.Data, groups)
	if len(set) == 0 {
		metrics.IncRecordOperation(rt.Name, "create")
		return record, nil
	}

	updated, err := e.records.UpdateData(ctx, rt.Name, record.ID, set, nil)
	if err != nil {
		e.rollbackCreate(ctx, rt, record.ID)
		return nil, err
	}
	metrics.IncRecordOperation(rt.Name, "create")
	return updated, nil
}

func (e *Engine) rollbackCreate(ctx context.Context, rt model.ResourceType, id uuid.UUID) {
	if err := e.records.Delete(ctx, rt.Name, id); err != nil {
		e.logger.Warn("rollback of created record failed",
			zap.String("resource", rt.Name),
			zap.String("record_id", id.String()),
			zap.Error(err))
	}
	e.store.DeleteFolder(rt.Name, id.String())
}

// GetOne fetches one record as a document, expanded and projected per opts.
func (e *Engine) GetOne(ctx context.Context, rt model.ResourceType, id uuid.UUID, opts query.Options) (map[string]interface{}, error) {
	record, err := e.records.FindByID(ctx, rt.Name, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apierr.NotFound("العنصر غير موجود")
	}
	if err != nil {
		return nil, err
	}

	doc := record.Document()
	e.populate(ctx, rt, doc, opts.Populates)
	return project(doc, opts.Fields), nil
}

// GetAll lists records for the resource. Keyword search is pushed down to the
// store when the resource declares text fields and no relations are expanded,
// narrowing the fetch; the serialized-document filter still runs on the
// fetched page afterwards, so keywords living only in expanded references
// match too. Totals are left untouched by the filter.
func (e *Engine) GetAll(ctx context.Context, rt model.ResourceType, opts query.Options) (*ListResult, error) {
	if len(rt.TextFields) > 0 && len(opts.Populates) == 0 {
		opts.SearchFields = rt.TextFields
	}

	total, err := e.records.Count(ctx, rt.Name, opts)
	if err != nil {
		return nil, err
	}

	records, err := e.records.List(ctx, rt.Name, opts)
	if err != nil {
		return nil, err
	}

	docs := make([]map[string]interface{}, 0, len(records))
	for _, record := range records {
		doc := record.Document()
		e.populate(ctx, rt, doc, opts.Populates)
		docs = append(docs, project(doc, opts.Fields))
	}

	if opts.Keyword != "" {
		docs = keywordFilter(docs, opts.Keyword)
	}

	result := &ListResult{
		Result:     docs,
		TotalItems: total,
		TotalPages: 1,
		Page:       opts.Page,
		Limit:      opts.Limit,
		Paginated:  opts.Paginated,
	}
	if opts.Paginated && opts.Limit > 0 {
		result.TotalPages = int((total + int64(opts.Limit) - 1) / int64(opts.Limit))
	}
	return result, nil
}

// UpdateOne merges the allowed fields of body into the record and attaches
// any uploads. Plain updates carry no audit entry; tracked flows go through
// UpdateTracked.
func (e *Engine) UpdateOne(ctx context.Context, rt model.ResourceType, id uuid.UUID, body map[string]interface{}, parts []upload.Part, principal uuid.UUID) (*model.Record, error) {
	existing, err := e.records.FindByID(ctx, rt.Name, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apierr.NotFound("العنصر غير موجود")
	}
	if err != nil {
		return nil, err
	}

	set := filterFields(rt, decodeBody(body))
	for field, value := range set {
		if s, ok := value.(string); ok && s == tracker.NullSentinel {
			set[field] = nil
		}
	}

	if len(parts) > 0 {
		groups, err := e.resolver.Resolve(ctx, parts, rt.Name, id.String())
		if err != nil {
			return nil, err
		}
		for field, value := range attachmentSet(rt, mergedData(existing.Data, set), groups) {
			set[field] = value
		}
	}

	if len(set) == 0 {
		return existing, nil
	}

	updated, err := e.records.UpdateData(ctx, rt.Name, id, set, nil)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apierr.NotFound("العنصر غير موجود")
	}
	if err == nil {
		metrics.IncRecordOperation(rt.Name, "update")
	}
	return updated, err
}

// UpdateTracked diffs the incoming tracked fields against the stored record
// and applies only real changes, appending a single audit entry covering all
// of them. Uploads to file fields participate in the diff as FileRef values.
func (e *Engine) UpdateTracked(ctx context.Context, rt model.ResourceType, id uuid.UUID, body map[string]interface{}, tracked []string, parts []upload.Part, principal uuid.UUID) (*model.Record, error) {
	existing, err := e.records.FindByID(ctx, rt.Name, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apierr.NotFound("العنصر غير موجود")
	}
	if err != nil {
		return nil, err
	}

	decoded := decodeBody(body)
	incoming := filterFields(rt, decoded)
	// tracked fields may reach beyond the plain allowed set (step flows)
	for _, field := range tracked {
		if value, ok := decoded[field]; ok {
			incoming[field] = value
		}
	}

	if len(parts) > 0 {
		groups, err := e.resolver.Resolve(ctx, parts, rt.Name, id.String())
		if err != nil {
			return nil, err
		}
		for field, value := range attachmentSet(rt, mergedData(existing.Data, incoming), groups) {
			incoming[field] = value
		}
	}

	diff := tracker.Diff(existing.Data, incoming, tracked)

	set := diff.UpdateSet
	for field, value := range incoming {
		if !contains(tracked, field) {
			if set == nil {
				set = map[string]interface{}{}
			}
			set[field] = value
		}
	}

	if len(set) == 0 {
		return existing, nil
	}

	var entry *model.AuditEntry
	if len(diff.Changes) > 0 {
		entry = &model.AuditEntry{
			UpdatedBy: principal,
			UpdatedAt: e.now().UTC(),
			Changes:   diff.Changes,
		}
	}

	updated, err := e.records.UpdateData(ctx, rt.Name, id, set, entry)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apierr.NotFound("العنصر غير موجود")
	}
	if err == nil {
		metrics.IncRecordOperation(rt.Name, "update")
	}
	return updated, err
}

// SoftDeleteOne marks the record deleted. Deleting twice is a conflict that
// names the original deletion time.
func (e *Engine) SoftDeleteOne(ctx context.Context, rt model.ResourceType, id uuid.UUID, principal uuid.UUID) (*model.Record, error) {
	existing, err := e.records.FindByID(ctx, rt.Name, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apierr.NotFound("العنصر غير موجود")
	}
	if err != nil {
		return nil, err
	}

	if existing.IsDeleted {
		when := ""
		if existing.DeletedAt != nil {
			when = existing.DeletedAt.UTC().Format(time.RFC3339)
		}
		return nil, apierr.Conflict("تم حذف هذا العنصر مسبقًا في %s", when)
	}

	entry := &model.AuditEntry{
		UpdatedBy: principal,
		UpdatedAt: e.now().UTC(),
		Changes: []model.FieldChange{
			{Action: model.ActionModify, Field: "isDeleted", OldValue: false, NewValue: true},
			{Action: model.ActionModify, Field: "deletedBy", OldValue: nil, NewValue: principal.String()},
		},
	}
	updated, err := e.records.SetDeletion(ctx, rt.Name, id, true, &principal, entry)
	if err == nil {
		metrics.IncRecordOperation(rt.Name, "soft_delete")
	}
	return updated, err
}

// RecoverOne reverses a soft deletion.
func (e *Engine) RecoverOne(ctx context.Context, rt model.ResourceType, id uuid.UUID, principal uuid.UUID) (*model.Record, error) {
	existing, err := e.records.FindByID(ctx, rt.Name, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apierr.NotFound("العنصر غير موجود")
	}
	if err != nil {
		return nil, err
	}

	if !existing.IsDeleted {
		return nil, apierr.Conflict("العنصر غير محذوف")
	}

	var oldBy interface{}
	if existing.DeletedBy != nil {
		oldBy = existing.DeletedBy.String()
	}
	entry := &model.AuditEntry{
		UpdatedBy: principal,
		UpdatedAt: e.now().UTC(),
		Changes: []model.FieldChange{
			{Action: model.ActionModify, Field: "isDeleted", OldValue: true, NewValue: false},
			{Action: model.ActionModify, Field: "deletedBy", OldValue: oldBy, NewValue: nil},
		},
	}
	updated, err := e.records.SetDeletion(ctx, rt.Name, id, false, nil, entry)
	if err == nil {
		metrics.IncRecordOperation(rt.Name, "recover")
	}
	return updated, err
}

// HardDeleteOne removes the record and its upload folder. Folder removal is
// best effort; a leftover folder is picked up by the nightly sweep.
func (e *Engine) HardDeleteOne(ctx context.Context, rt model.ResourceType, id uuid.UUID) error {
	err := e.records.Delete(ctx, rt.Name, id)
	if errors.Is(err, repository.ErrNotFound) {
		return apierr.NotFound("العنصر غير موجود")
	}
	if err != nil {
		return err
	}

	if !e.store.DeleteFolder(rt.Name, id.String()) {
		e.logger.Warn("upload folder not removed",
			zap.String("resource", rt.Name),
			zap.String("record_id", id.String()))
	}
	metrics.IncRecordOperation(rt.Name, "hard_delete")
	return nil
}

// populate expands reference fields in place. Unresolvable references keep
// their raw value.
func (e *Engine) populate(ctx context.Context, rt model.ResourceType, doc map[string]interface{}, populates []query.Populate) {
	for _, p := range populates {
		refResource, ok := rt.References[p.Path]
		if !ok {
			continue
		}

		switch value := doc[p.Path].(type) {
		case string:
			if child := e.fetchReference(ctx, refResource, value, p); child != nil {
				doc[p.Path] = child
			}
		case []interface{}:
			expanded := make([]interface{}, len(value))
			for i, item := range value {
				raw, ok := item.(string)
				if !ok {
					expanded[i] = item
					continue
				}
				if child := e.fetchReference(ctx, refResource, raw, p); child != nil {
					expanded[i] = child
				} else {
					expanded[i] = item
				}
			}
			doc[p.Path] = expanded
		}
	}
}

func (e *Engine) fetchReference(ctx context.Context, refResource, rawID string, p query.Populate) map[string]interface{} {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil
	}
	refType, ok := model.ResourceByName(refResource)
	if !ok {
		return nil
	}

	record, err := e.records.FindByID(ctx, refResource, id)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			e.logger.Warn("reference expansion failed",
				zap.String("resource", refResource),
				zap.String("record_id", rawID),
				zap.Error(err))
		}
		return nil
	}

	child := record.Document()
	e.populate(ctx, refType, child, p.Children)
	return project(child, p.Select)
}

// stampRegistration records the creation moment for resources and array items
// that carry a registration date.
func (e *Engine) stampRegistration(rt model.ResourceType, data map[string]interface{}) {
	stamp := e.now().UTC().Format(time.RFC3339)
	if _, ok := data["registrationDate"]; !ok {
		data["registrationDate"] = stamp
	}
	for _, field := range rt.ArrayFields {
		items, ok := data[field].([]interface{})
		if !ok {
			continue
		}
		for _, raw := range items {
			item, ok := raw.(map[string]interface{})
			if !ok {
				continue
			}
			if _, ok := item["registrationDate"]; !ok {
				item["registrationDate"] = stamp
			}
		}
	}
}

// decodeBody re-types form values: strings holding valid JSON become their
// decoded form, everything else passes through unchanged.
func decodeBody(body map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(body))
	for key, value := range body {
		raw, ok := value.(string)
		if !ok {
			out[key] = value
			continue
		}
		trimmed := strings.TrimSpace(raw)
		// the "null" clearing sentinel must survive as a string for the
		// tracker to see it
		if trimmed != tracker.NullSentinel && looksLikeJSON(trimmed) {
			var parsed interface{}
			if err := json.Unmarshal([]byte(trimmed), &parsed); err == nil {
				out[key] = parsed
				continue
			}
		}
		out[key] = value
	}
	return out
}

func looksLikeJSON(s string) bool {
	if s == "" {
		return false
	}
	switch s[0] {
	case '{', '[', '"':
		return true
	}
	return s == "true" || s == "false" ||
		(s[0] >= '0' && s[0] <= '9') || s[0] == '-'
}

// filterFields keeps only the declared allowed and array fields. The "null"
// clearing sentinel survives filtering so tracked updates can see it.
func filterFields(rt model.ResourceType, data map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(data))
	for key, value := range data {
		if contains(rt.Allowed, key) || rt.IsArrayField(key) {
			out[key] = value
		}
	}
	return out
}

// attachmentSet turns resolved upload groups into a data update. Array field
// uploads land on the item at their declared index; single uploads become one
// FileRef, multiples a list.
func attachmentSet(rt model.ResourceType, data map[string]interface{}, groups []upload.Group) map[string]interface{} {
	set := make(map[string]interface{}, len(groups))
	for _, group := range groups {
		if rt.IsArrayField(group.Field) {
			items, ok := data[group.Field].([]interface{})
			if !ok {
				items = []interface{}{}
			}
			merged := make([]interface{}, len(items))
			copy(merged, items)
			for _, file := range group.Files {
				for len(merged) <= file.Index {
					merged = append(merged, map[string]interface{}{})
				}
				item, ok := merged[file.Index].(map[string]interface{})
				if !ok {
					item = map[string]interface{}{}
				}
				item["file"] = model.FileRef{FileName: file.FileName, FileURL: file.FileURL}
				merged[file.Index] = item
			}
			set[group.Field] = merged
			continue
		}

		refs := make([]model.FileRef, 0, len(group.Files))
		for _, file := range group.Files {
			refs = append(refs, model.FileRef{FileName: file.FileName, FileURL: file.FileURL})
		}
		if len(refs) == 1 {
			set[group.Field] = refs[0]
		} else {
			set[group.Field] = refs
		}
	}
	return set
}

func mergedData(base, overlay map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(base)+len(overlay))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overlay {
		out[k] = v
	}
	return out
}

func project(doc map[string]interface{}, fields []string) map[string]interface{} {
	if len(fields) == 0 {
		return doc
	}
	out := make(map[string]interface{}, len(fields)+1)
	if id, ok := doc["id"]; ok {
		out["id"] = id
	}
	for _, field := range fields {
		if value, ok := doc[field]; ok {
			out[field] = value
		}
	}
	return out
}

func keywordFilter(docs []map[string]interface{}, keyword string) []map[string]interface{} {
	needle := strings.ToLower(keyword)
	out := make([]map[string]interface{}, 0, len(docs))
	for _, doc := range docs {
		raw, err := json.Marshal(doc)
		if err != nil {
			continue
		}
		if strings.Contains(strings.ToLower(string(raw)), needle) {
			out = append(out, doc)
		}
	}
	return out
}

func contains(list []string, item string) bool {
	for _, v := range list {
		if v == item {
			return true
		}
	}
	return false
}

func isBlank(v interface{}) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

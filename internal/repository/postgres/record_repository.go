package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/YassinSultan/CoreSystem-Backend/internal/model"
	"github.com/YassinSultan/CoreSystem-Backend/internal/query"
	"github.com/YassinSultan/CoreSystem-Backend/internal/repository"
)

type recordRepository struct {
	pool *pgxpool.Pool
}

func NewRecordRepository(pool *pgxpool.Pool) repository.RecordRepository {
	return &recordRepository{pool: pool}
}

var _ repository.RecordRepository = (*recordRepository)(nil)

const recordColumns = `
	id,
	resource,
	data,
	is_deleted,
	deleted_by,
	deleted_at,
	created_by,
	created_at,
	updated_at,
	update_history
`

// envelopeColumns maps document field names onto real columns; anything else
// lives inside the data jsonb.
var envelopeColumns = map[string]string{
	"id":        "id",
	"isDeleted": "is_deleted",
	"deletedBy": "deleted_by",
	"deletedAt": "deleted_at",
	"createdBy": "created_by",
	"createdAt": "created_at",
	"updatedAt": "updated_at",
}

func (r *recordRepository) Create(ctx context.Context, record *model.Record) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = record.CreatedAt
	}
	if record.Data == nil {
		record.Data = map[string]interface{}{}
	}
	if record.UpdateHistory == nil {
		record.UpdateHistory = []model.AuditEntry{}
	}

	data, err := json.Marshal(record.Data)
	if err != nil {
		return fmt.Errorf("encode record data: %w", err)
	}
	history, err := json.Marshal(record.UpdateHistory)
	if err != nil {
		return fmt.Errorf("encode update history: %w", err)
	}

	query := `
		INSERT INTO records (
			id, resource, data, is_deleted, deleted_by, deleted_at,
			created_by, created_at, updated_at, update_history
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = r.pool.Exec(
		ctx,
		query,
		record.ID,
		record.Resource,
		data,
		record.IsDeleted,
		record.DeletedBy,
		record.DeletedAt,
		record.CreatedBy,
		record.CreatedAt,
		record.UpdatedAt,
		history,
	)
	return err
}

func (r *recordRepository) FindByID(ctx context.Context, resource string, id uuid.UUID) (*model.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM records WHERE resource = $1 AND id = $2`
	record, err := scanRecord(r.pool.QueryRow(ctx, query, resource, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (r *recordRepository) List(ctx context.Context, resource string, opts query.Options) ([]*model.Record, error) {
	args := []any{resource}
	conditions := buildRecordConditions(opts, &args)

	var builder strings.Builder
	builder.WriteString("SELECT ")
	builder.WriteString(recordColumns)
	builder.WriteString(" FROM records WHERE resource = $1")
	for _, cond := range conditions {
		builder.WriteString(" AND ")
		builder.WriteString(cond)
	}

	builder.WriteString(" ORDER BY ")
	builder.WriteString(buildOrderBy(opts.Sorts))

	if opts.Paginated {
		args = append(args, opts.Limit, opts.Skip())
		_, _ = fmt.Fprintf(&builder, " LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	rows, err := r.pool.Query(ctx, builder.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]*model.Record, 0, 16)
	for rows.Next() {
		item, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

func (r *recordRepository) Count(ctx context.Context, resource string, opts query.Options) (int64, error) {
	args := []any{resource}
	conditions := buildRecordConditions(opts, &args)

	var builder strings.Builder
	builder.WriteString("SELECT COUNT(*) FROM records WHERE resource = $1")
	for _, cond := range conditions {
		builder.WriteString(" AND ")
		builder.WriteString(cond)
	}

	var total int64
	if err := r.pool.QueryRow(ctx, builder.String(), args...).Scan(&total); err != nil {
		return 0, err
	}

	return total, nil
}

func (r *recordRepository) UpdateData(ctx context.Context, resource string, id uuid.UUID, set map[string]interface{}, entry *model.AuditEntry) (*model.Record, error) {
	// nil values encode as JSON null, so a cleared field stays present in
	// the document and remains visible to exists filters.
	setJSON, err := json.Marshal(set)
	if err != nil {
		return nil, fmt.Errorf("encode update set: %w", err)
	}
	historyJSON, err := encodeHistoryEntry(entry)
	if err != nil {
		return nil, err
	}

	query := `
		UPDATE records
		SET data = data || $3::jsonb,
			update_history = update_history || $4::jsonb,
			updated_at = NOW()
		WHERE resource = $1 AND id = $2
		RETURNING ` + recordColumns

	record, err := scanRecord(r.pool.QueryRow(ctx, query, resource, id, setJSON, historyJSON))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (r *recordRepository) SetDeletion(ctx context.Context, resource string, id uuid.UUID, deleted bool, by *uuid.UUID, entry *model.AuditEntry) (*model.Record, error) {
	historyJSON, err := encodeHistoryEntry(entry)
	if err != nil {
		return nil, err
	}

	var deletedAt *time.Time
	if deleted {
		now := time.Now().UTC()
		deletedAt = &now
	} else {
		by = nil
	}

	query := `
		UPDATE records
		SET is_deleted = $3,
			deleted_by = $4,
			deleted_at = $5,
			update_history = update_history || $6::jsonb,
			updated_at = NOW()
		WHERE resource = $1 AND id = $2
		RETURNING ` + recordColumns

	record, err := scanRecord(r.pool.QueryRow(ctx, query, resource, id, deleted, by, deletedAt, historyJSON))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (r *recordRepository) Delete(ctx context.Context, resource string, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM records WHERE resource = $1 AND id = $2`, resource, id)
	if err != nil {
		return err
	}
	return ensureAffected(tag)
}

func encodeHistoryEntry(entry *model.AuditEntry) ([]byte, error) {
	if entry == nil {
		return []byte("[]"), nil
	}
	raw, err := json.Marshal([]*model.AuditEntry{entry})
	if err != nil {
		return nil, fmt.Errorf("encode audit entry: %w", err)
	}
	return raw, nil
}

// buildRecordConditions renders query conditions into SQL fragments with
// positional args. Envelope fields compare against their columns, everything
// else against the data jsonb as text (numeric when the value parses as one).
func buildRecordConditions(opts query.Options, args *[]any) []string {
	conditions := make([]string, 0, len(opts.Conditions)+1)

	for _, cond := range opts.Conditions {
		if fragment := renderCondition(cond, args); fragment != "" {
			conditions = append(conditions, fragment)
		}
	}

	if opts.Keyword != "" && len(opts.SearchFields) > 0 {
		*args = append(*args, "%"+opts.Keyword+"%")
		pos := len(*args)
		parts := make([]string, 0, len(opts.SearchFields))
		for _, field := range opts.SearchFields {
			parts = append(parts, fmt.Sprintf("data->>'%s' ILIKE $%d", sanitizeJSONKey(field), pos))
		}
		conditions = append(conditions, "("+strings.Join(parts, " OR ")+")")
	}

	return conditions
}

func renderCondition(cond query.Condition, args *[]any) string {
	expr, isColumn := fieldExpr(cond.Field)

	switch cond.Op {
	case query.OpExists:
		want := true
		if b, ok := cond.Value.(bool); ok {
			want = b
		}
		if isColumn {
			if want {
				return expr + " IS NOT NULL"
			}
			return expr + " IS NULL"
		}
		if want {
			return fmt.Sprintf("data ? '%s'", sanitizeJSONKey(cond.Field))
		}
		return fmt.Sprintf("NOT (data ? '%s')", sanitizeJSONKey(cond.Field))

	case query.OpIn, query.OpNin:
		values, ok := cond.Value.([]string)
		if !ok || len(values) == 0 {
			return ""
		}
		*args = append(*args, values)
		if cond.Op == query.OpIn {
			return fmt.Sprintf("%s = ANY($%d)", textExpr(expr, isColumn), len(*args))
		}
		return fmt.Sprintf("%s <> ALL($%d)", textExpr(expr, isColumn), len(*args))

	default:
		operator := sqlOperator(cond.Op)
		if operator == "" {
			return ""
		}
		if raw, ok := cond.Value.(string); ok && !isColumn {
			if _, err := strconv.ParseFloat(raw, 64); err == nil {
				*args = append(*args, raw)
				return fmt.Sprintf("(%s)::numeric %s $%d::numeric", expr, operator, len(*args))
			}
		}
		*args = append(*args, cond.Value)
		return fmt.Sprintf("%s %s $%d", textExpr(expr, isColumn), operator, len(*args))
	}
}

func sqlOperator(op query.Op) string {
	switch op {
	case query.OpEq:
		return "="
	case query.OpNe:
		return "<>"
	case query.OpGte:
		return ">="
	case query.OpGt:
		return ">"
	case query.OpLte:
		return "<="
	case query.OpLt:
		return "<"
	default:
		return ""
	}
}

func fieldExpr(field string) (expr string, isColumn bool) {
	if column, ok := envelopeColumns[field]; ok {
		return column, true
	}
	return fmt.Sprintf("data->>'%s'", sanitizeJSONKey(field)), false
}

// textExpr casts envelope columns to text so string params compare cleanly;
// boolean and timestamp columns keep their native type.
func textExpr(expr string, isColumn bool) string {
	if isColumn && expr != "is_deleted" && !strings.HasSuffix(expr, "_at") {
		return expr + "::text"
	}
	return expr
}

func buildOrderBy(sorts []query.Sort) string {
	if len(sorts) == 0 {
		return "created_at DESC"
	}

	parts := make([]string, 0, len(sorts))
	for _, s := range sorts {
		expr, _ := fieldExpr(s.Field)
		direction := "ASC"
		if s.Desc {
			direction = "DESC"
		}
		parts = append(parts, expr+" "+direction)
	}
	return strings.Join(parts, ", ")
}

// sanitizeJSONKey keeps only characters legal in declared field names. Field
// names reach SQL as literals inside data->>'...', so everything else is
// stripped.
func sanitizeJSONKey(key string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '.':
			return r
		default:
			return -1
		}
	}, key)
}

func scanRecord(src scanTarget) (*model.Record, error) {
	record := &model.Record{}
	var data, history []byte

	err := src.Scan(
		&record.ID,
		&record.Resource,
		&data,
		&record.IsDeleted,
		&record.DeletedBy,
		&record.DeletedAt,
		&record.CreatedBy,
		&record.CreatedAt,
		&record.UpdatedAt,
		&history,
	)
	if err != nil {
		return nil, err
	}

	if record.Data, err = decodeJSONMap(data); err != nil {
		return nil, fmt.Errorf("decode record data: %w", err)
	}
	if len(history) > 0 {
		if err := json.Unmarshal(history, &record.UpdateHistory); err != nil {
			return nil, fmt.Errorf("decode update history: %w", err)
		}
	}
	if record.UpdateHistory == nil {
		record.UpdateHistory = []model.AuditEntry{}
	}

	return record, nil
}

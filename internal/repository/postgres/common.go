package postgres

import (
	"encoding/json"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/YassinSultan/CoreSystem-Backend/internal/repository"
)

var ErrNotFound = repository.ErrNotFound

type scanTarget interface {
	Scan(dest ...any) error
}

func decodeJSONMap(raw []byte) (map[string]interface{}, error) {
	if len(raw) == 0 {
		return map[string]interface{}{}, nil
	}

	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = map[string]interface{}{}
	}

	return out, nil
}

func ensureAffected(tag pgconn.CommandTag) error {
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

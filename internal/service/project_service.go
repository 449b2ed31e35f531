package service

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/YassinSultan/CoreSystem-Backend/internal/apierr"
	"github.com/YassinSultan/CoreSystem-Backend/internal/crud"
	"github.com/YassinSultan/CoreSystem-Backend/internal/model"
	"github.com/YassinSultan/CoreSystem-Backend/internal/tracker"
	"github.com/YassinSultan/CoreSystem-Backend/internal/upload"
)

var (
	projectDateFields = []string{
		"end_date",
		"water_date", "electricity_date", "irrigation_date", "drainage_date",
		"water_file", "electricity_file", "irrigation_file", "drainage_file",
	}
	projectViewFields = []string{"aerial_view_file", "illustrative_view_file"}
)

type ProjectService struct {
	engine *crud.Engine
}

func NewProjectService(engine *crud.Engine) *ProjectService {
	return &ProjectService{engine: engine}
}

// UpdateDates edits the completion date and the utility connection dates and
// files. deleteFiles in the body lists connection files to clear.
func (s *ProjectService) UpdateDates(ctx context.Context, id uuid.UUID, body map[string]interface{}, parts []upload.Part, principal uuid.UUID) (*model.Record, error) {
	for _, field := range parseDeleteFiles(body) {
		if containsField(projectDateFields, field) {
			body[field] = tracker.NullSentinel
		}
	}
	delete(body, "deleteFiles")

	if len(body) == 0 && len(parts) == 0 {
		return nil, apierr.Validation("لم يتم تقديم أي بيانات للتحديث")
	}

	return s.engine.UpdateTracked(ctx, model.Projects, id, body, projectDateFields, parts, principal)
}

// UpdateViews replaces the aerial and illustrative view files.
func (s *ProjectService) UpdateViews(ctx context.Context, id uuid.UUID, parts []upload.Part, principal uuid.UUID) (*model.Record, error) {
	if len(parts) == 0 {
		return nil, apierr.Validation("لم يتم تقديم أي ملفات")
	}
	return s.engine.UpdateTracked(ctx, model.Projects, id, map[string]interface{}{}, projectViewFields, parts, principal)
}

func parseDeleteFiles(body map[string]interface{}) []string {
	raw, ok := body["deleteFiles"]
	if !ok {
		return nil
	}

	switch value := raw.(type) {
	case []interface{}:
		out := make([]string, 0, len(value))
		for _, item := range value {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		var out []string
		if err := json.Unmarshal([]byte(value), &out); err != nil {
			return nil
		}
		return out
	default:
		return nil
	}
}

func containsField(list []string, field string) bool {
	for _, v := range list {
		if v == field {
			return true
		}
	}
	return false
}

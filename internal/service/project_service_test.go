package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/YassinSultan/CoreSystem-Backend/internal/apierr"
	"github.com/YassinSultan/CoreSystem-Backend/internal/crud"
	"github.com/YassinSultan/CoreSystem-Backend/internal/model"
	"github.com/YassinSultan/CoreSystem-Backend/internal/upload"
)

func newProjectFixture(t *testing.T, data map[string]interface{}) (*ProjectService, uuid.UUID) {
	t.Helper()
	repo := newStubRepo()
	store := stubStorage{}
	engine := crud.NewEngine(repo, upload.NewResolver(store, 0), store, zap.NewNop())

	record := &model.Record{Resource: "projects", Data: data}
	if err := repo.Create(context.Background(), record); err != nil {
		t.Fatalf("seed project: %v", err)
	}
	return NewProjectService(engine), record.ID
}

func TestUpdateDatesTracksDateAndFile(t *testing.T) {
	t.Parallel()
	svc, id := newProjectFixture(t, map[string]interface{}{"name": "مشروع"})
	principal := uuid.New()

	updated, err := svc.UpdateDates(context.Background(), id, map[string]interface{}{
		"water_date": "2026-01-15",
	}, []upload.Part{
		{FieldName: "water_file", OriginalName: "water.pdf", Data: []byte("w")},
	}, principal)
	if err != nil {
		t.Fatalf("UpdateDates: %v", err)
	}

	if updated.Data["water_date"] != "2026-01-15" {
		t.Fatalf("water_date not set: %#v", updated.Data["water_date"])
	}
	if _, ok := updated.Data["water_file"]; !ok {
		t.Fatalf("water_file not attached: %+v", updated.Data)
	}
	if len(updated.UpdateHistory) != 1 || len(updated.UpdateHistory[0].Changes) != 2 {
		t.Fatalf("changes not audited together: %+v", updated.UpdateHistory)
	}
}

func TestUpdateDatesDeleteFilesClearsConnectionFile(t *testing.T) {
	t.Parallel()
	svc, id := newProjectFixture(t, map[string]interface{}{
		"name":       "مشروع",
		"water_file": map[string]interface{}{"fileName": "w.pdf", "fileUrl": "http://x/w.pdf"},
	})

	updated, err := svc.UpdateDates(context.Background(), id, map[string]interface{}{
		"deleteFiles": `["water_file"]`,
	}, nil, uuid.New())
	if err != nil {
		t.Fatalf("UpdateDates: %v", err)
	}
	if value, ok := updated.Data["water_file"]; !ok || value != nil {
		t.Fatalf("water_file not cleared to null: %+v", updated.Data)
	}
	if _, ok := updated.Data["deleteFiles"]; ok {
		t.Fatalf("deleteFiles leaked into data: %+v", updated.Data)
	}
}

func TestUpdateDatesRequiresSomething(t *testing.T) {
	t.Parallel()
	svc, id := newProjectFixture(t, map[string]interface{}{"name": "مشروع"})

	_, err := svc.UpdateDates(context.Background(), id, map[string]interface{}{}, nil, uuid.New())
	if !apierr.IsKind(err, apierr.KindValidation) {
		t.Fatalf("err = %v, want validation", err)
	}
}

func TestUpdateViewsReplacesFiles(t *testing.T) {
	t.Parallel()
	svc, id := newProjectFixture(t, map[string]interface{}{"name": "مشروع"})

	updated, err := svc.UpdateViews(context.Background(), id, []upload.Part{
		{FieldName: "aerial_view_file", OriginalName: "aerial.mp4", Data: []byte("a")},
	}, uuid.New())
	if err != nil {
		t.Fatalf("UpdateViews: %v", err)
	}
	if _, ok := updated.Data["aerial_view_file"]; !ok {
		t.Fatalf("aerial_view_file missing: %+v", updated.Data)
	}

	_, err = svc.UpdateViews(context.Background(), id, nil, uuid.New())
	if !apierr.IsKind(err, apierr.KindValidation) {
		t.Fatalf("empty upload: err = %v, want validation", err)
	}
}

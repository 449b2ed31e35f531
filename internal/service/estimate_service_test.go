package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/YassinSultan/CoreSystem-Backend/internal/apierr"
	"github.com/YassinSultan/CoreSystem-Backend/internal/crud"
	"github.com/YassinSultan/CoreSystem-Backend/internal/model"
	"github.com/YassinSultan/CoreSystem-Backend/internal/query"
	"github.com/YassinSultan/CoreSystem-Backend/internal/repository"
	"github.com/YassinSultan/CoreSystem-Backend/internal/upload"
)

type stubRepo struct {
	mu      sync.Mutex
	records map[uuid.UUID]*model.Record
}

func newStubRepo() *stubRepo {
	return &stubRepo{records: map[uuid.UUID]*model.Record{}}
}

func (s *stubRepo) Create(_ context.Context, record *model.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.Data == nil {
		record.Data = map[string]interface{}{}
	}
	record.UpdateHistory = []model.AuditEntry{}
	s.records[record.ID] = record.Clone()
	return nil
}

func (s *stubRepo) FindByID(_ context.Context, _ string, id uuid.UUID) (*model.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return record.Clone(), nil
}

func (s *stubRepo) List(context.Context, string, query.Options) ([]*model.Record, error) {
	return nil, nil
}

func (s *stubRepo) Count(context.Context, string, query.Options) (int64, error) {
	return 0, nil
}

func (s *stubRepo) UpdateData(_ context.Context, _ string, id uuid.UUID, set map[string]interface{}, entry *model.AuditEntry) (*model.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	for key, value := range set {
		record.Data[key] = value
	}
	if entry != nil {
		record.UpdateHistory = append(record.UpdateHistory, *entry)
	}
	record.UpdatedAt = time.Now().UTC()
	return record.Clone(), nil
}

func (s *stubRepo) SetDeletion(_ context.Context, _ string, id uuid.UUID, deleted bool, by *uuid.UUID, entry *model.AuditEntry) (*model.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	record.IsDeleted = deleted
	record.DeletedBy = by
	if entry != nil {
		record.UpdateHistory = append(record.UpdateHistory, *entry)
	}
	return record.Clone(), nil
}

func (s *stubRepo) Delete(_ context.Context, _ string, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.records, id)
	return nil
}

var _ repository.RecordRepository = (*stubRepo)(nil)

type stubStorage struct{}

func (stubStorage) Store(_ context.Context, _ []byte, originalName, category, recordID, subpath string) (string, error) {
	return fmt.Sprintf("http://x/uploads/%s/%s/%s/%s", category, recordID, subpath, originalName), nil
}
func (stubStorage) Delete(string) bool             { return true }
func (stubStorage) DeleteFolder(string, string) bool { return true }

func newEstimateFixture(t *testing.T, data map[string]interface{}) (*EstimateService, *stubRepo, uuid.UUID) {
	t.Helper()
	repo := newStubRepo()
	store := stubStorage{}
	engine := crud.NewEngine(repo, upload.NewResolver(store, 0), store, zap.NewNop())

	record := &model.Record{Resource: "estimates", Data: data}
	if err := repo.Create(context.Background(), record); err != nil {
		t.Fatalf("seed estimate: %v", err)
	}
	return NewEstimateService(engine, repo), repo, record.ID
}

func TestUpdateStepInvalidStep(t *testing.T) {
	t.Parallel()
	svc, _, id := newEstimateFixture(t, map[string]interface{}{"name": "م"})

	_, err := svc.UpdateStep(context.Background(), id, 4, map[string]interface{}{}, nil, uuid.New(), false)
	if !apierr.IsKind(err, apierr.KindValidation) {
		t.Fatalf("err = %v, want validation", err)
	}
}

func TestUpdateStepTwoGuardsEstimateNumber(t *testing.T) {
	t.Parallel()
	svc, _, id := newEstimateFixture(t, map[string]interface{}{
		"name":           "م",
		"estimateNumber": "EST-7",
	})

	_, err := svc.UpdateStep(context.Background(), id, 2, map[string]interface{}{
		"estimateNumber": "EST-8",
	}, nil, uuid.New(), false)
	if !apierr.IsKind(err, apierr.KindValidation) {
		t.Fatalf("non-admin rewrite: err = %v, want validation", err)
	}

	updated, err := svc.UpdateStep(context.Background(), id, 2, map[string]interface{}{
		"estimateNumber": "EST-8",
	}, nil, uuid.New(), true)
	if err != nil {
		t.Fatalf("admin rewrite: %v", err)
	}
	if updated.Data["estimateNumber"] != "EST-8" {
		t.Fatalf("estimateNumber not updated: %#v", updated.Data["estimateNumber"])
	}
}

func TestUpdateStepThreeGatedOnManagementStep(t *testing.T) {
	t.Parallel()
	svc, _, id := newEstimateFixture(t, map[string]interface{}{"name": "م"})

	_, err := svc.UpdateStep(context.Background(), id, 3, map[string]interface{}{
		"value_authority_normal": "500",
	}, nil, uuid.New(), false)
	if !apierr.IsKind(err, apierr.KindValidation) {
		t.Fatalf("gate: err = %v, want validation", err)
	}

	// admins bypass the gate
	if _, err := svc.UpdateStep(context.Background(), id, 3, map[string]interface{}{
		"value_authority_normal": "500",
	}, nil, uuid.New(), true); err != nil {
		t.Fatalf("admin bypass: %v", err)
	}
}

func TestUpdateStepOnDeletedEstimate(t *testing.T) {
	t.Parallel()
	svc, repo, id := newEstimateFixture(t, map[string]interface{}{"name": "م"})
	repo.records[id].IsDeleted = true

	_, err := svc.UpdateStep(context.Background(), id, 1, map[string]interface{}{"name": "x"}, nil, uuid.New(), false)
	if !apierr.IsKind(err, apierr.KindNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestContractRevertClearsDependents(t *testing.T) {
	t.Parallel()
	svc, _, id := newEstimateFixture(t, map[string]interface{}{
		"name":                     "م",
		"isContracted":             true,
		"contractValue":            float64(9000),
		"contractNotificationFile": map[string]interface{}{"fileName": "n.pdf", "fileUrl": "http://x/n.pdf"},
	})
	principal := uuid.New()

	updated, err := svc.Contract(context.Background(), id, map[string]interface{}{
		"isContracted": "false",
	}, nil, principal)
	if err != nil {
		t.Fatalf("Contract: %v", err)
	}

	if value, ok := updated.Data["contractValue"]; !ok || value != nil {
		t.Fatalf("contractValue not cleared to null: %+v", updated.Data)
	}
	if value, ok := updated.Data["contractNotificationFile"]; !ok || value != nil {
		t.Fatalf("contractNotificationFile not cleared to null: %+v", updated.Data)
	}
	if len(updated.UpdateHistory) != 1 {
		t.Fatalf("revert should be one audited update, got %d entries", len(updated.UpdateHistory))
	}
}

func TestCancelRevertClearsCancellationFile(t *testing.T) {
	t.Parallel()
	svc, _, id := newEstimateFixture(t, map[string]interface{}{
		"name":             "م",
		"isCancelled":      true,
		"cancellationFile": map[string]interface{}{"fileName": "c.pdf", "fileUrl": "http://x/c.pdf"},
	})

	updated, err := svc.Cancel(context.Background(), id, map[string]interface{}{
		"isCancelled": "false",
	}, nil, uuid.New())
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if value, ok := updated.Data["cancellationFile"]; !ok || value != nil {
		t.Fatalf("cancellationFile not cleared to null: %+v", updated.Data)
	}
}

func TestRestudyResetsPricingAndTransitions(t *testing.T) {
	t.Parallel()
	svc, _, id := newEstimateFixture(t, map[string]interface{}{
		"name":                       "م",
		"estimateValueForManagement": float64(1000),
		"estimateValueForAuthority":  float64(1100),
		"ironPrice":                  float64(50),
		"isContracted":               true,
		"completionReason":           "تم",
	})

	updated, err := svc.Restudy(context.Background(), id, uuid.New())
	if err != nil {
		t.Fatalf("Restudy: %v", err)
	}

	for _, field := range []string{"estimateValueForManagement", "estimateValueForAuthority", "ironPrice", "completionReason"} {
		if value, ok := updated.Data[field]; !ok || value != nil {
			t.Fatalf("%s not reset to null: %+v", field, updated.Data)
		}
	}
	if updated.Data["isContracted"] != false {
		t.Fatalf("isContracted = %#v, want false", updated.Data["isContracted"])
	}
	if len(updated.UpdateHistory) != 1 {
		t.Fatalf("restudy should append one entry, got %d", len(updated.UpdateHistory))
	}
}

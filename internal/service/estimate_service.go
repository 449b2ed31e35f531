package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/YassinSultan/CoreSystem-Backend/internal/apierr"
	"github.com/YassinSultan/CoreSystem-Backend/internal/crud"
	"github.com/YassinSultan/CoreSystem-Backend/internal/model"
	"github.com/YassinSultan/CoreSystem-Backend/internal/repository"
	"github.com/YassinSultan/CoreSystem-Backend/internal/tracker"
	"github.com/YassinSultan/CoreSystem-Backend/internal/upload"
)

// Estimates move through three review steps: the engineering study, the
// management pricing and the authority pricing. Each step tracks its own
// field set; later steps are gated on the earlier ones for non-admins.
var (
	estimateStep1Fields = []string{
		"project", "company", "name", "value", "area",
		"battalionProofDocument", "quantitySurveyFile", "approvalCertificateFile",
		"shopDrawingsDWGFile", "shopDrawingsPDFFile", "offersAndPriceAnalisisFile",
		"cementPrice", "ironPrice", "estimateType", "lengthOfLinearMeter",
	}
	estimateStep2Fields = []string{
		"value_normal", "value_electric", "value_ac", "value_fire",
		"value_plumbing", "value_maintenance",
		"duration_normal", "duration_electric", "duration_ac", "duration_fire",
		"duration_plumbing", "duration_maintenance",
		"estimateNumber", "estimateValueForManagement",
	}
	estimateStep3Fields = []string{
		"value_authority_normal", "value_authority_electric", "value_authority_ac",
		"value_authority_fire", "value_authority_plumbing", "value_authority_maintenance",
		"duration_authority_normal", "duration_authority_electric", "duration_authority_ac",
		"duration_authority_fire", "duration_authority_plumbing", "duration_authority_maintenance",
		"estimateValueForAuthority",
	}

	estimateCancelFields   = []string{"isCancelled", "cancellationFile"}
	estimateContractFields = []string{"isContracted", "contractNotificationFile", "contractValue"}
	estimateCompleteFields = []string{"completionReason", "completionProcedureName"}
)

// estimateRestudyResets returns every field a return-to-study clears.
func estimateRestudyResets() map[string]interface{} {
	return map[string]interface{}{
		"estimateValueForManagement": tracker.NullSentinel,
		"estimateValueForAuthority":  tracker.NullSentinel,
		"ironPrice":                  tracker.NullSentinel,
		"cementPrice":                tracker.NullSentinel,
		"isCancelled":                false,
		"cancellationFile":           tracker.NullSentinel,
		"isContracted":               false,
		"contractNotificationFile":   tracker.NullSentinel,
		"completionProcedureName":    tracker.NullSentinel,
		"completionReason":           tracker.NullSentinel,
	}
}

type EstimateService struct {
	engine  *crud.Engine
	records repository.RecordRepository
}

func NewEstimateService(engine *crud.Engine, records repository.RecordRepository) *EstimateService {
	return &EstimateService{engine: engine, records: records}
}

func (s *EstimateService) UpdateStep(ctx context.Context, id uuid.UUID, step int, body map[string]interface{}, parts []upload.Part, principal uuid.UUID, isAdmin bool) (*model.Record, error) {
	existing, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.IsDeleted {
		return nil, apierr.NotFound("هذه المقايسة محذوفة")
	}

	var tracked []string
	switch step {
	case 1:
		tracked = estimateStep1Fields
	case 2:
		if _, sent := body["estimateNumber"]; sent {
			if current, has := existing.Data["estimateNumber"]; has && current != nil && !isAdmin {
				return nil, apierr.Validation("لا يمكنك تعديل رقم المقايسة")
			}
		}
		tracked = estimateStep2Fields
	case 3:
		if !isAdmin && (existing.Data["estimateNumber"] == nil || existing.Data["estimateValueForManagement"] == nil) {
			return nil, apierr.Validation("يجب إكمال خطوة الإدارة أولاً")
		}
		tracked = estimateStep3Fields
	default:
		return nil, apierr.Validation("رقم الخطوة غير صالح")
	}

	return s.engine.UpdateTracked(ctx, model.Estimates, id, body, tracked, parts, principal)
}

// Cancel flips the cancellation state. Reverting a cancellation also clears
// the cancellation file.
func (s *EstimateService) Cancel(ctx context.Context, id uuid.UUID, body map[string]interface{}, parts []upload.Part, principal uuid.UUID) (*model.Record, error) {
	if isFalse(body["isCancelled"]) {
		body["cancellationFile"] = tracker.NullSentinel
	}
	return s.engine.UpdateTracked(ctx, model.Estimates, id, body, estimateCancelFields, parts, principal)
}

// Contract records the contracting decision. Reverting clears the contract
// notification and value.
func (s *EstimateService) Contract(ctx context.Context, id uuid.UUID, body map[string]interface{}, parts []upload.Part, principal uuid.UUID) (*model.Record, error) {
	if isFalse(body["isContracted"]) {
		body["contractNotificationFile"] = tracker.NullSentinel
		body["contractValue"] = tracker.NullSentinel
	}
	return s.engine.UpdateTracked(ctx, model.Estimates, id, body, estimateContractFields, parts, principal)
}

func (s *EstimateService) Complete(ctx context.Context, id uuid.UUID, body map[string]interface{}, principal uuid.UUID) (*model.Record, error) {
	return s.engine.UpdateTracked(ctx, model.Estimates, id, body, estimateCompleteFields, nil, principal)
}

// Restudy resets the pricing and transition fields so the estimate goes back
// to the study phase, in one audited update.
func (s *EstimateService) Restudy(ctx context.Context, id uuid.UUID, principal uuid.UUID) (*model.Record, error) {
	resets := estimateRestudyResets()
	tracked := make([]string, 0, len(resets))
	for field := range resets {
		tracked = append(tracked, field)
	}
	return s.engine.UpdateTracked(ctx, model.Estimates, id, resets, tracked, nil, principal)
}

func (s *EstimateService) find(ctx context.Context, id uuid.UUID) (*model.Record, error) {
	record, err := s.records.FindByID(ctx, model.Estimates.Name, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apierr.NotFound("المقايسة غير موجودة")
	}
	return record, err
}

func isFalse(v interface{}) bool {
	switch value := v.(type) {
	case bool:
		return !value
	case string:
		return value == "false"
	default:
		return false
	}
}

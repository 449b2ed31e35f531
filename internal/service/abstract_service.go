package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/YassinSultan/CoreSystem-Backend/internal/crud"
	"github.com/YassinSultan/CoreSystem-Backend/internal/model"
	"github.com/YassinSultan/CoreSystem-Backend/internal/upload"
)

// Abstract review flows past the base edit: the brigade leadership, the
// projects management, the financial branch and the central administration
// each stamp their own field set, every change audited.
var (
	abstractEditFields = []string{
		"estimate", "type", "number", "amount",
		"abstractFile", "attachmentFile",
		"steelUnitPrice", "steelTotal", "cementUnitPrice", "cementTotal",
		"ceramicsQuantity", "marbleQuantity", "bricksQuantity", "bricksUnitPrice",
		"abstractComments",
	}
	abstractLeadershipFields = []string{"deliveryDate", "subReport", "subReportDate"}
	abstractManagementFields = []string{
		"dateAbstractManagement", "procedureAbstractManagement",
		"statusAbstractManagement", "nameAbstractManagement", "notesAbstractManagement",
	}
	abstractFinancialFields = []string{"dateAbstractFinancial"}
	abstractCentralFields   = []string{"dateAbstractCentral", "codeAbstractCentral"}
)

type AbstractService struct {
	engine *crud.Engine
}

func NewAbstractService(engine *crud.Engine) *AbstractService {
	return &AbstractService{engine: engine}
}

// Update edits the abstract's own fields and files as one audited change set.
func (s *AbstractService) Update(ctx context.Context, id uuid.UUID, body map[string]interface{}, parts []upload.Part, principal uuid.UUID) (*model.Record, error) {
	return s.engine.UpdateTracked(ctx, model.Abstracts, id, body, abstractEditFields, parts, principal)
}

func (s *AbstractService) UpdateLeadership(ctx context.Context, id uuid.UUID, body map[string]interface{}, principal uuid.UUID) (*model.Record, error) {
	return s.branchUpdate(ctx, id, body, abstractLeadershipFields, principal)
}

func (s *AbstractService) UpdateManagement(ctx context.Context, id uuid.UUID, body map[string]interface{}, principal uuid.UUID) (*model.Record, error) {
	return s.branchUpdate(ctx, id, body, abstractManagementFields, principal)
}

func (s *AbstractService) UpdateFinancial(ctx context.Context, id uuid.UUID, body map[string]interface{}, principal uuid.UUID) (*model.Record, error) {
	return s.branchUpdate(ctx, id, body, abstractFinancialFields, principal)
}

func (s *AbstractService) UpdateCentral(ctx context.Context, id uuid.UUID, body map[string]interface{}, principal uuid.UUID) (*model.Record, error) {
	return s.branchUpdate(ctx, id, body, abstractCentralFields, principal)
}

// branchUpdate keeps a stamping flow on its own field set; anything else in
// the body is dropped, not merged.
func (s *AbstractService) branchUpdate(ctx context.Context, id uuid.UUID, body map[string]interface{}, tracked []string, principal uuid.UUID) (*model.Record, error) {
	picked := make(map[string]interface{}, len(tracked))
	for _, field := range tracked {
		if value, ok := body[field]; ok {
			picked[field] = value
		}
	}
	return s.engine.UpdateTracked(ctx, model.Abstracts, id, picked, tracked, nil, principal)
}

package handler

import (
	"context"
	"strings"
	"time"

	appcommission "github.com/FirplakDesarrollador/CRM-sub001/internal/application/commission"
	"github.com/FirplakDesarrollador/CRM-sub001/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// IdempotencyKeyHeader carries the client-chosen key of an accrual request.
const IdempotencyKeyHeader = "Idempotency-Key"

// CommissionService is the application service behind CommissionHandler.
type CommissionService interface {
	RecordAccrual(ctx context.Context, actorID string, req appcommission.RecordAccrualRequest) (*appcommission.AccrualResult, error)
	RecordAdjustment(ctx context.Context, actorID string, entryID uuid.UUID, req appcommission.RecordAdjustmentRequest) (*appcommission.LedgerEntryResponse, error)
	RecordReversal(ctx context.Context, actorID string, entryID uuid.UUID, req appcommission.RecordReversalRequest) (*appcommission.LedgerEntryResponse, error)
	RegisterPayment(ctx context.Context, actorID string, req appcommission.RegisterPaymentRequest) (*appcommission.PaymentResult, error)
	EstimateCommission(ctx context.Context, opportunityID uuid.UUID, sellerID *uuid.UUID, on *time.Time) (*appcommission.EstimateResult, error)
	BonusProgress(ctx context.Context, sellerID uuid.UUID, period string, asOf *time.Time) ([]appcommission.BonusProgressResponse, error)
	SellerBalance(ctx context.Context, sellerID uuid.UUID, opportunityID *uuid.UUID) (*appcommission.SellerBalanceResponse, error)
	ListOpportunityEntries(ctx context.Context, opportunityID uuid.UUID, filter appcommission.EntryListFilter) ([]appcommission.LedgerEntryResponse, int64, error)
	GetEntry(ctx context.Context, id uuid.UUID) (*appcommission.LedgerEntryResponse, error)
}

var _ CommissionService = (*appcommission.Service)(nil)

// CommissionHandler exposes the commission ledger over HTTP.
type CommissionHandler struct {
	BaseHandler
	service CommissionService
}

// NewCommissionHandler creates a new CommissionHandler
func NewCommissionHandler(service CommissionService) *CommissionHandler {
	return &CommissionHandler{service: service}
}

// RegisterRoutes mounts the commission endpoints on rg.
func (h *CommissionHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/commissions")

	g.POST("/accruals", h.RecordAccrual)
	g.POST("/payments", h.RegisterPayment)

	g.GET("/entries/:id", h.GetEntry)
	g.POST("/entries/:id/adjustments", h.RecordAdjustment)
	g.POST("/entries/:id/reversal", h.RecordReversal)

	g.GET("/opportunities/:id/entries", h.ListOpportunityEntries)
	g.GET("/opportunities/:id/estimate", h.EstimateCommission)

	g.GET("/sellers/:id/balance", h.SellerBalance)
	g.GET("/sellers/:id/bonus-progress", h.BonusProgress)
}

// ==================== Writes ====================

// RecordAccrual writes the DEVENGADA entries of a sale. The Idempotency-Key
// header wins over the idempotency_key body field. A replay answers 200 with
// the entries already recorded.
func (h *CommissionHandler) RecordAccrual(c *gin.Context) {
	actor, ok := h.requireActor(c)
	if !ok {
		return
	}
	var req appcommission.RecordAccrualRequest
	if !h.bindJSON(c, &req) {
		return
	}
	if key := strings.TrimSpace(c.GetHeader(IdempotencyKeyHeader)); key != "" {
		req.IdempotencyKey = key
	}

	result, err := h.service.RecordAccrual(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if result.Replayed {
		h.Success(c, result)
		return
	}
	h.Created(c, result)
}

// RegisterPayment mirrors an opportunity's open accruals as PAGADA and
// awards any bonus the payment completes.
func (h *CommissionHandler) RegisterPayment(c *gin.Context) {
	actor, ok := h.requireActor(c)
	if !ok {
		return
	}
	var req appcommission.RegisterPaymentRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.service.RegisterPayment(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

func (h *CommissionHandler) RecordAdjustment(c *gin.Context) {
	actor, ok := h.requireActor(c)
	if !ok {
		return
	}
	entryID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req appcommission.RecordAdjustmentRequest
	if !h.bindJSON(c, &req) {
		return
	}

	entry, err := h.service.RecordAdjustment(c.Request.Context(), actor, entryID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, entry)
}

func (h *CommissionHandler) RecordReversal(c *gin.Context) {
	actor, ok := h.requireActor(c)
	if !ok {
		return
	}
	entryID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req appcommission.RecordReversalRequest
	if !h.bindJSON(c, &req) {
		return
	}

	entry, err := h.service.RecordReversal(c.Request.Context(), actor, entryID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, entry)
}

// ==================== Reads ====================

func (h *CommissionHandler) GetEntry(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	entry, err := h.service.GetEntry(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entry)
}

// ListOpportunityEntries pages through the ledger of one opportunity.
func (h *CommissionHandler) ListOpportunityEntries(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var filter appcommission.EntryListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, "Invalid pagination parameters")
		return
	}
	page := shared.Filter{Page: filter.Page, PageSize: filter.PageSize}.Normalize()
	filter.Page, filter.PageSize = page.Page, page.PageSize

	entries, total, err := h.service.ListOpportunityEntries(c.Request.Context(), id, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, entries, total, filter.Page, filter.PageSize)
}

// EstimateCommission previews the accrual of an opportunity without writing.
// Query: seller_id (defaults to the owner), on (RFC 3339 or YYYY-MM-DD).
func (h *CommissionHandler) EstimateCommission(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	sellerID, ok := h.queryUUID(c, "seller_id")
	if !ok {
		return
	}
	on, ok := h.queryTime(c, "on")
	if !ok {
		return
	}

	result, err := h.service.EstimateCommission(c.Request.Context(), id, sellerID, on)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// SellerBalance derives a seller's balance, optionally for one opportunity.
func (h *CommissionHandler) SellerBalance(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	opportunityID, ok := h.queryUUID(c, "opportunity_id")
	if !ok {
		return
	}

	balance, err := h.service.SellerBalance(c.Request.Context(), id, opportunityID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, balance)
}

func (h *CommissionHandler) BonusProgress(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	asOf, ok := h.queryTime(c, "as_of")
	if !ok {
		return
	}

	progress, err := h.service.BonusProgress(c.Request.Context(), id, c.Query("period"), asOf)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, progress)
}

// queryUUID parses an optional UUID query parameter.
func (h *CommissionHandler) queryUUID(c *gin.Context, name string) (*uuid.UUID, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		h.BadRequest(c, "Invalid "+name+" format")
		return nil, false
	}
	return &id, true
}

// queryTime parses an optional RFC 3339 timestamp or calendar date.
func (h *CommissionHandler) queryTime(c *gin.Context, name string) (*time.Time, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, true
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t, true
		}
	}
	h.BadRequest(c, "Invalid "+name+" format, expected RFC 3339 or YYYY-MM-DD")
	return nil, false
}

package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	appfees "github.com/shulepay/backend/internal/application/fees"
	"github.com/shulepay/backend/internal/domain/shared/valueobject"
	"github.com/shulepay/backend/internal/interfaces/http/dto"
)

// CatalogHandler exposes the fee catalog: terms, fee structures and
// per-student overrides
type CatalogHandler struct {
	BaseHandler
	catalog *appfees.CatalogService
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(catalog *appfees.CatalogService, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{
		BaseHandler: NewBaseHandler(logger),
		catalog:     catalog,
	}
}

// CreateTerm handles POST /terms
func (h *CatalogHandler) CreateTerm(c *gin.Context) {
	schoolID, ok := h.SchoolScope(c)
	if !ok {
		return
	}

	var req dto.CreateTermRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	term, err := h.catalog.CreateTerm(c.Request.Context(), appfees.CreateTermRequest{
		SchoolID:  schoolID,
		Name:      req.Name,
		Year:      req.Year,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, dto.TermFromDomain(term))
}

// CloseTerm handles POST /terms/:id/close
func (h *CatalogHandler) CloseTerm(c *gin.Context) {
	schoolID, ok := h.SchoolScope(c)
	if !ok {
		return
	}
	termID, ok := h.uriID(c)
	if !ok {
		return
	}

	term, err := h.catalog.CloseTerm(c.Request.Context(), schoolID, termID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.TermFromDomain(term))
}

// ListTerms handles GET /terms
func (h *CatalogHandler) ListTerms(c *gin.Context) {
	schoolID, ok := h.SchoolScope(c)
	if !ok {
		return
	}

	var req dto.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	page, err := h.catalog.ListTerms(c.Request.Context(), schoolID, req.ToFilter("year", "name", "created_at"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	terms := make([]dto.TermResponse, 0, len(page.Items))
	for _, t := range page.Items {
		terms = append(terms, dto.TermFromDomain(t))
	}
	h.SuccessWithMeta(c, terms, page.Total, page.Page, page.PageSize)
}

// CreateFeeStructure handles POST /fee-structures
func (h *CatalogHandler) CreateFeeStructure(c *gin.Context) {
	schoolID, ok := h.SchoolScope(c)
	if !ok {
		return
	}

	var req dto.CreateFeeStructureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	amount, err := parseMoney(req.Amount)
	if err != nil {
		h.BadRequest(c, "Invalid amount")
		return
	}

	structure, err := h.catalog.CreateFeeStructure(c.Request.Context(), appfees.CreateFeeStructureRequest{
		SchoolID:    schoolID,
		TermID:      req.TermID,
		ClassID:     req.ClassID,
		Description: req.Description,
		Amount:      amount,
		DueDate:     req.DueDate,
		ActorID:     h.ActorID(c),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, dto.FeeStructureFromDomain(structure))
}

// GetFeeStructure handles GET /fee-structures/:id
func (h *CatalogHandler) GetFeeStructure(c *gin.Context) {
	schoolID, ok := h.SchoolScope(c)
	if !ok {
		return
	}
	structureID, ok := h.uriID(c)
	if !ok {
		return
	}

	structure, err := h.catalog.GetFeeStructure(c.Request.Context(), schoolID, structureID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.FeeStructureFromDomain(structure))
}

// UpdateFeeStructureAmount handles PUT /fee-structures/:id/amount
func (h *CatalogHandler) UpdateFeeStructureAmount(c *gin.Context) {
	schoolID, ok := h.SchoolScope(c)
	if !ok {
		return
	}
	structureID, ok := h.uriID(c)
	if !ok {
		return
	}

	var req dto.UpdateFeeStructureAmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	amount, err := parseMoney(req.Amount)
	if err != nil {
		h.BadRequest(c, "Invalid amount")
		return
	}

	structure, err := h.catalog.UpdateFeeStructureAmount(c.Request.Context(), schoolID, structureID, amount)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.FeeStructureFromDomain(structure))
}

// DeactivateFeeStructure handles DELETE /fee-structures/:id
func (h *CatalogHandler) DeactivateFeeStructure(c *gin.Context) {
	schoolID, ok := h.SchoolScope(c)
	if !ok {
		return
	}
	structureID, ok := h.uriID(c)
	if !ok {
		return
	}

	structure, err := h.catalog.DeactivateFeeStructure(c.Request.Context(), schoolID, structureID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.FeeStructureFromDomain(structure))
}

// ListFeeStructures handles GET /fee-structures
func (h *CatalogHandler) ListFeeStructures(c *gin.Context) {
	schoolID, ok := h.SchoolScope(c)
	if !ok {
		return
	}

	var req dto.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	page, err := h.catalog.ListFeeStructures(c.Request.Context(), schoolID, req.ToFilter("due_date", "description", "created_at"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	structures := make([]dto.FeeStructureResponse, 0, len(page.Items))
	for _, f := range page.Items {
		structures = append(structures, dto.FeeStructureFromDomain(f))
	}
	h.SuccessWithMeta(c, structures, page.Total, page.Page, page.PageSize)
}

// SetOverride handles PUT /fee-overrides
func (h *CatalogHandler) SetOverride(c *gin.Context) {
	schoolID, ok := h.SchoolScope(c)
	if !ok {
		return
	}

	var req dto.SetOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	var amount *valueobject.Money
	if req.Amount != nil {
		parsed, err := parseMoney(*req.Amount)
		if err != nil {
			h.BadRequest(c, "Invalid amount")
			return
		}
		amount = &parsed
	}

	override, err := h.catalog.SetOverride(c.Request.Context(), appfees.SetOverrideRequest{
		SchoolID:       schoolID,
		StudentID:      req.StudentID,
		TermID:         req.TermID,
		FeeStructureID: req.FeeStructureID,
		Amount:         amount,
		Reason:         req.Reason,
		ActorID:        h.ActorID(c),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.OverrideFromDomain(override))
}

// RemoveOverride handles DELETE /fee-overrides/:id
func (h *CatalogHandler) RemoveOverride(c *gin.Context) {
	schoolID, ok := h.SchoolScope(c)
	if !ok {
		return
	}
	overrideID, ok := h.uriID(c)
	if !ok {
		return
	}

	if err := h.catalog.RemoveOverride(c.Request.Context(), schoolID, overrideID); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// uriID binds and parses the :id path parameter
func (h *BaseHandler) uriID(c *gin.Context) (uuid.UUID, bool) {
	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, "Invalid ID")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(req.ID)
	if err != nil {
		h.BadRequest(c, "Invalid ID")
		return uuid.Nil, false
	}
	return id, true
}

// parseMoney parses a request amount string into KES money
func parseMoney(raw string) (valueobject.Money, error) {
	return valueobject.NewMoneyKESFromString(raw)
}

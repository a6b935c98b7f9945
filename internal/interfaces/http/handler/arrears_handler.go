package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appfees "github.com/shulepay/backend/internal/application/fees"
	"github.com/shulepay/backend/internal/interfaces/http/dto"
)

// ArrearsHandler exposes the arrears cache and its recompute operations
type ArrearsHandler struct {
	BaseHandler
	arrears *appfees.ArrearsService
}

// NewArrearsHandler creates a new arrears handler
func NewArrearsHandler(arrears *appfees.ArrearsService, logger *zap.Logger) *ArrearsHandler {
	return &ArrearsHandler{
		BaseHandler: NewBaseHandler(logger),
		arrears:     arrears,
	}
}

// GetStudentArrears handles GET /students/:id/arrears
func (h *ArrearsHandler) GetStudentArrears(c *gin.Context) {
	schoolID, ok := h.SchoolScope(c)
	if !ok {
		return
	}
	studentID, ok := h.uriID(c)
	if !ok {
		return
	}

	arrears, err := h.arrears.GetArrears(c.Request.Context(), schoolID, studentID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if arrears == nil {
		// Never in arrears is a valid position, not a missing resource
		h.Success(c, nil)
		return
	}

	h.Success(c, dto.ArrearsFromDomain(arrears))
}

// RecomputeStudent handles POST /students/:id/arrears/recompute
func (h *ArrearsHandler) RecomputeStudent(c *gin.Context) {
	schoolID, ok := h.SchoolScope(c)
	if !ok {
		return
	}
	studentID, ok := h.uriID(c)
	if !ok {
		return
	}

	arrears, err := h.arrears.RecomputeForStudent(c.Request.Context(), schoolID, studentID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if arrears == nil {
		h.Success(c, nil)
		return
	}

	h.Success(c, dto.ArrearsFromDomain(arrears))
}

// RecomputeAll handles POST /arrears/recompute
func (h *ArrearsHandler) RecomputeAll(c *gin.Context) {
	schoolID, ok := h.SchoolScope(c)
	if !ok {
		return
	}

	result, err := h.arrears.RecomputeAll(c.Request.Context(), schoolID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// ListUnresolved handles GET /arrears
func (h *ArrearsHandler) ListUnresolved(c *gin.Context) {
	schoolID, ok := h.SchoolScope(c)
	if !ok {
		return
	}

	var req dto.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	page, err := h.arrears.ListUnresolved(c.Request.Context(), schoolID, req.ToFilter("days_outstanding", "total_arrears", "created_at"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	rows := make([]dto.ArrearsResponse, 0, len(page.Items))
	for _, a := range page.Items {
		rows = append(rows, dto.ArrearsFromDomain(a))
	}
	h.SuccessWithMeta(c, rows, page.Total, page.Page, page.PageSize)
}

package handlers

import (
	"github.com/gin-gonic/gin"

	"staffnum/internal/core/apperror"
	"staffnum/internal/domain/employeeid"
	"staffnum/internal/infrastructure/http/v1/dto"
	"staffnum/pkg/logger"
)

// EmployeeIDHandler exposes employee number generation.
type EmployeeIDHandler struct {
	*BaseHandler
	service *employeeid.Service
}

// NewEmployeeIDHandler creates a new handler.
func NewEmployeeIDHandler(base *BaseHandler, service *employeeid.Service) *EmployeeIDHandler {
	return &EmployeeIDHandler{BaseHandler: base, service: service}
}

// Settings returns what record-entry forms need to know.
// GET /employee-id/settings
func (h *EmployeeIDHandler) Settings(c *gin.Context) {
	h.OK(c, h.service.PublicSettings())
}

// Validate reports every problem with a pattern. An invalid pattern is
// still a 200: the problems are the payload.
// POST /employee-id/validate
func (h *EmployeeIDHandler) Validate(c *gin.Context) {
	var req dto.ValidateRequest
	if !h.BindJSON(c, &req) {
		return
	}

	h.OK(c, dto.NewValidateResponse(req.Pattern, h.service.ValidatePattern(req.Pattern)))
}

// Preview renders the next number without consuming a counter value.
// POST /employee-id/preview
func (h *EmployeeIDHandler) Preview(c *gin.Context) {
	var req dto.GenerateRequest
	if !h.BindJSON(c, &req) {
		return
	}

	res, err := h.service.Preview(c.Request.Context(), req.ToDomain(), req.Pattern)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, res)
}

// Generate issues a unique employee number.
// POST /employee-id/generate
func (h *EmployeeIDHandler) Generate(c *gin.Context) {
	var req dto.GenerateRequest
	if !h.BindJSON(c, &req) {
		return
	}

	res, err := h.service.Generate(c.Request.Context(), req.ToDomain(), req.Pattern)
	if err != nil {
		h.Error(c, err)
		return
	}

	logger.Info(c.Request.Context(), "employee number issued",
		"employee_number", res.EmployeeNumber,
		"employee_id", req.Employee.ID,
		"issued_by", h.GetUserID(c),
		"override", res.Override,
	)
	h.Created(c, res)
}

// CheckAbbreviations lists abbreviation warnings.
// GET /employee-id/abbreviations/check?pattern=...
func (h *EmployeeIDHandler) CheckAbbreviations(c *gin.Context) {
	var query struct {
		Pattern string `form:"pattern"`
	}
	if !h.BindQuery(c, &query) {
		return
	}

	warnings, err := h.service.CheckAbbreviations(c.Request.Context(), query.Pattern)
	if err != nil {
		h.Error(c, err)
		return
	}
	if warnings == nil {
		warnings = []employeeid.AbbreviationWarning{}
	}
	h.OK(c, dto.CheckResponse{Warnings: warnings})
}

// Counters lists counter records, including past periods.
// GET /employee-id/counters
func (h *EmployeeIDHandler) Counters(c *gin.Context) {
	records, err := h.service.Counters(c.Request.Context())
	if err != nil {
		h.Error(c, apperror.NewInternal(err))
		return
	}
	h.OK(c, dto.CountersResponse{Counters: records})
}

// Seed raises counters past the employee numbers already in use.
// POST /employee-id/seed
func (h *EmployeeIDHandler) Seed(c *gin.Context) {
	report, err := h.service.SeedFromExisting(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, report)
}

// RegisterRoutes registers the read routes on rg and the mutating ones on admin.
func (h *EmployeeIDHandler) RegisterRoutes(rg, admin *gin.RouterGroup) {
	rg.GET("/settings", h.Settings)
	rg.POST("/validate", h.Validate)
	rg.POST("/preview", h.Preview)
	rg.GET("/abbreviations/check", h.CheckAbbreviations)
	rg.GET("/counters", h.Counters)

	admin.POST("/generate", h.Generate)
	admin.POST("/seed", h.Seed)
}

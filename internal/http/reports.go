package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/mycv/internal/audit"
	"github.com/mrlokans/mycv/internal/auth"
	"github.com/mrlokans/mycv/internal/database/reports"
	"github.com/mrlokans/mycv/internal/entities"
)

// CreateReportRequest is the body of POST /reports.
type CreateReportRequest struct {
	Price   *int     `json:"price" binding:"required,min=0,max=1000000"`
	Make    string   `json:"make" binding:"required,max=100"`
	Model   string   `json:"model" binding:"required,max=100"`
	Year    int      `json:"year" binding:"required,min=1930,max=2050"`
	Lng     *float64 `json:"lng" binding:"required,longitude"`
	Lat     *float64 `json:"lat" binding:"required,latitude"`
	Mileage *int     `json:"mileage" binding:"required,min=0,max=1000000"`
}

// ApproveReportRequest is the body of PATCH /reports/:id.
type ApproveReportRequest struct {
	Approved *bool `json:"approved" binding:"required"`
}

// EstimateRequest holds the query of GET /reports/estimate.
type EstimateRequest struct {
	Make    string   `form:"make" binding:"required"`
	Model   string   `form:"model" binding:"required"`
	Year    int      `form:"year" binding:"required,min=1930,max=2050"`
	Lng     *float64 `form:"lng" binding:"required,longitude"`
	Lat     *float64 `form:"lat" binding:"required,latitude"`
	Mileage *int     `form:"mileage" binding:"required,min=0,max=1000000"`
}

type ReportsController struct {
	store ReportStore
	audit *audit.Service
}

func NewReportsController(store ReportStore, auditService *audit.Service) *ReportsController {
	return &ReportsController{store: store, audit: auditService}
}

// RegisterRoutes registers the report routes on the /reports group.
func (rc *ReportsController) RegisterRoutes(group *gin.RouterGroup) {
	group.POST("", auth.AuthGuard(), rc.CreateReport)
	group.PATCH("/:id", auth.AdminGuard(), rc.ApproveReport)
	group.GET("/estimate", rc.Estimate)
}

// CreateReport handles POST /reports. The report belongs to the current user
// and starts unapproved.
func (rc *ReportsController) CreateReport(c *gin.Context) {
	user, ok := auth.GetCurrentUser(c)
	if !ok {
		// Signed-in session whose user no longer exists.
		respondError(c, http.StatusForbidden, auth.ErrForbidden.Error())
		return
	}

	var req CreateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	report := &entities.Report{
		Price:   *req.Price,
		Make:    req.Make,
		Model:   req.Model,
		Year:    req.Year,
		Lng:     *req.Lng,
		Lat:     *req.Lat,
		Mileage: *req.Mileage,
	}
	if err := rc.store.Create(c.Request.Context(), report, user.ID); err != nil {
		rc.audit.LogReport(user.ID, "report_create", 0, "create report failed", err)
		respondInternalError(c, err, "create report")
		return
	}

	rc.audit.LogReport(user.ID, "report_create", report.ID,
		fmt.Sprintf("reported %d %s %s", report.Year, report.Make, report.Model), nil)
	respondCreated(c, report)
}

// ApproveReport handles PATCH /reports/:id
func (rc *ReportsController) ApproveReport(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req ApproveReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	report, err := rc.store.SetApproval(c.Request.Context(), id, *req.Approved)
	if err != nil {
		if errors.Is(err, reports.ErrNotFound) {
			respondNotFound(c, "report")
			return
		}
		respondInternalError(c, err, "approve report")
		return
	}

	rc.audit.LogReport(actorID(c), "report_approval", report.ID,
		fmt.Sprintf("set approved=%t", report.Approved), nil)
	c.JSON(http.StatusOK, report)
}

// Estimate handles GET /reports/estimate
func (rc *ReportsController) Estimate(c *gin.Context) {
	var req EstimateRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	estimate, err := rc.store.Estimate(c.Request.Context(), reports.EstimateQuery{
		Make:    req.Make,
		Model:   req.Model,
		Year:    req.Year,
		Mileage: *req.Mileage,
		Lng:     *req.Lng,
		Lat:     *req.Lat,
	})
	if err != nil {
		respondInternalError(c, err, "estimate")
		return
	}
	c.JSON(http.StatusOK, estimate)
}

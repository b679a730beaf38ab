package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	auditrepo "github.com/mrlokans/mycv/internal/database/audit"
	"github.com/mrlokans/mycv/internal/entities"
)

const maxAuditPageSize = 100

type AuditController struct {
	lister AuditLister
}

func NewAuditController(lister AuditLister) *AuditController {
	return &AuditController{lister: lister}
}

// GetAuditEvents returns paginated audit events as JSON
// GET /api/audit?page=&limit=&type=&user_id=
func (ac *AuditController) GetAuditEvents(c *gin.Context) {
	page := parseQueryInt(c, "page", 1)
	limit := parseQueryInt(c, "limit", 25)
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > maxAuditPageSize {
		limit = 25
	}
	userID := parseQueryInt(c, "user_id", 0)
	if userID < 0 {
		userID = 0
	}
	offset := (page - 1) * limit

	events, total, err := ac.lister.List(c.Request.Context(), auditrepo.Filter{
		UserID:    uint(userID),
		EventType: entities.AuditEventType(c.Query("type")),
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		respondInternalError(c, err, "list audit events")
		return
	}
	if events == nil {
		events = []entities.AuditEvent{}
	}

	c.JSON(http.StatusOK, newPaginatedResponse(events, total, limit, offset))
}

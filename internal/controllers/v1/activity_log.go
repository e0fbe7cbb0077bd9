package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/parish-ledger/backend/internal/audit"
	"github.com/parish-ledger/backend/internal/httputil"
	"github.com/parish-ledger/backend/internal/models"
)

// RegisterActivityLogRoutes registers the routes for activity logs with
// the RouterGroup that is passed.
func RegisterActivityLogRoutes(r *gin.RouterGroup) {
	r.OPTIONS("", httputil.OptionsGet)
	r.GET("", GetActivityLogs)

	r.OPTIONS("/entity/:entityType/:entityId", httputil.OptionsGet)
	r.GET("/entity/:entityType/:entityId", GetEntityActivityLogs)
}

type ActivityLogListResponse struct {
	Data       []models.ActivityLog `json:"data"`                                                          // List of activity log entries, newest first
	Error      *string              `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
	Pagination *Pagination          `json:"pagination"`                                                    // Pagination information
}

type activityLogQuery struct {
	ResourceType string `form:"resourceType"` // Filter by resource type
	Offset       uint   `form:"offset"`       // The offset of the first entry returned. Defaults to 0.
	Limit        int    `form:"limit"`        // Maximum number of entries to return. Defaults to 20.
}

// @Summary		List activity logs
// @Description	Returns activity log entries, newest first
// @Tags			ActivityLogs
// @Produce		json
// @Success		200	{object}	ActivityLogListResponse
// @Failure		500	{object}	ActivityLogListResponse
// @Param			resourceType	query	string	false	"Filter by resource type"
// @Param			offset			query	uint	false	"The offset of the first entry returned. Defaults to 0."
// @Param			limit			query	int		false	"Maximum number of entries to return. Defaults to 20."
// @Router			/v1/activity-logs [get]
func GetActivityLogs(c *gin.Context) {
	var query activityLogQuery
	_ = c.Bind(&query)

	entries, count, err := audit.Entries(audit.EntryFilter{
		EntityType: query.ResourceType,
		Offset:     int(query.Offset),
		Limit:      query.Limit,
	})
	if err != nil {
		e := err.Error()
		c.JSON(status(err), ActivityLogListResponse{Error: &e})
		return
	}

	limit := query.Limit
	if limit <= 0 {
		limit = 20
	}

	c.JSON(http.StatusOK, ActivityLogListResponse{
		Data: entries,
		Pagination: &Pagination{
			Count:  len(entries),
			Total:  count,
			Offset: query.Offset,
			Limit:  limit,
		},
	})
}

type activityLogURI struct {
	EntityType string `uri:"entityType" binding:"required"`
	EntityID   string `uri:"entityId" binding:"required"`
}

// @Summary		Activity logs for an entity
// @Description	Returns the activity log entries where the given entity is the main resource or a related entity, newest first
// @Tags			ActivityLogs
// @Produce		json
// @Success		200			{object}	ActivityLogListResponse
// @Failure		400			{object}	ActivityLogListResponse
// @Failure		500			{object}	ActivityLogListResponse
// @Param			entityType	path		string	true	"The entity type, e.g. member or contribution"
// @Param			entityId	path		string	true	"The entity ID"
// @Param			offset		query		uint	false	"The offset of the first entry returned. Defaults to 0."
// @Param			limit		query		int		false	"Maximum number of entries to return. Defaults to 20."
// @Router			/v1/activity-logs/entity/{entityType}/{entityId} [get]
func GetEntityActivityLogs(c *gin.Context) {
	var uri activityLogURI
	err := c.ShouldBindUri(&uri)
	if err != nil {
		e := err.Error()
		c.JSON(http.StatusBadRequest, ActivityLogListResponse{Error: &e})
		return
	}

	entityID, err := httputil.UUIDFromString(uri.EntityID)
	if err != nil {
		e := err.Error()
		c.JSON(http.StatusBadRequest, ActivityLogListResponse{Error: &e})
		return
	}

	var query activityLogQuery
	_ = c.Bind(&query)

	entries, count, err := audit.Entries(audit.EntryFilter{
		EntityType: uri.EntityType,
		EntityID:   entityID,
		Offset:     int(query.Offset),
		Limit:      query.Limit,
	})
	if err != nil {
		e := err.Error()
		c.JSON(status(err), ActivityLogListResponse{Error: &e})
		return
	}

	limit := query.Limit
	if limit <= 0 {
		limit = 20
	}

	c.JSON(http.StatusOK, ActivityLogListResponse{
		Data: entries,
		Pagination: &Pagination{
			Count:  len(entries),
			Total:  count,
			Offset: query.Offset,
			Limit:  limit,
		},
	})
}

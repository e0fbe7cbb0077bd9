package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/parish-ledger/backend/internal/httputil"
	"github.com/parish-ledger/backend/internal/ledger"
	"github.com/parish-ledger/backend/internal/models"
	"github.com/parish-ledger/backend/internal/types"
)

// RegisterContributionRoutes registers the routes for contributions
// with the RouterGroup that is passed.
func RegisterContributionRoutes(r *gin.RouterGroup) {
	// Root group
	{
		r.OPTIONS("", httputil.OptionsGetPost)
		r.GET("", GetContributions)
		r.POST("", CreateContribution)
	}

	r.OPTIONS("/member/:id", httputil.OptionsGet)
	r.GET("/member/:id", GetMemberHistory)

	// Contribution with ID
	{
		r.OPTIONS("/:id", OptionsContributionDetail)
		r.GET("/:id", GetContribution)
		r.PATCH("/:id", UpdateContribution)
		r.DELETE("/:id", DeleteContribution)
	}
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Contributions
// @Success		204
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/contributions/{id} [options]
func OptionsContributionDetail(c *gin.Context) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	err = models.DB.First(&models.Contribution{}, "id = ?", uri.ID.UUID).Error
	if err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	httputil.OptionsGetPatchDelete(c)
}

// @Summary		Record payment
// @Description	Records a payment towards a member's contribution month. A payment for a month that already has a record is added to the existing record. When numberOfMonths is larger than one, the amount is distributed over consecutive months and the response is a ContributionDistributionResponse.
// @Tags			Contributions
// @Accept			json
// @Produce		json
// @Success		201				{object}	ContributionResponse
// @Failure		400				{object}	ContributionResponse
// @Failure		404				{object}	ContributionResponse
// @Failure		500				{object}	ContributionResponse
// @Param			contribution	body		ContributionEditable	true	"Contribution"
// @Router			/v1/contributions [post]
func CreateContribution(c *gin.Context) {
	var editable ContributionEditable
	err := httputil.BindData(c, &editable)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), ContributionResponse{Error: &e})
		return
	}

	input := ledger.PaymentInput{
		MemberID:          editable.MemberID,
		Amount:            editable.Amount,
		ContributionMonth: editable.ContributionMonth,
		ExpectedAmount:    editable.ExpectedAmount,
		NumberOfMonths:    editable.NumberOfMonths,
		ContributionDate:  editable.ContributionDate,
		PaymentMethod:     editable.PaymentMethod,
		Reference:         editable.Reference,
		Notes:             editable.Notes,
		RecordedBy:        currentUserID(c),
		SourceAddress:     c.ClientIP(),
	}

	if editable.NumberOfMonths > 1 {
		result, err := ledger.DistributePayment(c.Request.Context(), input)
		if err != nil {
			e := err.Error()
			c.JSON(status(err), ContributionDistributionResponse{Error: &e})
			return
		}

		data := newContributionDistribution(c, result)
		c.JSON(http.StatusCreated, ContributionDistributionResponse{Data: &data})
		return
	}

	contribution, err := ledger.RecordPayment(c.Request.Context(), input)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), ContributionResponse{Error: &e})
		return
	}

	data := newContribution(c, contribution)
	c.JSON(http.StatusCreated, ContributionResponse{Data: &data})
}

// @Summary		List contributions
// @Description	Returns a list of contributions
// @Tags			Contributions
// @Produce		json
// @Success		200	{object}	ContributionListResponse
// @Failure		400	{object}	ContributionListResponse
// @Failure		500	{object}	ContributionListResponse
// @Router			/v1/contributions [get]
// @Param			member			query	string	false	"Filter by member ID"
// @Param			month			query	string	false	"Filter by contribution month in YYYY-MM format"
// @Param			paymentMethod	query	string	false	"Filter by payment method"
// @Param			offset			query	uint	false	"The offset of the first contribution returned. Defaults to 0."
// @Param			limit			query	int		false	"Maximum number of contributions to return. Defaults to 50."
func GetContributions(c *gin.Context) {
	var filter ContributionQueryFilter

	// Every parameter is bound into a string, so this will always succeed
	_ = c.Bind(&filter)

	q := models.DB.Model(&models.Contribution{}).Order("contribution_month DESC, contribution_date DESC")

	memberID, err := httputil.UUIDFromString(filter.Member)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), ContributionListResponse{Error: &e})
		return
	}

	if memberID != uuid.Nil {
		q = q.Where("member_id = ?", memberID)
	}

	if filter.Month != "" {
		month, err := types.ParseMonth(filter.Month)
		if err != nil {
			e := err.Error()
			c.JSON(http.StatusBadRequest, ContributionListResponse{Error: &e})
			return
		}

		q = q.Where("contribution_month = ?", month)
	}

	if filter.PaymentMethod != "" {
		q = q.Where("payment_method = ?", filter.PaymentMethod)
	}

	q = q.Offset(int(filter.Offset))

	limit := 50
	if filter.Limit > 0 {
		limit = filter.Limit
	}
	q = q.Limit(limit)

	var contributions []models.Contribution
	err = q.Find(&contributions).Error
	if err != nil {
		e := err.Error()
		c.JSON(status(err), ContributionListResponse{Error: &e})
		return
	}

	var count int64
	err = q.Limit(-1).Offset(-1).Count(&count).Error
	if err != nil {
		e := err.Error()
		c.JSON(status(err), ContributionListResponse{Error: &e})
		return
	}

	apiResources := make([]Contribution, 0, len(contributions))
	for _, contribution := range contributions {
		apiResources = append(apiResources, newContribution(c, contribution))
	}

	c.JSON(http.StatusOK, ContributionListResponse{
		Data: apiResources,
		Pagination: &Pagination{
			Count:  len(apiResources),
			Total:  count,
			Offset: filter.Offset,
			Limit:  limit,
		},
	})
}

// @Summary		Get contribution
// @Description	Returns a specific contribution
// @Tags			Contributions
// @Produce		json
// @Success		200	{object}	ContributionResponse
// @Failure		400	{object}	ContributionResponse
// @Failure		404	{object}	ContributionResponse
// @Failure		500	{object}	ContributionResponse
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/contributions/{id} [get]
func GetContribution(c *gin.Context) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), ContributionResponse{Error: &e})
		return
	}

	var contribution models.Contribution
	err = models.DB.First(&contribution, "id = ?", uri.ID.UUID).Error
	if err != nil {
		e := err.Error()
		c.JSON(status(err), ContributionResponse{Error: &e})
		return
	}

	data := newContribution(c, contribution)
	c.JSON(http.StatusOK, ContributionResponse{Data: &data})
}

// @Summary		Update contribution
// @Description	Update an existing contribution. Only values to be updated need to be specified. The derived payment state is recomputed when amounts change.
// @Tags			Contributions
// @Accept			json
// @Produce		json
// @Success		200				{object}	ContributionResponse
// @Failure		400				{object}	ContributionResponse
// @Failure		404				{object}	ContributionResponse
// @Failure		500				{object}	ContributionResponse
// @Param			id				path		URIID					true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Param			contribution	body		ledger.ContributionPatch	true	"Contribution"
// @Router			/v1/contributions/{id} [patch]
func UpdateContribution(c *gin.Context) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), ContributionResponse{Error: &e})
		return
	}

	var patch ledger.ContributionPatch
	err = httputil.BindData(c, &patch)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), ContributionResponse{Error: &e})
		return
	}

	contribution, err := ledger.UpdateContribution(c.Request.Context(), uri.ID.UUID, patch, currentUserID(c), c.ClientIP())
	if err != nil {
		e := err.Error()
		c.JSON(status(err), ContributionResponse{Error: &e})
		return
	}

	data := newContribution(c, contribution)
	c.JSON(http.StatusOK, ContributionResponse{Data: &data})
}

// @Summary		Delete contribution
// @Description	Deletes a contribution
// @Tags			Contributions
// @Success		204
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Failure		500	{object}	httpError
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/contributions/{id} [delete]
func DeleteContribution(c *gin.Context) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	err = ledger.DeleteContribution(c.Request.Context(), uri.ID.UUID, currentUserID(c), c.ClientIP())
	if err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	c.JSON(http.StatusNoContent, nil)
}

// @Summary		Member payment history
// @Description	Returns a member's full contribution history with the lifetime, yearly and monthly balance summary
// @Tags			Contributions
// @Produce		json
// @Success		200	{object}	MemberHistoryResponse
// @Failure		400	{object}	MemberHistoryResponse
// @Failure		404	{object}	MemberHistoryResponse
// @Failure		500	{object}	MemberHistoryResponse
// @Param			id		path	URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Param			from	query	string	false	"Only include contributions made on or after this date (YYYY-MM-DD)"
// @Param			to		query	string	false	"Only include contributions made on or before this date (YYYY-MM-DD)"
// @Router			/v1/contributions/member/{id} [get]
func GetMemberHistory(c *gin.Context) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), MemberHistoryResponse{Error: &e})
		return
	}

	var filter ledger.HistoryFilter
	if raw := c.Query("from"); raw != "" {
		filter.FromDate, err = time.Parse("2006-01-02", raw)
		if err != nil {
			e := err.Error()
			c.JSON(http.StatusBadRequest, MemberHistoryResponse{Error: &e})
			return
		}
	}

	if raw := c.Query("to"); raw != "" {
		filter.ToDate, err = time.Parse("2006-01-02", raw)
		if err != nil {
			e := err.Error()
			c.JSON(http.StatusBadRequest, MemberHistoryResponse{Error: &e})
			return
		}
	}

	history, err := ledger.History(c.Request.Context(), uri.ID.UUID, filter)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), MemberHistoryResponse{Error: &e})
		return
	}

	c.JSON(http.StatusOK, MemberHistoryResponse{Data: &history})
}

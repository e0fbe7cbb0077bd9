package v1

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/parish-ledger/backend/internal/httputil"
	"github.com/parish-ledger/backend/internal/ledger"
	"github.com/shopspring/decimal"
)

// RegisterReportRoutes registers the routes for reports with
// the RouterGroup that is passed.
func RegisterReportRoutes(r *gin.RouterGroup) {
	r.OPTIONS("/stats", httputil.OptionsGet)
	r.GET("/stats", GetOverallStats)

	r.OPTIONS("/outstanding-balances", httputil.OptionsGet)
	r.GET("/outstanding-balances", GetOutstandingBalances)

	r.OPTIONS("/monthly", httputil.OptionsGet)
	r.GET("/monthly", GetMonthlyReport)

	r.OPTIONS("/yearly", httputil.OptionsGet)
	r.GET("/yearly", GetYearlyReport)
}

type OverallStatsResponse struct {
	Data  *ledger.OverallStats `json:"data"`                                                        // The overall statistics
	Error *string              `json:"error" example:"an error occurred on the server during your request"` // The error, if any occurred
}

// @Summary		Overall statistics
// @Description	Returns the active member count, aggregate contribution figures, a trailing six month time series and the top ten members by outstanding balance
// @Tags			Reports
// @Produce		json
// @Success		200	{object}	OverallStatsResponse
// @Failure		500	{object}	OverallStatsResponse
// @Router			/v1/reports/stats [get]
func GetOverallStats(c *gin.Context) {
	stats, err := ledger.Overall(c.Request.Context())
	if err != nil {
		e := err.Error()
		c.JSON(status(err), OverallStatsResponse{Error: &e})
		return
	}

	c.JSON(http.StatusOK, OverallStatsResponse{Data: &stats})
}

type OutstandingBalancesResponse struct {
	Data       []ledger.OutstandingMember `json:"data"`                                                        // Members with outstanding balances
	Error      *string                    `json:"error" example:"an error occurred on the server during your request"` // The error, if any occurred
	Pagination *Pagination                `json:"pagination"`                                                  // Pagination information
}

// @Summary		Outstanding balances
// @Description	Returns every active member whose lifetime balance is at least minBalance
// @Tags			Reports
// @Produce		json
// @Success		200			{object}	OutstandingBalancesResponse
// @Failure		400			{object}	OutstandingBalancesResponse
// @Failure		500			{object}	OutstandingBalancesResponse
// @Param			minBalance	query		number	false	"Minimum balance to include. Defaults to 0."
// @Param			sort		query		string	false	"Sort key: balance, monthsBehind or alphabetical. Defaults to balance."
// @Router			/v1/reports/outstanding-balances [get]
func GetOutstandingBalances(c *gin.Context) {
	minBalance := decimal.Zero
	if raw := c.Query("minBalance"); raw != "" {
		var err error
		minBalance, err = decimal.NewFromString(raw)
		if err != nil {
			e := "the minBalance parameter must be a number"
			c.JSON(http.StatusBadRequest, OutstandingBalancesResponse{Error: &e})
			return
		}
	}

	sortKey := ledger.SortBalance
	switch c.Query("sort") {
	case "monthsBehind":
		sortKey = ledger.SortMonthsBehind
	case "alphabetical":
		sortKey = ledger.SortName
	}

	outstanding, err := ledger.FleetOutstanding(c.Request.Context(), minBalance, sortKey)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), OutstandingBalancesResponse{Error: &e})
		return
	}

	c.JSON(http.StatusOK, OutstandingBalancesResponse{
		Data: outstanding,
		Pagination: &Pagination{
			Count: len(outstanding),
			Total: int64(len(outstanding)),
			Limit: len(outstanding),
		},
	})
}

type MonthlyReportResponse struct {
	Data  *ledger.MonthlyReport `json:"data"`                                                 // The monthly contribution report
	Error *string               `json:"error" example:"the month query parameter must be set"` // The error, if any occurred
}

// @Summary		Monthly report
// @Description	Returns all contributions of one calendar month, grouped by member
// @Tags			Reports
// @Produce		json
// @Success		200		{object}	MonthlyReportResponse
// @Failure		400		{object}	MonthlyReportResponse
// @Failure		500		{object}	MonthlyReportResponse
// @Param			year	query		int	true	"The year to report on"
// @Param			month	query		int	true	"The month to report on, 1 to 12"
// @Router			/v1/reports/monthly [get]
func GetMonthlyReport(c *gin.Context) {
	year, err := strconv.Atoi(c.Query("year"))
	if err != nil {
		e := errYearNotSetInQuery.Error()
		c.JSON(status(errYearNotSetInQuery), MonthlyReportResponse{Error: &e})
		return
	}

	month, err := strconv.Atoi(c.Query("month"))
	if err != nil || month < 1 || month > 12 {
		e := errMonthNotSetInQuery.Error()
		c.JSON(status(errMonthNotSetInQuery), MonthlyReportResponse{Error: &e})
		return
	}

	report, err := ledger.Monthly(c.Request.Context(), year, time.Month(month))
	if err != nil {
		e := err.Error()
		c.JSON(status(err), MonthlyReportResponse{Error: &e})
		return
	}

	c.JSON(http.StatusOK, MonthlyReportResponse{Data: &report})
}

type YearlyReportResponse struct {
	Data  *ledger.YearlyReport `json:"data"`                                                // The yearly contribution report
	Error *string              `json:"error" example:"the year query parameter must be set"` // The error, if any occurred
}

// @Summary		Yearly report
// @Description	Returns the contribution totals of one calendar year, broken down into twelve month buckets
// @Tags			Reports
// @Produce		json
// @Success		200		{object}	YearlyReportResponse
// @Failure		400		{object}	YearlyReportResponse
// @Failure		500		{object}	YearlyReportResponse
// @Param			year	query		int	true	"The year to report on"
// @Router			/v1/reports/yearly [get]
func GetYearlyReport(c *gin.Context) {
	year, err := strconv.Atoi(c.Query("year"))
	if err != nil {
		e := errYearNotSetInQuery.Error()
		c.JSON(status(errYearNotSetInQuery), YearlyReportResponse{Error: &e})
		return
	}

	report, err := ledger.Yearly(c.Request.Context(), year)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), YearlyReportResponse{Error: &e})
		return
	}

	c.JSON(http.StatusOK, YearlyReportResponse{Data: &report})
}

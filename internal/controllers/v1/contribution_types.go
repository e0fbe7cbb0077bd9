package v1

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/parish-ledger/backend/internal/httputil"
	"github.com/parish-ledger/backend/internal/ledger"
	"github.com/parish-ledger/backend/internal/models"
	"github.com/parish-ledger/backend/internal/types"
	"github.com/shopspring/decimal"
)

type ContributionEditable struct {
	MemberID uuid.UUID       `json:"memberId" example:"d3c06fa6-8887-4d6b-9dbd-c4a752a64b9a"` // ID of the member the payment is for
	Amount   decimal.Decimal `json:"amount" example:"100" minimum:"0.00000001" maximum:"999999999999.99999999" multipleOf:"0.00000001"`

	// The month the payment is attributed to, normalized to its first
	// day before any lookup or storage
	ContributionMonth types.Month `json:"contributionMonth" example:"2024-03-01T00:00:00Z"`

	// Overrides the member's monthly contribution amount for new
	// records. Ignored on updates of existing records and in
	// multi-month distribution.
	ExpectedAmount *decimal.Decimal `json:"expectedAmount" example:"150"`

	// Values larger than one distribute the amount over that many
	// consecutive months
	NumberOfMonths int `json:"numberOfMonths" example:"3" default:"1"`

	ContributionDate time.Time            `json:"contributionDate" example:"2024-03-14T10:21:00Z"` // Defaults to the time of recording
	PaymentMethod    models.PaymentMethod `json:"paymentMethod" example:"cash" default:"cash"`
	Reference        string               `json:"reference" example:"TX-4711" default:""` // Free-form payment reference
	Notes            string               `json:"notes" example:"Easter collection" default:""`
}

type ContributionLinks struct {
	Self   string `json:"self" example:"https://example.com/api/v1/contributions/a6d58c99-1ec7-41cf-96b5-c41dabc29db2"`          // The contribution itself
	Member string `json:"member" example:"https://example.com/api/v1/members/d3c06fa6-8887-4d6b-9dbd-c4a752a64b9a"` // The member the contribution belongs to
}

// Contribution is the representation of a contribution in API v1.
type Contribution struct {
	models.DefaultModel
	MemberID          uuid.UUID            `json:"memberId" example:"d3c06fa6-8887-4d6b-9dbd-c4a752a64b9a"`
	Amount            decimal.Decimal      `json:"amount" example:"100"`
	ExpectedAmount    decimal.Decimal      `json:"expectedAmount" example:"100"`
	ContributionMonth types.Month          `json:"contributionMonth" example:"2024-03-01T00:00:00Z"`
	ContributionDate  time.Time            `json:"contributionDate" example:"2024-03-14T10:21:00Z"`
	PaymentMethod     models.PaymentMethod `json:"paymentMethod" example:"cash"`
	Reference         string               `json:"reference" example:"TX-4711"`
	Notes             string               `json:"notes" example:"Easter collection"`
	RecordedByID      uuid.UUID            `json:"recordedById" example:"2f1f9069-7e2f-4b8c-9d09-faadc2bd9a8c"`
	IsFullPayment     bool                 `json:"isFullPayment" example:"true"`
	OverpaymentAmount decimal.Decimal      `json:"overpaymentAmount" example:"0"`
	RemainingAmount   decimal.Decimal      `json:"remainingAmount" example:"0"`
	Links             ContributionLinks    `json:"links"`
}

// newContribution returns the API v1 representation of the resource
func newContribution(c *gin.Context, model models.Contribution) Contribution {
	url := httputil.RequestHost(c)

	return Contribution{
		DefaultModel:      model.DefaultModel,
		MemberID:          model.MemberID,
		Amount:            model.Amount,
		ExpectedAmount:    model.ExpectedAmount,
		ContributionMonth: model.ContributionMonth,
		ContributionDate:  model.ContributionDate,
		PaymentMethod:     model.PaymentMethod,
		Reference:         model.Reference,
		Notes:             model.Notes,
		RecordedByID:      model.RecordedByID,
		IsFullPayment:     model.IsFullPayment,
		OverpaymentAmount: model.OverpaymentAmount,
		RemainingAmount:   model.RemainingAmount,
		Links: ContributionLinks{
			Self:   fmt.Sprintf("%s/v1/contributions/%s", url, model.ID),
			Member: fmt.Sprintf("%s/v1/members/%s", url, model.MemberID),
		},
	}
}

type ContributionResponse struct {
	Data  *Contribution `json:"data"`                                                          // The contribution data, if the request was successful
	Error *string       `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
}

type ContributionListResponse struct {
	Data       []Contribution `json:"data"`                                                          // List of contributions
	Error      *string        `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
	Pagination *Pagination    `json:"pagination"`                                                    // Pagination information
}

// ContributionDistribution is the API representation of a multi-month
// payment distribution.
type ContributionDistribution struct {
	Contributions []Contribution  `json:"contributions"` // The records the payment was distributed over
	MonthsCovered int             `json:"monthsCovered" example:"3"`
	TotalAmount   decimal.Decimal `json:"totalAmount" example:"250"`
}

type ContributionDistributionResponse struct {
	Data  *ContributionDistribution `json:"data"`                                                         // The distribution result, if the request was successful
	Error *string                   `json:"error" example:"there is no member matching your query"`       // The error, if any occurred
}

func newContributionDistribution(c *gin.Context, result ledger.DistributionResult) ContributionDistribution {
	apiResources := make([]Contribution, 0, len(result.Contributions))
	for _, contribution := range result.Contributions {
		apiResources = append(apiResources, newContribution(c, contribution))
	}

	return ContributionDistribution{
		Contributions: apiResources,
		MonthsCovered: result.MonthsCovered,
		TotalAmount:   result.TotalAmount,
	}
}

type MemberHistoryResponse struct {
	Data  *ledger.MemberHistory `json:"data"`                                                   // The member's contribution history
	Error *string               `json:"error" example:"there is no member matching your query"` // The error, if any occurred
}

type ContributionQueryFilter struct {
	Member        string `form:"member"`        // Filter by member ID
	Month         string `form:"month"`         // Filter by contribution month in YYYY-MM format
	PaymentMethod string `form:"paymentMethod"` // Filter by payment method
	Offset        uint   `form:"offset"`        // The offset of the first contribution returned. Defaults to 0.
	Limit         int    `form:"limit"`         // Maximum number of contributions to return. Defaults to 50.
}

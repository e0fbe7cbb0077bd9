package v1

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/parish-ledger/backend/internal/httputil"
	"github.com/parish-ledger/backend/internal/ledger"
	"github.com/parish-ledger/backend/internal/models"
	"github.com/shopspring/decimal"
)

type MemberEditable struct {
	Names       string                `json:"names" example:"Abebe Bikila"`
	Category    models.MemberCategory `json:"category" example:"member" default:"member"`
	Email       string                `json:"email" example:"abebe@example.com" default:""`
	PhoneNumber string                `json:"phoneNumber" example:"+251911234567"`
	Location    string                `json:"location" example:"Addis Ababa" default:""`
	Gender      string                `json:"gender" example:"male" default:""`
	Age         string                `json:"age" example:"42" default:""`

	// Defaults to the time of creation. Anchors all expected
	// contribution calculations for this member.
	RegistrationDate time.Time `json:"registrationDate" example:"2023-02-01T00:00:00Z"`

	MonthlyContributionAmount decimal.Decimal     `json:"monthlyContributionAmount" example:"100" minimum:"0.00000001" maximum:"999999999999.99999999" multipleOf:"0.00000001"` // The monthly due amount
	Control                   string              `json:"control" example:"A-12" default:""`                                                                                    // Free-form registry control number
	Status                    models.MemberStatus `json:"status" example:"Active" default:"Active"`
}

// model returns the database resource for the API representation of the editable fields
func (editable MemberEditable) model() models.Member {
	return models.Member{
		Names:                     editable.Names,
		Category:                  editable.Category,
		Email:                     editable.Email,
		PhoneNumber:               editable.PhoneNumber,
		Location:                  editable.Location,
		Gender:                    editable.Gender,
		Age:                       editable.Age,
		RegistrationDate:          editable.RegistrationDate,
		MonthlyContributionAmount: editable.MonthlyContributionAmount,
		Control:                   editable.Control,
		Status:                    editable.Status,
	}
}

type MemberLinks struct {
	Self          string `json:"self" example:"https://example.com/api/v1/members/d3c06fa6-8887-4d6b-9dbd-c4a752a64b9a"`                       // The member itself
	Contributions string `json:"contributions" example:"https://example.com/api/v1/contributions/member/d3c06fa6-8887-4d6b-9dbd-c4a752a64b9a"` // The member's contribution history
}

// Member is the representation of a member in API v1.
type Member struct {
	models.DefaultModel
	MemberEditable
	CreatedByID uuid.UUID   `json:"createdById" example:"2f1f9069-7e2f-4b8c-9d09-faadc2bd9a8c"` // ID of the user who registered the member
	Links       MemberLinks `json:"links"`
}

// newMember returns the API v1 representation of the resource
func newMember(c *gin.Context, model models.Member) Member {
	url := httputil.RequestHost(c)

	return Member{
		DefaultModel: model.DefaultModel,
		MemberEditable: MemberEditable{
			Names:                     model.Names,
			Category:                  model.Category,
			Email:                     model.Email,
			PhoneNumber:               model.PhoneNumber,
			Location:                  model.Location,
			Gender:                    model.Gender,
			Age:                       model.Age,
			RegistrationDate:          model.RegistrationDate,
			MonthlyContributionAmount: model.MonthlyContributionAmount,
			Control:                   model.Control,
			Status:                    model.Status,
		},
		CreatedByID: model.CreatedByID,
		Links: MemberLinks{
			Self:          fmt.Sprintf("%s/v1/members/%s", url, model.ID),
			Contributions: fmt.Sprintf("%s/v1/contributions/member/%s", url, model.ID),
		},
	}
}

type MemberResponse struct {
	Data  *Member `json:"data"`                                                          // The member data, if the request was successful
	Error *string `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
}

type MemberListResponse struct {
	Data       []Member    `json:"data"`                                                          // List of members
	Error      *string     `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
	Pagination *Pagination `json:"pagination"`                                                    // Pagination information
}

type MemberCreateResponse struct {
	Data  []Member `json:"data"`                                                    // List of created members
	Error *string  `json:"error" example:"names, category, phoneNumber and location must all be set"` // The error, if any occurred
}

// MemberDetail composes the member with its full contribution history.
type MemberDetail struct {
	Member        Member                `json:"member"`
	Summary       ledger.HistorySummary `json:"summary"`
	Months        []ledger.MonthBucket  `json:"months"`
	Contributions []models.Contribution `json:"contributions"`
}

type MemberDetailResponse struct {
	Data  *MemberDetail `json:"data"`                                                          // The member with its contribution history
	Error *string       `json:"error" example:"there is no member matching your query"`        // The error, if any occurred
}

type MemberQueryFilter struct {
	Category string `form:"category"` // By category
	Location string `form:"location"` // By location
	Status   string `form:"status"`   // By status
	Gender   string `form:"gender"`   // By gender
	Search   string `form:"search"`   // By text in names, email or phone number. Supports * as wildcard
	Offset   uint   `form:"offset"`   // The offset of the first member returned. Defaults to 0.
	Limit    int    `form:"limit"`    // Maximum number of members to return. Defaults to 50.
}

// MemberUpdate contains the updatable fields of a member. Nil fields
// keep their stored value.
type MemberUpdate struct {
	Names                     *string                `json:"names"`
	Category                  *models.MemberCategory `json:"category"`
	Email                     *string                `json:"email"`
	PhoneNumber               *string                `json:"phoneNumber"`
	Location                  *string                `json:"location"`
	Gender                    *string                `json:"gender"`
	Age                       *string                `json:"age"`
	RegistrationDate          *time.Time             `json:"registrationDate"`
	MonthlyContributionAmount *decimal.Decimal       `json:"monthlyContributionAmount"`
	Control                   *string                `json:"control"`
	Status                    *models.MemberStatus   `json:"status"`
}

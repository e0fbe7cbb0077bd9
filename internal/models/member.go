package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/exp/slices"
	"gorm.io/gorm"
)

// swagger:enum MemberCategory
type MemberCategory string

const (
	CategoryPriest MemberCategory = "priest"
	CategoryDeacon MemberCategory = "deacon"
	CategoryMember MemberCategory = "member"
	CategoryElder  MemberCategory = "elder"
	CategoryOther  MemberCategory = "other"
)

// swagger:enum MemberStatus
type MemberStatus string

const (
	StatusActive    MemberStatus = "Active"
	StatusInactive  MemberStatus = "Inactive"
	StatusSuspended MemberStatus = "Suspended"
)

// Member is a registered congregation member. The registration date
// anchors all expected-contribution calculations.
type Member struct {
	DefaultModel
	Names                     string          `json:"names"`
	Category                  MemberCategory  `json:"category" gorm:"default:member"`
	Email                     string          `json:"email,omitempty" gorm:"uniqueIndex:idx_members_email,where:email != ''"`
	PhoneNumber               string          `json:"phoneNumber"`
	Location                  string          `json:"location,omitempty"`
	Gender                    string          `json:"gender,omitempty"`
	Age                       string          `json:"age,omitempty"`
	RegistrationDate          time.Time       `json:"registrationDate"`
	MonthlyContributionAmount decimal.Decimal `json:"monthlyContributionAmount" gorm:"type:DECIMAL(20,8)"`
	Control                   string          `json:"control,omitempty"`
	Status                    MemberStatus    `json:"status" gorm:"default:Active"`
	CreatedByID               uuid.UUID       `json:"createdById"`
}

func (m *Member) BeforeSave(_ *gorm.DB) error {
	m.Names = strings.TrimSpace(m.Names)
	m.Location = strings.TrimSpace(m.Location)

	if m.Names == "" {
		return ErrMemberNamesRequired
	}

	if m.PhoneNumber == "" {
		return ErrMemberPhoneNumberRequired
	}

	if m.Category == "" {
		m.Category = CategoryMember
	}

	if !slices.Contains([]MemberCategory{CategoryPriest, CategoryDeacon, CategoryMember, CategoryElder, CategoryOther}, m.Category) {
		return ErrMemberCategoryInvalid
	}

	if m.Status == "" {
		m.Status = StatusActive
	}

	if !slices.Contains([]MemberStatus{StatusActive, StatusInactive, StatusSuspended}, m.Status) {
		return ErrMemberStatusInvalid
	}

	if m.Gender != "" && m.Gender != "male" && m.Gender != "female" {
		return ErrMemberGenderInvalid
	}

	if m.MonthlyContributionAmount.IsNegative() {
		return ErrMonthlyAmountNegative
	}

	if m.RegistrationDate.IsZero() {
		m.RegistrationDate = time.Now().In(time.UTC)
	} else {
		m.RegistrationDate = m.RegistrationDate.In(time.UTC)
	}

	return nil
}

// AfterFind updates the registration date to use UTC as timezone.
func (m *Member) AfterFind(_ *gorm.DB) (err error) {
	m.RegistrationDate = m.RegistrationDate.In(time.UTC)
	return nil
}

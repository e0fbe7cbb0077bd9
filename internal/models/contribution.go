package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/parish-ledger/backend/internal/types"
	"github.com/shopspring/decimal"
	"golang.org/x/exp/slices"
	"gorm.io/gorm"
)

// swagger:enum PaymentMethod
type PaymentMethod string

const (
	MethodCash         PaymentMethod = "cash"
	MethodBankTransfer PaymentMethod = "bank transfer"
	MethodMobileMoney  PaymentMethod = "mobile money"
	MethodCheck        PaymentMethod = "check"
	MethodOther        PaymentMethod = "other"
)

// Contribution records what a member paid towards the dues of one
// contribution month. There is at most one Contribution per member and
// month; additional payments for the same month increase Amount on the
// existing record.
type Contribution struct {
	DefaultModel
	// The unique index excludes soft-deleted rows so that a month can
	// be recorded again after its record was deleted
	MemberID          uuid.UUID       `json:"memberId" gorm:"uniqueIndex:idx_contributions_member_month,where:deleted_at IS NULL"`
	Member            Member          `json:"-"`
	Amount            decimal.Decimal `json:"amount" gorm:"type:DECIMAL(20,8)"`
	ExpectedAmount    decimal.Decimal `json:"expectedAmount" gorm:"type:DECIMAL(20,8)"`
	ContributionMonth types.Month     `json:"contributionMonth" gorm:"uniqueIndex:idx_contributions_member_month,where:deleted_at IS NULL"`
	ContributionDate  time.Time       `json:"contributionDate"`
	PaymentMethod     PaymentMethod   `json:"paymentMethod" gorm:"default:cash"`
	Reference         string          `json:"reference,omitempty"`
	Notes             string          `json:"notes,omitempty"`
	RecordedByID      uuid.UUID       `json:"recordedById"`
	IsFullPayment     bool            `json:"isFullPayment"`
	RemainingAmount   decimal.Decimal `json:"remainingAmount" gorm:"type:DECIMAL(20,8)"`
	OverpaymentAmount decimal.Decimal `json:"overpaymentAmount" gorm:"type:DECIMAL(20,8)"`
}

func (c *Contribution) BeforeCreate(tx *gorm.DB) error {
	err := c.DefaultModel.BeforeCreate(tx)
	if err != nil {
		return err
	}

	// The member has to exist
	return tx.First(&Member{}, "id = ?", c.MemberID).Error
}

// BeforeSave normalizes the record and recomputes the derived payment
// state. This runs on every create and full update, so isFullPayment,
// remainingAmount and overpaymentAmount can never go stale.
func (c *Contribution) BeforeSave(_ *gorm.DB) error {
	if c.Amount.IsNegative() || c.ExpectedAmount.IsNegative() {
		return ErrContributionAmountNegative
	}

	if c.PaymentMethod == "" {
		c.PaymentMethod = MethodCash
	}

	if !slices.Contains([]PaymentMethod{MethodCash, MethodBankTransfer, MethodMobileMoney, MethodCheck, MethodOther}, c.PaymentMethod) {
		return ErrPaymentMethodInvalid
	}

	if c.ContributionDate.IsZero() {
		c.ContributionDate = time.Now().In(time.UTC)
	} else {
		c.ContributionDate = c.ContributionDate.In(time.UTC)
	}

	c.IsFullPayment = c.Amount.GreaterThanOrEqual(c.ExpectedAmount)
	c.RemainingAmount = decimal.Max(decimal.Zero, c.ExpectedAmount.Sub(c.Amount))
	c.OverpaymentAmount = decimal.Max(decimal.Zero, c.Amount.Sub(c.ExpectedAmount))

	return nil
}

// AfterFind updates the contribution date to use UTC as timezone.
func (c *Contribution) AfterFind(_ *gorm.DB) (err error) {
	c.ContributionDate = c.ContributionDate.In(time.UTC)
	return nil
}

// Package ledger implements the contribution reconciliation and
// balance accounting rules: how payments are applied to contribution
// months, how multi-month lump payments are distributed and how
// monthly, yearly and lifetime balances are derived.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/parish-ledger/backend/internal/audit"
	"github.com/parish-ledger/backend/internal/models"
	"github.com/parish-ledger/backend/internal/types"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	ErrAmountNegative       = errors.New("the payment amount must not be negative")
	ErrMonthlyAmountNotSet  = errors.New("the member has no monthly contribution amount set")
	ErrNumberOfMonthsTooLow = errors.New("numberOfMonths must be larger than one for multi-month payments")
)

var printer = message.NewPrinter(language.English)

// monthLocks serializes the read-modify-write cycle per (member, month)
// so that two concurrent payments for the same month never drop an
// increment. Entries are retained; the key space is bounded by the
// number of (member, month) pairs.
var monthLocks sync.Map

func lockMonth(memberID uuid.UUID, month types.Month) *sync.Mutex {
	key := memberID.String() + "/" + month.String()
	lock, _ := monthLocks.LoadOrStore(key, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

// PaymentInput describes one incoming payment event.
type PaymentInput struct {
	MemberID          uuid.UUID
	Amount            decimal.Decimal
	ContributionMonth types.Month
	ExpectedAmount    *decimal.Decimal // overrides the member's monthly amount for new records
	NumberOfMonths    int
	ContributionDate  time.Time
	PaymentMethod     models.PaymentMethod
	Reference         string
	Notes             string
	RecordedBy        uuid.UUID
	SourceAddress     string
}

// DistributionResult is returned for multi-month payments.
type DistributionResult struct {
	Contributions []models.Contribution `json:"contributions"`
	MonthsCovered int                   `json:"monthsCovered"`
	TotalAmount   decimal.Decimal       `json:"totalAmount"`
}

// RecordPayment applies a payment to a single contribution month.
//
// The month is normalized to its first day. When a record for the
// member and month already exists, the payment is added to it and the
// stored expected amount is kept; otherwise a new record is created
// with the expected amount resolved from the override or the member's
// monthly contribution amount. The derived payment state is recomputed
// either way.
func RecordPayment(ctx context.Context, input PaymentInput) (models.Contribution, error) {
	if input.Amount.IsNegative() {
		return models.Contribution{}, ErrAmountNegative
	}

	var member models.Member
	err := models.DB.WithContext(ctx).First(&member, "id = ?", input.MemberID).Error
	if err != nil {
		return models.Contribution{}, err
	}

	month := types.MonthOf(time.Time(input.ContributionMonth))

	expected := member.MonthlyContributionAmount
	if input.ExpectedAmount != nil {
		expected = *input.ExpectedAmount
	}

	contribution, created, err := applyPayment(ctx, member.ID, month, input.Amount, expected, paymentMeta{
		method:     input.PaymentMethod,
		reference:  input.Reference,
		notes:      input.Notes,
		date:       input.ContributionDate,
		recordedBy: input.RecordedBy,
	})
	if err != nil {
		return models.Contribution{}, err
	}

	action := models.ActionUpdate
	description := printer.Sprintf("Updated contribution for %s for %s. Added %.2f to the existing amount.",
		member.Names, monthName(month), input.Amount.InexactFloat64())
	if created {
		action = models.ActionCreate
		description = printer.Sprintf("Created new contribution of %.2f for %s for %s.",
			input.Amount.InexactFloat64(), member.Names, monthName(month))
	}

	audit.Record(audit.Event{
		Actor:        input.RecordedBy,
		Action:       action,
		ResourceType: "contribution",
		ResourceID:   contribution.ID,
		RelatedEntities: []models.RelatedEntity{
			{EntityType: "member", EntityID: member.ID},
			{EntityType: "user", EntityID: input.RecordedBy},
		},
		Description: description,
		Details: map[string]any{
			"memberId":          member.ID,
			"memberName":        member.Names,
			"amount":            input.Amount,
			"contributionMonth": month,
			"paymentMethod":     contribution.PaymentMethod,
		},
		SourceAddress: input.SourceAddress,
	})

	return contribution, nil
}

// DistributePayment spreads a lump payment over consecutive months
// starting at the input month. Full months are funded with the member's
// monthly contribution amount, a remainder produces one partial record,
// and distribution stops after NumberOfMonths months at the latest. Any
// expected-amount override is ignored here: the per-month due is always
// the member's standard amount.
func DistributePayment(ctx context.Context, input PaymentInput) (DistributionResult, error) {
	if input.Amount.IsNegative() {
		return DistributionResult{}, ErrAmountNegative
	}

	if input.NumberOfMonths < 2 {
		return DistributionResult{}, ErrNumberOfMonthsTooLow
	}

	var member models.Member
	err := models.DB.WithContext(ctx).First(&member, "id = ?", input.MemberID).Error
	if err != nil {
		return DistributionResult{}, err
	}

	monthly := member.MonthlyContributionAmount
	if !monthly.IsPositive() {
		return DistributionResult{}, ErrMonthlyAmountNotSet
	}

	startMonth := types.MonthOf(time.Time(input.ContributionMonth))
	fullMonths := int(input.Amount.Div(monthly).Floor().IntPart())
	remainder := input.Amount.Mod(monthly)

	result := DistributionResult{
		Contributions: []models.Contribution{},
		TotalAmount:   decimal.Zero,
	}

	for i := 0; i < input.NumberOfMonths && i < fullMonths+1; i++ {
		monthAmount := monthly
		if i >= fullMonths {
			monthAmount = remainder
		}

		if !monthAmount.IsPositive() {
			break
		}

		notes := fmt.Sprintf("Multi-month payment (%d/%d)", i+1, input.NumberOfMonths)
		if input.Notes != "" {
			notes = input.Notes + "; " + notes
		}

		contribution, _, err := applyPayment(ctx, member.ID, startMonth.AddDate(0, i), monthAmount, monthly, paymentMeta{
			method:     input.PaymentMethod,
			reference:  input.Reference,
			notes:      notes,
			date:       input.ContributionDate,
			recordedBy: input.RecordedBy,
		})
		if err != nil {
			return DistributionResult{}, err
		}

		result.Contributions = append(result.Contributions, contribution)
		result.TotalAmount = result.TotalAmount.Add(monthAmount)
	}

	result.MonthsCovered = len(result.Contributions)

	// One summary event for the whole distribution
	audit.Record(audit.Event{
		Actor:        input.RecordedBy,
		Action:       models.ActionCreate,
		ResourceType: "contribution",
		RelatedEntities: []models.RelatedEntity{
			{EntityType: "member", EntityID: member.ID},
			{EntityType: "user", EntityID: input.RecordedBy},
		},
		Description: printer.Sprintf("Recorded multi-month payment of %.2f for %s covering %d months starting %s.",
			result.TotalAmount.InexactFloat64(), member.Names, result.MonthsCovered, monthName(startMonth)),
		Details: map[string]any{
			"memberId":       member.ID,
			"memberName":     member.Names,
			"totalAmount":    result.TotalAmount,
			"monthsCovered":  result.MonthsCovered,
			"startMonth":     startMonth,
			"numberOfMonths": input.NumberOfMonths,
		},
		SourceAddress: input.SourceAddress,
	})

	return result, nil
}

type paymentMeta struct {
	method     models.PaymentMethod
	reference  string
	notes      string
	date       time.Time
	recordedBy uuid.UUID
}

// applyPayment executes the find-or-create cycle for one month under
// the month lock. It reports whether a new record was created.
func applyPayment(ctx context.Context, memberID uuid.UUID, month types.Month, amount, expected decimal.Decimal, meta paymentMeta) (models.Contribution, bool, error) {
	lock := lockMonth(memberID, month)
	lock.Lock()
	defer lock.Unlock()

	var contribution models.Contribution
	err := models.DB.WithContext(ctx).First(&contribution, "member_id = ? AND contribution_month = ?", memberID, month).Error

	if err == nil {
		// Additive update. The stored expected amount is kept, only
		// payment metadata is merged.
		contribution.Amount = contribution.Amount.Add(amount)

		if meta.method != "" {
			contribution.PaymentMethod = meta.method
		}

		if meta.reference != "" {
			contribution.Reference = meta.reference
		}

		if meta.notes != "" {
			if contribution.Notes != "" {
				contribution.Notes = contribution.Notes + "; " + meta.notes
			} else {
				contribution.Notes = meta.notes
			}
		}

		contribution.ContributionDate = meta.date
		if contribution.ContributionDate.IsZero() {
			contribution.ContributionDate = time.Now().In(time.UTC)
		}

		err = models.DB.WithContext(ctx).Save(&contribution).Error
		if err != nil {
			return models.Contribution{}, false, err
		}

		return contribution, false, nil
	}

	if !errors.Is(err, models.ErrResourceNotFound) {
		return models.Contribution{}, false, err
	}

	contribution = models.Contribution{
		MemberID:          memberID,
		Amount:            amount,
		ExpectedAmount:    expected,
		ContributionMonth: month,
		ContributionDate:  meta.date,
		PaymentMethod:     meta.method,
		Reference:         meta.reference,
		Notes:             meta.notes,
		RecordedByID:      meta.recordedBy,
	}

	err = models.DB.WithContext(ctx).Create(&contribution).Error
	if err != nil {
		return models.Contribution{}, false, err
	}

	return contribution, true, nil
}

// ContributionPatch contains the updatable fields of a contribution.
// Nil fields keep their stored value. When amount or expected amount
// change, the derived payment state is recomputed from the effective
// pair of values.
type ContributionPatch struct {
	Amount            *decimal.Decimal      `json:"amount"`
	ExpectedAmount    *decimal.Decimal      `json:"expectedAmount"`
	ContributionMonth *types.Month          `json:"contributionMonth"`
	ContributionDate  *time.Time            `json:"contributionDate"`
	PaymentMethod     *models.PaymentMethod `json:"paymentMethod"`
	Reference         *string               `json:"reference"`
	Notes             *string               `json:"notes"`
}

// UpdateContribution overwrites the given fields of a contribution.
func UpdateContribution(ctx context.Context, id uuid.UUID, patch ContributionPatch, actor uuid.UUID, sourceAddress string) (models.Contribution, error) {
	var contribution models.Contribution
	err := models.DB.WithContext(ctx).First(&contribution, "id = ?", id).Error
	if err != nil {
		return models.Contribution{}, err
	}

	oldValues := map[string]any{}
	newValues := map[string]any{}
	record := func(field string, old, new any) {
		oldValues[field] = old
		newValues[field] = new
	}

	if patch.Amount != nil {
		record("amount", contribution.Amount, *patch.Amount)
		contribution.Amount = *patch.Amount
	}

	if patch.ExpectedAmount != nil {
		record("expectedAmount", contribution.ExpectedAmount, *patch.ExpectedAmount)
		contribution.ExpectedAmount = *patch.ExpectedAmount
	}

	if patch.ContributionMonth != nil {
		month := types.MonthOf(time.Time(*patch.ContributionMonth))
		record("contributionMonth", contribution.ContributionMonth, month)
		contribution.ContributionMonth = month
	}

	if patch.ContributionDate != nil {
		record("contributionDate", contribution.ContributionDate, *patch.ContributionDate)
		contribution.ContributionDate = *patch.ContributionDate
	}

	if patch.PaymentMethod != nil {
		record("paymentMethod", contribution.PaymentMethod, *patch.PaymentMethod)
		contribution.PaymentMethod = *patch.PaymentMethod
	}

	if patch.Reference != nil {
		record("reference", contribution.Reference, *patch.Reference)
		contribution.Reference = *patch.Reference
	}

	if patch.Notes != nil {
		record("notes", contribution.Notes, *patch.Notes)
		contribution.Notes = *patch.Notes
	}

	// The BeforeSave hook recomputes isFullPayment, remainingAmount
	// and overpaymentAmount from the effective amounts
	err = models.DB.WithContext(ctx).Save(&contribution).Error
	if err != nil {
		return models.Contribution{}, err
	}

	audit.Record(audit.Event{
		Actor:        actor,
		Action:       models.ActionUpdate,
		ResourceType: "contribution",
		ResourceID:   contribution.ID,
		RelatedEntities: []models.RelatedEntity{
			{EntityType: "member", EntityID: contribution.MemberID},
			{EntityType: "user", EntityID: actor},
		},
		Description: printer.Sprintf("Updated contribution for %s.", monthName(contribution.ContributionMonth)),
		Details: map[string]any{
			"oldValues": oldValues,
			"newValues": newValues,
		},
		SourceAddress: sourceAddress,
	})

	return contribution, nil
}

// DeleteContribution removes a contribution record.
func DeleteContribution(ctx context.Context, id uuid.UUID, actor uuid.UUID, sourceAddress string) error {
	var contribution models.Contribution
	err := models.DB.WithContext(ctx).First(&contribution, "id = ?", id).Error
	if err != nil {
		return err
	}

	err = models.DB.WithContext(ctx).Delete(&contribution).Error
	if err != nil {
		return err
	}

	audit.Record(audit.Event{
		Actor:        actor,
		Action:       models.ActionDelete,
		ResourceType: "contribution",
		ResourceID:   contribution.ID,
		RelatedEntities: []models.RelatedEntity{
			{EntityType: "member", EntityID: contribution.MemberID},
			{EntityType: "user", EntityID: actor},
		},
		Description: printer.Sprintf("Deleted contribution for %s.", monthName(contribution.ContributionMonth)),
		Details: map[string]any{
			"memberId":          contribution.MemberID,
			"amount":            contribution.Amount,
			"contributionMonth": contribution.ContributionMonth,
		},
		SourceAddress: sourceAddress,
	})

	return nil
}

func monthName(m types.Month) string {
	return time.Time(m).Format("January 2006")
}

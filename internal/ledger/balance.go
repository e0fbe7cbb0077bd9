package ledger

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/parish-ledger/backend/internal/models"
	"github.com/parish-ledger/backend/internal/types"
	"github.com/shopspring/decimal"
)

// HistoryFilter narrows a member's history to a contribution date range.
// Zero values mean unbounded.
type HistoryFilter struct {
	FromDate time.Time
	ToDate   time.Time
}

// MonthBucket is the per-month view of a member's history.
type MonthBucket struct {
	Month             types.Month     `json:"month"`
	ExpectedAmount    decimal.Decimal `json:"expectedAmount"`
	PaidAmount        decimal.Decimal `json:"paidAmount"`
	IsFullPayment     bool            `json:"isFullPayment"`
	RemainingAmount   decimal.Decimal `json:"remainingAmount"`
	OverpaymentAmount decimal.Decimal `json:"overpaymentAmount"`
}

// HistorySummary is the numeric block of a member's history.
type HistorySummary struct {
	TotalContributed        decimal.Decimal `json:"totalContributed"`
	TotalMonthlyExpected    decimal.Decimal `json:"totalMonthlyExpected"`
	MonthsSinceRegistration int             `json:"monthsSinceRegistration"`
	TotalLifetimeExpected   decimal.Decimal `json:"totalLifetimeExpected"`
	LifetimeBalance         decimal.Decimal `json:"lifetimeBalance"`
	TotalYearlyExpected     decimal.Decimal `json:"totalYearlyExpected"`
	YearToDateExpected      decimal.Decimal `json:"yearToDateExpected"`
	YearToDateContributed   decimal.Decimal `json:"yearToDateContributed"`
	YearlyBalance           decimal.Decimal `json:"yearlyBalance"`
	CurrentMonthContributed decimal.Decimal `json:"currentMonthContributed"`
	MonthlyBalance          decimal.Decimal `json:"monthlyBalance"`
	MonthsContributed       int             `json:"monthsContributed"`
	FullyPaidMonths         int             `json:"fullyPaidMonths"`
}

// MemberHistory is the full history response for one member.
type MemberHistory struct {
	Member        models.Member         `json:"member"`
	Summary       HistorySummary        `json:"summary"`
	Months        []MonthBucket         `json:"months"`
	Contributions []models.Contribution `json:"contributions"`
}

// History composes the member snapshot, the lifetime, yearly and monthly
// balance figures and the per-month breakdown for one member.
//
// All balances follow "expected minus contributed, positive means
// owing". The lifetime expectation counts every month from the
// registration month through the current month, both inclusive. The
// computation is read-only and safe to run concurrently with writes.
func History(ctx context.Context, memberID uuid.UUID, filter HistoryFilter) (MemberHistory, error) {
	var member models.Member
	err := models.DB.WithContext(ctx).First(&member, "id = ?", memberID).Error
	if err != nil {
		return MemberHistory{}, err
	}

	q := models.DB.WithContext(ctx).Where("member_id = ?", memberID)
	if !filter.FromDate.IsZero() {
		q = q.Where("contribution_date >= ?", filter.FromDate)
	}
	if !filter.ToDate.IsZero() {
		q = q.Where("contribution_date <= ?", filter.ToDate)
	}

	var contributions []models.Contribution
	err = q.Order("contribution_month DESC").Find(&contributions).Error
	if err != nil {
		return MemberHistory{}, err
	}

	now := time.Now().In(time.UTC)
	currentMonth := types.MonthOf(now)
	monthly := member.MonthlyContributionAmount

	summary := HistorySummary{
		TotalContributed:        decimal.Zero,
		TotalMonthlyExpected:    decimal.Zero,
		YearToDateContributed:   decimal.Zero,
		CurrentMonthContributed: decimal.Zero,
	}

	summary.MonthsSinceRegistration = currentMonth.Sub(types.MonthOf(member.RegistrationDate)) + 1
	summary.TotalLifetimeExpected = monthly.Mul(decimal.NewFromInt(int64(summary.MonthsSinceRegistration)))

	summary.TotalYearlyExpected = monthly.Mul(decimal.NewFromInt(12))
	summary.YearToDateExpected = monthly.Mul(decimal.NewFromInt(int64(now.Month())))

	// One bucket per contribution month. Records are ordered newest
	// first, so the first record for a month wins should duplicates
	// ever exist despite the uniqueness constraint.
	months := []MonthBucket{}
	seen := map[types.Month]bool{}

	for _, c := range contributions {
		summary.TotalContributed = summary.TotalContributed.Add(c.Amount)
		summary.TotalMonthlyExpected = summary.TotalMonthlyExpected.Add(c.ExpectedAmount)

		if c.ContributionDate.Year() == now.Year() {
			summary.YearToDateContributed = summary.YearToDateContributed.Add(c.Amount)
		}

		if c.ContributionMonth.Equal(currentMonth) {
			summary.CurrentMonthContributed = summary.CurrentMonthContributed.Add(c.Amount)
		}

		if seen[c.ContributionMonth] {
			continue
		}
		seen[c.ContributionMonth] = true

		months = append(months, MonthBucket{
			Month:             c.ContributionMonth,
			ExpectedAmount:    c.ExpectedAmount,
			PaidAmount:        c.Amount,
			IsFullPayment:     c.IsFullPayment,
			RemainingAmount:   c.RemainingAmount,
			OverpaymentAmount: c.OverpaymentAmount,
		})

		if c.IsFullPayment {
			summary.FullyPaidMonths++
		}
	}

	summary.MonthsContributed = len(months)
	summary.LifetimeBalance = summary.TotalLifetimeExpected.Sub(summary.TotalContributed)
	summary.YearlyBalance = summary.TotalYearlyExpected.Sub(summary.YearToDateContributed)
	summary.MonthlyBalance = monthly.Sub(summary.CurrentMonthContributed)

	return MemberHistory{
		Member:        member,
		Summary:       summary,
		Months:        months,
		Contributions: contributions,
	}, nil
}

// SortKey selects the ordering of the fleet outstanding list.
//
// swagger:enum SortKey
type SortKey string

const (
	SortBalance      SortKey = "balance"
	SortMonthsBehind SortKey = "monthsBehind"
	SortName         SortKey = "name"
)

// OutstandingMember is one row of the fleet outstanding list.
type OutstandingMember struct {
	MemberID                  uuid.UUID       `json:"memberId"`
	Names                     string          `json:"names"`
	PhoneNumber               string          `json:"phoneNumber"`
	Category                  string          `json:"category"`
	MonthlyContributionAmount decimal.Decimal `json:"monthlyContributionAmount"`
	MonthsSinceRegistration   int             `json:"monthsSinceRegistration"`
	TotalExpected             decimal.Decimal `json:"totalExpected"`
	TotalContributed          decimal.Decimal `json:"totalContributed"`
	Balance                   decimal.Decimal `json:"balance"`
	MonthsBehind              int64           `json:"monthsBehind"`
}

// FleetOutstanding computes the lifetime balance for every active
// member and returns those owing at least minBalance, sorted by the
// given key.
//
// Contribution totals come from one grouped aggregation over the
// contributions table instead of one query per member, so the cost is
// two queries regardless of fleet size.
func FleetOutstanding(ctx context.Context, minBalance decimal.Decimal, sortKey SortKey) ([]OutstandingMember, error) {
	var members []models.Member
	err := models.DB.WithContext(ctx).Where(&models.Member{Status: models.StatusActive}).Find(&members).Error
	if err != nil {
		return nil, err
	}

	var sums []struct {
		MemberID uuid.UUID
		Total    decimal.Decimal
	}
	err = models.DB.WithContext(ctx).
		Model(&models.Contribution{}).
		Select("member_id, SUM(amount) AS total").
		Group("member_id").
		Scan(&sums).Error
	if err != nil {
		return nil, err
	}

	contributed := make(map[uuid.UUID]decimal.Decimal, len(sums))
	for _, s := range sums {
		contributed[s.MemberID] = s.Total
	}

	now := time.Now().In(time.UTC)
	currentMonth := types.MonthOf(now)

	outstanding := []OutstandingMember{}
	for _, member := range members {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		monthly := member.MonthlyContributionAmount
		months := currentMonth.Sub(types.MonthOf(member.RegistrationDate)) + 1
		expected := monthly.Mul(decimal.NewFromInt(int64(months)))

		total, ok := contributed[member.ID]
		if !ok {
			total = decimal.Zero
		}

		balance := expected.Sub(total)
		if balance.LessThan(minBalance) {
			continue
		}

		var monthsBehind int64
		if monthly.IsPositive() {
			monthsBehind = balance.Div(monthly).Floor().IntPart()
		}

		outstanding = append(outstanding, OutstandingMember{
			MemberID:                  member.ID,
			Names:                     member.Names,
			PhoneNumber:               member.PhoneNumber,
			Category:                  string(member.Category),
			MonthlyContributionAmount: monthly,
			MonthsSinceRegistration:   months,
			TotalExpected:             expected,
			TotalContributed:          total,
			Balance:                   balance,
			MonthsBehind:              monthsBehind,
		})
	}

	sort.SliceStable(outstanding, func(i, j int) bool {
		switch sortKey {
		case SortMonthsBehind:
			return outstanding[i].MonthsBehind > outstanding[j].MonthsBehind
		case SortName:
			return outstanding[i].Names < outstanding[j].Names
		default:
			return outstanding[i].Balance.GreaterThan(outstanding[j].Balance)
		}
	})

	return outstanding, nil
}

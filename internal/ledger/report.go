package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/parish-ledger/backend/internal/models"
	"github.com/shopspring/decimal"
)

// OverallSummary is the fleet-wide headline block.
type OverallSummary struct {
	TotalMembers                  int64           `json:"totalMembers"`
	TotalContributions            decimal.Decimal `json:"totalContributions"`
	ContributionCount             int64           `json:"contributionCount"`
	AverageContribution           decimal.Decimal `json:"averageContribution"`
	MembersWithOutstandingBalance int             `json:"membersWithOutstandingBalance"`
}

// MonthlyStat is one point of the trailing contribution time series.
type MonthlyStat struct {
	Year        int             `json:"year"`
	Month       int             `json:"month"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	Count       int64           `json:"count"`
}

// OverallStats is the dashboard report.
type OverallStats struct {
	Summary         OverallSummary      `json:"summary"`
	MonthlyStats    []MonthlyStat       `json:"monthlyStats"`
	TopOwingMembers []OutstandingMember `json:"topOwingMembers"`
}

// Overall computes the dashboard report: active member count, aggregate
// contribution figures, a trailing six month time series and the ten
// members with the highest outstanding balance.
func Overall(ctx context.Context) (OverallStats, error) {
	var stats OverallStats

	err := models.DB.WithContext(ctx).
		Model(&models.Member{}).
		Where(&models.Member{Status: models.StatusActive}).
		Count(&stats.Summary.TotalMembers).Error
	if err != nil {
		return OverallStats{}, err
	}

	var totals struct {
		Total decimal.Decimal
		Count int64
	}
	err = models.DB.WithContext(ctx).
		Model(&models.Contribution{}).
		Select("COALESCE(SUM(amount), 0) AS total, COUNT(*) AS count").
		Scan(&totals).Error
	if err != nil {
		return OverallStats{}, err
	}

	stats.Summary.TotalContributions = totals.Total
	stats.Summary.ContributionCount = totals.Count
	stats.Summary.AverageContribution = decimal.Zero
	if totals.Count > 0 {
		stats.Summary.AverageContribution = totals.Total.Div(decimal.NewFromInt(totals.Count))
	}

	sixMonthsAgo := time.Now().In(time.UTC).AddDate(0, -6, 0)
	stats.MonthlyStats = []MonthlyStat{}
	err = models.DB.WithContext(ctx).
		Model(&models.Contribution{}).
		Select("CAST(strftime('%Y', contribution_date) AS INTEGER) AS year, CAST(strftime('%m', contribution_date) AS INTEGER) AS month, SUM(amount) AS total_amount, COUNT(*) AS count").
		Where("contribution_date >= ?", sixMonthsAgo).
		Group("year, month").
		Order("year, month").
		Scan(&stats.MonthlyStats).Error
	if err != nil {
		return OverallStats{}, err
	}

	owing, err := FleetOutstanding(ctx, decimal.Zero, SortBalance)
	if err != nil {
		return OverallStats{}, err
	}

	// Zero balances pass the fleet filter but do not count as owing
	stats.TopOwingMembers = []OutstandingMember{}
	for _, o := range owing {
		if !o.Balance.IsPositive() {
			continue
		}

		stats.Summary.MembersWithOutstandingBalance++
		if len(stats.TopOwingMembers) < 10 {
			stats.TopOwingMembers = append(stats.TopOwingMembers, o)
		}
	}

	return stats, nil
}

// MemberSnapshot is the member identification block embedded in
// reports.
type MemberSnapshot struct {
	ID          uuid.UUID             `json:"id"`
	Names       string                `json:"names"`
	Email       string                `json:"email,omitempty"`
	PhoneNumber string                `json:"phoneNumber"`
	Category    models.MemberCategory `json:"category"`
}

// MemberMonthReport groups one member's contributions within a report
// window.
type MemberMonthReport struct {
	Member        MemberSnapshot        `json:"member"`
	TotalAmount   decimal.Decimal       `json:"totalAmount"`
	Contributions []models.Contribution `json:"contributions"`
}

// MonthlyReport breaks one calendar month down by member.
type MonthlyReport struct {
	Year                int                 `json:"year"`
	Month               int                 `json:"month"`
	TotalContributions  int                 `json:"totalContributions"`
	TotalAmount         decimal.Decimal     `json:"totalAmount"`
	MemberContributions []MemberMonthReport `json:"memberContributions"`
}

// Monthly reports all contributions whose contribution date falls into
// the given calendar month, grouped by member.
func Monthly(ctx context.Context, year int, month time.Month) (MonthlyReport, error) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	var contributions []models.Contribution
	err := models.DB.WithContext(ctx).
		Where("contribution_date >= ? AND contribution_date < ?", start, end).
		Order("contribution_date").
		Find(&contributions).Error
	if err != nil {
		return MonthlyReport{}, err
	}

	report := MonthlyReport{
		Year:                year,
		Month:               int(month),
		TotalContributions:  len(contributions),
		TotalAmount:         decimal.Zero,
		MemberContributions: []MemberMonthReport{},
	}

	memberIDs := []uuid.UUID{}
	for _, c := range contributions {
		report.TotalAmount = report.TotalAmount.Add(c.Amount)
		memberIDs = append(memberIDs, c.MemberID)
	}

	if len(contributions) == 0 {
		return report, nil
	}

	var members []models.Member
	err = models.DB.WithContext(ctx).Where("id IN ?", memberIDs).Find(&members).Error
	if err != nil {
		return MonthlyReport{}, err
	}

	snapshots := make(map[uuid.UUID]MemberSnapshot, len(members))
	for _, m := range members {
		snapshots[m.ID] = MemberSnapshot{
			ID:          m.ID,
			Names:       m.Names,
			Email:       m.Email,
			PhoneNumber: m.PhoneNumber,
			Category:    m.Category,
		}
	}

	// Group by member, preserving first-seen order
	index := map[uuid.UUID]int{}
	for _, c := range contributions {
		i, ok := index[c.MemberID]
		if !ok {
			i = len(report.MemberContributions)
			index[c.MemberID] = i
			report.MemberContributions = append(report.MemberContributions, MemberMonthReport{
				Member:        snapshots[c.MemberID],
				TotalAmount:   decimal.Zero,
				Contributions: []models.Contribution{},
			})
		}

		group := &report.MemberContributions[i]
		group.TotalAmount = group.TotalAmount.Add(c.Amount)
		group.Contributions = append(group.Contributions, c)
	}

	return report, nil
}

// YearMonthBucket is one month of a yearly report. Months without
// contributions are reported with zero values.
type YearMonthBucket struct {
	Month       int             `json:"month"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	Count       int64           `json:"count"`
}

// YearlyReport breaks one calendar year down by month.
type YearlyReport struct {
	Year               int               `json:"year"`
	TotalAmount        decimal.Decimal   `json:"totalAmount"`
	TotalContributions int64             `json:"totalContributions"`
	MonthlyBreakdown   []YearMonthBucket `json:"monthlyBreakdown"`
}

// Yearly reports the contribution totals of one calendar year, broken
// down into twelve month buckets.
func Yearly(ctx context.Context, year int) (YearlyReport, error) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)

	var rows []struct {
		Month       int
		TotalAmount decimal.Decimal
		Count       int64
	}
	err := models.DB.WithContext(ctx).
		Model(&models.Contribution{}).
		Select("CAST(strftime('%m', contribution_date) AS INTEGER) AS month, SUM(amount) AS total_amount, COUNT(*) AS count").
		Where("contribution_date >= ? AND contribution_date < ?", start, end).
		Group("month").
		Order("month").
		Scan(&rows).Error
	if err != nil {
		return YearlyReport{}, err
	}

	byMonth := make(map[int]YearMonthBucket, len(rows))
	for _, row := range rows {
		byMonth[row.Month] = YearMonthBucket{
			Month:       row.Month,
			TotalAmount: row.TotalAmount,
			Count:       row.Count,
		}
	}

	report := YearlyReport{
		Year:        year,
		TotalAmount: decimal.Zero,
	}

	for i := 1; i <= 12; i++ {
		bucket, ok := byMonth[i]
		if !ok {
			bucket = YearMonthBucket{Month: i, TotalAmount: decimal.Zero}
		}

		report.TotalAmount = report.TotalAmount.Add(bucket.TotalAmount)
		report.TotalContributions += bucket.Count
		report.MonthlyBreakdown = append(report.MonthlyBreakdown, bucket)
	}

	return report, nil
}

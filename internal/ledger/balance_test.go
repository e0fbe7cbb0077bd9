package ledger_test

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/parish-ledger/backend/internal/ledger"
	"github.com/parish-ledger/backend/internal/models"
	"github.com/parish-ledger/backend/internal/types"
	"github.com/shopspring/decimal"
)

func (suite *TestSuiteStandard) TestHistoryLifetimeExpectation() {
	// Registered four calendar months ago, so five months including the
	// current one count towards the lifetime expectation
	member := suite.createTestMember(models.Member{
		RegistrationDate:          monthsAgo(4),
		MonthlyContributionAmount: decimal.NewFromInt(50),
	})

	history, err := ledger.History(context.Background(), member.ID, ledger.HistoryFilter{})
	suite.Require().Nil(err)

	suite.Assert().Equal(5, history.Summary.MonthsSinceRegistration)
	suite.decimalsEqual(decimal.NewFromInt(250), history.Summary.TotalLifetimeExpected)
	suite.decimalsEqual(decimal.NewFromInt(250), history.Summary.LifetimeBalance)
	suite.decimalsEqual(decimal.Zero, history.Summary.TotalContributed)
}

func (suite *TestSuiteStandard) TestHistorySummary() {
	member := suite.createTestMember(models.Member{
		RegistrationDate:          monthsAgo(1),
		MonthlyContributionAmount: decimal.NewFromInt(100),
	})

	currentMonth := types.MonthOf(time.Now().In(time.UTC))

	_, err := ledger.RecordPayment(context.Background(), ledger.PaymentInput{
		MemberID:          member.ID,
		Amount:            decimal.NewFromInt(100),
		ContributionMonth: currentMonth.AddDate(0, -1),
	})
	suite.Require().Nil(err)

	_, err = ledger.RecordPayment(context.Background(), ledger.PaymentInput{
		MemberID:          member.ID,
		Amount:            decimal.NewFromInt(30),
		ContributionMonth: currentMonth,
	})
	suite.Require().Nil(err)

	history, err := ledger.History(context.Background(), member.ID, ledger.HistoryFilter{})
	suite.Require().Nil(err)

	suite.decimalsEqual(decimal.NewFromInt(130), history.Summary.TotalContributed)
	suite.decimalsEqual(decimal.NewFromInt(200), history.Summary.TotalMonthlyExpected)
	suite.Assert().Equal(2, history.Summary.MonthsSinceRegistration)
	suite.decimalsEqual(decimal.NewFromInt(70), history.Summary.LifetimeBalance)

	suite.decimalsEqual(decimal.NewFromInt(30), history.Summary.CurrentMonthContributed)
	suite.decimalsEqual(decimal.NewFromInt(70), history.Summary.MonthlyBalance)

	suite.decimalsEqual(decimal.NewFromInt(1200), history.Summary.TotalYearlyExpected)

	suite.Assert().Equal(2, history.Summary.MonthsContributed)
	suite.Assert().Equal(1, history.Summary.FullyPaidMonths)
}

func (suite *TestSuiteStandard) TestHistoryBucketsNewestFirst() {
	member := suite.createTestMember(models.Member{
		MonthlyContributionAmount: decimal.NewFromInt(100),
	})

	for _, month := range []types.Month{
		types.NewMonth(2024, 1),
		types.NewMonth(2024, 3),
		types.NewMonth(2024, 2),
	} {
		_, err := ledger.RecordPayment(context.Background(), ledger.PaymentInput{
			MemberID:          member.ID,
			Amount:            decimal.NewFromInt(100),
			ContributionMonth: month,
		})
		suite.Require().Nil(err)
	}

	history, err := ledger.History(context.Background(), member.ID, ledger.HistoryFilter{})
	suite.Require().Nil(err)

	suite.Require().Len(history.Months, 3)
	suite.Assert().Equal(types.NewMonth(2024, 3), history.Months[0].Month)
	suite.Assert().Equal(types.NewMonth(2024, 2), history.Months[1].Month)
	suite.Assert().Equal(types.NewMonth(2024, 1), history.Months[2].Month)
}

func (suite *TestSuiteStandard) TestHistoryIdempotent() {
	member := suite.createTestMember(models.Member{
		MonthlyContributionAmount: decimal.NewFromInt(100),
	})

	_, err := ledger.RecordPayment(context.Background(), ledger.PaymentInput{
		MemberID:          member.ID,
		Amount:            decimal.NewFromInt(70),
		ContributionMonth: types.NewMonth(2024, 3),
	})
	suite.Require().Nil(err)

	first, err := ledger.History(context.Background(), member.ID, ledger.HistoryFilter{})
	suite.Require().Nil(err)

	second, err := ledger.History(context.Background(), member.ID, ledger.HistoryFilter{})
	suite.Require().Nil(err)

	suite.Assert().Equal(first.Summary, second.Summary)
	suite.Assert().Equal(first.Months, second.Months)
}

func (suite *TestSuiteStandard) TestHistoryDateRangeFilter() {
	member := suite.createTestMember(models.Member{
		MonthlyContributionAmount: decimal.NewFromInt(100),
	})

	_, err := ledger.RecordPayment(context.Background(), ledger.PaymentInput{
		MemberID:          member.ID,
		Amount:            decimal.NewFromInt(100),
		ContributionMonth: types.NewMonth(2024, 3),
		ContributionDate:  time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
	})
	suite.Require().Nil(err)

	_, err = ledger.RecordPayment(context.Background(), ledger.PaymentInput{
		MemberID:          member.ID,
		Amount:            decimal.NewFromInt(100),
		ContributionMonth: types.NewMonth(2024, 4),
		ContributionDate:  time.Date(2024, 4, 15, 0, 0, 0, 0, time.UTC),
	})
	suite.Require().Nil(err)

	history, err := ledger.History(context.Background(), member.ID, ledger.HistoryFilter{
		FromDate: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
	})
	suite.Require().Nil(err)

	suite.Require().Len(history.Contributions, 1)
	suite.Assert().Equal(types.NewMonth(2024, 4), history.Contributions[0].ContributionMonth)
}

func (suite *TestSuiteStandard) TestHistoryMemberNotFound() {
	_, err := ledger.History(context.Background(), uuid.New(), ledger.HistoryFilter{})

	suite.Assert().ErrorIs(err, models.ErrResourceNotFound)
}

func (suite *TestSuiteStandard) TestFleetOutstanding() {
	behind := suite.createTestMember(models.Member{
		Names:                     "Behind Member",
		RegistrationDate:          monthsAgo(2),
		MonthlyContributionAmount: decimal.NewFromInt(100),
	})

	_, err := ledger.RecordPayment(context.Background(), ledger.PaymentInput{
		MemberID:          behind.ID,
		Amount:            decimal.NewFromInt(100),
		ContributionMonth: types.MonthOf(monthsAgo(2)),
	})
	suite.Require().Nil(err)

	_ = suite.createTestMember(models.Member{
		Names:                     "New Member",
		RegistrationDate:          monthsAgo(0),
		MonthlyContributionAmount: decimal.NewFromInt(50),
	})

	_ = suite.createTestMember(models.Member{
		Names:                     "Inactive Member",
		RegistrationDate:          monthsAgo(6),
		MonthlyContributionAmount: decimal.NewFromInt(100),
		Status:                    models.StatusInactive,
	})

	outstanding, err := ledger.FleetOutstanding(context.Background(), decimal.Zero, ledger.SortBalance)
	suite.Require().Nil(err)

	// Inactive members are not part of the fleet
	suite.Require().Len(outstanding, 2)

	// Three months since registration, one paid
	suite.Assert().Equal("Behind Member", outstanding[0].Names)
	suite.decimalsEqual(decimal.NewFromInt(300), outstanding[0].TotalExpected)
	suite.decimalsEqual(decimal.NewFromInt(100), outstanding[0].TotalContributed)
	suite.decimalsEqual(decimal.NewFromInt(200), outstanding[0].Balance)
	suite.Assert().Equal(int64(2), outstanding[0].MonthsBehind)

	suite.Assert().Equal("New Member", outstanding[1].Names)
	suite.decimalsEqual(decimal.NewFromInt(50), outstanding[1].Balance)
	suite.Assert().Equal(int64(1), outstanding[1].MonthsBehind)
}

func (suite *TestSuiteStandard) TestFleetOutstandingMinBalance() {
	_ = suite.createTestMember(models.Member{
		Names:                     "Small Debt",
		RegistrationDate:          monthsAgo(0),
		MonthlyContributionAmount: decimal.NewFromInt(50),
	})

	_ = suite.createTestMember(models.Member{
		Names:                     "Large Debt",
		RegistrationDate:          monthsAgo(5),
		MonthlyContributionAmount: decimal.NewFromInt(100),
	})

	outstanding, err := ledger.FleetOutstanding(context.Background(), decimal.NewFromInt(100), ledger.SortBalance)
	suite.Require().Nil(err)

	suite.Require().Len(outstanding, 1)
	suite.Assert().Equal("Large Debt", outstanding[0].Names)
}

func (suite *TestSuiteStandard) TestFleetOutstandingSortByName() {
	_ = suite.createTestMember(models.Member{
		Names:                     "Zula",
		RegistrationDate:          monthsAgo(1),
		MonthlyContributionAmount: decimal.NewFromInt(100),
	})

	_ = suite.createTestMember(models.Member{
		Names:                     "Abel",
		RegistrationDate:          monthsAgo(0),
		MonthlyContributionAmount: decimal.NewFromInt(10),
	})

	outstanding, err := ledger.FleetOutstanding(context.Background(), decimal.Zero, ledger.SortName)
	suite.Require().Nil(err)

	suite.Require().Len(outstanding, 2)
	suite.Assert().Equal("Abel", outstanding[0].Names)
	suite.Assert().Equal("Zula", outstanding[1].Names)
}

func (suite *TestSuiteStandard) TestDeactivationPreservesContributions() {
	member := suite.createTestMember(models.Member{
		MonthlyContributionAmount: decimal.NewFromInt(100),
	})

	contribution, err := ledger.RecordPayment(context.Background(), ledger.PaymentInput{
		MemberID:          member.ID,
		Amount:            decimal.NewFromInt(100),
		ContributionMonth: types.NewMonth(2024, 3),
	})
	suite.Require().Nil(err)

	member.Status = models.StatusInactive
	suite.Require().Nil(models.DB.Save(&member).Error)

	// The record is untouched and history still works for the
	// deactivated member
	var reloaded models.Contribution
	suite.Require().Nil(models.DB.First(&reloaded, "id = ?", contribution.ID).Error)
	suite.decimalsEqual(decimal.NewFromInt(100), reloaded.Amount)

	history, err := ledger.History(context.Background(), member.ID, ledger.HistoryFilter{})
	suite.Require().Nil(err)
	suite.decimalsEqual(decimal.NewFromInt(100), history.Summary.TotalContributed)
}

package ledger_test

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/parish-ledger/backend/internal/audit"
	"github.com/parish-ledger/backend/internal/ledger"
	"github.com/parish-ledger/backend/internal/models"
	"github.com/parish-ledger/backend/internal/types"
	"github.com/shopspring/decimal"
)

func (suite *TestSuiteStandard) TestRecordPaymentCreates() {
	member := suite.createTestMember(models.Member{
		MonthlyContributionAmount: decimal.NewFromInt(100),
	})

	contribution, err := ledger.RecordPayment(context.Background(), ledger.PaymentInput{
		MemberID:          member.ID,
		Amount:            decimal.NewFromInt(70),
		ContributionMonth: types.NewMonth(2024, 3),
	})
	suite.Require().Nil(err)

	suite.decimalsEqual(decimal.NewFromInt(70), contribution.Amount)
	suite.decimalsEqual(decimal.NewFromInt(100), contribution.ExpectedAmount)
	suite.decimalsEqual(decimal.NewFromInt(30), contribution.RemainingAmount)
	suite.Assert().False(contribution.IsFullPayment)
	suite.Assert().Equal(types.NewMonth(2024, 3), contribution.ContributionMonth)
}

func (suite *TestSuiteStandard) TestRecordPaymentAddsToExisting() {
	member := suite.createTestMember(models.Member{
		MonthlyContributionAmount: decimal.NewFromInt(100),
	})

	_, err := ledger.RecordPayment(context.Background(), ledger.PaymentInput{
		MemberID:          member.ID,
		Amount:            decimal.NewFromInt(30),
		ContributionMonth: types.NewMonth(2024, 3),
	})
	suite.Require().Nil(err)

	contribution, err := ledger.RecordPayment(context.Background(), ledger.PaymentInput{
		MemberID:          member.ID,
		Amount:            decimal.NewFromInt(40),
		ContributionMonth: types.NewMonth(2024, 3),
	})
	suite.Require().Nil(err)

	suite.decimalsEqual(decimal.NewFromInt(70), contribution.Amount)
	suite.decimalsEqual(decimal.NewFromInt(30), contribution.RemainingAmount)
	suite.Assert().False(contribution.IsFullPayment)

	// There must be exactly one record for the member and month
	var count int64
	err = models.DB.Model(&models.Contribution{}).Where("member_id = ?", member.ID).Count(&count).Error
	suite.Require().Nil(err)
	suite.Assert().Equal(int64(1), count)
}

func (suite *TestSuiteStandard) TestRecordPaymentOverpayment() {
	member := suite.createTestMember(models.Member{
		MonthlyContributionAmount: decimal.NewFromInt(100),
	})

	contribution, err := ledger.RecordPayment(context.Background(), ledger.PaymentInput{
		MemberID:          member.ID,
		Amount:            decimal.NewFromInt(120),
		ContributionMonth: types.NewMonth(2024, 3),
	})
	suite.Require().Nil(err)

	suite.Assert().True(contribution.IsFullPayment)
	suite.decimalsEqual(decimal.Zero, contribution.RemainingAmount)
	suite.decimalsEqual(decimal.NewFromInt(20), contribution.OverpaymentAmount)
}

func (suite *TestSuiteStandard) TestRecordPaymentExpectedAmountFrozen() {
	member := suite.createTestMember(models.Member{
		MonthlyContributionAmount: decimal.NewFromInt(100),
	})

	override := decimal.NewFromInt(150)
	_, err := ledger.RecordPayment(context.Background(), ledger.PaymentInput{
		MemberID:          member.ID,
		Amount:            decimal.NewFromInt(50),
		ContributionMonth: types.NewMonth(2024, 3),
		ExpectedAmount:    &override,
	})
	suite.Require().Nil(err)

	// The override on the second payment must not change the stored
	// expected amount
	secondOverride := decimal.NewFromInt(999)
	contribution, err := ledger.RecordPayment(context.Background(), ledger.PaymentInput{
		MemberID:          member.ID,
		Amount:            decimal.NewFromInt(50),
		ContributionMonth: types.NewMonth(2024, 3),
		ExpectedAmount:    &secondOverride,
	})
	suite.Require().Nil(err)

	suite.decimalsEqual(decimal.NewFromInt(150), contribution.ExpectedAmount)
	suite.decimalsEqual(decimal.NewFromInt(100), contribution.Amount)
	suite.decimalsEqual(decimal.NewFromInt(50), contribution.RemainingAmount)
}

func (suite *TestSuiteStandard) TestRecordPaymentNotesMerged() {
	member := suite.createTestMember(models.Member{
		MonthlyContributionAmount: decimal.NewFromInt(100),
	})

	_, err := ledger.RecordPayment(context.Background(), ledger.PaymentInput{
		MemberID:          member.ID,
		Amount:            decimal.NewFromInt(30),
		ContributionMonth: types.NewMonth(2024, 3),
		Notes:             "first installment",
	})
	suite.Require().Nil(err)

	contribution, err := ledger.RecordPayment(context.Background(), ledger.PaymentInput{
		MemberID:          member.ID,
		Amount:            decimal.NewFromInt(40),
		ContributionMonth: types.NewMonth(2024, 3),
		Notes:             "second installment",
	})
	suite.Require().Nil(err)

	suite.Assert().Equal("first installment; second installment", contribution.Notes)
}

func (suite *TestSuiteStandard) TestRecordPaymentMemberNotFound() {
	_, err := ledger.RecordPayment(context.Background(), ledger.PaymentInput{
		MemberID:          uuid.New(),
		Amount:            decimal.NewFromInt(30),
		ContributionMonth: types.NewMonth(2024, 3),
	})

	suite.Assert().ErrorIs(err, models.ErrResourceNotFound)
}

func (suite *TestSuiteStandard) TestRecordPaymentNegativeAmount() {
	member := suite.createTestMember(models.Member{})

	_, err := ledger.RecordPayment(context.Background(), ledger.PaymentInput{
		MemberID:          member.ID,
		Amount:            decimal.NewFromInt(-10),
		ContributionMonth: types.NewMonth(2024, 3),
	})

	suite.Assert().ErrorIs(err, ledger.ErrAmountNegative)
}

func (suite *TestSuiteStandard) TestRecordPaymentMonthNormalized() {
	member := suite.createTestMember(models.Member{
		MonthlyContributionAmount: decimal.NewFromInt(100),
	})

	// A month value constructed from the middle of a month is
	// normalized before lookup and storage
	contribution, err := ledger.RecordPayment(context.Background(), ledger.PaymentInput{
		MemberID:          member.ID,
		Amount:            decimal.NewFromInt(100),
		ContributionMonth: types.Month(time.Date(2024, 3, 14, 15, 9, 26, 0, time.UTC)),
	})
	suite.Require().Nil(err)

	suite.Assert().Equal(types.NewMonth(2024, 3), contribution.ContributionMonth)
}

func (suite *TestSuiteStandard) TestRecordPaymentConcurrent() {
	member := suite.createTestMember(models.Member{
		MonthlyContributionAmount: decimal.NewFromInt(100),
	})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := ledger.RecordPayment(context.Background(), ledger.PaymentInput{
				MemberID:          member.ID,
				Amount:            decimal.NewFromInt(10),
				ContributionMonth: types.NewMonth(2024, 3),
			})
			suite.Assert().Nil(err)
		}()
	}
	wg.Wait()

	var contributions []models.Contribution
	err := models.DB.Find(&contributions, "member_id = ?", member.ID).Error
	suite.Require().Nil(err)

	// No increment may be lost and no duplicate record created
	suite.Require().Len(contributions, 1)
	suite.decimalsEqual(decimal.NewFromInt(100), contributions[0].Amount)
}

func (suite *TestSuiteStandard) TestDistributePayment() {
	member := suite.createTestMember(models.Member{
		MonthlyContributionAmount: decimal.NewFromInt(100),
	})

	result, err := ledger.DistributePayment(context.Background(), ledger.PaymentInput{
		MemberID:          member.ID,
		Amount:            decimal.NewFromInt(250),
		ContributionMonth: types.NewMonth(2024, 3),
		NumberOfMonths:    3,
	})
	suite.Require().Nil(err)

	suite.Assert().Equal(3, result.MonthsCovered)
	suite.decimalsEqual(decimal.NewFromInt(250), result.TotalAmount)
	suite.Require().Len(result.Contributions, 3)

	suite.Assert().Equal(types.NewMonth(2024, 3), result.Contributions[0].ContributionMonth)
	suite.decimalsEqual(decimal.NewFromInt(100), result.Contributions[0].Amount)
	suite.Assert().True(result.Contributions[0].IsFullPayment)

	suite.Assert().Equal(types.NewMonth(2024, 4), result.Contributions[1].ContributionMonth)
	suite.decimalsEqual(decimal.NewFromInt(100), result.Contributions[1].Amount)
	suite.Assert().True(result.Contributions[1].IsFullPayment)

	suite.Assert().Equal(types.NewMonth(2024, 5), result.Contributions[2].ContributionMonth)
	suite.decimalsEqual(decimal.NewFromInt(50), result.Contributions[2].Amount)
	suite.Assert().False(result.Contributions[2].IsFullPayment)
	suite.decimalsEqual(decimal.NewFromInt(50), result.Contributions[2].RemainingAmount)
}

func (suite *TestSuiteStandard) TestDistributePaymentPartialOnly() {
	member := suite.createTestMember(models.Member{
		MonthlyContributionAmount: decimal.NewFromInt(100),
	})

	result, err := ledger.DistributePayment(context.Background(), ledger.PaymentInput{
		MemberID:          member.ID,
		Amount:            decimal.NewFromInt(50),
		ContributionMonth: types.NewMonth(2024, 3),
		NumberOfMonths:    3,
	})
	suite.Require().Nil(err)

	// Less than one monthly amount produces exactly one partial record
	suite.Assert().Equal(1, result.MonthsCovered)
	suite.Require().Len(result.Contributions, 1)
	suite.decimalsEqual(decimal.NewFromInt(50), result.Contributions[0].Amount)
}

func (suite *TestSuiteStandard) TestDistributePaymentTruncatedByNumberOfMonths() {
	member := suite.createTestMember(models.Member{
		MonthlyContributionAmount: decimal.NewFromInt(100),
	})

	result, err := ledger.DistributePayment(context.Background(), ledger.PaymentInput{
		MemberID:          member.ID,
		Amount:            decimal.NewFromInt(500),
		ContributionMonth: types.NewMonth(2024, 3),
		NumberOfMonths:    2,
	})
	suite.Require().Nil(err)

	suite.Assert().Equal(2, result.MonthsCovered)
	suite.decimalsEqual(decimal.NewFromInt(200), result.TotalAmount)
}

func (suite *TestSuiteStandard) TestDistributePaymentAddsToExisting() {
	member := suite.createTestMember(models.Member{
		MonthlyContributionAmount: decimal.NewFromInt(100),
	})

	_, err := ledger.RecordPayment(context.Background(), ledger.PaymentInput{
		MemberID:          member.ID,
		Amount:            decimal.NewFromInt(40),
		ContributionMonth: types.NewMonth(2024, 3),
	})
	suite.Require().Nil(err)

	result, err := ledger.DistributePayment(context.Background(), ledger.PaymentInput{
		MemberID:          member.ID,
		Amount:            decimal.NewFromInt(200),
		ContributionMonth: types.NewMonth(2024, 3),
		NumberOfMonths:    2,
	})
	suite.Require().Nil(err)

	suite.Require().Len(result.Contributions, 2)
	suite.decimalsEqual(decimal.NewFromInt(140), result.Contributions[0].Amount)
	suite.decimalsEqual(decimal.NewFromInt(100), result.Contributions[1].Amount)
}

func (suite *TestSuiteStandard) TestDistributePaymentNumberOfMonthsTooLow() {
	member := suite.createTestMember(models.Member{
		MonthlyContributionAmount: decimal.NewFromInt(100),
	})

	_, err := ledger.DistributePayment(context.Background(), ledger.PaymentInput{
		MemberID:          member.ID,
		Amount:            decimal.NewFromInt(100),
		ContributionMonth: types.NewMonth(2024, 3),
		NumberOfMonths:    1,
	})

	suite.Assert().ErrorIs(err, ledger.ErrNumberOfMonthsTooLow)
}

func (suite *TestSuiteStandard) TestDistributePaymentMonthlyAmountNotSet() {
	member := suite.createTestMember(models.Member{})

	_, err := ledger.DistributePayment(context.Background(), ledger.PaymentInput{
		MemberID:          member.ID,
		Amount:            decimal.NewFromInt(100),
		ContributionMonth: types.NewMonth(2024, 3),
		NumberOfMonths:    2,
	})

	suite.Assert().ErrorIs(err, ledger.ErrMonthlyAmountNotSet)
}

func (suite *TestSuiteStandard) TestDistributePaymentSummaryAuditEvent() {
	member := suite.createTestMember(models.Member{
		MonthlyContributionAmount: decimal.NewFromInt(100),
	})

	audit.Start(16)

	_, err := ledger.DistributePayment(context.Background(), ledger.PaymentInput{
		MemberID:          member.ID,
		Amount:            decimal.NewFromInt(250),
		ContributionMonth: types.NewMonth(2024, 3),
		NumberOfMonths:    3,
	})
	suite.Require().Nil(err)

	// Close drains the queue so all events are written
	audit.Close()

	entries, count, err := audit.Entries(audit.EntryFilter{EntityType: "contribution"})
	suite.Require().Nil(err)

	// One summary event for the whole distribution, not one per month
	suite.Assert().Equal(int64(1), count)
	suite.Require().Len(entries, 1)
	suite.Assert().Equal(models.ActionCreate, entries[0].Action)
	suite.Assert().Contains(entries[0].Description, "3 months")
}

func (suite *TestSuiteStandard) TestUpdateContribution() {
	member := suite.createTestMember(models.Member{
		MonthlyContributionAmount: decimal.NewFromInt(100),
	})

	contribution, err := ledger.RecordPayment(context.Background(), ledger.PaymentInput{
		MemberID:          member.ID,
		Amount:            decimal.NewFromInt(40),
		ContributionMonth: types.NewMonth(2024, 3),
	})
	suite.Require().Nil(err)

	amount := decimal.NewFromInt(110)
	updated, err := ledger.UpdateContribution(context.Background(), contribution.ID, ledger.ContributionPatch{
		Amount: &amount,
	}, uuid.Nil, "")
	suite.Require().Nil(err)

	// The derived payment state follows the new amount against the
	// stored expected amount
	suite.decimalsEqual(decimal.NewFromInt(110), updated.Amount)
	suite.decimalsEqual(decimal.NewFromInt(100), updated.ExpectedAmount)
	suite.Assert().True(updated.IsFullPayment)
	suite.decimalsEqual(decimal.NewFromInt(10), updated.OverpaymentAmount)
}

func (suite *TestSuiteStandard) TestUpdateContributionExpectedAmount() {
	member := suite.createTestMember(models.Member{
		MonthlyContributionAmount: decimal.NewFromInt(100),
	})

	contribution, err := ledger.RecordPayment(context.Background(), ledger.PaymentInput{
		MemberID:          member.ID,
		Amount:            decimal.NewFromInt(40),
		ContributionMonth: types.NewMonth(2024, 3),
	})
	suite.Require().Nil(err)

	expected := decimal.NewFromInt(40)
	updated, err := ledger.UpdateContribution(context.Background(), contribution.ID, ledger.ContributionPatch{
		ExpectedAmount: &expected,
	}, uuid.Nil, "")
	suite.Require().Nil(err)

	suite.Assert().True(updated.IsFullPayment)
	suite.decimalsEqual(decimal.Zero, updated.RemainingAmount)
}

func (suite *TestSuiteStandard) TestUpdateContributionNotFound() {
	_, err := ledger.UpdateContribution(context.Background(), uuid.New(), ledger.ContributionPatch{}, uuid.Nil, "")

	suite.Assert().ErrorIs(err, models.ErrResourceNotFound)
}

func (suite *TestSuiteStandard) TestDeleteContribution() {
	member := suite.createTestMember(models.Member{
		MonthlyContributionAmount: decimal.NewFromInt(100),
	})

	contribution, err := ledger.RecordPayment(context.Background(), ledger.PaymentInput{
		MemberID:          member.ID,
		Amount:            decimal.NewFromInt(40),
		ContributionMonth: types.NewMonth(2024, 3),
	})
	suite.Require().Nil(err)

	err = ledger.DeleteContribution(context.Background(), contribution.ID, uuid.Nil, "")
	suite.Require().Nil(err)

	err = models.DB.First(&models.Contribution{}, "id = ?", contribution.ID).Error
	suite.Assert().ErrorIs(err, models.ErrResourceNotFound)
}

func (suite *TestSuiteStandard) TestDeleteContributionNotFound() {
	err := ledger.DeleteContribution(context.Background(), uuid.New(), uuid.Nil, "")

	suite.Assert().ErrorIs(err, models.ErrResourceNotFound)
}

func (suite *TestSuiteStandard) TestRecordPaymentAfterDelete() {
	member := suite.createTestMember(models.Member{
		MonthlyContributionAmount: decimal.NewFromInt(100),
	})

	contribution, err := ledger.RecordPayment(context.Background(), ledger.PaymentInput{
		MemberID:          member.ID,
		Amount:            decimal.NewFromInt(100),
		ContributionMonth: types.NewMonth(2024, 3),
	})
	suite.Require().Nil(err)

	err = ledger.DeleteContribution(context.Background(), contribution.ID, uuid.Nil, "")
	suite.Require().Nil(err)

	// The month can be recorded again after its record was deleted
	replacement, err := ledger.RecordPayment(context.Background(), ledger.PaymentInput{
		MemberID:          member.ID,
		Amount:            decimal.NewFromInt(50),
		ContributionMonth: types.NewMonth(2024, 3),
	})
	suite.Require().Nil(err)

	suite.Assert().NotEqual(contribution.ID, replacement.ID)
	suite.decimalsEqual(decimal.NewFromInt(50), replacement.Amount)
}

package models

import (
	"errors"
)

var (
	ErrGeneral          = errors.New("an error occurred on the server during your request")
	ErrResourceNotFound = errors.New("there is no")
)

// Member errors
var (
	ErrMemberEmailNotUnique      = errors.New("a member with this email address already exists")
	ErrMemberCategoryInvalid     = errors.New("the member category is invalid")
	ErrMemberStatusInvalid       = errors.New("the member status is invalid")
	ErrMemberGenderInvalid       = errors.New("the member gender is invalid")
	ErrMonthlyAmountNegative     = errors.New("the monthly contribution amount must not be negative")
	ErrMemberNamesRequired       = errors.New("member names must be set")
	ErrMemberPhoneNumberRequired = errors.New("the member phone number must be set")
)

// Contribution errors
var (
	ErrContributionMonthNotUnique = errors.New("there already is a contribution for this member and month")
	ErrContributionAmountNegative = errors.New("contribution amounts must not be negative")
	ErrPaymentMethodInvalid       = errors.New("the payment method is invalid")
)

// User errors
var (
	ErrUserEmailNotUnique = errors.New("a user with this email address already exists")
	ErrUserRoleInvalid    = errors.New("the user role is invalid")
)

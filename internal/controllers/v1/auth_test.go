package v1_test

import (
	"net/http"
	"testing"

	v1 "github.com/parish-ledger/backend/internal/controllers/v1"
	"github.com/parish-ledger/backend/internal/models"
	"github.com/parish-ledger/backend/test"
)

func (suite *TestSuiteStandard) TestRegisterFirstUserIsAdmin() {
	user, token := registerTestUser(suite.T(), v1.UserEditable{Name: "Jane Smith"})

	suite.Assert().Equal(models.RoleAdmin, user.Role)
	suite.Assert().NotEmpty(token)
}

func (suite *TestSuiteStandard) TestRegisterSecondUserNeedsAdmin() {
	_, adminToken := registerTestUser(suite.T(), v1.UserEditable{})

	// Without a token, registration is rejected
	r := test.Request(suite.T(), http.MethodPost, "http://example.com/v1/auth/register", v1.UserEditable{
		Email:    "second@example.com",
		Password: "password",
	})
	test.AssertHTTPStatus(suite.T(), &r, http.StatusUnauthorized)

	// With an admin token it works, and the new user defaults to staff
	user, _ := registerTestUser(suite.T(), v1.UserEditable{Email: "second@example.com"}, bearer(adminToken))
	suite.Assert().Equal(models.RoleStaff, user.Role)
}

func (suite *TestSuiteStandard) TestRegisterStaffCannotRegister() {
	_, adminToken := registerTestUser(suite.T(), v1.UserEditable{})
	_, staffToken := registerTestUser(suite.T(), v1.UserEditable{}, bearer(adminToken))

	r := test.Request(suite.T(), http.MethodPost, "http://example.com/v1/auth/register", v1.UserEditable{
		Email:    "third@example.com",
		Password: "password",
	}, bearer(staffToken))

	test.AssertHTTPStatus(suite.T(), &r, http.StatusForbidden)
}

func (suite *TestSuiteStandard) TestRegisterEmailPasswordRequired() {
	r := test.Request(suite.T(), http.MethodPost, "http://example.com/v1/auth/register", v1.UserEditable{Name: "No Credentials"})

	test.AssertHTTPStatus(suite.T(), &r, http.StatusBadRequest)
}

func (suite *TestSuiteStandard) TestLogin() {
	_, _ = registerTestUser(suite.T(), v1.UserEditable{Email: "jane@example.com", Password: "password"})

	r := test.Request(suite.T(), http.MethodPost, "http://example.com/v1/auth/login", map[string]string{
		"email":    "jane@example.com",
		"password": "password",
	})
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)

	var response v1.UserResponse
	test.DecodeResponse(suite.T(), &r, &response)
	suite.Require().NotNil(response.Token)
	suite.Require().NotNil(response.Data)
	suite.Assert().Equal("jane@example.com", response.Data.Email)
}

func (suite *TestSuiteStandard) TestLoginWrongPassword() {
	_, _ = registerTestUser(suite.T(), v1.UserEditable{Email: "jane@example.com", Password: "password"})

	r := test.Request(suite.T(), http.MethodPost, "http://example.com/v1/auth/login", map[string]string{
		"email":    "jane@example.com",
		"password": "wrong",
	})

	test.AssertHTTPStatus(suite.T(), &r, http.StatusUnauthorized)
}

func (suite *TestSuiteStandard) TestLoginUnknownUser() {
	r := test.Request(suite.T(), http.MethodPost, "http://example.com/v1/auth/login", map[string]string{
		"email":    "nobody@example.com",
		"password": "password",
	})

	test.AssertHTTPStatus(suite.T(), &r, http.StatusUnauthorized)
}

func (suite *TestSuiteStandard) TestAuthRequired() {
	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "http://example.com/v1/members"},
		{http.MethodGet, "http://example.com/v1/contributions"},
		{http.MethodGet, "http://example.com/v1/reports/stats"},
		{http.MethodGet, "http://example.com/v1/activity-logs"},
	}

	for _, tt := range tests {
		suite.T().Run(tt.path, func(t *testing.T) {
			r := test.Request(t, tt.method, tt.path, "")
			test.AssertHTTPStatus(t, &r, http.StatusUnauthorized)
		})
	}
}

func (suite *TestSuiteStandard) TestAuthInvalidToken() {
	r := test.Request(suite.T(), http.MethodGet, "http://example.com/v1/members", "", bearer("not-a-token"))

	test.AssertHTTPStatus(suite.T(), &r, http.StatusUnauthorized)
}

func (suite *TestSuiteStandard) TestProfile() {
	user, token := registerTestUser(suite.T(), v1.UserEditable{Name: "Jane Smith"})

	r := test.Request(suite.T(), http.MethodGet, "http://example.com/v1/auth/profile", "", bearer(token))
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)

	var response v1.UserResponse
	test.DecodeResponse(suite.T(), &r, &response)
	suite.Require().NotNil(response.Data)
	suite.Assert().Equal(user.ID, response.Data.ID)
	suite.Assert().Equal("Jane Smith", response.Data.Name)
}

func (suite *TestSuiteStandard) TestUpdateProfile() {
	_, token := registerTestUser(suite.T(), v1.UserEditable{Name: "Jane Smith"})

	r := test.Request(suite.T(), http.MethodPatch, "http://example.com/v1/auth/profile", map[string]string{
		"name": "Jane Doe",
	}, bearer(token))
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)

	var response v1.UserResponse
	test.DecodeResponse(suite.T(), &r, &response)
	suite.Require().NotNil(response.Data)
	suite.Assert().Equal("Jane Doe", response.Data.Name)
}

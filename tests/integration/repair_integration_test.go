package integration

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/kendall-kelly/repair-hub-api/models"
	"github.com/kendall-kelly/repair-hub-api/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

// RepairIntegrationTestSuite drives the repair marketplace through the full router
type RepairIntegrationTestSuite struct {
	suite.Suite
	app *testutil.App

	customer        models.User
	technician      models.User
	customerToken   string
	technicianToken string
}

// SetupTest runs before each test with a fresh application
func (suite *RepairIntegrationTestSuite) SetupTest() {
	suite.app = testutil.NewApp(suite.T())

	suite.customer = suite.app.CreateUser(suite.T(), "carla", models.RoleCustomer)
	suite.technician = suite.app.CreateUser(suite.T(), "tomas", models.RoleTechnician)
	suite.customerToken = suite.app.TokenFor(suite.T(), suite.customer)
	suite.technicianToken = suite.app.TokenFor(suite.T(), suite.technician)
}

func (suite *RepairIntegrationTestSuite) createRepair(title string) models.Repair {
	w := suite.app.Request(suite.T(), http.MethodPost, "/api/repairs", suite.customerToken, map[string]string{
		"title":       title,
		"description": "Needs fixing",
	})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var repair models.Repair
	testutil.Decode(suite.T(), w, &repair)
	return repair
}

func (suite *RepairIntegrationTestSuite) conversations(token string) []models.ConversationSummary {
	w := suite.app.Request(suite.T(), http.MethodGet, "/api/messages", token, nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var out []models.ConversationSummary
	testutil.Decode(suite.T(), w, &out)
	return out
}

// TestClaimWorkflow covers create, the job board, claiming and the automatic message
func (suite *RepairIntegrationTestSuite) TestClaimWorkflow() {
	repair := suite.createRepair("Cracked screen")
	assert.Equal(suite.T(), models.StatusPending, repair.Status)

	// Step 1: the repair shows up on the job board
	w := suite.app.Request(suite.T(), http.MethodGet, "/api/repairs/available", suite.technicianToken, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	var available []models.Repair
	testutil.Decode(suite.T(), w, &available)
	suite.Require().Len(available, 1)
	assert.Equal(suite.T(), repair.ID, available[0].ID)

	// Step 2: the technician claims it
	w = suite.app.Request(suite.T(), http.MethodPost, fmt.Sprintf("/api/repairs/%d/claim", repair.ID), suite.technicianToken, nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var claimed models.Repair
	testutil.Decode(suite.T(), w, &claimed)
	assert.Equal(suite.T(), models.StatusAssigned, claimed.Status)
	suite.Require().NotNil(claimed.TechnicianID)
	assert.Equal(suite.T(), suite.technician.ID, *claimed.TechnicianID)

	// Step 3: the job board is empty again
	w = suite.app.Request(suite.T(), http.MethodGet, "/api/repairs/available", suite.technicianToken, nil)
	assert.JSONEq(suite.T(), "[]", w.Body.String())

	// Step 4: the customer has one unread message from the technician
	summaries := suite.conversations(suite.customerToken)
	suite.Require().Len(summaries, 1)
	assert.Equal(suite.T(), repair.ID, summaries[0].RepairID)
	assert.Equal(suite.T(), int64(1), summaries[0].UnreadCount)
	assert.Equal(suite.T(), "tomas", summaries[0].OtherParty.Username)
	assert.Contains(suite.T(), summaries[0].LastMessage, `tomas has accepted your repair request for "Cracked screen"`)

	// Step 5: the repair is on the technician's list
	w = suite.app.Request(suite.T(), http.MethodGet, "/api/repairs", suite.technicianToken, nil)
	var assigned []models.Repair
	testutil.Decode(suite.T(), w, &assigned)
	suite.Require().Len(assigned, 1)
	assert.Equal(suite.T(), repair.ID, assigned[0].ID)
}

// TestReadingThreadResetsUnread checks that opening a thread clears the unread count
func (suite *RepairIntegrationTestSuite) TestReadingThreadResetsUnread() {
	repair := suite.createRepair("Battery swap")
	w := suite.app.Request(suite.T(), http.MethodPost, fmt.Sprintf("/api/repairs/%d/claim", repair.ID), suite.technicianToken, nil)
	suite.Require().Equal(http.StatusOK, w.Code)

	w = suite.app.Request(suite.T(), http.MethodPost, "/api/messages", suite.technicianToken, map[string]interface{}{
		"repairId": repair.ID,
		"content":  "Which model is it?",
	})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(suite.T(), int64(2), suite.conversations(suite.customerToken)[0].UnreadCount)

	w = suite.app.Request(suite.T(), http.MethodGet, fmt.Sprintf("/api/messages?repairId=%d", repair.ID), suite.customerToken, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	var thread []models.Message
	testutil.Decode(suite.T(), w, &thread)
	suite.Require().Len(thread, 2)
	assert.Equal(suite.T(), "Which model is it?", thread[1].Content)

	assert.Equal(suite.T(), int64(0), suite.conversations(suite.customerToken)[0].UnreadCount)
}

// TestStatusLifecycleAndRating walks a repair to completion and rates it
func (suite *RepairIntegrationTestSuite) TestStatusLifecycleAndRating() {
	repair := suite.createRepair("Loose hinge")
	path := fmt.Sprintf("/api/repairs/%d", repair.ID)
	suite.app.Request(suite.T(), http.MethodPost, path+"/claim", suite.technicianToken, nil)

	for _, status := range []string{models.StatusInProgress, models.StatusCompleted} {
		w := suite.app.Request(suite.T(), http.MethodPut, path, suite.technicianToken, map[string]string{"status": status})
		suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	}

	w := suite.app.Request(suite.T(), http.MethodPut, path, suite.customerToken, map[string]interface{}{"rating": 5, "review": "Great"})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var rated models.Repair
	testutil.Decode(suite.T(), w, &rated)
	suite.Require().NotNil(rated.Rating)
	assert.Equal(suite.T(), 5, *rated.Rating)

	w = suite.app.Request(suite.T(), http.MethodPut, path, suite.customerToken, map[string]interface{}{"rating": 1})
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	assert.Equal(suite.T(), "You have already rated this repair", testutil.ErrorMessage(suite.T(), w))
}

// TestRoleAccess checks the gate's role rules for API paths and pages
func (suite *RepairIntegrationTestSuite) TestRoleAccess() {
	tests := []struct {
		name             string
		path             string
		token            string
		expectedStatus   int
		expectedLocation string
	}{
		{"Anonymous API call", "/api/repairs", "", http.StatusUnauthorized, ""},
		{"Customer on the job board", "/api/repairs/available", suite.customerToken, http.StatusForbidden, ""},
		{"Customer on technician pages", "/technician/available", suite.customerToken, http.StatusFound, "/dashboard"},
		{"Technician on customer pages", "/dashboard", suite.technicianToken, http.StatusFound, "/technician"},
		{"Anonymous page", "/technician", "", http.StatusFound, "/login?redirect=%2Ftechnician"},
		{"Customer dashboard", "/dashboard", suite.customerToken, http.StatusOK, ""},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			w := suite.app.Request(suite.T(), http.MethodGet, tt.path, tt.token, nil)
			assert.Equal(suite.T(), tt.expectedStatus, w.Code)
			if tt.expectedLocation != "" {
				assert.Equal(suite.T(), tt.expectedLocation, w.Header().Get("Location"))
			}
			if tt.expectedStatus == http.StatusUnauthorized {
				assert.Equal(suite.T(), "Unauthorized", testutil.ErrorMessage(suite.T(), w))
			}
			if tt.expectedStatus == http.StatusForbidden {
				assert.Equal(suite.T(), "Forbidden - Technician access required", testutil.ErrorMessage(suite.T(), w))
			}
		})
	}
}

// TestRepairResponsesAreNotCached checks the no-store header on repair data
func (suite *RepairIntegrationTestSuite) TestRepairResponsesAreNotCached() {
	w := suite.app.Request(suite.T(), http.MethodGet, "/api/repairs", suite.customerToken, nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Equal(suite.T(), "private, no-cache, no-store, must-revalidate", w.Header().Get("Cache-Control"))
}

func TestRepairIntegrationSuite(t *testing.T) {
	suite.Run(t, new(RepairIntegrationTestSuite))
}

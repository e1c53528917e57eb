package controllers

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/kendall-kelly/repair-hub-api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendMessage(t *testing.T) {
	db := setupTestDB(t)
	customer := createUser(t, db, "carla", models.RoleCustomer)
	technician := createUser(t, db, "tomas", models.RoleTechnician)
	other := createUser(t, db, "otto", models.RoleCustomer)
	assigned := createRepair(t, db, customer, "Assigned", &technician, models.StatusAssigned)
	unassigned := createRepair(t, db, customer, "Unassigned", nil, models.StatusPending)

	tests := []struct {
		name           string
		caller         models.User
		body           map[string]interface{}
		expectedStatus int
		expectedError  string
		expectedTo     uint
	}{
		{
			name:           "Customer writes to the technician",
			caller:         customer,
			body:           map[string]interface{}{"repairId": assigned.ID, "content": "Any news?"},
			expectedStatus: http.StatusCreated,
			expectedTo:     technician.ID,
		},
		{
			name:           "Technician replies to the customer",
			caller:         technician,
			body:           map[string]interface{}{"repairId": assigned.ID, "content": "Parts arrive tomorrow"},
			expectedStatus: http.StatusCreated,
			expectedTo:     customer.ID,
		},
		{
			name:           "Missing content",
			caller:         customer,
			body:           map[string]interface{}{"repairId": assigned.ID, "content": "  "},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Missing required fields",
		},
		{
			name:           "Missing repair",
			caller:         customer,
			body:           map[string]interface{}{"content": "Hello"},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Missing required fields",
		},
		{
			name:           "Too long",
			caller:         customer,
			body:           map[string]interface{}{"repairId": assigned.ID, "content": strings.Repeat("a", models.MaxMessageLength+1)},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Message too long",
		},
		{
			name:           "No technician yet",
			caller:         customer,
			body:           map[string]interface{}{"repairId": unassigned.ID, "content": "Hello?"},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "No recipient found for this repair",
		},
		{
			name:           "Not a participant",
			caller:         other,
			body:           map[string]interface{}{"repairId": assigned.ID, "content": "Let me in"},
			expectedStatus: http.StatusForbidden,
			expectedError:  "Forbidden",
		},
		{
			name:           "Unknown repair",
			caller:         customer,
			body:           map[string]interface{}{"repairId": 9999, "content": "Hello"},
			expectedStatus: http.StatusNotFound,
			expectedError:  "Repair not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performJSON(setupTestRouter(&tt.caller), http.MethodPost, "/api/messages", tt.body)
			assert.Equal(t, tt.expectedStatus, w.Code, w.Body.String())

			response := decodeObject(t, w)
			if tt.expectedError != "" {
				assert.Equal(t, tt.expectedError, response["error"])
				return
			}

			assert.Equal(t, tt.body["content"], response["content"])
			assert.Equal(t, float64(tt.caller.ID), response["senderId"])
			assert.Equal(t, float64(tt.expectedTo), response["receiverId"])
			assert.Equal(t, false, response["read"])
			assert.Equal(t, tt.caller.Username, response["sender"].(map[string]interface{})["username"])
		})
	}
}

func TestListMessages_Thread(t *testing.T) {
	db := setupTestDB(t)
	customer := createUser(t, db, "carla", models.RoleCustomer)
	technician := createUser(t, db, "tomas", models.RoleTechnician)
	other := createUser(t, db, "otto", models.RoleCustomer)
	repair := createRepair(t, db, customer, "Assigned", &technician, models.StatusAssigned)

	for _, content := range []string{"first", "second"} {
		require.NoError(t, db.Create(&models.Message{
			RepairID: repair.ID, SenderID: technician.ID, ReceiverID: customer.ID, Content: content,
		}).Error)
	}
	path := fmt.Sprintf("/api/messages?repairId=%d", repair.ID)

	t.Run("Participant reads the thread oldest first", func(t *testing.T) {
		w := performJSON(setupTestRouter(&customer), http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, w.Code)

		messages := decodeArray(t, w)
		require.Len(t, messages, 2)
		assert.Equal(t, "first", messages[0]["content"])
		assert.Equal(t, "second", messages[1]["content"])

		var unread int64
		db.Model(&models.Message{}).Where("receiver_id = ? AND is_read = ?", customer.ID, false).Count(&unread)
		assert.Zero(t, unread, "reading the thread marks inbound messages read")
	})

	t.Run("Non participant", func(t *testing.T) {
		w := performJSON(setupTestRouter(&other), http.MethodGet, path, nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("Invalid repair id", func(t *testing.T) {
		w := performJSON(setupTestRouter(&customer), http.MethodGet, "/api/messages?repairId=abc", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Invalid repair ID", decodeObject(t, w)["error"])
	})
}

func TestListMessages_Conversations(t *testing.T) {
	db := setupTestDB(t)
	customer := createUser(t, db, "carla", models.RoleCustomer)
	technician := createUser(t, db, "tomas", models.RoleTechnician)
	repair := createRepair(t, db, customer, "Phone screen", &technician, models.StatusAssigned)

	t.Run("Empty", func(t *testing.T) {
		w := performJSON(setupTestRouter(&customer), http.MethodGet, "/api/messages", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, "[]", w.Body.String())
	})

	require.NoError(t, db.Create(&models.Message{
		RepairID: repair.ID, SenderID: technician.ID, ReceiverID: customer.ID, Content: "Ready for pickup",
	}).Error)

	t.Run("Customer sees the technician as the other party", func(t *testing.T) {
		w := performJSON(setupTestRouter(&customer), http.MethodGet, "/api/messages", nil)
		assert.Equal(t, http.StatusOK, w.Code)

		conversations := decodeArray(t, w)
		require.Len(t, conversations, 1)
		c := conversations[0]
		assert.Equal(t, float64(repair.ID), c["repairId"])
		assert.Equal(t, "Phone screen", c["repair"].(map[string]interface{})["title"])
		assert.Equal(t, "Ready for pickup", c["lastMessage"])
		assert.Equal(t, float64(1), c["unreadCount"])
		assert.Equal(t, "tomas", c["otherParty"].(map[string]interface{})["username"])
	})

	t.Run("Technician has nothing unread", func(t *testing.T) {
		w := performJSON(setupTestRouter(&technician), http.MethodGet, "/api/messages", nil)
		conversations := decodeArray(t, w)
		require.Len(t, conversations, 1)
		assert.Equal(t, float64(0), conversations[0]["unreadCount"])
		assert.Equal(t, "carla", conversations[0]["otherParty"].(map[string]interface{})["username"])
	})
}

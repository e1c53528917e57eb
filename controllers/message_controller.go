package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/repair-hub-api/services"
)

// ListMessages handles GET /api/messages. With ?repairId= it returns that
// repair's thread and marks the caller's inbound messages read, otherwise
// the caller's conversation summaries.
func ListMessages(c *gin.Context) {
	id, ok := requireIdentity(c)
	if !ok {
		return
	}

	if raw := c.Query("repairId"); raw != "" {
		repairID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || repairID == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid repair ID"})
			return
		}

		messages, err := newMessageService().Thread(c.Request.Context(), id, uint(repairID))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, messages)
		return
	}

	conversations, err := newMessageService().Conversations(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, conversations)
}

// SendMessage handles POST /api/messages
func SendMessage(c *gin.Context) {
	id, ok := requireIdentity(c)
	if !ok {
		return
	}

	var req services.SendMessageInput
	if !bindJSON(c, &req) {
		return
	}

	msg, err := newMessageService().Send(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, msg)
}

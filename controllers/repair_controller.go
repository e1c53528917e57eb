package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/repair-hub-api/services"
)

// ListRepairs handles GET /api/repairs - the caller's repairs, newest first
func ListRepairs(c *gin.Context) {
	id, ok := requireIdentity(c)
	if !ok {
		return
	}

	repairs, err := newRepairService().List(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, repairs)
}

// ListAvailableRepairs handles GET /api/repairs/available - the technician job board
func ListAvailableRepairs(c *gin.Context) {
	id, ok := requireIdentity(c)
	if !ok {
		return
	}

	repairs, err := newRepairService().Available(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, repairs)
}

// CreateRepair handles POST /api/repairs
func CreateRepair(c *gin.Context) {
	id, ok := requireIdentity(c)
	if !ok {
		return
	}

	var req services.CreateRepairInput
	if !bindJSON(c, &req) {
		return
	}

	repair, err := newRepairService().Create(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, repair)
}

// GetRepair handles GET /api/repairs/:id
func GetRepair(c *gin.Context) {
	id, ok := requireIdentity(c)
	if !ok {
		return
	}
	repairID, ok := parseRepairID(c)
	if !ok {
		return
	}

	repair, err := newRepairService().Get(c.Request.Context(), id, repairID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, repair)
}

// UpdateRepair handles PUT /api/repairs/:id - partial update, status changes and rating
func UpdateRepair(c *gin.Context) {
	id, ok := requireIdentity(c)
	if !ok {
		return
	}
	repairID, ok := parseRepairID(c)
	if !ok {
		return
	}

	var req services.UpdateRepairInput
	if !bindJSON(c, &req) {
		return
	}

	repair, err := newRepairService().Update(c.Request.Context(), id, repairID, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, repair)
}

// DeleteRepair handles DELETE /api/repairs/:id
func DeleteRepair(c *gin.Context) {
	id, ok := requireIdentity(c)
	if !ok {
		return
	}
	repairID, ok := parseRepairID(c)
	if !ok {
		return
	}

	if err := newRepairService().Delete(c.Request.Context(), id, repairID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Repair deleted successfully"})
}

// ClaimRepair handles POST /api/repairs/:id/claim
func ClaimRepair(c *gin.Context) {
	id, ok := requireIdentity(c)
	if !ok {
		return
	}
	repairID, ok := parseRepairID(c)
	if !ok {
		return
	}

	repair, err := newRepairService().Claim(c.Request.Context(), id, repairID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, repair)
}

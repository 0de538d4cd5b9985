// controllers/token.go
package controllers

import (
	"errors"
	"net/http"
	"queueless-backend/config"
	"queueless-backend/models"
	"queueless-backend/services"
	"queueless-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type JoinQueueInput struct {
	BusinessID string `json:"businessId" binding:"required,uuid"`
	ServiceID  string `json:"serviceId" binding:"required,uuid"`
	Notes      string `json:"notes"`
}

type UpdateStatusInput struct {
	Status string `json:"status" binding:"required"`
}

// JoinQueue creates a WAITING token for the caller. Any failure is the
// generic booking error; there is no retry.
func JoinQueue(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		utils.RespondWithError(c, http.StatusUnauthorized, "User ID not found in context")
		return
	}

	var input JoinQueueInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	businessUUID, _ := uuid.Parse(input.BusinessID)
	serviceUUID, _ := uuid.Parse(input.ServiceID)

	token, err := queueSvc.Join(businessUUID, serviceUUID, userID, input.Notes)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotFound):
			utils.RespondWithError(c, http.StatusNotFound, "Business or service not found")
		case errors.Is(err, services.ErrServiceMismatch):
			utils.RespondWithError(c, http.StatusBadRequest, "Service does not belong to business")
		default:
			utils.RespondWithError(c, http.StatusInternalServerError, "Booking failed.")
		}
		return
	}

	c.JSON(http.StatusCreated, token)
}

// GetTokens lists a business's queue in arrival order.
func GetTokens(c *gin.Context) {
	businessID := c.Query("businessId")
	businessUUID, err := uuid.Parse(businessID)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "businessId query parameter is required")
		return
	}

	tokens, err := queueSvc.ListForBusiness(businessUUID)
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve tokens")
		return
	}

	c.JSON(http.StatusOK, tokens)
}

// GetActiveToken returns the caller's WAITING or SERVING token, if any.
func GetActiveToken(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		utils.RespondWithError(c, http.StatusUnauthorized, "User ID not found in context")
		return
	}

	token, err := queueSvc.ActiveForUser(userID)
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve active token")
		return
	}
	if token == nil {
		c.JSON(http.StatusOK, gin.H{"token": nil})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

// GetVisitHistory returns the caller's completed visits.
func GetVisitHistory(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		utils.RespondWithError(c, http.StatusUnauthorized, "User ID not found in context")
		return
	}

	tokens, err := queueSvc.VisitHistory(userID)
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve history")
		return
	}

	c.JSON(http.StatusOK, tokens)
}

// CancelToken cancels the caller's own WAITING token.
func CancelToken(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		utils.RespondWithError(c, http.StatusUnauthorized, "User ID not found in context")
		return
	}

	tokenUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid token ID format")
		return
	}

	if err := queueSvc.Cancel(tokenUUID, userID); err != nil {
		switch {
		case errors.Is(err, services.ErrNotFound):
			utils.RespondWithError(c, http.StatusNotFound, "Token not found")
		case errors.Is(err, services.ErrForbidden):
			utils.RespondWithError(c, http.StatusForbidden, "Not your token")
		case errors.Is(err, services.ErrInvalidTransition):
			utils.RespondWithError(c, http.StatusConflict, "Token can no longer be cancelled")
		default:
			utils.RespondWithError(c, http.StatusInternalServerError, "Failed to cancel token")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Token cancelled"})
}

// UpdateTokenStatus is the generic transition endpoint used by both
// dashboards. Permissions and transition validity live in the service.
func UpdateTokenStatus(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		utils.RespondWithError(c, http.StatusUnauthorized, "User ID not found in context")
		return
	}
	rawRole, _ := c.Get("role")
	role, _ := rawRole.(string) // tokens without a role claim get no elevated access

	tokenUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid token ID format")
		return
	}

	var input UpdateStatusInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	token, err := queueSvc.SetStatus(tokenUUID, input.Status, userID, role)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotFound):
			utils.RespondWithError(c, http.StatusNotFound, "Token not found")
		case errors.Is(err, services.ErrForbidden):
			utils.RespondWithError(c, http.StatusForbidden, "Not allowed")
		case errors.Is(err, services.ErrInvalidTransition):
			utils.RespondWithError(c, http.StatusConflict, "Invalid status transition")
		default:
			utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update token")
		}
		return
	}

	c.JSON(http.StatusOK, token)
}

// CallNext completes the currently served token and promotes the earliest
// waiting one. Owner-only.
func CallNext(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		utils.RespondWithError(c, http.StatusUnauthorized, "User ID not found in context")
		return
	}

	businessUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid business ID format")
		return
	}

	var business models.Business
	if err := config.DB.First(&business, "id = ?", businessUUID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Business not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}
	if business.OwnerID != userID {
		utils.RespondWithError(c, http.StatusForbidden, "You do not own this business")
		return
	}

	token, err := queueSvc.CallNext(businessUUID)
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to call next")
		return
	}
	if token == nil {
		// Empty queue, the station goes idle.
		c.JSON(http.StatusOK, gin.H{"token": nil})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

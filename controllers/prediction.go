// controllers/prediction.go
package controllers

import (
	"errors"
	"net/http"
	"queueless-backend/config"
	"queueless-backend/models"
	"queueless-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GetWaitTimePrediction asks the generative API for a friendly wait estimate
// for a service. Failures degrade to the fixed fallback, never an error.
func GetWaitTimePrediction(c *gin.Context) {
	businessUUID, err := uuid.Parse(c.Query("businessId"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "businessId query parameter is required")
		return
	}
	serviceUUID, err := uuid.Parse(c.Query("serviceId"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "serviceId query parameter is required")
		return
	}

	var service models.Service
	if err := config.DB.First(&service, "id = ? AND business_id = ?", serviceUUID, businessUUID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Service not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	queueLength, err := queueSvc.WaitingCount(businessUUID)
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to compute queue length")
		return
	}

	prediction := predictionSvc.WaitTime(service.Name, queueLength, service.AverageServiceTime)
	c.JSON(http.StatusOK, gin.H{
		"queueLength": queueLength,
		"prediction":  prediction,
	})
}

// GetQueueAnalytics summarizes the owner's queue and asks the generative
// API for a staffing suggestion. Owner-only.
func GetQueueAnalytics(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		utils.RespondWithError(c, http.StatusUnauthorized, "User ID not found in context")
		return
	}

	var business models.Business
	if err := config.DB.First(&business, "owner_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "No business listed for this account")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	tokens, err := queueSvc.ListForBusiness(business.ID)
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve tokens")
		return
	}

	summary := map[string]int{}
	for _, token := range tokens {
		summary[token.Status]++
	}

	suggestion := predictionSvc.AdminAnalytics(gin.H{
		"business": business.Name,
		"counts":   summary,
	})

	c.JSON(http.StatusOK, gin.H{
		"counts":     summary,
		"suggestion": suggestion,
	})
}

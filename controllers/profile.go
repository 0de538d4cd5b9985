// controllers/profile.go
package controllers

import (
	"net/http"
	"queueless-backend/config"
	"queueless-backend/models"
	"queueless-backend/utils"

	"github.com/gin-gonic/gin"
)

// GetProfile aggregates everything the profile screen shows: saved places,
// visit history, and the caller's own listings.
func GetProfile(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		utils.RespondWithError(c, http.StatusUnauthorized, "User ID not found in context")
		return
	}

	var likes []models.LikedPlace
	if err := config.DB.Where("user_id = ?", userID).Find(&likes).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve liked places")
		return
	}

	likedPlaces := make([]models.Business, 0, len(likes))
	for _, like := range likes {
		var business models.Business
		if err := config.DB.Preload("Services").First(&business, "id = ?", like.BusinessID).Error; err == nil {
			likedPlaces = append(likedPlaces, business)
		}
	}

	visitHistory, err := queueSvc.VisitHistory(userID)
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve history")
		return
	}

	var myListings []models.Business
	if err := config.DB.Preload("Services").Where("owner_id = ?", userID).Find(&myListings).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve listings")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"likedPlaces":  likedPlaces,
		"visitHistory": visitHistory,
		"myListings":   myListings,
	})
}

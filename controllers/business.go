// controllers/business.go
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

type CreateBusinessInput struct {
	Name     string `json:"name" binding:"required"`
	Category string `json:"category"`
	Location string `json:"location"`
	ImageURL string `json:"imageUrl"`

	// The listing form creates the first service together with the business.
	ServiceName        string `json:"serviceName" binding:"required"`
	ServiceDescription string `json:"serviceDescription"`
	AverageServiceTime int    `json:"averageServiceTime"`
}

type CreateServiceInput struct {
	Name               string `json:"name" binding:"required"`
	Description        string `json:"description"`
	AverageServiceTime int    `json:"averageServiceTime"`
}

// GetBusinesses lists every business with its services, flagging the ones
// the caller has saved.
func GetBusinesses(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		utils.RespondWithError(c, http.StatusUnauthorized, "User ID not found in context")
		return
	}

	var businesses []models.Business
	if err := config.DB.Preload("Services").Find(&businesses).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve businesses")
		return
	}

	var likes []models.LikedPlace
	if err := config.DB.Where("user_id = ?", userID).Find(&likes).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve liked places")
		return
	}
	liked := make(map[uuid.UUID]bool, len(likes))
	for _, like := range likes {
		liked[like.BusinessID] = true
	}

	type businessView struct {
		models.Business
		IsLiked bool `json:"isLiked"`
	}
	views := make([]businessView, 0, len(businesses))
	for _, b := range businesses {
		views = append(views, businessView{Business: b, IsLiked: liked[b.ID]})
	}

	c.JSON(http.StatusOK, views)
}

// CreateBusiness lists a new business owned by the caller, together with its
// first service, in one transaction.
func CreateBusiness(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		utils.RespondWithError(c, http.StatusUnauthorized, "User ID not found in context")
		return
	}

	var input CreateBusinessInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	if input.AverageServiceTime <= 0 {
		input.AverageServiceTime = 15
	}

	business := models.Business{
		OwnerID:  userID,
		Name:     input.Name,
		Category: input.Category,
		Location: input.Location,
		ImageURL: input.ImageURL,
		IsOpen:   true,
	}

	err := config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&business).Error; err != nil {
			return err
		}
		service := models.Service{
			BusinessID:         business.ID,
			Name:               input.ServiceName,
			Description:        input.ServiceDescription,
			AverageServiceTime: input.AverageServiceTime,
		}
		return tx.Create(&service).Error
	})
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create business")
		return
	}

	config.DB.Preload("Services").First(&business, "id = ?", business.ID)
	c.JSON(http.StatusCreated, business)
}

// AddService adds a service to a business the caller owns.
func AddService(c *gin.Context) {
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

	var input CreateServiceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	if input.AverageServiceTime <= 0 {
		input.AverageServiceTime = 15
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

	service := models.Service{
		BusinessID:         business.ID,
		Name:               input.Name,
		Description:        input.Description,
		AverageServiceTime: input.AverageServiceTime,
	}
	if err := config.DB.Create(&service).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create service")
		return
	}

	c.JSON(http.StatusCreated, service)
}

// ToggleLike saves or removes a business from the caller's liked places.
func ToggleLike(c *gin.Context) {
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

	var existing models.LikedPlace
	result := config.DB.Where("user_id = ? AND business_id = ?", userID, businessUUID).First(&existing)

	if result.Error == nil {
		if err := config.DB.Unscoped().Delete(&existing).Error; err != nil {
			utils.RespondWithError(c, http.StatusInternalServerError, "Failed to remove liked place")
			return
		}
		c.JSON(http.StatusOK, gin.H{"liked": false})
		return
	}
	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		return
	}

	like := models.LikedPlace{UserID: userID, BusinessID: businessUUID}
	if err := config.DB.Create(&like).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to save liked place")
		return
	}
	c.JSON(http.StatusOK, gin.H{"liked": true})
}

// GetBusinessLogs returns the latest audit entries for a business the
// caller owns.
func GetBusinessLogs(c *gin.Context) {
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

	var logs []models.BusinessLog
	if err := config.DB.Where("business_id = ?", businessUUID).
		Order("created_at desc").
		Limit(20).
		Find(&logs).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve logs")
		return
	}

	c.JSON(http.StatusOK, logs)
}

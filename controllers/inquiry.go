// controllers/inquiry.go
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

type CreateInquiryInput struct {
	FullName string `json:"fullName" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Subject  string `json:"subject" binding:"required"`
	Message  string `json:"message" binding:"required"`
}

type UpdateInquiryInput struct {
	Status string `json:"status" binding:"required"`
}

// CreateInquiry files a support inquiry from the contact form.
func CreateInquiry(c *gin.Context) {
	userID, _ := currentUserID(c)

	var input CreateInquiryInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	inquiry := models.Inquiry{
		UserID:   userID,
		FullName: input.FullName,
		Email:    input.Email,
		Subject:  input.Subject,
		Message:  input.Message,
		Status:   models.InquiryPending,
	}

	if err := config.DB.Create(&inquiry).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create inquiry")
		return
	}

	c.JSON(http.StatusCreated, inquiry)
}

// GetInquiries lists inquiries for the admin inbox, newest first.
func GetInquiries(c *gin.Context) {
	var inquiries []models.Inquiry
	if err := config.DB.Order("created_at desc").Find(&inquiries).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve inquiries")
		return
	}

	c.JSON(http.StatusOK, inquiries)
}

// UpdateInquiry moves an inquiry through its workflow states.
func UpdateInquiry(c *gin.Context) {
	inquiryUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid inquiry ID format")
		return
	}

	var input UpdateInquiryInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	if !models.ValidInquiryStatus(input.Status) {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid inquiry status")
		return
	}

	var inquiry models.Inquiry
	if err := config.DB.First(&inquiry, "id = ?", inquiryUUID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Inquiry not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	if err := config.DB.Model(&inquiry).Update("status", input.Status).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update inquiry")
		return
	}
	inquiry.Status = input.Status

	c.JSON(http.StatusOK, inquiry)
}

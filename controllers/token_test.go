package controllers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"queueless-backend/config"
	"queueless-backend/controllers"
	"queueless-backend/models"
	"queueless-backend/realtime"
	"queueless-backend/routes"
	"queueless-backend/services"
	"queueless-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupServer(t *testing.T) *gin.Engine {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret")
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Business{},
		&models.Service{},
		&models.Token{},
		&models.LikedPlace{},
		&models.BusinessLog{},
		&models.Inquiry{},
	))
	config.DB = db

	hub := realtime.New()
	controllers.Init(services.NewQueueService(db, hub, nil), services.NewPredictionService())
	return routes.SetupRouter(hub)
}

func doJSON(t *testing.T, r *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func register(t *testing.T, r *gin.Engine, email, role string) string {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/auth/register", "", gin.H{
		"email":    email,
		"password": "password123",
		"fullName": "Test User",
		"role":     role,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestRegisterAndLoginFlow(t *testing.T) {
	r := setupServer(t)

	register(t, r, "alice@test.dev", "CUSTOMER")

	// Duplicate email is rejected.
	w := doJSON(t, r, http.MethodPost, "/auth/register", "", gin.H{
		"email":    "alice@test.dev",
		"password": "password123",
		"fullName": "Alice Again",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	// Wrong password.
	w = doJSON(t, r, http.MethodPost, "/auth/login", "", gin.H{
		"email":    "alice@test.dev",
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Correct login.
	w = doJSON(t, r, http.MethodPost, "/auth/login", "", gin.H{
		"email":    "alice@test.dev",
		"password": "password123",
	})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestQueueFlowOverHTTP(t *testing.T) {
	r := setupServer(t)

	ownerToken := register(t, r, "owner@test.dev", "ADMIN")
	aliceToken := register(t, r, "alice@test.dev", "CUSTOMER")
	bobToken := register(t, r, "bob@test.dev", "CUSTOMER")

	// Owner lists a business with a first service.
	w := doJSON(t, r, http.MethodPost, "/api/businesses", ownerToken, gin.H{
		"name":               "Grand Hotel",
		"category":           "Hotel",
		"location":           "Seafront",
		"serviceName":        "Check-in",
		"averageServiceTime": 5,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var business struct {
		ID       string `json:"ID"`
		Services []struct {
			ID string `json:"ID"`
		} `json:"Services"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &business))
	require.Len(t, business.Services, 1)

	joinURL := "/api/tokens"
	join := gin.H{"businessId": business.ID, "serviceId": business.Services[0].ID}

	// Alice joins first, Bob second.
	w = doJSON(t, r, http.MethodPost, joinURL, aliceToken, join)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var tokenA struct {
		Position int    `json:"Position"`
		Status   string `json:"Status"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tokenA))
	assert.Equal(t, 1, tokenA.Position)
	assert.Equal(t, models.StatusWaiting, tokenA.Status)

	w = doJSON(t, r, http.MethodPost, joinURL, bobToken, join)
	require.Equal(t, http.StatusCreated, w.Code)
	var tokenB struct {
		Position int `json:"Position"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tokenB))
	assert.Equal(t, 2, tokenB.Position)

	// Customers cannot call next.
	callURL := fmt.Sprintf("/api/businesses/%s/call-next", business.ID)
	w = doJSON(t, r, http.MethodPost, callURL, aliceToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// First call-next serves Alice.
	w = doJSON(t, r, http.MethodPost, callURL, ownerToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, r, http.MethodGet, "/api/tokens/active", aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), models.StatusServing)

	// Second call-next completes Alice and serves Bob.
	w = doJSON(t, r, http.MethodPost, callURL, ownerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/tokens/active", aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "null")

	w = doJSON(t, r, http.MethodGet, "/api/tokens/active", bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), models.StatusServing)

	// Alice's completed visit shows up in history.
	w = doJSON(t, r, http.MethodGet, "/api/tokens/history", aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), models.StatusCompleted)
	assert.Contains(t, w.Body.String(), "Grand Hotel")

	// Audit trail recorded the whole sequence for the owner.
	logsURL := fmt.Sprintf("/api/businesses/%s/logs", business.ID)
	w = doJSON(t, r, http.MethodGet, logsURL, ownerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "joined")
	assert.Contains(t, w.Body.String(), "called")
}

func TestCancelOverHTTP(t *testing.T) {
	r := setupServer(t)

	ownerToken := register(t, r, "owner@test.dev", "ADMIN")
	aliceToken := register(t, r, "alice@test.dev", "CUSTOMER")

	w := doJSON(t, r, http.MethodPost, "/api/businesses", ownerToken, gin.H{
		"name":        "City Clinic",
		"serviceName": "Consultation",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var business struct {
		ID       string `json:"ID"`
		Services []struct {
			ID string `json:"ID"`
		} `json:"Services"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &business))

	w = doJSON(t, r, http.MethodPost, "/api/tokens", aliceToken, gin.H{
		"businessId": business.ID,
		"serviceId":  business.Services[0].ID,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var token struct {
		ID string `json:"ID"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &token))

	// The owner cannot cancel Alice's token.
	cancelURL := fmt.Sprintf("/api/tokens/%s/cancel", token.ID)
	w = doJSON(t, r, http.MethodPost, cancelURL, ownerToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, r, http.MethodPost, cancelURL, aliceToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// Cancelling twice conflicts: CANCELLED is terminal.
	w = doJSON(t, r, http.MethodPost, cancelURL, aliceToken, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/tokens/active", aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "null")
}

func TestUpdateStatusWithTokenMissingRoleClaim(t *testing.T) {
	r := setupServer(t)

	ownerToken := register(t, r, "owner@test.dev", "ADMIN")
	aliceToken := register(t, r, "alice@test.dev", "CUSTOMER")

	w := doJSON(t, r, http.MethodPost, "/api/businesses", ownerToken, gin.H{
		"name":        "City Clinic",
		"serviceName": "Consultation",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var business struct {
		ID       string `json:"ID"`
		Services []struct {
			ID string `json:"ID"`
		} `json:"Services"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &business))

	w = doJSON(t, r, http.MethodPost, "/api/tokens", aliceToken, gin.H{
		"businessId": business.ID,
		"serviceId":  business.Services[0].ID,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var token struct {
		ID string `json:"ID"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &token))

	// A signed token carrying only a subject claim must be treated as an
	// unprivileged caller, not crash the handler.
	claims, err := utils.ParseToken(aliceToken)
	require.NoError(t, err)
	bare := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": claims["sub"],
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	bareToken, err := bare.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	statusURL := fmt.Sprintf("/api/tokens/%s/status", token.ID)
	w = doJSON(t, r, http.MethodPut, statusURL, bareToken, gin.H{"status": models.StatusServing})
	assert.Equal(t, http.StatusForbidden, w.Code, w.Body.String())

	// Cancelling the own token still works without a role claim.
	w = doJSON(t, r, http.MethodPut, statusURL, bareToken, gin.H{"status": models.StatusCancelled})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

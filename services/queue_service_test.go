package services

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"queueless-backend/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Business{},
		&models.Service{},
		&models.Token{},
		&models.BusinessLog{},
	))
	return db
}

func seedBusiness(t *testing.T, db *gorm.DB, serviceName string) (models.Business, models.Service, models.User) {
	t.Helper()

	owner := models.User{Email: uuid.NewString() + "@test.dev", Password: "password123", FullName: "Owner", Role: models.RoleAdmin}
	require.NoError(t, db.Create(&owner).Error)

	business := models.Business{OwnerID: owner.ID, Name: "City Clinic", Category: "Hospital", Location: "Downtown"}
	require.NoError(t, db.Create(&business).Error)

	service := models.Service{BusinessID: business.ID, Name: serviceName, AverageServiceTime: 10}
	require.NoError(t, db.Create(&service).Error)

	return business, service, owner
}

func seedCustomer(t *testing.T, db *gorm.DB, name string) models.User {
	t.Helper()
	user := models.User{Email: uuid.NewString() + "@test.dev", Password: "password123", FullName: name, Role: models.RoleCustomer}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func TestJoinAssignsSequentialPositions(t *testing.T) {
	db := openTestDB(t)
	svc := NewQueueService(db, nil, nil)
	business, service, _ := seedBusiness(t, db, "Dental Checkup")

	for i := 1; i <= 4; i++ {
		customer := seedCustomer(t, db, "Customer")
		token, err := svc.Join(business.ID, service.ID, customer.ID, "")
		require.NoError(t, err)
		assert.Equal(t, i, token.Position)
		assert.Equal(t, models.StatusWaiting, token.Status)
		assert.True(t, strings.HasPrefix(token.TokenNumber, "D-"))
	}
}

func TestJoinRejectsMismatchedService(t *testing.T) {
	db := openTestDB(t)
	svc := NewQueueService(db, nil, nil)
	business, _, _ := seedBusiness(t, db, "Checkup")
	other, otherService, _ := seedBusiness(t, db, "Massage")
	customer := seedCustomer(t, db, "Customer")

	_, err := svc.Join(business.ID, otherService.ID, customer.ID, "")
	assert.ErrorIs(t, err, ErrServiceMismatch)

	_, err = svc.Join(other.ID, uuid.New(), customer.ID, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCancelExcludesTokenFromWaitingSet(t *testing.T) {
	db := openTestDB(t)
	svc := NewQueueService(db, nil, nil)
	business, service, _ := seedBusiness(t, db, "Checkup")
	customer := seedCustomer(t, db, "Customer")

	token, err := svc.Join(business.ID, service.ID, customer.ID, "")
	require.NoError(t, err)

	require.NoError(t, svc.Cancel(token.ID, customer.ID))

	var reloaded models.Token
	require.NoError(t, db.First(&reloaded, "id = ?", token.ID).Error)
	assert.Equal(t, models.StatusCancelled, reloaded.Status)

	count, err := svc.WaitingCount(business.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	// The next join still gets position 1: cancelled tokens do not count.
	next := seedCustomer(t, db, "Next")
	second, err := svc.Join(business.ID, service.ID, next.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 1, second.Position)
}

func TestCancelEnforcesOwnership(t *testing.T) {
	db := openTestDB(t)
	svc := NewQueueService(db, nil, nil)
	business, service, _ := seedBusiness(t, db, "Checkup")
	customer := seedCustomer(t, db, "Customer")
	stranger := seedCustomer(t, db, "Stranger")

	token, err := svc.Join(business.ID, service.ID, customer.ID, "")
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Cancel(token.ID, stranger.ID), ErrForbidden)
}

func TestCallNextPromotesEarliestAndCompletesServing(t *testing.T) {
	db := openTestDB(t)
	svc := NewQueueService(db, nil, nil)
	business, service, _ := seedBusiness(t, db, "Checkup")

	first := seedCustomer(t, db, "First")
	second := seedCustomer(t, db, "Second")

	tokenA, err := svc.Join(business.ID, service.ID, first.ID, "")
	require.NoError(t, err)
	// Force distinct arrival times; sqlite timestamps are coarse.
	require.NoError(t, db.Model(&models.Token{}).Where("id = ?", tokenA.ID).
		Update("joined_at", time.Now().Add(-time.Minute)).Error)

	tokenB, err := svc.Join(business.ID, service.ID, second.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 2, tokenB.Position)

	// First call: no one serving yet, A is promoted.
	promoted, err := svc.CallNext(business.ID)
	require.NoError(t, err)
	require.NotNil(t, promoted)
	assert.Equal(t, tokenA.ID, promoted.ID)
	assert.Equal(t, models.StatusServing, promoted.Status)

	var b models.Token
	require.NoError(t, db.First(&b, "id = ?", tokenB.ID).Error)
	assert.Equal(t, models.StatusWaiting, b.Status)
	assert.Equal(t, 2, b.Position)

	// Second call: A completes, B is promoted.
	promoted, err = svc.CallNext(business.ID)
	require.NoError(t, err)
	require.NotNil(t, promoted)
	assert.Equal(t, tokenB.ID, promoted.ID)

	var a models.Token
	require.NoError(t, db.First(&a, "id = ?", tokenA.ID).Error)
	assert.Equal(t, models.StatusCompleted, a.Status)
}

func TestCallNextOnEmptyQueueIsNoOp(t *testing.T) {
	db := openTestDB(t)
	svc := NewQueueService(db, nil, nil)
	business, _, _ := seedBusiness(t, db, "Checkup")

	promoted, err := svc.CallNext(business.ID)
	require.NoError(t, err)
	assert.Nil(t, promoted)
}

func TestActiveForUserTracksLifecycle(t *testing.T) {
	db := openTestDB(t)
	svc := NewQueueService(db, nil, nil)
	business, service, owner := seedBusiness(t, db, "Checkup")
	customer := seedCustomer(t, db, "Customer")

	active, err := svc.ActiveForUser(customer.ID)
	require.NoError(t, err)
	assert.Nil(t, active)

	token, err := svc.Join(business.ID, service.ID, customer.ID, "")
	require.NoError(t, err)

	active, err = svc.ActiveForUser(customer.ID)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, token.ID, active.ID)
	assert.Equal(t, "City Clinic", active.BusinessName)

	// Still active while SERVING.
	_, err = svc.CallNext(business.ID)
	require.NoError(t, err)
	active, err = svc.ActiveForUser(customer.ID)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, models.StatusServing, active.Status)

	// Gone once COMPLETED.
	_, err = svc.SetStatus(token.ID, models.StatusCompleted, owner.ID, models.RoleAdmin)
	require.NoError(t, err)
	active, err = svc.ActiveForUser(customer.ID)
	require.NoError(t, err)
	assert.Nil(t, active)
}

func TestSetStatusEnforcesTransitionsAndRoles(t *testing.T) {
	db := openTestDB(t)
	svc := NewQueueService(db, nil, nil)
	business, service, owner := seedBusiness(t, db, "Checkup")
	customer := seedCustomer(t, db, "Customer")

	token, err := svc.Join(business.ID, service.ID, customer.ID, "")
	require.NoError(t, err)

	// Customers cannot promote their own token.
	_, err = svc.SetStatus(token.ID, models.StatusServing, customer.ID, models.RoleCustomer)
	assert.ErrorIs(t, err, ErrForbidden)

	// WAITING cannot jump straight to COMPLETED.
	_, err = svc.SetStatus(token.ID, models.StatusCompleted, owner.ID, models.RoleAdmin)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	updated, err := svc.SetStatus(token.ID, models.StatusServing, owner.ID, models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, models.StatusServing, updated.Status)

	// SERVING can no longer be cancelled.
	_, err = svc.SetStatus(token.ID, models.StatusCancelled, customer.ID, models.RoleCustomer)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	updated, err = svc.SetStatus(token.ID, models.StatusCompleted, owner.ID, models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, updated.Status)

	// Terminal state is closed.
	_, err = svc.SetStatus(token.ID, models.StatusServing, owner.ID, models.RoleAdmin)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestMutationsAppendAuditLogs(t *testing.T) {
	db := openTestDB(t)
	svc := NewQueueService(db, nil, nil)
	business, service, _ := seedBusiness(t, db, "Checkup")
	customer := seedCustomer(t, db, "Customer")

	_, err := svc.Join(business.ID, service.ID, customer.ID, "")
	require.NoError(t, err)
	_, err = svc.CallNext(business.ID)
	require.NoError(t, err)

	var logs []models.BusinessLog
	require.NoError(t, db.Where("business_id = ?", business.ID).Order("created_at asc").Find(&logs).Error)
	require.Len(t, logs, 2)
	assert.Equal(t, "joined", logs[0].Action)
	assert.Equal(t, "called", logs[1].Action)
}

func TestMakeTokenNumber(t *testing.T) {
	for i := 0; i < 50; i++ {
		number := MakeTokenNumber("haircut")
		require.Len(t, number, 5)
		assert.Equal(t, "H-", number[:2])
		assert.GreaterOrEqual(t, number[2:], "100")
		assert.LessOrEqual(t, number[2:], "999")
	}
	assert.Equal(t, "Q", MakeTokenNumber("")[:1])

	// Service names starting with a multibyte rune keep the whole rune.
	number := MakeTokenNumber("éclaircissage")
	assert.True(t, utf8.ValidString(number))
	assert.True(t, strings.HasPrefix(number, "É-"))
}

func TestRunSerializableRetriesSerializationFailures(t *testing.T) {
	db := openTestDB(t)
	svc := NewQueueService(db, nil, nil)

	attempts := 0
	err := svc.runSerializable(func(tx *gorm.DB) error {
		attempts++
		if attempts < 3 {
			return &pgconn.PgError{Code: "40001"}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)

	// A fourth conflict exhausts the retries and surfaces the error.
	attempts = 0
	err = svc.runSerializable(func(tx *gorm.DB) error {
		attempts++
		return &pgconn.PgError{Code: "40001"}
	})
	var pgErr *pgconn.PgError
	require.ErrorAs(t, err, &pgErr)
	assert.Equal(t, 3, attempts)

	// Other failures are not retried.
	attempts = 0
	err = svc.runSerializable(func(tx *gorm.DB) error {
		attempts++
		return gorm.ErrInvalidData
	})
	assert.ErrorIs(t, err, gorm.ErrInvalidData)
	assert.Equal(t, 1, attempts)
}

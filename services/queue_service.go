// services/queue_service.go
package services

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"queueless-backend/models"
	"queueless-backend/realtime"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrForbidden         = errors.New("not allowed")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrServiceMismatch   = errors.New("service does not belong to business")
)

// QueueService owns the token lifecycle: joining, cancelling, calling the
// next customer, and the audit trail. Every mutation runs inside a single
// transaction so the count-then-insert and complete-then-promote sequences
// cannot interleave with a concurrent writer.
type QueueService struct {
	db       *gorm.DB
	hub      *realtime.Hub
	notifier *Notifier
}

func NewQueueService(db *gorm.DB, hub *realtime.Hub, notifier *Notifier) *QueueService {
	return &QueueService{db: db, hub: hub, notifier: notifier}
}

const serializationRetries = 3

// runSerializable executes fn in a SERIALIZABLE transaction. Postgres
// aborts one of two conflicting serializable transactions with SQLSTATE
// 40001, which is safe to retry; fn must therefore be restartable.
func (s *QueueService) runSerializable(fn func(tx *gorm.DB) error) error {
	opts := &sql.TxOptions{Isolation: sql.LevelSerializable}
	var err error
	for attempt := 0; attempt < serializationRetries; attempt++ {
		err = s.db.Transaction(fn, opts)
		if !isSerializationFailure(err) {
			return err
		}
		log.Printf("Serialization conflict, retrying (attempt %d)", attempt+1)
	}
	return err
}

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "40001"
}

// MakeTokenNumber builds the display label: uppercased first letter of the
// service name plus a random three digit suffix. Collisions are possible;
// the label is never used as a key.
func MakeTokenNumber(serviceName string) string {
	initial := "Q"
	if runes := []rune(strings.TrimSpace(serviceName)); len(runes) > 0 {
		initial = strings.ToUpper(string(runes[0]))
	}
	return fmt.Sprintf("%s-%d", initial, rand.Intn(900)+100)
}

// Join creates a WAITING token. Position is one plus the number of WAITING
// tokens the business has at join time; it is a snapshot and never shifts
// afterwards. The count and the insert run at SERIALIZABLE isolation so two
// concurrent joins cannot observe the same waiting set and claim the same
// position.

func (s *QueueService) Join(businessID, serviceID, userID uuid.UUID, notes string) (*models.Token, error) {
	var token models.Token

	err := s.runSerializable(func(tx *gorm.DB) error {
		var business models.Business
		if err := tx.First(&business, "id = ?", businessID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		var service models.Service
		if err := tx.First(&service, "id = ?", serviceID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if service.BusinessID != business.ID {
			return ErrServiceMismatch
		}

		var waiting int64
		if err := tx.Model(&models.Token{}).
			Where("business_id = ? AND status = ?", businessID, models.StatusWaiting).
			Count(&waiting).Error; err != nil {
			return err
		}

		token = models.Token{
			BusinessID:  businessID,
			ServiceID:   serviceID,
			UserID:      userID,
			TokenNumber: MakeTokenNumber(service.Name),
			Position:    int(waiting) + 1,
			Status:      models.StatusWaiting,
			JoinedAt:    time.Now(),
			Notes:       notes,
		}
		if err := tx.Create(&token).Error; err != nil {
			return err
		}

		return s.logEvent(tx, businessID, "joined",
			fmt.Sprintf("Customer joined the queue with token %s", token.TokenNumber),
			models.JSONB{"token_number": token.TokenNumber, "position": token.Position})
	})
	if err != nil {
		return nil, err
	}

	s.broadcastUpdate(&token)
	return &token, nil
}

// Cancel moves a WAITING token to CANCELLED. Only the token's owner may
// cancel it. Stored positions of later tokens are intentionally left as
// their join-time snapshots.
func (s *QueueService) Cancel(tokenID, userID uuid.UUID) error {
	var token models.Token

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&token, "id = ?", tokenID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if token.UserID != userID {
			return ErrForbidden
		}
		if !models.ValidTransition(token.Status, models.StatusCancelled) {
			return ErrInvalidTransition
		}

		if err := tx.Model(&token).Update("status", models.StatusCancelled).Error; err != nil {
			return err
		}
		token.Status = models.StatusCancelled

		return s.logEvent(tx, token.BusinessID, "cancelled",
			fmt.Sprintf("Token %s was cancelled by the customer", token.TokenNumber),
			models.JSONB{"token_number": token.TokenNumber})
	})
	if err != nil {
		return err
	}

	s.broadcastUpdate(&token)
	return nil
}

// CallNext completes the token currently being served (if any) and promotes
// the earliest-joined WAITING token to SERVING. With an empty waiting queue
// the whole call is a no-op and the station stays idle. The find-and-promote
// sequence runs at SERIALIZABLE isolation so two owners calling concurrently
// cannot both promote a token.
func (s *QueueService) CallNext(businessID uuid.UUID) (*models.Token, error) {
	var next models.Token
	var promoted bool

	err := s.runSerializable(func(tx *gorm.DB) error {
		// Reset state so a serialization retry starts clean.
		next = models.Token{}
		promoted = false
		err := tx.Where("business_id = ? AND status = ?", businessID, models.StatusWaiting).
			Order("joined_at asc").
			First(&next).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		var serving models.Token
		err = tx.Where("business_id = ? AND status = ?", businessID, models.StatusServing).
			First(&serving).Error
		if err == nil {
			if err := tx.Model(&serving).Update("status", models.StatusCompleted).Error; err != nil {
				return err
			}
			if err := s.logEvent(tx, businessID, "completed",
				fmt.Sprintf("Token %s finished being served", serving.TokenNumber),
				models.JSONB{"token_number": serving.TokenNumber}); err != nil {
				return err
			}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if err := tx.Model(&next).Update("status", models.StatusServing).Error; err != nil {
			return err
		}
		next.Status = models.StatusServing
		promoted = true

		return s.logEvent(tx, businessID, "called",
			fmt.Sprintf("Token %s is now being served", next.TokenNumber),
			models.JSONB{"token_number": next.TokenNumber})
	})
	if err != nil {
		return nil, err
	}
	if !promoted {
		return nil, nil
	}

	s.broadcastUpdate(&next)
	s.notifyServing(&next)
	return &next, nil
}

// SetStatus is the generic transition primitive behind the dashboards.
// Customers may only cancel their own token; owners may force SERVING or
// COMPLETED for tokens of businesses they own.
func (s *QueueService) SetStatus(tokenID uuid.UUID, status string, actorID uuid.UUID, actorRole string) (*models.Token, error) {
	if !models.ValidStatus(status) {
		return nil, ErrInvalidTransition
	}

	var token models.Token

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&token, "id = ?", tokenID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		switch actorRole {
		case models.RoleAdmin:
			var business models.Business
			if err := tx.First(&business, "id = ?", token.BusinessID).Error; err != nil {
				return err
			}
			if business.OwnerID != actorID {
				return ErrForbidden
			}
		default:
			if token.UserID != actorID || status != models.StatusCancelled {
				return ErrForbidden
			}
		}

		if !models.ValidTransition(token.Status, status) {
			return ErrInvalidTransition
		}

		if err := tx.Model(&token).Update("status", status).Error; err != nil {
			return err
		}
		token.Status = status

		action := strings.ToLower(status)
		return s.logEvent(tx, token.BusinessID, action,
			fmt.Sprintf("Token %s moved to %s", token.TokenNumber, status),
			models.JSONB{"token_number": token.TokenNumber})
	})
	if err != nil {
		return nil, err
	}

	s.broadcastUpdate(&token)
	if token.Status == models.StatusServing {
		s.notifyServing(&token)
	}
	return &token, nil
}

// ActiveForUser returns the user's token with status WAITING or SERVING, or
// nil. If the at-most-one-active invariant was ever violated the earliest
// joined token wins.
func (s *QueueService) ActiveForUser(userID uuid.UUID) (*models.Token, error) {
	var token models.Token
	err := s.db.Where("user_id = ? AND status IN ?", userID,
		[]string{models.StatusWaiting, models.StatusServing}).
		Order("joined_at asc").
		First(&token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	s.attachBusinessName(&token)
	return &token, nil
}

// ListForBusiness returns the business's tokens in arrival order with
// customer names attached for the owner dashboard.
func (s *QueueService) ListForBusiness(businessID uuid.UUID) ([]models.Token, error) {
	var tokens []models.Token
	if err := s.db.Where("business_id = ?", businessID).
		Order("joined_at asc").
		Find(&tokens).Error; err != nil {
		return nil, err
	}

	for i := range tokens {
		var user models.User
		if err := s.db.Select("full_name").First(&user, "id = ?", tokens[i].UserID).Error; err == nil {
			tokens[i].CustomerName = user.FullName
		} else {
			tokens[i].CustomerName = "Anonymous"
		}
	}
	return tokens, nil
}

// VisitHistory returns the user's COMPLETED tokens with business names.
func (s *QueueService) VisitHistory(userID uuid.UUID) ([]models.Token, error) {
	var tokens []models.Token
	if err := s.db.Where("user_id = ? AND status = ?", userID, models.StatusCompleted).
		Order("joined_at desc").
		Find(&tokens).Error; err != nil {
		return nil, err
	}
	for i := range tokens {
		s.attachBusinessName(&tokens[i])
	}
	return tokens, nil
}

// WaitingCount feeds the wait-time prediction endpoint.
func (s *QueueService) WaitingCount(businessID uuid.UUID) (int, error) {
	var count int64
	err := s.db.Model(&models.Token{}).
		Where("business_id = ? AND status = ?", businessID, models.StatusWaiting).
		Count(&count).Error
	return int(count), err
}

func (s *QueueService) attachBusinessName(token *models.Token) {
	var business models.Business
	if err := s.db.Select("name").First(&business, "id = ?", token.BusinessID).Error; err == nil {
		token.BusinessName = business.Name
	}
}

func (s *QueueService) logEvent(tx *gorm.DB, businessID uuid.UUID, action, description string, metadata models.JSONB) error {
	entry := models.BusinessLog{
		BusinessID:  businessID,
		Action:      action,
		Description: description,
		Metadata:    metadata,
	}
	return tx.Create(&entry).Error
}

func (s *QueueService) broadcastUpdate(token *models.Token) {
	if s.hub == nil {
		return
	}
	s.hub.Broadcast(realtime.Event{
		Type:       realtime.EventTokenUpdate,
		BusinessID: token.BusinessID.String(),
		Payload:    token,
	})
}

// notifyServing alerts the token's owner that their turn has come. Delivery
// is best-effort on both channels; failures are logged and swallowed.
func (s *QueueService) notifyServing(token *models.Token) {
	if s.hub != nil {
		s.hub.Broadcast(realtime.Event{
			Type:        realtime.EventYourTurn,
			UserID:      token.UserID.String(),
			TokenNumber: token.TokenNumber,
			Message:     fmt.Sprintf("It's your turn! Your token %s is being served.", token.TokenNumber),
		})
	}

	if s.notifier == nil {
		return
	}
	var user models.User
	if err := s.db.First(&user, "id = ?", token.UserID).Error; err != nil {
		log.Printf("Failed to load user for SMS alert: %v", err)
		return
	}
	if user.Phone == "" {
		return
	}
	s.notifier.SendTurnAlert(user.Phone, token.TokenNumber)
}

// services/sweeper_service.go
package services

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"queueless-backend/models"
	"queueless-backend/realtime"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// SweeperService cancels WAITING tokens that were never served. Businesses
// close, customers walk away; without the sweep those tokens would inflate
// waiting counts forever.
type SweeperService struct {
	db     *gorm.DB
	hub    *realtime.Hub
	maxAge time.Duration
}

func NewSweeperService(db *gorm.DB, hub *realtime.Hub) *SweeperService {
	maxAge := 24 * time.Hour
	if env := os.Getenv("TOKEN_MAX_AGE_HOURS"); env != "" {
		if h, err := strconv.Atoi(env); err == nil && h > 0 {
			maxAge = time.Duration(h) * time.Hour
		}
	}
	return &SweeperService{db: db, hub: hub, maxAge: maxAge}
}

func (s *SweeperService) StartScheduler() {
	c := cron.New()

	// Run daily at 3 AM
	c.AddFunc("0 3 * * *", func() {
		if n, err := s.SweepStale(); err != nil {
			log.Printf("Stale token sweep failed: %v", err)
		} else if n > 0 {
			log.Printf("Stale token sweep cancelled %d tokens", n)
		}
	})

	c.Start()
	log.Println("Token sweeper started")
}

// SweepStale cancels WAITING tokens older than the configured age and
// reports how many were affected. WAITING to CANCELLED is the only
// transition it ever performs. Like every other token mutation, each
// cancellation is written to the business audit trail and announced on the
// hub so connected clients refetch.
func (s *SweeperService) SweepStale() (int64, error) {
	cutoff := time.Now().Add(-s.maxAge)

	var stale []models.Token
	err := s.db.Transaction(func(tx *gorm.DB) error {
		stale = nil
		if err := tx.Where("status = ? AND joined_at < ?", models.StatusWaiting, cutoff).
			Find(&stale).Error; err != nil {
			return err
		}

		for i := range stale {
			if err := tx.Model(&stale[i]).Update("status", models.StatusCancelled).Error; err != nil {
				return err
			}
			stale[i].Status = models.StatusCancelled

			entry := models.BusinessLog{
				BusinessID:  stale[i].BusinessID,
				Action:      "cancelled",
				Description: fmt.Sprintf("Token %s expired and was cancelled", stale[i].TokenNumber),
				Metadata:    models.JSONB{"token_number": stale[i].TokenNumber, "reason": "expired"},
			}
			if err := tx.Create(&entry).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if s.hub != nil {
		for i := range stale {
			s.hub.Broadcast(realtime.Event{
				Type:       realtime.EventTokenUpdate,
				BusinessID: stale[i].BusinessID.String(),
				Payload:    &stale[i],
			})
		}
	}
	return int64(len(stale)), nil
}

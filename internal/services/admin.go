package services

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/example/blacktie/internal/models"
	"github.com/example/blacktie/internal/procedures"
)

// AdminService exposes the PIN lockout table to administrators.
type AdminService struct {
	db       *gorm.DB
	activity *ActivityLogger
}

// NewAdminService constructs AdminService.
func NewAdminService(db *gorm.DB, activity *ActivityLogger) *AdminService {
	return &AdminService{db: db, activity: activity}
}

// ListPinAttempts returns every tracked PIN hash with its counters.
func (s *AdminService) ListPinAttempts(ctx context.Context) ([]models.PinAttempt, error) {
	rows, err := procedures.ListPinAttempts(ctx, s.db)
	if err != nil {
		return nil, failed("load PIN attempts", err)
	}
	if rows == nil {
		rows = []models.PinAttempt{}
	}
	return rows, nil
}

// ResetPinAttempts unlocks a PIN hash.
func (s *AdminService) ResetPinAttempts(ctx context.Context, pinHash string) error {
	pinHash = strings.TrimSpace(pinHash)
	if pinHash == "" {
		return failed("reset PIN attempts", invalid("PIN hash is required"))
	}
	if err := procedures.ResetPinAttempts(ctx, s.db, pinHash); err != nil {
		return failed("reset PIN attempts", err)
	}

	s.activity.Log(ctx, Activity{
		Action:      models.ActionUpdate,
		EntityType:  "pin_attempt",
		EntityName:  pinHash,
		Description: "Reset PIN attempts",
	})
	return nil
}

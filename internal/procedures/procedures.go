// Package procedures holds the named database routines that the services call
// in place of ad-hoc SQL: order number allocation, audit inserts and the PIN
// lockout bookkeeping. Every routine accepts the handle it should run on, so
// callers can pass a transaction.
package procedures

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/blacktie/internal/models"
)

// OrderNumberPrefix starts every generated order number.
const OrderNumberPrefix = "BT"

// GenerateOrderNumber allocates the next order number for the year of now,
// formatted as BT-<year>-<nnnn>. Allocation is a single atomic increment.
func GenerateOrderNumber(ctx context.Context, db *gorm.DB, now time.Time) (string, error) {
	year := now.Year()
	var number string

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seq := models.OrderSequence{Year: year}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seq).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.OrderSequence{}).
			Where("year = ?", year).
			UpdateColumn("last_value", gorm.Expr("last_value + 1")).Error; err != nil {
			return err
		}

		if err := tx.First(&seq, "year = ?", year).Error; err != nil {
			return err
		}

		number = fmt.Sprintf("%s-%d-%04d", OrderNumberPrefix, year, seq.LastValue)
		return nil
	})
	if err != nil {
		return "", err
	}
	return number, nil
}

// LogActivity appends one audit entry.
func LogActivity(ctx context.Context, db *gorm.DB, entry *models.ActivityLog) error {
	if entry.UserIdentifier == "" {
		return errors.New("activity entry needs a user identifier")
	}
	return db.WithContext(ctx).Create(entry).Error
}

// ListPinAttempts returns every tracked PIN hash, most recent attempt first.
func ListPinAttempts(ctx context.Context, db *gorm.DB) ([]models.PinAttempt, error) {
	var rows []models.PinAttempt
	err := db.WithContext(ctx).
		Order("last_attempt_at desc").
		Find(&rows).Error
	return rows, err
}

// ResetPinAttempts clears the counter and lock for one PIN hash.
func ResetPinAttempts(ctx context.Context, db *gorm.DB, pinHash string) error {
	return db.WithContext(ctx).
		Where("pin_hash = ?", pinHash).
		Delete(&models.PinAttempt{}).Error
}

// PinLockedUntil reports the lock expiry for pinHash when it is still locked
// at now.
func PinLockedUntil(ctx context.Context, db *gorm.DB, pinHash string, now time.Time) (*time.Time, error) {
	var row models.PinAttempt
	err := db.WithContext(ctx).First(&row, "pin_hash = ?", pinHash).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if row.LockUntil != nil && row.LockUntil.After(now) {
		return row.LockUntil, nil
	}
	return nil, nil
}

// RecordPinFailure counts a failed login for pinHash. Reaching maxAttempts
// locks the hash for lockFor; an expired lock restarts the count. The
// counter is incremented by the database so concurrent failures are never
// lost.
func RecordPinFailure(ctx context.Context, db *gorm.DB, pinHash string, now time.Time, maxAttempts int, lockFor time.Duration) (models.PinAttempt, error) {
	var row models.PinAttempt

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		expired := "pin_attempts.lock_until IS NOT NULL AND pin_attempts.lock_until <= ?"
		first := models.PinAttempt{PinHash: pinHash, Attempts: 1, LastAttemptAt: &now}
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "pin_hash"}},
			DoUpdates: clause.Assignments(map[string]any{
				"attempts":        gorm.Expr("CASE WHEN "+expired+" THEN 1 ELSE pin_attempts.attempts + 1 END", now),
				"lock_until":      gorm.Expr("CASE WHEN "+expired+" THEN NULL ELSE pin_attempts.lock_until END", now),
				"last_attempt_at": now,
			}),
		}).Create(&first).Error; err != nil {
			return err
		}

		if err := tx.First(&row, "pin_hash = ?", pinHash).Error; err != nil {
			return err
		}
		if maxAttempts > 0 && row.Attempts >= maxAttempts && row.LockUntil == nil {
			until := now.Add(lockFor)
			if err := tx.Model(&models.PinAttempt{}).
				Where("pin_hash = ?", pinHash).
				Update("lock_until", until).Error; err != nil {
				return err
			}
			row.LockUntil = &until
		}
		return nil
	})
	return row, err
}

// ClearPinFailures forgets failed attempts after a successful login.
func ClearPinFailures(ctx context.Context, db *gorm.DB, pinHash string) error {
	return ResetPinAttempts(ctx, db, pinHash)
}

package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/example/blacktie/internal/models"
	"github.com/example/blacktie/internal/procedures"
	"github.com/example/blacktie/internal/utils"
)

// StaffInput creates a staff account.
type StaffInput struct {
	Email     string           `json:"email" validate:"required,email"`
	FirstName string           `json:"first_name" validate:"max=100"`
	LastName  string           `json:"last_name" validate:"max=100"`
	Role      models.StaffRole `json:"role" validate:"oneof=admin staff"`
	Pin       string           `json:"pin" validate:"required,len=4,number"`
}

// AuthService signs staff in with their PIN and guards against guessing.
type AuthService struct {
	db          *gorm.DB
	activity    *ActivityLogger
	now         func() time.Time
	maxAttempts int
	lockFor     time.Duration
}

// NewAuthService constructs AuthService. maxAttempts failures lock a PIN for
// lockFor.
func NewAuthService(db *gorm.DB, activity *ActivityLogger, maxAttempts int, lockFor time.Duration) *AuthService {
	return &AuthService{
		db:          db,
		activity:    activity,
		now:         time.Now,
		maxAttempts: maxAttempts,
		lockFor:     lockFor,
	}
}

// LoginWithPin resolves a PIN to the active staff member who owns it.
func (s *AuthService) LoginWithPin(ctx context.Context, pin string) (utils.Session, error) {
	if utils.Validate.Var(pin, utils.PinRule) != nil {
		return utils.Session{}, invalid("PIN must be 4 digits")
	}

	now := s.now().UTC()
	fingerprint := utils.PinFingerprint(pin)

	until, err := procedures.PinLockedUntil(ctx, s.db, fingerprint, now)
	if err != nil {
		return utils.Session{}, failed("check PIN lock", err)
	}
	if until != nil {
		return utils.Session{}, &PinLockedError{Until: *until}
	}

	user, err := s.matchPin(ctx, pin)
	if err != nil {
		return utils.Session{}, failed("login", err)
	}
	if user == nil {
		row, err := procedures.RecordPinFailure(ctx, s.db, fingerprint, now, s.maxAttempts, s.lockFor)
		if err != nil {
			utils.ErrorLogger.Warnf("failed to record PIN failure: %v", err)
		}
		if row.LockUntil != nil {
			return utils.Session{}, &PinLockedError{Until: *row.LockUntil}
		}
		return utils.Session{}, ErrInvalidPin
	}

	if err := procedures.ClearPinFailures(ctx, s.db, fingerprint); err != nil {
		utils.ErrorLogger.Warnf("failed to clear PIN failures: %v", err)
	}
	if err := s.db.WithContext(ctx).Model(user).Update("last_pin_login", now).Error; err != nil {
		return utils.Session{}, failed("login", err)
	}

	session := utils.Session{
		ID:        user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Role:      string(user.Role),
		LastLogin: &now,
	}

	s.activity.Log(WithSession(ctx, session), Activity{
		Action:      models.ActionLogin,
		EntityType:  "user",
		EntityID:    idPtr(user.ID),
		EntityName:  session.DisplayName(),
		Description: "Signed in with PIN",
	})
	return session, nil
}

func (s *AuthService) matchPin(ctx context.Context, pin string) (*models.StaffUser, error) {
	var staff []models.StaffUser
	if err := s.db.WithContext(ctx).Where("is_active = ?", true).Find(&staff).Error; err != nil {
		return nil, err
	}
	for i := range staff {
		if utils.CheckPin(staff[i].PinHash, pin) {
			return &staff[i], nil
		}
	}
	return nil, nil
}

// Logout records the end of a session.
func (s *AuthService) Logout(ctx context.Context, session utils.Session) {
	s.activity.Log(WithSession(ctx, session), Activity{
		Action:      models.ActionLogout,
		EntityType:  "user",
		EntityID:    idPtr(session.ID),
		EntityName:  session.DisplayName(),
		Description: "Signed out",
	})
}

// CreateStaffUser adds an active staff account. PINs must be unique among
// active staff so a PIN always resolves to one person.
func (s *AuthService) CreateStaffUser(ctx context.Context, in StaffInput) (models.StaffUser, error) {
	user := models.StaffUser{
		Email:     strings.ToLower(strings.TrimSpace(in.Email)),
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Role:      in.Role,
		IsActive:  true,
	}
	if user.Role == "" {
		user.Role = models.StaffRoleStaff
	}
	in.Email, in.Role = user.Email, user.Role
	if errs := utils.ValidateStruct(in); !errs.Empty() {
		return models.StaffUser{}, failed("create staff user", invalid(errs.Summary()))
	}

	existing, err := s.matchPin(ctx, in.Pin)
	if err != nil {
		return models.StaffUser{}, failed("create staff user", err)
	}
	if existing != nil {
		return models.StaffUser{}, failed("create staff user", invalid("PIN is already in use"))
	}

	hash, err := utils.HashPin(in.Pin)
	if err != nil {
		return models.StaffUser{}, failed("create staff user", err)
	}
	user.PinHash = hash

	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return models.StaffUser{}, failed("create staff user", err)
	}

	s.activity.Log(ctx, Activity{
		Action:      models.ActionCreate,
		EntityType:  "user",
		EntityID:    idPtr(user.ID),
		EntityName:  user.Email,
		Description: "Created staff user: " + user.Email,
		Details:     map[string]any{"role": user.Role},
	})
	return user, nil
}

// ListStaffUsers returns every staff account ordered by name.
func (s *AuthService) ListStaffUsers(ctx context.Context) ([]models.StaffUser, error) {
	users := []models.StaffUser{}
	if err := s.db.WithContext(ctx).Order("first_name asc, last_name asc").Find(&users).Error; err != nil {
		return nil, failed("fetch staff users", err)
	}
	return users, nil
}

// IsLocked reports whether err is a PIN lockout.
func IsLocked(err error) bool {
	var locked *PinLockedError
	return errors.As(err, &locked)
}

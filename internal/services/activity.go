package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/example/blacktie/internal/events"
	"github.com/example/blacktie/internal/models"
	"github.com/example/blacktie/internal/procedures"
	"github.com/example/blacktie/internal/utils"
)

// AnonymousActor identifies audit entries written without a session.
const AnonymousActor = "anonymous"

// Activity describes one audited action before it is attributed and stored.
type Activity struct {
	Action      models.ActivityAction
	EntityType  string
	EntityID    *uuid.UUID
	EntityName  string
	Description string
	Details     map[string]any
}

// ActivityLogger writes the audit trail. Failures are logged and swallowed,
// never returned to the business operation that triggered them.
type ActivityLogger struct {
	db        *gorm.DB
	publisher events.Publisher
	now       func() time.Time
}

// NewActivityLogger constructs ActivityLogger. A nil or no-op publisher
// disables event fan-out.
func NewActivityLogger(db *gorm.DB, publisher events.Publisher) *ActivityLogger {
	if _, nop := publisher.(events.NopPublisher); nop {
		publisher = nil
	}
	return &ActivityLogger{db: db, publisher: publisher, now: time.Now}
}

// Log stores a single activity attributed to the session in ctx.
func (l *ActivityLogger) Log(ctx context.Context, a Activity) {
	if l == nil {
		return
	}

	entry := l.entry(ctx, a)
	if err := procedures.LogActivity(ctx, l.db, entry); err != nil {
		utils.ErrorLogger.WithFields(logrus.Fields{
			"action":      a.Action,
			"entity_type": a.EntityType,
		}).Warnf("failed to log activity: %v", err)
		return
	}
	if l.publisher == nil {
		return
	}

	event := events.ActivityEvent{
		ID:          entry.ID,
		Action:      string(entry.Action),
		EntityType:  entry.EntityType,
		EntityID:    entry.EntityID,
		Description: entry.Description,
		Actor:       entry.UserIdentifier,
		Details:     entry.Details,
		OccurredAt:  entry.CreatedAt,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = l.publisher.PublishActivity(ctx, event)
	}()
}

// LogAll stores activities in order. It is used to flush entries buffered
// during a transaction once the transaction has committed.
func (l *ActivityLogger) LogAll(ctx context.Context, activities []Activity) {
	for _, a := range activities {
		l.Log(ctx, a)
	}
}

func (l *ActivityLogger) entry(ctx context.Context, a Activity) *models.ActivityLog {
	entry := &models.ActivityLog{
		UserIdentifier: AnonymousActor,
		Action:         a.Action,
		EntityType:     a.EntityType,
		EntityID:       a.EntityID,
		Description:    a.Description,
		Details:        a.Details,
	}
	entry.CreatedAt = l.now().UTC()

	if s, ok := SessionFromContext(ctx); ok {
		entry.UserIdentifier = s.Email
		if entry.UserIdentifier == "" {
			entry.UserIdentifier = s.ID.String()
		}
		if name := strings.TrimSpace(s.DisplayName()); name != "" {
			entry.UserName = &name
		}
	}
	if a.EntityName != "" {
		name := a.EntityName
		entry.EntityName = &name
	}
	return entry
}

func idPtr(id uuid.UUID) *uuid.UUID {
	return &id
}

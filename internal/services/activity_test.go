package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/blacktie/internal/database/dbtest"
	"github.com/example/blacktie/internal/events"
	"github.com/example/blacktie/internal/models"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.ActivityEvent
}

func (p *recordingPublisher) PublishActivity(ctx context.Context, e events.ActivityEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

func TestActivityLoggerSkipsFanOutWithoutPublisher(t *testing.T) {
	db := dbtest.Open(t)

	for _, p := range []events.Publisher{nil, events.NopPublisher{}} {
		l := NewActivityLogger(db, p)
		assert.Nil(t, l.publisher, "%T", p)
		l.Log(context.Background(), Activity{Action: models.ActionCreate, EntityType: "customer", Description: "Created customer"})
	}

	var stored int64
	require.NoError(t, db.Model(&models.ActivityLog{}).Count(&stored).Error)
	assert.EqualValues(t, 2, stored, "entries are still written")
}

func TestActivityLoggerPublishesStoredEntries(t *testing.T) {
	db := dbtest.Open(t)
	pub := &recordingPublisher{}
	l := NewActivityLogger(db, pub)

	l.Log(context.Background(), Activity{Action: models.ActionCreate, EntityType: "order", EntityName: "BT-2030-0001", Description: "Created order"})

	require.Eventually(t, func() bool { return pub.count() == 1 }, time.Second, 10*time.Millisecond)
	pub.mu.Lock()
	defer pub.mu.Unlock()
	assert.Equal(t, "order", pub.events[0].EntityType)
	assert.Equal(t, AnonymousActor, pub.events[0].Actor)
}

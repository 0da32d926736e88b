package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/example/blacktie/internal/database/dbtest"
	"github.com/example/blacktie/internal/models"
	"github.com/example/blacktie/internal/utils"
)

var fixedNow = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

type fixture struct {
	db        *gorm.DB
	activity  *ActivityLogger
	customers *CustomerService
	orders    *OrderService
	garments  *GarmentService
	dashboard *DashboardService
	auth      *AuthService
	admin     *AdminService
	ctx       context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.Open(t)
	activity := NewActivityLogger(db, nil)
	activity.now = func() time.Time { return fixedNow }

	orders := NewOrderService(db, activity)
	orders.now = func() time.Time { return fixedNow }
	dashboard := NewDashboardService(db)
	dashboard.now = func() time.Time { return fixedNow }
	auth := NewAuthService(db, activity, 3, 15*time.Minute)
	auth.now = func() time.Time { return fixedNow }

	ctx := WithSession(context.Background(), utils.Session{
		ID:        uuid.New(),
		Email:     "tailor@blacktie.test",
		FirstName: "Sam",
		LastName:  "Tailor",
		Role:      "staff",
	})

	return &fixture{
		db:        db,
		activity:  activity,
		customers: NewCustomerService(db, activity),
		orders:    orders,
		garments:  NewGarmentService(db, activity),
		dashboard: dashboard,
		auth:      auth,
		admin:     NewAdminService(db, activity),
		ctx:       ctx,
	}
}

func strPtr(s string) *string { return &s }

func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func (f *fixture) customer(t *testing.T, first, last string) models.Customer {
	t.Helper()
	c, err := f.customers.Create(f.ctx, CustomerInput{FirstName: first, LastName: last, Email: strPtr(first + "@example.com")})
	require.NoError(t, err)
	return c
}

func (f *fixture) order(t *testing.T, customerID uuid.UUID, status models.OrderStatus, date *time.Time) models.Order {
	t.Helper()
	o, err := f.orders.Create(f.ctx, OrderInput{CustomerID: customerID, Status: status, WeddingDate: date, TotalMembers: 4})
	require.NoError(t, err)
	return o
}

func (f *fixture) category(t *testing.T, name string, sort int) models.GarmentCategory {
	t.Helper()
	c, err := f.garments.CreateCategory(f.ctx, CategoryInput{Name: name, SortOrder: sort})
	require.NoError(t, err)
	return c
}

func (f *fixture) activityCount(t *testing.T, action models.ActivityAction, entityType string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&models.ActivityLog{}).
		Where("action = ? AND entity_type = ?", action, entityType).
		Count(&n).Error)
	return n
}

package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/example/blacktie/internal/models"
)

// DashboardKPIs are the headline figures on the dashboard.
type DashboardKPIs struct {
	TotalOrders              int64           `json:"totalOrders"`
	ActiveCustomers          int64           `json:"activeCustomers"`
	TodaysFunctions          int64           `json:"todaysFunctions"`
	PendingFittings          int64           `json:"pendingFittings"`
	RevenueThisMonth         decimal.Decimal `json:"revenueThisMonth"`
	CompletedOrdersThisMonth int64           `json:"completedOrdersThisMonth"`
}

// DashboardService computes dashboard figures and feeds.
type DashboardService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewDashboardService constructs DashboardService.
func NewDashboardService(db *gorm.DB) *DashboardService {
	return &DashboardService{db: db, now: time.Now}
}

// KPIs computes the dashboard headline figures.
func (s *DashboardService) KPIs(ctx context.Context) (DashboardKPIs, error) {
	var k DashboardKPIs
	db := s.db.WithContext(ctx)
	now := s.now().UTC()
	today := DateOnly(now)
	tomorrow := today.AddDate(0, 0, 1)
	monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)

	if err := db.Model(&models.Order{}).Count(&k.TotalOrders).Error; err != nil {
		return k, failed("fetch dashboard KPIs", err)
	}

	if err := db.Model(&models.Order{}).
		Where("created_at >= ?", now.AddDate(-1, 0, 0)).
		Distinct("customer_id").
		Count(&k.ActiveCustomers).Error; err != nil {
		return k, failed("fetch dashboard KPIs", err)
	}

	if err := db.Model(&models.Order{}).
		Where("wedding_date >= ? AND wedding_date < ?", today, tomorrow).
		Count(&k.TodaysFunctions).Error; err != nil {
		return k, failed("fetch dashboard KPIs", err)
	}

	var shortfall []struct {
		TotalMembers  int
		ActualMembers int
	}
	if err := db.Table("orders").
		Select("orders.total_members, (SELECT COUNT(*) FROM order_members om WHERE om.order_id = orders.id) AS actual_members").
		Where("orders.status IN ?", []models.OrderStatus{models.OrderStatusConfirmed, models.OrderStatusInProgress}).
		Scan(&shortfall).Error; err != nil {
		return k, failed("fetch dashboard KPIs", err)
	}
	for _, o := range shortfall {
		if o.ActualMembers < o.TotalMembers {
			k.PendingFittings += int64(o.TotalMembers - o.ActualMembers)
		}
	}

	completedThisMonth := func(q *gorm.DB) *gorm.DB {
		return q.Where("orders.status = ? AND orders.completed_at >= ?", models.OrderStatusCompleted, monthStart)
	}
	if err := completedThisMonth(db.Model(&models.Order{})).
		Count(&k.CompletedOrdersThisMonth).Error; err != nil {
		return k, failed("fetch dashboard KPIs", err)
	}

	var lines []struct {
		Quantity      int
		IsRental      bool
		RentalPrice   decimal.NullDecimal
		PurchasePrice decimal.NullDecimal
	}
	if err := completedThisMonth(db.Table("member_garments").
		Select("member_garments.quantity, member_garments.is_rental, garments.rental_price, garments.purchase_price").
		Joins("JOIN garments ON garments.id = member_garments.garment_id").
		Joins("JOIN order_members ON order_members.id = member_garments.member_id").
		Joins("JOIN orders ON orders.id = order_members.order_id")).
		Scan(&lines).Error; err != nil {
		return k, failed("fetch dashboard KPIs", err)
	}
	k.RevenueThisMonth = decimal.Zero
	for _, l := range lines {
		price := l.PurchasePrice
		if l.IsRental {
			price = l.RentalPrice
		}
		if price.Valid {
			k.RevenueThisMonth = k.RevenueThisMonth.Add(price.Decimal.Mul(decimal.NewFromInt(int64(l.Quantity))))
		}
	}

	return k, nil
}

func (s *DashboardService) functionsBetween(ctx context.Context, from, until time.Time) ([]OrderSummary, error) {
	rows := []OrderSummary{}
	err := orderSummaryQuery(s.db.WithContext(ctx)).
		Where("orders.wedding_date >= ? AND orders.wedding_date < ?", from, until).
		Order("orders.wedding_date asc").
		Order("customer_name asc").
		Scan(&rows).Error
	today := DateOnly(s.now())
	for i := range rows {
		rows[i].DisplayStatus = DisplayStatus(rows[i].Status, rows[i].WeddingDate, today)
	}
	return rows, err
}

// TodaysFunctions lists orders whose function is today.
func (s *DashboardService) TodaysFunctions(ctx context.Context) ([]OrderSummary, error) {
	today := DateOnly(s.now())
	rows, err := s.functionsBetween(ctx, today, today.AddDate(0, 0, 1))
	if err != nil {
		return nil, failed("fetch today's functions", err)
	}
	return rows, nil
}

// UpcomingFunctions lists orders with a function from today through the next
// days days inclusive.
func (s *DashboardService) UpcomingFunctions(ctx context.Context, days int) ([]OrderSummary, error) {
	if days <= 0 {
		days = 7
	}
	today := DateOnly(s.now())
	rows, err := s.functionsBetween(ctx, today, today.AddDate(0, 0, days+1))
	if err != nil {
		return nil, failed("fetch upcoming functions", err)
	}
	return rows, nil
}

// RecentActivity returns the newest audit entries.
func (s *DashboardService) RecentActivity(ctx context.Context, limit int) ([]models.ActivityLog, error) {
	if limit <= 0 {
		limit = 10
	}
	entries := []models.ActivityLog{}
	if err := s.db.WithContext(ctx).
		Order("created_at desc").
		Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, failed("fetch recent activity", err)
	}
	return entries, nil
}

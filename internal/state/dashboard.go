package state

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/example/blacktie/internal/models"
	"github.com/example/blacktie/internal/services"
	"github.com/example/blacktie/internal/utils"
)

const (
	UpcomingDays        = 7
	RecentActivityLimit = 10
)

// DashboardAPI is the dashboard service surface.
type DashboardAPI interface {
	KPIs(ctx context.Context) (services.DashboardKPIs, error)
	TodaysFunctions(ctx context.Context) ([]services.OrderSummary, error)
	UpcomingFunctions(ctx context.Context, days int) ([]services.OrderSummary, error)
	RecentActivity(ctx context.Context, limit int) ([]models.ActivityLog, error)
}

// DashboardData is one consistent snapshot of the dashboard.
type DashboardData struct {
	KPIs           *services.DashboardKPIs `json:"kpis"`
	Today          []services.OrderSummary `json:"todaysFunctions"`
	Upcoming       []services.OrderSummary `json:"upcomingFunctions"`
	RecentActivity []models.ActivityLog    `json:"recentActivity"`
}

type Dashboard struct {
	tracker
	api  DashboardAPI
	data DashboardData
}

func NewDashboard(api DashboardAPI) *Dashboard {
	return &Dashboard{api: api, data: DashboardData{
		Today:          []services.OrderSummary{},
		Upcoming:       []services.OrderSummary{},
		RecentActivity: []models.ActivityLog{},
	}}
}

// Fetch loads all four feeds concurrently. The snapshot is replaced only
// when every feed succeeds.
func (d *Dashboard) Fetch(ctx context.Context) error {
	_, err := track(&d.tracker, func() (DashboardData, error) {
		var next DashboardData
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			kpis, err := d.api.KPIs(gctx)
			next.KPIs = &kpis
			return err
		})
		g.Go(func() (err error) {
			next.Today, err = d.api.TodaysFunctions(gctx)
			return err
		})
		g.Go(func() (err error) {
			next.Upcoming, err = d.api.UpcomingFunctions(gctx, UpcomingDays)
			return err
		})
		g.Go(func() (err error) {
			next.RecentActivity, err = d.api.RecentActivity(gctx, RecentActivityLimit)
			return err
		})
		return next, g.Wait()
	}, func(next DashboardData) { d.data = next })
	if err != nil {
		utils.ErrorLogger.WithError(err).Error("dashboard fetch failed")
	}
	return err
}

// Run fetches immediately and then every interval until ctx is done.
func (d *Dashboard) Run(ctx context.Context, interval time.Duration) {
	_ = d.Fetch(ctx)
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = d.Fetch(ctx)
		}
	}
}

func (d *Dashboard) Data() DashboardData {
	var out DashboardData
	d.read(func() {
		out = d.data
		out.Today = clone(d.data.Today)
		out.Upcoming = clone(d.data.Upcoming)
		out.RecentActivity = clone(d.data.RecentActivity)
	})
	return out
}

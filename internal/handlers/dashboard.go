package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/blacktie/internal/services"
	"github.com/example/blacktie/internal/state"
)

// DashboardHandler serves the dashboard figures and feeds.
type DashboardHandler struct {
	dashboard *services.DashboardService
	board     *state.Dashboard
}

// NewDashboardHandler constructs DashboardHandler.
func NewDashboardHandler(dashboard *services.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard, board: state.NewDashboard(dashboard)}
}

// Snapshot loads the four dashboard feeds concurrently and returns them
// together. A failed feed fails the request and the last good snapshot is
// kept.
func (h *DashboardHandler) Snapshot(c *fiber.Ctx) error {
	if err := h.board.Fetch(c.UserContext()); err != nil {
		return err
	}
	return success(c, h.board.Data())
}

// KPIs returns the headline figures.
func (h *DashboardHandler) KPIs(c *fiber.Ctx) error {
	kpis, err := h.dashboard.KPIs(c.UserContext())
	if err != nil {
		return err
	}
	return success(c, kpis)
}

// TodaysFunctions lists orders whose function is today.
func (h *DashboardHandler) TodaysFunctions(c *fiber.Ctx) error {
	rows, err := h.dashboard.TodaysFunctions(c.UserContext())
	if err != nil {
		return err
	}
	return success(c, rows)
}

// UpcomingFunctions lists functions in the next ?days= days (default 7).
func (h *DashboardHandler) UpcomingFunctions(c *fiber.Ctx) error {
	rows, err := h.dashboard.UpcomingFunctions(c.UserContext(), c.QueryInt("days", 7))
	if err != nil {
		return err
	}
	return success(c, rows)
}

// RecentActivity returns the newest audit entries.
func (h *DashboardHandler) RecentActivity(c *fiber.Ctx) error {
	rows, err := h.dashboard.RecentActivity(c.UserContext(), c.QueryInt("limit", 10))
	if err != nil {
		return err
	}
	return success(c, rows)
}

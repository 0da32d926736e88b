package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/blacktie/internal/services"
)

// AdminHandler manages settings endpoints reserved for administrators.
type AdminHandler struct {
	admin *services.AdminService
	auth  *services.AuthService
}

// NewAdminHandler constructs AdminHandler.
func NewAdminHandler(admin *services.AdminService, auth *services.AuthService) *AdminHandler {
	return &AdminHandler{admin: admin, auth: auth}
}

// ListPinAttempts returns the PIN lockout table.
func (h *AdminHandler) ListPinAttempts(c *fiber.Ctx) error {
	rows, err := h.admin.ListPinAttempts(c.UserContext())
	if err != nil {
		return err
	}
	return success(c, rows)
}

// ResetPinAttempts clears the counters for one PIN hash.
func (h *AdminHandler) ResetPinAttempts(c *fiber.Ctx) error {
	if err := h.admin.ResetPinAttempts(c.UserContext(), c.Params("hash")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}

// ListStaff returns every staff account.
func (h *AdminHandler) ListStaff(c *fiber.Ctx) error {
	users, err := h.auth.ListStaffUsers(c.UserContext())
	if err != nil {
		return err
	}
	return success(c, users)
}

// CreateStaff adds a staff account with its PIN.
func (h *AdminHandler) CreateStaff(c *fiber.Ctx) error {
	var req services.StaffInput
	if err := parseBody(c, &req); err != nil {
		return err
	}

	user, err := h.auth.CreateStaffUser(c.UserContext(), req)
	if err != nil {
		return err
	}
	return successCreated(c, user)
}

package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/blacktie/internal/middleware"
	"github.com/example/blacktie/internal/services"
)

// MemberHandler manages the outfit and measurements of a party member.
type MemberHandler struct {
	garments *services.GarmentService
}

// NewMemberHandler constructs MemberHandler.
func NewMemberHandler(garments *services.GarmentService) *MemberHandler {
	return &MemberHandler{garments: garments}
}

// ListGarments returns the garments assigned to a member.
func (h *MemberHandler) ListGarments(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	rows, err := h.garments.ListMemberGarments(c.UserContext(), id)
	if err != nil {
		return err
	}
	return success(c, rows)
}

// AssignGarment adds a garment to a member's outfit.
func (h *MemberHandler) AssignGarment(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var req services.AssignmentInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	req.MemberID = id
	sanitize(req.Notes)

	row, err := h.garments.AssignToMember(c.UserContext(), req)
	if err != nil {
		return err
	}
	return successCreated(c, row)
}

// UpdateAssignment changes an assignment. A quantity of zero removes it.
func (h *MemberHandler) UpdateAssignment(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var req services.AssignmentPatch
	if err := parseBody(c, &req); err != nil {
		return err
	}
	sanitize(req.Notes)

	row, err := h.garments.UpdateAssignment(c.UserContext(), id, req)
	if err != nil {
		return err
	}
	return success(c, row)
}

// RemoveAssignment drops a garment from a member's outfit.
func (h *MemberHandler) RemoveAssignment(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	if err := h.garments.RemoveFromMember(c.UserContext(), id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}

// ListSizes returns a member's measurement history, newest first.
func (h *MemberHandler) ListSizes(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	rows, err := h.garments.ListMemberSizes(c.UserContext(), id)
	if err != nil {
		return err
	}
	return success(c, rows)
}

// LatestSizes returns the most recent measurement per size type.
func (h *MemberHandler) LatestSizes(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	latest, err := h.garments.LatestMemberSizes(c.UserContext(), id)
	if err != nil {
		return err
	}
	return success(c, latest)
}

// AddSize records a measurement. The signed-in staff member is stored as
// the measurer unless the body names one.
func (h *MemberHandler) AddSize(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var req services.SizeInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	req.MemberID = id
	sanitize(req.Notes)
	if req.MeasuredBy == nil {
		if session, ok := middleware.GetCurrentSession(c); ok {
			name := session.DisplayName()
			req.MeasuredBy = &name
		}
	}

	size, err := h.garments.AddMemberSize(c.UserContext(), req)
	if err != nil {
		return err
	}
	return successCreated(c, size)
}

// UpdateSize corrects a recorded measurement.
func (h *MemberHandler) UpdateSize(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var req services.SizePatch
	if err := parseBody(c, &req); err != nil {
		return err
	}
	sanitize(req.Notes)

	size, err := h.garments.UpdateMemberSize(c.UserContext(), id, req)
	if err != nil {
		return err
	}
	return success(c, size)
}

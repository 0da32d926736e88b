package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/example/blacktie/internal/services"
	"github.com/example/blacktie/internal/utils"
)

// CatalogHandler manages garment categories and the garment catalog.
type CatalogHandler struct {
	garments *services.GarmentService
}

// NewCatalogHandler constructs CatalogHandler.
func NewCatalogHandler(garments *services.GarmentService) *CatalogHandler {
	return &CatalogHandler{garments: garments}
}

// ListCategories returns active categories in display order.
func (h *CatalogHandler) ListCategories(c *fiber.Ctx) error {
	categories, err := h.garments.ListCategories(c.UserContext())
	if err != nil {
		return err
	}
	return success(c, categories)
}

// CreateCategory persists a new category.
func (h *CatalogHandler) CreateCategory(c *fiber.Ctx) error {
	var req services.CategoryInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	req.Name = utils.SanitizeInput(req.Name)
	sanitize(req.Description)

	category, err := h.garments.CreateCategory(c.UserContext(), req)
	if err != nil {
		return err
	}
	return successCreated(c, category)
}

// UpdateCategory applies the provided fields to a category.
func (h *CatalogHandler) UpdateCategory(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var req services.CategoryPatch
	if err := parseBody(c, &req); err != nil {
		return err
	}
	sanitize(req.Name)
	sanitize(req.Description)

	category, err := h.garments.UpdateCategory(c.UserContext(), id, req)
	if err != nil {
		return err
	}
	return success(c, category)
}

// ListGarments returns a filtered page of garments with their category.
func (h *CatalogHandler) ListGarments(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)

	categoryID, err := parseUUIDQuery(c, "category_id")
	if err != nil {
		return err
	}
	filters := services.GarmentFilters{
		Search:     c.Query("search"),
		CategoryID: categoryID,
		Color:      c.Query("color"),
		Material:   c.Query("material"),
	}
	if raw := c.Query("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid active")
		}
		filters.Active = &active
	}

	page, err := h.garments.List(c.UserContext(), pg.Page, pg.Limit, filters)
	if err != nil {
		return err
	}
	return paginated(c, page)
}

// SearchGarments matches name, description, brand and SKU.
func (h *CatalogHandler) SearchGarments(c *fiber.Ctx) error {
	found, err := h.garments.Search(c.UserContext(), c.Query("q"), searchLimit(c))
	if err != nil {
		return err
	}
	return success(c, found)
}

// GetGarment returns a single garment.
func (h *CatalogHandler) GetGarment(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	garment, err := h.garments.GetByID(c.UserContext(), id)
	if err != nil {
		return err
	}
	return success(c, garment)
}

// GarmentsByCategory lists the active garments of one category.
func (h *CatalogHandler) GarmentsByCategory(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	garments, err := h.garments.ListByCategory(c.UserContext(), id)
	if err != nil {
		return err
	}
	return success(c, garments)
}

// CreateGarment persists a new garment.
func (h *CatalogHandler) CreateGarment(c *fiber.Ctx) error {
	var req services.GarmentInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	req.Name = utils.SanitizeInput(req.Name)
	sanitize(req.Description)

	garment, err := h.garments.Create(c.UserContext(), req)
	if err != nil {
		return err
	}
	return successCreated(c, garment)
}

// UpdateGarment applies the provided fields to a garment.
func (h *CatalogHandler) UpdateGarment(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var req services.GarmentPatch
	if err := parseBody(c, &req); err != nil {
		return err
	}
	sanitize(req.Name)
	sanitize(req.Description)

	garment, err := h.garments.Update(c.UserContext(), id, req)
	if err != nil {
		return err
	}
	return success(c, garment)
}

// DeleteGarment removes a garment from the catalog.
func (h *CatalogHandler) DeleteGarment(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	if err := h.garments.Delete(c.UserContext(), id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}

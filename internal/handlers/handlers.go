package handlers

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/blacktie/internal/services"
	"github.com/example/blacktie/internal/utils"
)

// ErrorHandler renders every failed request as {"success": false, "error": msg}
// with a status derived from the error.
func ErrorHandler(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	message := err.Error()

	var fe *fiber.Error
	var locked *services.PinLockedError
	switch {
	case errors.As(err, &fe):
		status = fe.Code
		message = fe.Message
	case errors.As(err, &locked):
		status = fiber.StatusLocked
		retry := int(time.Until(locked.Until).Seconds())
		if retry < 0 {
			retry = 0
		}
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retry))
	case errors.Is(err, services.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, services.ErrValidation):
		status = fiber.StatusBadRequest
	case errors.Is(err, services.ErrInvalidPin):
		status = fiber.StatusUnauthorized
	}

	if status >= fiber.StatusInternalServerError {
		utils.ErrorLogger.WithError(err).WithField("path", c.Path()).Error("request failed")
		message = "internal server error"
	}

	return c.Status(status).JSON(fiber.Map{"success": false, "error": message})
}

func parseID(c *fiber.Ctx, param string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(param))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "invalid "+param)
	}
	return id, nil
}

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	return nil
}

func parseUUIDQuery(c *fiber.Ctx, key string) (*uuid.UUID, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "invalid "+key)
	}
	return &id, nil
}

func parseDateQuery(c *fiber.Ctx, key string) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	d, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "invalid "+key+", expected YYYY-MM-DD")
	}
	return &d, nil
}

func searchLimit(c *fiber.Ctx) int {
	limit := c.QueryInt("limit", 10)
	if limit <= 0 || limit > utils.MaxLimit {
		limit = 10
	}
	return limit
}

func paginated[T any](c *fiber.Ctx, page services.Page[T]) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data":    page.Items,
		"pagination": fiber.Map{
			"current_page":   page.Page,
			"items_per_page": page.Limit,
			"total_items":    page.Total,
			"total_pages":    utils.TotalPages(page.Total, page.Limit),
		},
	})
}

func success(c *fiber.Ctx, data any) error {
	return c.JSON(fiber.Map{"success": true, "data": data})
}

func successCreated(c *fiber.Ctx, data any) error {
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": data})
}

// fieldErrors rejects a request whose form failed validation.
func fieldErrors(c *fiber.Ctx, errs utils.FieldErrors) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"success": false,
		"error":   "validation failed",
		"fields":  errs,
	})
}

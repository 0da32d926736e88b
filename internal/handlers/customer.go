package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/example/blacktie/internal/services"
	"github.com/example/blacktie/internal/utils"
)

// CustomerHandler manages customer endpoints.
type CustomerHandler struct {
	customers *services.CustomerService
}

// NewCustomerHandler constructs CustomerHandler.
func NewCustomerHandler(customers *services.CustomerService) *CustomerHandler {
	return &CustomerHandler{customers: customers}
}

func trim(fields ...*string) {
	for _, s := range fields {
		if s != nil {
			*s = strings.TrimSpace(*s)
		}
	}
}

func sanitize(s *string) {
	if s != nil {
		*s = utils.SanitizeInput(*s)
	}
}

// ListCustomers returns a filtered page of customers.
func (h *CustomerHandler) ListCustomers(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	filters := services.CustomerFilters{
		Search:   c.Query("search"),
		Email:    c.Query("email"),
		Phone:    c.Query("phone"),
		City:     c.Query("city"),
		County:   c.Query("county"),
		Postcode: c.Query("postcode"),
	}

	page, err := h.customers.List(c.UserContext(), pg.Page, pg.Limit, filters)
	if err != nil {
		return err
	}
	return paginated(c, page)
}

// SearchCustomers is the quick lookup behind the customer picker.
func (h *CustomerHandler) SearchCustomers(c *fiber.Ctx) error {
	found, err := h.customers.Search(c.UserContext(), c.Query("q"), searchLimit(c))
	if err != nil {
		return err
	}
	return success(c, found)
}

// GetCustomer returns a single customer.
func (h *CustomerHandler) GetCustomer(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	customer, err := h.customers.GetByID(c.UserContext(), id)
	if err != nil {
		return err
	}
	return success(c, customer)
}

// CustomerHistory returns the orders a customer booked or joined.
func (h *CustomerHandler) CustomerHistory(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	history, err := h.customers.OrderHistory(c.UserContext(), id)
	if err != nil {
		return err
	}
	return success(c, history)
}

// CreateCustomer persists a new customer.
func (h *CustomerHandler) CreateCustomer(c *fiber.Ctx) error {
	var req services.CustomerInput
	if err := parseBody(c, &req); err != nil {
		return err
	}

	req.FirstName = utils.SanitizeInput(req.FirstName)
	req.LastName = utils.SanitizeInput(req.LastName)
	sanitize(req.Notes)
	trim(req.Email, req.Phone, req.Postcode)

	if errs := utils.ValidateStruct(req); !errs.Empty() {
		return fieldErrors(c, errs)
	}

	customer, err := h.customers.Create(c.UserContext(), req)
	if err != nil {
		return err
	}
	return successCreated(c, customer)
}

// UpdateCustomer applies the provided fields to a customer.
func (h *CustomerHandler) UpdateCustomer(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var req services.CustomerPatch
	if err := parseBody(c, &req); err != nil {
		return err
	}
	sanitize(req.Notes)
	trim(req.Email, req.Phone, req.Postcode)

	if errs := services.ValidateContact(req.Email, req.Phone, req.Postcode); !errs.Empty() {
		return fieldErrors(c, errs)
	}

	customer, err := h.customers.Update(c.UserContext(), id, req)
	if err != nil {
		return err
	}
	return success(c, customer)
}

// DeleteCustomer removes a customer and their orders.
func (h *CustomerHandler) DeleteCustomer(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	if err := h.customers.Delete(c.UserContext(), id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}

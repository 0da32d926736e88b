package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/blacktie/internal/middleware"
	"github.com/example/blacktie/internal/models"
	"github.com/example/blacktie/internal/services"
	"github.com/example/blacktie/internal/utils"
	"github.com/example/blacktie/internal/wizard"
)

// OrderHandler manages order and party member endpoints.
type OrderHandler struct {
	orders    *services.OrderService
	customers *services.CustomerService
	garments  *services.GarmentService
	telegram  *services.TelegramService
}

// NewOrderHandler constructs OrderHandler.
func NewOrderHandler(orders *services.OrderService, customers *services.CustomerService, garments *services.GarmentService, telegram *services.TelegramService) *OrderHandler {
	return &OrderHandler{orders: orders, customers: customers, garments: garments, telegram: telegram}
}

// ListOrders returns a filtered page of order summaries.
func (h *OrderHandler) ListOrders(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)

	customerID, err := parseUUIDQuery(c, "customer_id")
	if err != nil {
		return err
	}
	from, err := parseDateQuery(c, "wedding_date_from")
	if err != nil {
		return err
	}
	to, err := parseDateQuery(c, "wedding_date_to")
	if err != nil {
		return err
	}

	filters := services.OrderFilters{
		Search:          c.Query("search"),
		Status:          c.Query("status"),
		CustomerID:      customerID,
		FunctionType:    c.Query("function_type"),
		WeddingDateFrom: from,
		WeddingDateTo:   to,
	}

	page, err := h.orders.List(c.UserContext(), pg.Page, pg.Limit, filters)
	if err != nil {
		return err
	}
	return paginated(c, page)
}

// SearchOrders matches order numbers and customer names.
func (h *OrderHandler) SearchOrders(c *fiber.Ctx) error {
	found, err := h.orders.Search(c.UserContext(), c.Query("q"), searchLimit(c))
	if err != nil {
		return err
	}
	return success(c, found)
}

// GetOrder returns an order. ?include=members adds the party with garments
// and sizes.
func (h *OrderHandler) GetOrder(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var order models.Order
	if c.Query("include") == "members" {
		order, err = h.orders.GetWithMembers(c.UserContext(), id)
	} else {
		order, err = h.orders.GetByID(c.UserContext(), id)
	}
	if err != nil {
		return err
	}
	return success(c, order)
}

// CreateOrder stores a bare order.
func (h *OrderHandler) CreateOrder(c *fiber.Ctx) error {
	var req services.OrderInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	sanitize(req.SpecialRequirements)
	sanitize(req.InternalNotes)

	order, err := h.orders.Create(c.UserContext(), req)
	if err != nil {
		return err
	}

	h.notify(c, order)
	return successCreated(c, order)
}

// CreateOrderWithParty stores the order built in the creation wizard with
// all members, garments and sizes. The party gets the same checks as the
// wizard steps before anything is written.
func (h *OrderHandler) CreateOrderWithParty(c *fiber.Ctx) error {
	var req services.PartyDraft
	if err := parseBody(c, &req); err != nil {
		return err
	}
	sanitize(req.Order.SpecialRequirements)
	sanitize(req.Order.InternalNotes)
	for i := range req.Members {
		trim(req.Members[i].Member.Email, req.Members[i].Member.Phone)
	}

	categories, err := h.garments.ListCategories(c.UserContext())
	if err != nil {
		return err
	}
	var ids []uuid.UUID
	for _, m := range req.Members {
		for _, g := range m.Garments {
			ids = append(ids, g.GarmentID)
		}
	}
	garments, err := h.garments.GetMany(c.UserContext(), ids)
	if err != nil {
		return err
	}
	if errs := wizard.ValidateDraft(req, categories, garments); !errs.Empty() {
		return fieldErrors(c, errs)
	}

	order, err := h.orders.CreateWithParty(c.UserContext(), req)
	if err != nil {
		return err
	}

	h.notify(c, order)
	return successCreated(c, order)
}

// UpdateOrder applies the provided fields to an order.
func (h *OrderHandler) UpdateOrder(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var req services.OrderPatch
	if err := parseBody(c, &req); err != nil {
		return err
	}
	sanitize(req.SpecialRequirements)
	sanitize(req.InternalNotes)

	order, err := h.orders.Update(c.UserContext(), id, req)
	if err != nil {
		return err
	}
	return success(c, order)
}

// DeleteOrder removes an order with its party.
func (h *OrderHandler) DeleteOrder(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	if err := h.orders.Delete(c.UserContext(), id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}

// ListMembers returns an order's party.
func (h *OrderHandler) ListMembers(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	members, err := h.orders.ListMembers(c.UserContext(), id)
	if err != nil {
		return err
	}
	return success(c, members)
}

// AddMember adds a party member to an order.
func (h *OrderHandler) AddMember(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var req services.MemberInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	trim(req.Email, req.Phone)
	if errs := utils.ValidateStruct(req); !errs.Empty() {
		return fieldErrors(c, errs)
	}

	member, err := h.orders.AddMember(c.UserContext(), id, req)
	if err != nil {
		return err
	}
	return successCreated(c, member)
}

// UpdateMember applies the provided fields to a party member.
func (h *OrderHandler) UpdateMember(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var req services.MemberPatch
	if err := parseBody(c, &req); err != nil {
		return err
	}
	trim(req.Email, req.Phone)
	if errs := services.ValidateContact(req.Email, req.Phone, nil); !errs.Empty() {
		return fieldErrors(c, errs)
	}

	member, err := h.orders.UpdateMember(c.UserContext(), id, req)
	if err != nil {
		return err
	}
	return success(c, member)
}

// DeleteMember removes a party member.
func (h *OrderHandler) DeleteMember(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	if err := h.orders.DeleteMember(c.UserContext(), id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}

// notify tells the staff chat about a new order without holding up the
// response.
func (h *OrderHandler) notify(c *fiber.Ctx, order models.Order) {
	if h.telegram == nil || !h.telegram.Enabled() {
		return
	}
	createdBy := ""
	if session, ok := middleware.GetCurrentSession(c); ok {
		createdBy = session.DisplayName()
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		customerName, err := h.customers.FullName(ctx, order.CustomerID)
		if err != nil {
			utils.ErrorLogger.WithError(err).Warn("telegram notification without customer name")
		}

		if err := h.telegram.NotifyNewOrder(ctx, services.NewOrderNotification(order, customerName, createdBy)); err != nil {
			utils.ErrorLogger.WithError(err).WithField("order", order.OrderNumber).Error("telegram notification failed")
			return
		}
		utils.InfoLogger.WithField("order", order.OrderNumber).Info("telegram notification sent")
	}()
}

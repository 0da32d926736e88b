package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/blacktie/internal/models"
	"github.com/example/blacktie/internal/procedures"
	"github.com/example/blacktie/internal/utils"
)

// Display statuses group the stored lifecycle for the order list.
const (
	DisplayNoDeposit = "no_deposit"
	DisplayActive    = "active"
	DisplayPast      = "past"
)

var liveStatuses = []models.OrderStatus{
	models.OrderStatusConfirmed,
	models.OrderStatusInProgress,
	models.OrderStatusReady,
}

// DisplayStatus maps a stored status and wedding date to the status shown in
// the order list. today must be a calendar day at midnight UTC.
func DisplayStatus(status models.OrderStatus, weddingDate *time.Time, today time.Time) string {
	switch status {
	case models.OrderStatusDraft:
		return DisplayNoDeposit
	case models.OrderStatusConfirmed, models.OrderStatusInProgress, models.OrderStatusReady:
		if weddingDate != nil && DateOnly(*weddingDate).Before(today) {
			return DisplayPast
		}
		return DisplayActive
	case models.OrderStatusCompleted, models.OrderStatusCancelled:
		return DisplayPast
	default:
		return DisplayActive
	}
}

// OrderFilters narrows the order list. Status accepts a display status or
// any stored status.
type OrderFilters struct {
	Search          string     `json:"search,omitempty"`
	Status          string     `json:"status,omitempty"`
	CustomerID      *uuid.UUID `json:"customer_id,omitempty"`
	FunctionType    string     `json:"function_type,omitempty"`
	WeddingDateFrom *time.Time `json:"wedding_date_from,omitempty"`
	WeddingDateTo   *time.Time `json:"wedding_date_to,omitempty"`
}

// OrderSummary is an order row joined with its customer and party size.
type OrderSummary struct {
	ID                  uuid.UUID           `json:"id"`
	CustomerID          uuid.UUID           `json:"customer_id"`
	OrderNumber         string              `json:"order_number"`
	WeddingDate         *time.Time          `json:"wedding_date"`
	WeddingVenue        *string             `json:"wedding_venue"`
	WeddingTime         *string             `json:"wedding_time"`
	FunctionType        models.FunctionType `json:"function_type"`
	Status              models.OrderStatus  `json:"status"`
	DisplayStatus       string              `gorm:"-" json:"display_status"`
	TotalMembers        int                 `json:"total_members"`
	ActualMembers       int                 `json:"actual_members"`
	SpecialRequirements *string             `json:"special_requirements"`
	InternalNotes       *string             `json:"internal_notes"`
	CustomerName        string              `json:"customer_name"`
	CustomerEmail       *string             `json:"customer_email"`
	CustomerPhone       *string             `json:"customer_phone"`
	CreatedAt           time.Time           `json:"created_at"`
	UpdatedAt           time.Time           `json:"updated_at"`
	CompletedAt         *time.Time          `json:"completed_at"`
}

const orderSummaryColumns = `orders.id, orders.customer_id, orders.order_number, orders.wedding_date,
orders.wedding_venue, orders.wedding_time, orders.function_type, orders.status, orders.total_members,
orders.special_requirements, orders.internal_notes, orders.created_at, orders.updated_at, orders.completed_at,
customers.first_name || ' ' || customers.last_name AS customer_name,
customers.email AS customer_email, customers.phone AS customer_phone,
(SELECT COUNT(*) FROM order_members om WHERE om.order_id = orders.id) AS actual_members`

func orderSummaryQuery(db *gorm.DB) *gorm.DB {
	return db.Table("orders").
		Select(orderSummaryColumns).
		Joins("JOIN customers ON customers.id = orders.customer_id")
}

// OrderInput is the payload for a new order.
type OrderInput struct {
	CustomerID          uuid.UUID           `json:"customer_id"`
	WeddingDate         *time.Time          `json:"wedding_date"`
	WeddingVenue        *string             `json:"wedding_venue"`
	WeddingTime         *string             `json:"wedding_time"`
	FunctionType        models.FunctionType `json:"function_type"`
	Status              models.OrderStatus  `json:"status"`
	TotalMembers        int                 `json:"total_members"`
	SpecialRequirements *string             `json:"special_requirements"`
	InternalNotes       *string             `json:"internal_notes"`
}

func (in OrderInput) model() (models.Order, error) {
	order := models.Order{
		CustomerID:          in.CustomerID,
		WeddingVenue:        optional(in.WeddingVenue),
		WeddingTime:         optional(in.WeddingTime),
		FunctionType:        in.FunctionType,
		Status:              in.Status,
		TotalMembers:        in.TotalMembers,
		SpecialRequirements: optional(in.SpecialRequirements),
		InternalNotes:       optional(in.InternalNotes),
	}
	if in.CustomerID == uuid.Nil {
		return order, invalid("customer is required")
	}
	if in.WeddingDate != nil {
		d := DateOnly(*in.WeddingDate)
		order.WeddingDate = &d
	}
	if order.FunctionType == "" {
		order.FunctionType = models.FunctionWedding
	}
	if !order.FunctionType.Valid() {
		return order, invalid("unknown function type " + string(order.FunctionType))
	}
	if order.Status == "" {
		order.Status = models.OrderStatusDraft
	}
	if !order.Status.Valid() {
		return order, invalid("unknown order status " + string(order.Status))
	}
	if order.TotalMembers == 0 {
		order.TotalMembers = 1
	}
	if order.TotalMembers < 1 {
		return order, invalid("total members must be at least 1")
	}
	return order, nil
}

// OrderPatch carries only the fields to change.
type OrderPatch struct {
	CustomerID          *uuid.UUID           `json:"customer_id"`
	WeddingDate         *time.Time           `json:"wedding_date"`
	ClearWeddingDate    bool                 `json:"clear_wedding_date"`
	WeddingVenue        *string              `json:"wedding_venue"`
	WeddingTime         *string              `json:"wedding_time"`
	FunctionType        *models.FunctionType `json:"function_type"`
	Status              *models.OrderStatus  `json:"status"`
	TotalMembers        *int                 `json:"total_members"`
	SpecialRequirements *string              `json:"special_requirements"`
	InternalNotes       *string              `json:"internal_notes"`
}

// MemberInput is the payload for a new party member.
type MemberInput struct {
	FirstName        string            `json:"first_name" validate:"required,max=100"`
	LastName         string            `json:"last_name" validate:"required,max=100"`
	Role             models.MemberRole `json:"role" validate:"omitempty,oneof=groom best_man groomsman father_of_groom father_of_bride usher page_boy other"`
	Email            *string           `json:"email" validate:"omitempty,email"`
	Phone            *string           `json:"phone" validate:"omitempty,min=10,max=20"`
	SortOrder        int               `json:"sort_order"`
	FittingCompleted bool              `json:"fitting_completed"`
	Notes            *string           `json:"notes"`
}

func (in MemberInput) model(orderID uuid.UUID) (models.OrderMember, error) {
	member := models.OrderMember{
		OrderID:          orderID,
		FirstName:        strings.TrimSpace(in.FirstName),
		LastName:         strings.TrimSpace(in.LastName),
		Role:             in.Role,
		Email:            optional(in.Email),
		Phone:            optional(in.Phone),
		SortOrder:        in.SortOrder,
		FittingCompleted: in.FittingCompleted,
		Notes:            optional(in.Notes),
	}
	if member.FirstName == "" || member.LastName == "" {
		return member, invalid("member first and last name are required")
	}
	if member.Role == "" {
		member.Role = models.RoleGroomsman
	}
	if !member.Role.Valid() {
		return member, invalid("unknown member role " + string(member.Role))
	}
	return member, nil
}

// MemberPatch carries only the member fields to change.
type MemberPatch struct {
	FirstName        *string            `json:"first_name"`
	LastName         *string            `json:"last_name"`
	Role             *models.MemberRole `json:"role"`
	Email            *string            `json:"email"`
	Phone            *string            `json:"phone"`
	SortOrder        *int               `json:"sort_order"`
	FittingCompleted *bool              `json:"fitting_completed"`
	Notes            *string            `json:"notes"`
}

func (p MemberPatch) columns() (map[string]any, error) {
	updates := map[string]any{}
	for column, value := range map[string]*string{"first_name": p.FirstName, "last_name": p.LastName} {
		if value == nil {
			continue
		}
		v := strings.TrimSpace(*value)
		if v == "" {
			return nil, invalid(strings.ReplaceAll(column, "_", " ") + " cannot be blank")
		}
		updates[column] = v
	}
	if p.Role != nil {
		if !p.Role.Valid() {
			return nil, invalid("unknown member role " + string(*p.Role))
		}
		updates["role"] = *p.Role
	}
	if p.Email != nil {
		updates["email"] = patchValue(p.Email)
	}
	if p.Phone != nil {
		updates["phone"] = patchValue(p.Phone)
	}
	if p.Notes != nil {
		updates["notes"] = patchValue(p.Notes)
	}
	if p.SortOrder != nil {
		updates["sort_order"] = *p.SortOrder
	}
	if p.FittingCompleted != nil {
		updates["fitting_completed"] = *p.FittingCompleted
	}
	return updates, nil
}

// OrderService implements order and party member persistence.
type OrderService struct {
	db       *gorm.DB
	activity *ActivityLogger
	now      func() time.Time
}

// NewOrderService constructs OrderService.
func NewOrderService(db *gorm.DB, activity *ActivityLogger) *OrderService {
	return &OrderService{db: db, activity: activity, now: time.Now}
}

func (s *OrderService) today() time.Time {
	return DateOnly(s.now())
}

func (s *OrderService) filtered(ctx context.Context, f OrderFilters) *gorm.DB {
	q := s.db.WithContext(ctx).Table("orders").
		Joins("JOIN customers ON customers.id = orders.customer_id")

	if f.Search != "" {
		p := containsPattern(f.Search)
		q = q.Where("LOWER(orders.order_number) LIKE ? OR LOWER(customers.first_name || ' ' || customers.last_name) LIKE ? OR LOWER(orders.wedding_venue) LIKE ?", p, p, p)
	}

	today := s.today()
	switch f.Status {
	case "":
	case DisplayNoDeposit:
		q = q.Where("orders.status = ?", models.OrderStatusDraft)
	case DisplayActive:
		q = q.Where("orders.status IN ? AND (orders.wedding_date >= ? OR orders.wedding_date IS NULL)", liveStatuses, today)
	case DisplayPast:
		q = q.Where("orders.status IN ? OR (orders.status IN ? AND orders.wedding_date < ?)",
			[]models.OrderStatus{models.OrderStatusCompleted, models.OrderStatusCancelled}, liveStatuses, today)
	default:
		q = q.Where("orders.status = ?", f.Status)
	}

	if f.CustomerID != nil {
		q = q.Where("orders.customer_id = ?", *f.CustomerID)
	}
	if f.FunctionType != "" {
		q = q.Where("orders.function_type = ?", f.FunctionType)
	}
	if f.WeddingDateFrom != nil {
		q = q.Where("orders.wedding_date >= ?", DateOnly(*f.WeddingDateFrom))
	}
	if f.WeddingDateTo != nil {
		q = q.Where("orders.wedding_date <= ?", DateOnly(*f.WeddingDateTo))
	}
	return q
}

func (s *OrderService) withDisplayStatus(rows []OrderSummary) []OrderSummary {
	today := s.today()
	for i := range rows {
		rows[i].DisplayStatus = DisplayStatus(rows[i].Status, rows[i].WeddingDate, today)
	}
	return rows
}

// List returns one page of order summaries by wedding date, then customer name.
func (s *OrderService) List(ctx context.Context, page, limit int, f OrderFilters) (Page[OrderSummary], error) {
	pg := utils.NewPagination(page, limit)

	var total int64
	if err := s.filtered(ctx, f).Count(&total).Error; err != nil {
		return Page[OrderSummary]{}, failed("fetch orders", err)
	}

	var rows []OrderSummary
	if err := s.filtered(ctx, f).
		Select(orderSummaryColumns).
		Order("orders.wedding_date asc").
		Order("customer_name asc").
		Limit(pg.Limit).Offset(pg.Offset).
		Scan(&rows).Error; err != nil {
		return Page[OrderSummary]{}, failed("fetch orders", err)
	}

	s.activity.Log(ctx, Activity{
		Action:      models.ActionView,
		EntityType:  "order_list",
		Description: "Viewed order list",
		Details: map[string]any{
			"filters": f,
			"page":    pg.Page,
			"limit":   pg.Limit,
			"total":   total,
		},
	})

	return newPage(s.withDisplayStatus(rows), total, pg), nil
}

func (s *OrderService) find(ctx context.Context, db *gorm.DB, id uuid.UUID) (models.Order, error) {
	var order models.Order
	err := db.WithContext(ctx).First(&order, "id = ?", id).Error
	return order, lookupErr("order", err)
}

// GetByID returns a single order.
func (s *OrderService) GetByID(ctx context.Context, id uuid.UUID) (models.Order, error) {
	order, err := s.find(ctx, s.db, id)
	if err != nil {
		return models.Order{}, failed("fetch order", err)
	}

	s.activity.Log(ctx, Activity{
		Action:      models.ActionView,
		EntityType:  "order",
		EntityID:    idPtr(id),
		EntityName:  order.OrderNumber,
		Description: "Viewed order: " + order.OrderNumber,
	})
	return order, nil
}

// GetWithMembers returns the order with its customer and every member's
// garments and measurements.
func (s *OrderService) GetWithMembers(ctx context.Context, id uuid.UUID) (models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).
		Preload("Customer").
		Preload("Members", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order asc, created_at asc") }).
		Preload("Members.Garments.Garment.Category").
		Preload("Members.Sizes", func(db *gorm.DB) *gorm.DB { return db.Order("measured_at desc") }).
		First(&order, "id = ?", id).Error
	if err != nil {
		return models.Order{}, failed("fetch order with members", lookupErr("order", err))
	}

	for i := range order.Members {
		order.Members[i].MeasurementsTaken = len(order.Members[i].Sizes) > 0
		order.Members[i].OutfitAssigned = len(order.Members[i].Garments) > 0
	}
	return order, nil
}

func (s *OrderService) stampCompletion(order *models.Order) {
	if order.Status == models.OrderStatusCompleted {
		now := s.now().UTC()
		order.CompletedAt = &now
	}
}

// Create allocates an order number and inserts the order.
func (s *OrderService) Create(ctx context.Context, in OrderInput) (models.Order, error) {
	order, err := in.model()
	if err != nil {
		return models.Order{}, failed("create order", err)
	}

	number, err := procedures.GenerateOrderNumber(ctx, s.db, s.now())
	if err != nil {
		return models.Order{}, failed("generate order number", err)
	}
	order.OrderNumber = number
	s.stampCompletion(&order)

	if err := s.db.WithContext(ctx).Create(&order).Error; err != nil {
		return models.Order{}, failed("create order", err)
	}

	s.activity.Log(ctx, Activity{
		Action:      models.ActionCreate,
		EntityType:  "order",
		EntityID:    idPtr(order.ID),
		EntityName:  order.OrderNumber,
		Description: "Created order: " + order.OrderNumber,
		Details:     map[string]any{"orderData": in, "order_number": number},
	})
	return order, nil
}

// Update applies the provided fields of patch. Entering completed stamps
// completed_at; leaving it clears the stamp.
func (s *OrderService) Update(ctx context.Context, id uuid.UUID, patch OrderPatch) (models.Order, error) {
	current, err := s.find(ctx, s.db, id)
	if err != nil {
		return models.Order{}, failed("update order", err)
	}

	updates := map[string]any{}
	if patch.CustomerID != nil {
		updates["customer_id"] = *patch.CustomerID
	}
	if patch.ClearWeddingDate {
		updates["wedding_date"] = nil
	} else if patch.WeddingDate != nil {
		updates["wedding_date"] = DateOnly(*patch.WeddingDate)
	}
	if patch.WeddingVenue != nil {
		updates["wedding_venue"] = patchValue(patch.WeddingVenue)
	}
	if patch.WeddingTime != nil {
		updates["wedding_time"] = patchValue(patch.WeddingTime)
	}
	if patch.FunctionType != nil {
		if !patch.FunctionType.Valid() {
			return models.Order{}, failed("update order", invalid("unknown function type "+string(*patch.FunctionType)))
		}
		updates["function_type"] = *patch.FunctionType
	}
	if patch.Status != nil {
		next := *patch.Status
		if !next.Valid() {
			return models.Order{}, failed("update order", invalid("unknown order status "+string(next)))
		}
		updates["status"] = next
		switch {
		case next == models.OrderStatusCompleted && current.Status != models.OrderStatusCompleted:
			updates["completed_at"] = s.now().UTC()
		case next != models.OrderStatusCompleted && current.Status == models.OrderStatusCompleted:
			updates["completed_at"] = nil
		}
	}
	if patch.TotalMembers != nil {
		if *patch.TotalMembers < 1 {
			return models.Order{}, failed("update order", invalid("total members must be at least 1"))
		}
		updates["total_members"] = *patch.TotalMembers
	}
	if patch.SpecialRequirements != nil {
		updates["special_requirements"] = patchValue(patch.SpecialRequirements)
	}
	if patch.InternalNotes != nil {
		updates["internal_notes"] = patchValue(patch.InternalNotes)
	}

	if len(updates) > 0 {
		res := s.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return models.Order{}, failed("update order", res.Error)
		}
		if res.RowsAffected == 0 {
			return models.Order{}, failed("update order", notFound("order"))
		}
	}

	order, err := s.find(ctx, s.db, id)
	if err != nil {
		return models.Order{}, failed("update order", err)
	}

	s.activity.Log(ctx, Activity{
		Action:      models.ActionUpdate,
		EntityType:  "order",
		EntityID:    idPtr(id),
		EntityName:  order.OrderNumber,
		Description: "Updated order: " + order.OrderNumber,
		Details:     map[string]any{"updates": patch},
	})
	return order, nil
}

// Delete removes an order with its members, assignments and sizes.
func (s *OrderService) Delete(ctx context.Context, id uuid.UUID) error {
	order, err := s.find(ctx, s.db, id)
	if err != nil {
		return failed("delete order", err)
	}

	if err := s.db.WithContext(ctx).Delete(&models.Order{}, "id = ?", id).Error; err != nil {
		return failed("delete order", err)
	}

	s.activity.Log(ctx, Activity{
		Action:      models.ActionDelete,
		EntityType:  "order",
		EntityID:    idPtr(id),
		EntityName:  order.OrderNumber,
		Description: "Deleted order: " + order.OrderNumber,
	})
	return nil
}

// Search returns up to limit order summaries whose number, customer name or
// venue contains query.
func (s *OrderService) Search(ctx context.Context, query string, limit int) ([]OrderSummary, error) {
	rows := []OrderSummary{}
	if strings.TrimSpace(query) == "" {
		return rows, nil
	}
	if limit <= 0 {
		limit = 10
	}

	if err := s.filtered(ctx, OrderFilters{Search: query}).
		Select(orderSummaryColumns).
		Order("orders.wedding_date asc").
		Limit(limit).
		Scan(&rows).Error; err != nil {
		return nil, failed("search orders", err)
	}
	return s.withDisplayStatus(rows), nil
}

// markProgress fills the derived measurement and outfit flags.
func markProgress(ctx context.Context, db *gorm.DB, members []models.OrderMember) error {
	if len(members) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(members))
	for i, m := range members {
		ids[i] = m.ID
	}

	var measured, dressed []uuid.UUID
	if err := db.WithContext(ctx).Model(&models.MemberSize{}).
		Distinct("member_id").Where("member_id IN ?", ids).
		Pluck("member_id", &measured).Error; err != nil {
		return err
	}
	if err := db.WithContext(ctx).Model(&models.MemberGarment{}).
		Distinct("member_id").Where("member_id IN ?", ids).
		Pluck("member_id", &dressed).Error; err != nil {
		return err
	}

	has := func(set []uuid.UUID, id uuid.UUID) bool {
		for _, v := range set {
			if v == id {
				return true
			}
		}
		return false
	}
	for i := range members {
		members[i].MeasurementsTaken = has(measured, members[i].ID)
		members[i].OutfitAssigned = has(dressed, members[i].ID)
	}
	return nil
}

// ListMembers returns an order's party in display order.
func (s *OrderService) ListMembers(ctx context.Context, orderID uuid.UUID) ([]models.OrderMember, error) {
	members := []models.OrderMember{}
	if err := s.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("sort_order asc, created_at asc").
		Find(&members).Error; err != nil {
		return nil, failed("fetch order members", err)
	}
	if err := markProgress(ctx, s.db, members); err != nil {
		return nil, failed("fetch order members", err)
	}
	return members, nil
}

// AddMember appends a member to an existing order.
func (s *OrderService) AddMember(ctx context.Context, orderID uuid.UUID, in MemberInput) (models.OrderMember, error) {
	member, err := in.model(orderID)
	if err != nil {
		return models.OrderMember{}, failed("add order member", err)
	}
	if _, err := s.find(ctx, s.db, orderID); err != nil {
		return models.OrderMember{}, failed("add order member", err)
	}

	if err := s.db.WithContext(ctx).Create(&member).Error; err != nil {
		return models.OrderMember{}, failed("add order member", err)
	}

	s.activity.Log(ctx, Activity{
		Action:      models.ActionCreate,
		EntityType:  "order_member",
		EntityID:    idPtr(member.ID),
		EntityName:  member.FullName(),
		Description: "Added member: " + member.FullName() + " to order",
		Details:     map[string]any{"memberData": in},
	})
	return member, nil
}

func (s *OrderService) findMember(ctx context.Context, id uuid.UUID) (models.OrderMember, error) {
	var member models.OrderMember
	err := s.db.WithContext(ctx).First(&member, "id = ?", id).Error
	return member, lookupErr("order member", err)
}

// UpdateMember applies the provided fields of patch to a member.
func (s *OrderService) UpdateMember(ctx context.Context, id uuid.UUID, patch MemberPatch) (models.OrderMember, error) {
	updates, err := patch.columns()
	if err != nil {
		return models.OrderMember{}, failed("update order member", err)
	}

	if len(updates) > 0 {
		res := s.db.WithContext(ctx).Model(&models.OrderMember{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return models.OrderMember{}, failed("update order member", res.Error)
		}
		if res.RowsAffected == 0 {
			return models.OrderMember{}, failed("update order member", notFound("order member"))
		}
	}

	member, err := s.findMember(ctx, id)
	if err != nil {
		return models.OrderMember{}, failed("update order member", err)
	}
	members := []models.OrderMember{member}
	if err := markProgress(ctx, s.db, members); err != nil {
		return models.OrderMember{}, failed("update order member", err)
	}

	s.activity.Log(ctx, Activity{
		Action:      models.ActionUpdate,
		EntityType:  "order_member",
		EntityID:    idPtr(id),
		EntityName:  member.FullName(),
		Description: "Updated member: " + member.FullName(),
		Details:     map[string]any{"updates": patch},
	})
	return members[0], nil
}

// DeleteMember removes a member with their assignments and sizes.
func (s *OrderService) DeleteMember(ctx context.Context, id uuid.UUID) error {
	member, err := s.findMember(ctx, id)
	if err != nil {
		return failed("delete order member", err)
	}

	if err := s.db.WithContext(ctx).Delete(&models.OrderMember{}, "id = ?", id).Error; err != nil {
		return failed("delete order member", err)
	}

	s.activity.Log(ctx, Activity{
		Action:      models.ActionDelete,
		EntityType:  "order_member",
		EntityID:    idPtr(id),
		EntityName:  member.FullName(),
		Description: "Deleted member: " + member.FullName(),
	})
	return nil
}

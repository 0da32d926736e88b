package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/blacktie/internal/models"
	"github.com/example/blacktie/internal/utils"
)

// CustomerFilters narrows the customer list. Every field is a
// case-insensitive substring match; Search is OR-combined across names,
// email and phone.
type CustomerFilters struct {
	Search   string `json:"search,omitempty"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	City     string `json:"city,omitempty"`
	County   string `json:"county,omitempty"`
	Postcode string `json:"postcode,omitempty"`
}

// CustomerInput is the payload for a new customer.
type CustomerInput struct {
	FirstName    string  `json:"first_name" validate:"required,max=100"`
	LastName     string  `json:"last_name" validate:"required,max=100"`
	Email        *string `json:"email" validate:"omitempty,email"`
	Phone        *string `json:"phone" validate:"omitempty,min=10,max=20"`
	AddressLine1 *string `json:"address_line_1"`
	AddressLine2 *string `json:"address_line_2"`
	City         *string `json:"city"`
	County       *string `json:"county"`
	Postcode     *string `json:"postcode" validate:"omitempty,uk_postcode"`
	Country      *string `json:"country"`
	Notes        *string `json:"notes"`
}

// CustomerPatch carries only the fields to change. A provided empty string
// clears a nullable column. Its required tags do not apply; use
// ValidateContact for the fields a patch may set.
type CustomerPatch CustomerInput

type contact struct {
	Email    *string `json:"email" validate:"omitempty,email"`
	Phone    *string `json:"phone" validate:"omitempty,min=10,max=20"`
	Postcode *string `json:"postcode" validate:"omitempty,uk_postcode"`
}

// ValidateContact checks the contact fields a patch may set. Nil or blank
// values are skipped.
func ValidateContact(email, phone, postcode *string) utils.FieldErrors {
	return utils.ValidateStruct(contact{Email: email, Phone: phone, Postcode: postcode})
}

func (p CustomerPatch) columns() (map[string]any, error) {
	updates := map[string]any{}
	if p.FirstName != "" {
		updates["first_name"] = strings.TrimSpace(p.FirstName)
	}
	if p.LastName != "" {
		updates["last_name"] = strings.TrimSpace(p.LastName)
	}
	if updates["first_name"] == "" || updates["last_name"] == "" {
		return nil, invalid("first and last name cannot be blank")
	}
	nullable := map[string]*string{
		"email":          p.Email,
		"phone":          p.Phone,
		"address_line_1": p.AddressLine1,
		"address_line_2": p.AddressLine2,
		"city":           p.City,
		"county":         p.County,
		"postcode":       p.Postcode,
		"notes":          p.Notes,
	}
	for column, value := range nullable {
		if value != nil {
			updates[column] = patchValue(value)
		}
	}
	if p.Country != nil {
		country := strings.TrimSpace(*p.Country)
		if country == "" {
			country = models.DefaultCountry
		}
		updates["country"] = country
	}
	return updates, nil
}

// OrderHistoryEntry is one order in a customer's history.
type OrderHistoryEntry struct {
	ID            uuid.UUID          `json:"id"`
	OrderNumber   string             `json:"order_number"`
	WeddingDate   *time.Time         `json:"wedding_date"`
	WeddingVenue  *string            `json:"wedding_venue"`
	Status        models.OrderStatus `json:"status"`
	TotalMembers  int                `json:"total_members"`
	ActualMembers int                `json:"actual_members"`
	CustomerName  string             `json:"customer_name"`
	CreatedAt     time.Time          `json:"created_at"`
}

// MemberOrderEntry is an order where the customer appears in the party.
type MemberOrderEntry struct {
	MemberID uuid.UUID         `json:"member_id"`
	Role     models.MemberRole `json:"role"`
	Order    OrderHistoryEntry `json:"order"`
}

// CustomerHistory is a customer with the orders they booked and the
// orders they were part of.
type CustomerHistory struct {
	Customer     models.Customer     `json:"customer"`
	OwnOrders    []OrderHistoryEntry `json:"own_orders"`
	MemberOrders []MemberOrderEntry  `json:"member_orders"`
}

// CustomerService implements customer persistence and search.
type CustomerService struct {
	db       *gorm.DB
	activity *ActivityLogger
}

// NewCustomerService constructs CustomerService.
func NewCustomerService(db *gorm.DB, activity *ActivityLogger) *CustomerService {
	return &CustomerService{db: db, activity: activity}
}

func (s *CustomerService) filtered(ctx context.Context, f CustomerFilters) *gorm.DB {
	q := s.db.WithContext(ctx).Model(&models.Customer{})

	if f.Search != "" {
		p := containsPattern(f.Search)
		q = q.Where("LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(phone) LIKE ?", p, p, p, p)
	}
	for column, value := range map[string]string{
		"email":    f.Email,
		"phone":    f.Phone,
		"city":     f.City,
		"county":   f.County,
		"postcode": f.Postcode,
	} {
		if value != "" {
			q = q.Where("LOWER("+column+") LIKE ?", containsPattern(value))
		}
	}
	return q
}

// List returns one page of customers, newest first.
func (s *CustomerService) List(ctx context.Context, page, limit int, f CustomerFilters) (Page[models.Customer], error) {
	pg := utils.NewPagination(page, limit)

	var total int64
	if err := s.filtered(ctx, f).Count(&total).Error; err != nil {
		return Page[models.Customer]{}, failed("fetch customers", err)
	}

	var customers []models.Customer
	if err := s.filtered(ctx, f).
		Order("created_at desc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&customers).Error; err != nil {
		return Page[models.Customer]{}, failed("fetch customers", err)
	}

	s.activity.Log(ctx, Activity{
		Action:      models.ActionView,
		EntityType:  "customer_list",
		Description: "Viewed customer list",
		Details: map[string]any{
			"filters": f,
			"page":    pg.Page,
			"limit":   pg.Limit,
			"total":   total,
		},
	})

	return newPage(customers, total, pg), nil
}

func (s *CustomerService) find(ctx context.Context, id uuid.UUID) (models.Customer, error) {
	var customer models.Customer
	err := s.db.WithContext(ctx).First(&customer, "id = ?", id).Error
	return customer, lookupErr("customer", err)
}

// GetByID returns a single customer.
func (s *CustomerService) GetByID(ctx context.Context, id uuid.UUID) (models.Customer, error) {
	customer, err := s.find(ctx, id)
	if err != nil {
		return models.Customer{}, failed("fetch customer", err)
	}

	s.activity.Log(ctx, Activity{
		Action:      models.ActionView,
		EntityType:  "customer",
		EntityID:    idPtr(id),
		EntityName:  customer.FullName(),
		Description: "Viewed customer: " + customer.FullName(),
	})
	return customer, nil
}

// FullName looks up a customer's name without recording a view.
func (s *CustomerService) FullName(ctx context.Context, id uuid.UUID) (string, error) {
	customer, err := s.find(ctx, id)
	if err != nil {
		return "", failed("fetch customer", err)
	}
	return customer.FullName(), nil
}

// Create inserts a new customer.
func (s *CustomerService) Create(ctx context.Context, in CustomerInput) (models.Customer, error) {
	customer := models.Customer{
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Email:        optional(in.Email),
		Phone:        optional(in.Phone),
		AddressLine1: optional(in.AddressLine1),
		AddressLine2: optional(in.AddressLine2),
		City:         optional(in.City),
		County:       optional(in.County),
		Postcode:     optional(in.Postcode),
		Country:      models.DefaultCountry,
		Notes:        optional(in.Notes),
	}
	if c := optional(in.Country); c != nil {
		customer.Country = *c
	}
	if customer.FirstName == "" || customer.LastName == "" {
		return models.Customer{}, failed("create customer", invalid("first and last name are required"))
	}

	if err := s.db.WithContext(ctx).Create(&customer).Error; err != nil {
		return models.Customer{}, failed("create customer", err)
	}

	s.activity.Log(ctx, Activity{
		Action:      models.ActionCreate,
		EntityType:  "customer",
		EntityID:    idPtr(customer.ID),
		EntityName:  customer.FullName(),
		Description: "Created customer: " + customer.FullName(),
		Details:     map[string]any{"customerData": in},
	})
	return customer, nil
}

// Update applies the provided fields of patch.
func (s *CustomerService) Update(ctx context.Context, id uuid.UUID, patch CustomerPatch) (models.Customer, error) {
	updates, err := patch.columns()
	if err != nil {
		return models.Customer{}, failed("update customer", err)
	}

	if len(updates) > 0 {
		res := s.db.WithContext(ctx).Model(&models.Customer{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return models.Customer{}, failed("update customer", res.Error)
		}
		if res.RowsAffected == 0 {
			return models.Customer{}, failed("update customer", notFound("customer"))
		}
	}

	customer, err := s.find(ctx, id)
	if err != nil {
		return models.Customer{}, failed("update customer", err)
	}

	s.activity.Log(ctx, Activity{
		Action:      models.ActionUpdate,
		EntityType:  "customer",
		EntityID:    idPtr(id),
		EntityName:  customer.FullName(),
		Description: "Updated customer: " + customer.FullName(),
		Details:     map[string]any{"updates": patch},
	})
	return customer, nil
}

// Delete removes a customer; their orders go with them.
func (s *CustomerService) Delete(ctx context.Context, id uuid.UUID) error {
	customer, err := s.find(ctx, id)
	if err != nil {
		return failed("delete customer", err)
	}

	if err := s.db.WithContext(ctx).Delete(&models.Customer{}, "id = ?", id).Error; err != nil {
		return failed("delete customer", err)
	}

	s.activity.Log(ctx, Activity{
		Action:      models.ActionDelete,
		EntityType:  "customer",
		EntityID:    idPtr(id),
		EntityName:  customer.FullName(),
		Description: "Deleted customer: " + customer.FullName(),
	})
	return nil
}

// Search returns up to limit customers matching query, newest first. A blank
// query yields an empty list.
func (s *CustomerService) Search(ctx context.Context, query string, limit int) ([]models.Customer, error) {
	customers := []models.Customer{}
	if strings.TrimSpace(query) == "" {
		return customers, nil
	}
	if limit <= 0 {
		limit = 10
	}

	if err := s.filtered(ctx, CustomerFilters{Search: query}).
		Order("created_at desc").
		Limit(limit).
		Find(&customers).Error; err != nil {
		return nil, failed("search customers", err)
	}
	return customers, nil
}

// OrderHistory returns the customer's own orders and the orders where they
// appear as a party member, matched by email or by full name.
func (s *CustomerService) OrderHistory(ctx context.Context, id uuid.UUID) (CustomerHistory, error) {
	customer, err := s.find(ctx, id)
	if err != nil {
		return CustomerHistory{}, failed("fetch customer order history", err)
	}

	history := CustomerHistory{
		Customer:     customer,
		OwnOrders:    []OrderHistoryEntry{},
		MemberOrders: []MemberOrderEntry{},
	}

	if err := orderSummaryQuery(s.db.WithContext(ctx)).
		Where("orders.customer_id = ?", id).
		Order("orders.created_at desc").
		Scan(&history.OwnOrders).Error; err != nil {
		return CustomerHistory{}, failed("fetch customer own orders", err)
	}

	var rows []struct {
		MemberID uuid.UUID
		Role     models.MemberRole
		OrderHistoryEntry
	}
	q := orderSummaryQuery(s.db.WithContext(ctx)).
		Select(orderSummaryColumns+", m.id AS member_id, m.role AS role").
		Joins("JOIN order_members m ON m.order_id = orders.id")
	if customer.Email != nil {
		q = q.Where("LOWER(m.email) = LOWER(?) OR (m.first_name = ? AND m.last_name = ?)", *customer.Email, customer.FirstName, customer.LastName)
	} else {
		q = q.Where("m.first_name = ? AND m.last_name = ?", customer.FirstName, customer.LastName)
	}
	if err := q.Order("orders.created_at desc").Scan(&rows).Error; err != nil {
		utils.ErrorLogger.Warnf("failed to fetch customer member orders: %v", err)
		return history, nil
	}
	for _, r := range rows {
		history.MemberOrders = append(history.MemberOrders, MemberOrderEntry{
			MemberID: r.MemberID,
			Role:     r.Role,
			Order:    r.OrderHistoryEntry,
		})
	}

	return history, nil
}

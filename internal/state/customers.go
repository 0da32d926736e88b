package state

import (
	"context"

	"github.com/google/uuid"

	"github.com/example/blacktie/internal/models"
	"github.com/example/blacktie/internal/services"
	"github.com/example/blacktie/internal/utils"
)

// DefaultSearchLimit caps quick searches that do not name a limit.
const DefaultSearchLimit = 10

// CustomerAPI is the customer service surface the containers need.
type CustomerAPI interface {
	List(ctx context.Context, page, limit int, f services.CustomerFilters) (services.Page[models.Customer], error)
	GetByID(ctx context.Context, id uuid.UUID) (models.Customer, error)
	Create(ctx context.Context, in services.CustomerInput) (models.Customer, error)
	Update(ctx context.Context, id uuid.UUID, patch services.CustomerPatch) (models.Customer, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, query string, limit int) ([]models.Customer, error)
}

// CustomerList is a page of customers.
type CustomerList struct {
	list[models.Customer, services.CustomerFilters]
	api CustomerAPI
}

func NewCustomerList(api CustomerAPI, opts ListOptions[services.CustomerFilters]) *CustomerList {
	return &CustomerList{list: newList[models.Customer](api.List, opts), api: api}
}

// Create stores a new customer and reloads the page so it shows up.
func (l *CustomerList) Create(ctx context.Context, in services.CustomerInput) (models.Customer, error) {
	created, err := mutate(&l.tracker, func() (models.Customer, error) {
		return l.api.Create(ctx, in)
	}, nil)
	if err != nil {
		return created, err
	}
	_ = l.Fetch(ctx)
	return created, nil
}

// Update saves patch and swaps the stored row into the page.
func (l *CustomerList) Update(ctx context.Context, id uuid.UUID, patch services.CustomerPatch) (models.Customer, error) {
	return mutate(&l.tracker, func() (models.Customer, error) {
		return l.api.Update(ctx, id, patch)
	}, func(c models.Customer) {
		replaceWhere(l.items, func(it models.Customer) bool { return it.ID == id }, c)
	})
}

// Delete removes the customer and drops it from the page.
func (l *CustomerList) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := mutate(&l.tracker, func() (struct{}, error) {
		return struct{}{}, l.api.Delete(ctx, id)
	}, func(struct{}) {
		l.dropped(func(it models.Customer) bool { return it.ID == id })
	})
	return err
}

// Search is a quick lookup outside the paged list. Failures yield no
// results and leave the list untouched.
func (l *CustomerList) Search(ctx context.Context, query string, limit int) []models.Customer {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	found, err := l.api.Search(ctx, query, limit)
	if err != nil {
		utils.ErrorLogger.WithError(err).WithField("query", query).Error("customer search failed")
		return []models.Customer{}
	}
	return found
}

// CustomerDetail is one customer record.
type CustomerDetail struct {
	tracker
	api      CustomerAPI
	id       uuid.UUID
	customer *models.Customer
}

func NewCustomerDetail(api CustomerAPI, id uuid.UUID) *CustomerDetail {
	return &CustomerDetail{api: api, id: id}
}

func (d *CustomerDetail) Fetch(ctx context.Context) error {
	if d.id == uuid.Nil {
		return nil
	}
	_, err := track(&d.tracker, func() (models.Customer, error) {
		return d.api.GetByID(ctx, d.id)
	}, func(c models.Customer) { d.customer = &c })
	return err
}

func (d *CustomerDetail) Update(ctx context.Context, patch services.CustomerPatch) (models.Customer, error) {
	if d.id == uuid.Nil {
		return models.Customer{}, errNoID
	}
	return mutate(&d.tracker, func() (models.Customer, error) {
		return d.api.Update(ctx, d.id, patch)
	}, func(c models.Customer) { d.customer = &c })
}

func (d *CustomerDetail) Delete(ctx context.Context) error {
	if d.id == uuid.Nil {
		return errNoID
	}
	_, err := mutate(&d.tracker, func() (struct{}, error) {
		return struct{}{}, d.api.Delete(ctx, d.id)
	}, func(struct{}) { d.customer = nil })
	return err
}

// Customer returns the loaded record, if any.
func (d *CustomerDetail) Customer() (models.Customer, bool) {
	var (
		c  models.Customer
		ok bool
	)
	d.read(func() {
		if d.customer != nil {
			c, ok = *d.customer, true
		}
	})
	return c, ok
}

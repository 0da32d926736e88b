package state

import (
	"context"

	"github.com/google/uuid"

	"github.com/example/blacktie/internal/models"
	"github.com/example/blacktie/internal/services"
	"github.com/example/blacktie/internal/utils"
)

// OrderAPI is the order service surface the containers need.
type OrderAPI interface {
	List(ctx context.Context, page, limit int, f services.OrderFilters) (services.Page[services.OrderSummary], error)
	GetByID(ctx context.Context, id uuid.UUID) (models.Order, error)
	GetWithMembers(ctx context.Context, id uuid.UUID) (models.Order, error)
	Create(ctx context.Context, in services.OrderInput) (models.Order, error)
	Update(ctx context.Context, id uuid.UUID, patch services.OrderPatch) (models.Order, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, query string, limit int) ([]services.OrderSummary, error)
	AddMember(ctx context.Context, orderID uuid.UUID, in services.MemberInput) (models.OrderMember, error)
	UpdateMember(ctx context.Context, id uuid.UUID, patch services.MemberPatch) (models.OrderMember, error)
	DeleteMember(ctx context.Context, id uuid.UUID) error
}

// OrderList is a page of order summaries.
type OrderList struct {
	list[services.OrderSummary, services.OrderFilters]
	api OrderAPI
}

func NewOrderList(api OrderAPI, opts ListOptions[services.OrderFilters]) *OrderList {
	return &OrderList{list: newList[services.OrderSummary](api.List, opts), api: api}
}

// Create stores a new order and reloads the page.
func (l *OrderList) Create(ctx context.Context, in services.OrderInput) (models.Order, error) {
	created, err := mutate(&l.tracker, func() (models.Order, error) {
		return l.api.Create(ctx, in)
	}, nil)
	if err != nil {
		return created, err
	}
	_ = l.Fetch(ctx)
	return created, nil
}

// Update saves patch and reloads the page.
func (l *OrderList) Update(ctx context.Context, id uuid.UUID, patch services.OrderPatch) (models.Order, error) {
	updated, err := mutate(&l.tracker, func() (models.Order, error) {
		return l.api.Update(ctx, id, patch)
	}, nil)
	if err != nil {
		return updated, err
	}
	_ = l.Fetch(ctx)
	return updated, nil
}

func (l *OrderList) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := mutate(&l.tracker, func() (struct{}, error) {
		return struct{}{}, l.api.Delete(ctx, id)
	}, func(struct{}) {
		l.dropped(func(it services.OrderSummary) bool { return it.ID == id })
	})
	return err
}

// Search is a quick lookup by order number or customer. Failures yield no
// results.
func (l *OrderList) Search(ctx context.Context, query string, limit int) []services.OrderSummary {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	found, err := l.api.Search(ctx, query, limit)
	if err != nil {
		utils.ErrorLogger.WithError(err).WithField("query", query).Error("order search failed")
		return []services.OrderSummary{}
	}
	return found
}

// OrderDetail is one order, optionally with its wedding party.
type OrderDetail struct {
	tracker
	api            OrderAPI
	id             uuid.UUID
	includeMembers bool
	order          *models.Order
	members        []models.OrderMember
}

func NewOrderDetail(api OrderAPI, id uuid.UUID, includeMembers bool) *OrderDetail {
	return &OrderDetail{api: api, id: id, includeMembers: includeMembers, members: []models.OrderMember{}}
}

func (d *OrderDetail) Fetch(ctx context.Context) error {
	if d.id == uuid.Nil {
		return nil
	}
	_, err := track(&d.tracker, func() (models.Order, error) {
		if d.includeMembers {
			return d.api.GetWithMembers(ctx, d.id)
		}
		return d.api.GetByID(ctx, d.id)
	}, func(o models.Order) {
		d.order = &o
		if d.includeMembers {
			d.members = clone(o.Members)
		}
	})
	return err
}

func (d *OrderDetail) Update(ctx context.Context, patch services.OrderPatch) (models.Order, error) {
	if d.id == uuid.Nil {
		return models.Order{}, errNoID
	}
	return mutate(&d.tracker, func() (models.Order, error) {
		return d.api.Update(ctx, d.id, patch)
	}, func(o models.Order) {
		if d.order != nil {
			o.Members = d.order.Members
		}
		d.order = &o
	})
}

func (d *OrderDetail) Delete(ctx context.Context) error {
	if d.id == uuid.Nil {
		return errNoID
	}
	_, err := mutate(&d.tracker, func() (struct{}, error) {
		return struct{}{}, d.api.Delete(ctx, d.id)
	}, func(struct{}) {
		d.order = nil
		d.members = []models.OrderMember{}
	})
	return err
}

func (d *OrderDetail) AddMember(ctx context.Context, in services.MemberInput) (models.OrderMember, error) {
	return mutate(&d.tracker, func() (models.OrderMember, error) {
		return d.api.AddMember(ctx, d.id, in)
	}, func(m models.OrderMember) {
		d.members = append(d.members, m)
	})
}

func (d *OrderDetail) UpdateMember(ctx context.Context, memberID uuid.UUID, patch services.MemberPatch) (models.OrderMember, error) {
	return mutate(&d.tracker, func() (models.OrderMember, error) {
		return d.api.UpdateMember(ctx, memberID, patch)
	}, func(m models.OrderMember) {
		replaceWhere(d.members, func(it models.OrderMember) bool { return it.ID == memberID }, m)
	})
}

func (d *OrderDetail) DeleteMember(ctx context.Context, memberID uuid.UUID) error {
	_, err := mutate(&d.tracker, func() (struct{}, error) {
		return struct{}{}, d.api.DeleteMember(ctx, memberID)
	}, func(struct{}) {
		d.members = removeWhere(d.members, func(it models.OrderMember) bool { return it.ID == memberID })
	})
	return err
}

// Order returns the loaded order, if any.
func (d *OrderDetail) Order() (models.Order, bool) {
	var (
		o  models.Order
		ok bool
	)
	d.read(func() {
		if d.order != nil {
			o, ok = *d.order, true
		}
	})
	return o, ok
}

func (d *OrderDetail) Members() []models.OrderMember {
	var out []models.OrderMember
	d.read(func() { out = clone(d.members) })
	return out
}

package state

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/blacktie/internal/models"
	"github.com/example/blacktie/internal/services"
)

type fakeOrders struct {
	OrderAPI
	listCalls int
	order     models.Order
}

func (f *fakeOrders) List(ctx context.Context, page, limit int, filters services.OrderFilters) (services.Page[services.OrderSummary], error) {
	f.listCalls++
	return services.Page[services.OrderSummary]{
		Items: []services.OrderSummary{{ID: f.order.ID, OrderNumber: f.order.OrderNumber}},
		Total: 1, Page: page, Limit: limit,
	}, nil
}

func (f *fakeOrders) GetWithMembers(ctx context.Context, id uuid.UUID) (models.Order, error) {
	return f.order, nil
}

func (f *fakeOrders) Update(ctx context.Context, id uuid.UUID, patch services.OrderPatch) (models.Order, error) {
	o := f.order
	o.Members = nil
	if patch.Status != nil {
		o.Status = *patch.Status
	}
	return o, nil
}

func (f *fakeOrders) AddMember(ctx context.Context, orderID uuid.UUID, in services.MemberInput) (models.OrderMember, error) {
	m := models.OrderMember{OrderID: orderID, FirstName: in.FirstName, LastName: in.LastName}
	m.ID = uuid.New()
	return m, nil
}

func (f *fakeOrders) UpdateMember(ctx context.Context, id uuid.UUID, patch services.MemberPatch) (models.OrderMember, error) {
	m := models.OrderMember{FirstName: *patch.FirstName, LastName: "Best"}
	m.ID = id
	return m, nil
}

func (f *fakeOrders) DeleteMember(ctx context.Context, id uuid.UUID) error {
	return nil
}

func orderWithGroom() models.Order {
	groom := models.OrderMember{FirstName: "Tom", LastName: "Groom"}
	groom.ID = uuid.New()
	o := models.Order{OrderNumber: "BT-2025-0001", Status: models.OrderStatusDraft, Members: []models.OrderMember{groom}}
	o.ID = uuid.New()
	return o
}

func TestOrderListUpdateRefetches(t *testing.T) {
	api := &fakeOrders{order: orderWithGroom()}
	l := NewOrderList(api, ListOptions[services.OrderFilters]{})
	require.NoError(t, l.Fetch(context.Background()))
	require.Equal(t, 1, api.listCalls)

	status := models.OrderStatusConfirmed
	updated, err := l.Update(context.Background(), api.order.ID, services.OrderPatch{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusConfirmed, updated.Status)
	assert.Equal(t, 2, api.listCalls)
}

func TestOrderDetailManagesParty(t *testing.T) {
	api := &fakeOrders{order: orderWithGroom()}
	d := NewOrderDetail(api, api.order.ID, true)
	ctx := context.Background()

	require.NoError(t, d.Fetch(ctx))
	require.Len(t, d.Members(), 1)

	best, err := d.AddMember(ctx, services.MemberInput{FirstName: "Ben", LastName: "Best"})
	require.NoError(t, err)
	require.Len(t, d.Members(), 2)

	name := "Benjamin"
	_, err = d.UpdateMember(ctx, best.ID, services.MemberPatch{FirstName: &name})
	require.NoError(t, err)
	assert.Equal(t, "Benjamin", d.Members()[1].FirstName)

	status := models.OrderStatusConfirmed
	_, err = d.Update(ctx, services.OrderPatch{Status: &status})
	require.NoError(t, err)
	order, ok := d.Order()
	require.True(t, ok)
	assert.Equal(t, models.OrderStatusConfirmed, order.Status)
	assert.Len(t, order.Members, 1, "update keeps the loaded party")

	require.NoError(t, d.DeleteMember(ctx, best.ID))
	members := d.Members()
	require.Len(t, members, 1)
	assert.Equal(t, "Tom", members[0].FirstName)
}

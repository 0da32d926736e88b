package state

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/blacktie/internal/models"
	"github.com/example/blacktie/internal/services"
	"github.com/example/blacktie/internal/utils"
)

type fakeCustomers struct {
	mu      sync.Mutex
	calls   []services.CustomerFilters
	pages   []int
	list    func(f services.CustomerFilters) (services.Page[models.Customer], error)
	created  models.Customer
	err      error
	onDelete func(id uuid.UUID)
}

func (f *fakeCustomers) List(ctx context.Context, page, limit int, filters services.CustomerFilters) (services.Page[models.Customer], error) {
	f.mu.Lock()
	f.calls = append(f.calls, filters)
	f.pages = append(f.pages, page)
	f.mu.Unlock()
	return f.list(filters)
}

func (f *fakeCustomers) GetByID(ctx context.Context, id uuid.UUID) (models.Customer, error) {
	if f.err != nil {
		return models.Customer{}, f.err
	}
	return customer(id, "Ada"), nil
}

func (f *fakeCustomers) Create(ctx context.Context, in services.CustomerInput) (models.Customer, error) {
	return f.created, f.err
}

func (f *fakeCustomers) Update(ctx context.Context, id uuid.UUID, patch services.CustomerPatch) (models.Customer, error) {
	if f.err != nil {
		return models.Customer{}, f.err
	}
	return customer(id, patch.FirstName), nil
}

func (f *fakeCustomers) Delete(ctx context.Context, id uuid.UUID) error {
	if f.onDelete != nil {
		f.onDelete(id)
	}
	return f.err
}

func (f *fakeCustomers) Search(ctx context.Context, query string, limit int) ([]models.Customer, error) {
	return nil, f.err
}

func customer(id uuid.UUID, first string) models.Customer {
	c := models.Customer{FirstName: first, LastName: "Lovelace"}
	c.ID = id
	return c
}

func pageOf(total int64, items ...models.Customer) services.Page[models.Customer] {
	return services.Page[models.Customer]{Items: items, Total: total, Page: 1, Limit: 50}
}

func TestListFetchLoadsPage(t *testing.T) {
	id := uuid.New()
	api := &fakeCustomers{list: func(services.CustomerFilters) (services.Page[models.Customer], error) {
		return pageOf(1, customer(id, "Ada")), nil
	}}
	l := NewCustomerList(api, ListOptions[services.CustomerFilters]{AutoFetch: true})

	require.NoError(t, l.Init(context.Background()))

	assert.Len(t, l.Items(), 1)
	assert.EqualValues(t, 1, l.Total())
	assert.Equal(t, 1, l.Page())
	assert.Equal(t, utils.DefaultLimit, l.Limit())
	assert.False(t, l.Loading())
}

func TestSetFiltersResetsToFirstPage(t *testing.T) {
	api := &fakeCustomers{list: func(services.CustomerFilters) (services.Page[models.Customer], error) {
		return pageOf(0), nil
	}}
	l := NewCustomerList(api, ListOptions[services.CustomerFilters]{Page: 3, AutoFetch: true})
	ctx := context.Background()

	require.NoError(t, l.SetPage(ctx, 4))
	require.NoError(t, l.SetFilters(ctx, services.CustomerFilters{City: "Leeds"}))

	assert.Equal(t, []int{4, 1}, api.pages)
	assert.Equal(t, "Leeds", api.calls[1].City)
	assert.Equal(t, 1, l.Page())
}

func TestSetPageWithoutAutoFetchDoesNotLoad(t *testing.T) {
	api := &fakeCustomers{list: func(services.CustomerFilters) (services.Page[models.Customer], error) {
		return pageOf(0), nil
	}}
	l := NewCustomerList(api, ListOptions[services.CustomerFilters]{})

	require.NoError(t, l.Init(context.Background()))
	require.NoError(t, l.SetPage(context.Background(), 2))

	assert.Empty(t, api.calls)
	assert.Equal(t, 2, l.Page())
}

func TestStaleFetchIsDiscarded(t *testing.T) {
	slowStarted := make(chan struct{})
	releaseSlow := make(chan struct{})
	slowID, fastID := uuid.New(), uuid.New()

	api := &fakeCustomers{list: func(f services.CustomerFilters) (services.Page[models.Customer], error) {
		if f.Search == "slow" {
			close(slowStarted)
			<-releaseSlow
			return pageOf(1, customer(slowID, "Slow")), nil
		}
		return pageOf(1, customer(fastID, "Fast")), nil
	}}
	l := NewCustomerList(api, ListOptions[services.CustomerFilters]{AutoFetch: true})
	ctx := context.Background()

	done := make(chan error)
	go func() { done <- l.SetFilters(ctx, services.CustomerFilters{Search: "slow"}) }()
	<-slowStarted

	require.NoError(t, l.SetFilters(ctx, services.CustomerFilters{Search: "fast"}))
	assert.False(t, l.Loading())

	close(releaseSlow)
	require.NoError(t, <-done)

	items := l.Items()
	require.Len(t, items, 1)
	assert.Equal(t, fastID, items[0].ID)
	assert.False(t, l.Loading())
}

func TestStaleResponseDoesNotClearNewerLoading(t *testing.T) {
	firstStarted := make(chan struct{})
	releaseFirst := make(chan struct{})
	secondStarted := make(chan struct{})
	releaseSecond := make(chan struct{})

	api := &fakeCustomers{list: func(f services.CustomerFilters) (services.Page[models.Customer], error) {
		if f.Search == "first" {
			close(firstStarted)
			<-releaseFirst
		} else {
			close(secondStarted)
			<-releaseSecond
		}
		return pageOf(0), nil
	}}
	l := NewCustomerList(api, ListOptions[services.CustomerFilters]{AutoFetch: true})
	ctx := context.Background()

	first := make(chan error)
	second := make(chan error)
	go func() { first <- l.SetFilters(ctx, services.CustomerFilters{Search: "first"}) }()
	<-firstStarted
	go func() { second <- l.SetFilters(ctx, services.CustomerFilters{Search: "second"}) }()
	<-secondStarted

	close(releaseFirst)
	require.NoError(t, <-first)
	assert.True(t, l.Loading())

	close(releaseSecond)
	require.NoError(t, <-second)
	assert.False(t, l.Loading())
}

func TestFetchFailureSetsError(t *testing.T) {
	api := &fakeCustomers{list: func(services.CustomerFilters) (services.Page[models.Customer], error) {
		return services.Page[models.Customer]{}, errors.New("failed to fetch customers: boom")
	}}
	l := NewCustomerList(api, ListOptions[services.CustomerFilters]{})

	err := l.Fetch(context.Background())

	require.Error(t, err)
	assert.Equal(t, "failed to fetch customers: boom", l.Err())
	assert.False(t, l.Loading())

	l.ClearError()
	assert.Empty(t, l.Err())
}

func TestCreateRefetchesList(t *testing.T) {
	id := uuid.New()
	api := &fakeCustomers{
		created: customer(id, "New"),
		list: func(services.CustomerFilters) (services.Page[models.Customer], error) {
			return pageOf(1, customer(id, "New")), nil
		},
	}
	l := NewCustomerList(api, ListOptions[services.CustomerFilters]{})

	created, err := l.Create(context.Background(), services.CustomerInput{FirstName: "New", LastName: "Lovelace"})

	require.NoError(t, err)
	assert.Equal(t, id, created.ID)
	assert.Len(t, api.calls, 1)
	assert.Len(t, l.Items(), 1)
}

func TestUpdatePatchesLocalRow(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	api := &fakeCustomers{list: func(services.CustomerFilters) (services.Page[models.Customer], error) {
		return pageOf(2, customer(a, "Ada"), customer(b, "Bea")), nil
	}}
	l := NewCustomerList(api, ListOptions[services.CustomerFilters]{})
	ctx := context.Background()
	require.NoError(t, l.Fetch(ctx))

	_, err := l.Update(ctx, b, services.CustomerPatch{FirstName: "Beatrice"})

	require.NoError(t, err)
	items := l.Items()
	assert.Equal(t, "Ada", items[0].FirstName)
	assert.Equal(t, "Beatrice", items[1].FirstName)
	assert.Len(t, api.calls, 1)
}

func TestDeleteDecrementsTotalNotBelowZero(t *testing.T) {
	id := uuid.New()
	api := &fakeCustomers{list: func(services.CustomerFilters) (services.Page[models.Customer], error) {
		return pageOf(0, customer(id, "Ada")), nil
	}}
	l := NewCustomerList(api, ListOptions[services.CustomerFilters]{})
	ctx := context.Background()
	require.NoError(t, l.Fetch(ctx))

	require.NoError(t, l.Delete(ctx, id))

	assert.Empty(t, l.Items())
	assert.EqualValues(t, 0, l.Total())
}

func TestOverlappingDeletesBothApply(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	firstStarted := make(chan struct{})
	releaseFirst := make(chan struct{})

	api := &fakeCustomers{
		list: func(services.CustomerFilters) (services.Page[models.Customer], error) {
			return pageOf(3, customer(a, "Ada"), customer(b, "Bea"), customer(c, "Cal")), nil
		},
		onDelete: func(id uuid.UUID) {
			if id == a {
				close(firstStarted)
				<-releaseFirst
			}
		},
	}
	l := NewCustomerList(api, ListOptions[services.CustomerFilters]{})
	ctx := context.Background()
	require.NoError(t, l.Fetch(ctx))

	first := make(chan error)
	go func() { first <- l.Delete(ctx, a) }()
	<-firstStarted

	require.NoError(t, l.Delete(ctx, b))

	close(releaseFirst)
	require.NoError(t, <-first)

	items := l.Items()
	require.Len(t, items, 1)
	assert.Equal(t, c, items[0].ID)
	assert.EqualValues(t, 1, l.Total())
	assert.False(t, l.Loading())
}

func TestMutationFailureKeepsStateAndReturnsError(t *testing.T) {
	id := uuid.New()
	api := &fakeCustomers{list: func(services.CustomerFilters) (services.Page[models.Customer], error) {
		return pageOf(1, customer(id, "Ada")), nil
	}}
	l := NewCustomerList(api, ListOptions[services.CustomerFilters]{})
	ctx := context.Background()
	require.NoError(t, l.Fetch(ctx))

	api.err = errors.New("failed to delete customer: locked")
	err := l.Delete(ctx, id)

	require.Error(t, err)
	assert.Len(t, l.Items(), 1)
	assert.EqualValues(t, 1, l.Total())
	assert.Equal(t, "failed to delete customer: locked", l.Err())
}

func TestSearchFailureReturnsEmpty(t *testing.T) {
	api := &fakeCustomers{err: errors.New("down")}
	l := NewCustomerList(api, ListOptions[services.CustomerFilters]{})

	found := l.Search(context.Background(), "ada", 0)

	assert.NotNil(t, found)
	assert.Empty(t, found)
	assert.Empty(t, l.Err())
}

func TestCustomerDetailLifecycle(t *testing.T) {
	id := uuid.New()
	api := &fakeCustomers{}
	d := NewCustomerDetail(api, id)
	ctx := context.Background()

	require.NoError(t, d.Fetch(ctx))
	c, ok := d.Customer()
	require.True(t, ok)
	assert.Equal(t, "Ada", c.FirstName)

	_, err := d.Update(ctx, services.CustomerPatch{FirstName: "Augusta"})
	require.NoError(t, err)
	c, _ = d.Customer()
	assert.Equal(t, "Augusta", c.FirstName)

	require.NoError(t, d.Delete(ctx))
	_, ok = d.Customer()
	assert.False(t, ok)
}

func TestCustomerDetailWithoutIDDoesNothing(t *testing.T) {
	d := NewCustomerDetail(&fakeCustomers{}, uuid.Nil)

	assert.NoError(t, d.Fetch(context.Background()))
	assert.Error(t, d.Delete(context.Background()))
}

type fakeGarments struct {
	GarmentAPI
	assignments []models.MemberGarment
	sizes       []models.MemberSize
}

func (f *fakeGarments) ListMemberGarments(ctx context.Context, memberID uuid.UUID) ([]models.MemberGarment, error) {
	return f.assignments, nil
}

func (f *fakeGarments) UpdateAssignment(ctx context.Context, id uuid.UUID, patch services.AssignmentPatch) (models.MemberGarment, error) {
	a := models.MemberGarment{Quantity: *patch.Quantity}
	a.ID = id
	return a, nil
}

func (f *fakeGarments) ListMemberSizes(ctx context.Context, memberID uuid.UUID) ([]models.MemberSize, error) {
	return f.sizes, nil
}

func TestMemberGarmentsZeroQuantityRemoves(t *testing.T) {
	keep := models.MemberGarment{Quantity: 1, Garment: &models.Garment{Name: "Jacket"}}
	keep.ID = uuid.New()
	drop := models.MemberGarment{Quantity: 1}
	drop.ID = uuid.New()
	api := &fakeGarments{assignments: []models.MemberGarment{keep, drop}}
	m := NewMemberGarments(api, uuid.New())
	ctx := context.Background()
	require.NoError(t, m.Fetch(ctx))

	two := 2
	updated, err := m.Update(ctx, keep.ID, services.AssignmentPatch{Quantity: &two})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Quantity)

	zero := 0
	_, err = m.Update(ctx, drop.ID, services.AssignmentPatch{Quantity: &zero})
	require.NoError(t, err)

	items := m.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Quantity)
	require.NotNil(t, items[0].Garment)
	assert.Equal(t, "Jacket", items[0].Garment.Name)
}

func TestMemberSizesLatest(t *testing.T) {
	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	api := &fakeGarments{sizes: []models.MemberSize{
		{ID: uuid.New(), SizeType: models.SizeChest, Measurement: "42", MeasuredAt: base.Add(48 * time.Hour)},
		{ID: uuid.New(), SizeType: models.SizeChest, Measurement: "40", MeasuredAt: base},
		{ID: uuid.New(), SizeType: models.SizeWaist, Measurement: "34", MeasuredAt: base},
	}}
	m := NewMemberSizes(api, uuid.New())

	require.NoError(t, m.Fetch(context.Background()))
	latest := m.Latest()

	assert.Len(t, m.History(), 3)
	assert.Equal(t, "42", latest[models.SizeChest].Measurement)
	assert.Equal(t, "34", latest[models.SizeWaist].Measurement)
}

type fakeDashboard struct {
	failActivity bool
}

func (f *fakeDashboard) KPIs(ctx context.Context) (services.DashboardKPIs, error) {
	return services.DashboardKPIs{TotalOrders: 7, RevenueThisMonth: decimal.NewFromInt(250)}, nil
}

func (f *fakeDashboard) TodaysFunctions(ctx context.Context) ([]services.OrderSummary, error) {
	return []services.OrderSummary{{OrderNumber: "BT-2025-0001"}}, nil
}

func (f *fakeDashboard) UpcomingFunctions(ctx context.Context, days int) ([]services.OrderSummary, error) {
	return make([]services.OrderSummary, days), nil
}

func (f *fakeDashboard) RecentActivity(ctx context.Context, limit int) ([]models.ActivityLog, error) {
	if f.failActivity {
		return nil, errors.New("failed to fetch recent activity: timeout")
	}
	return make([]models.ActivityLog, 2), nil
}

func TestDashboardFetchAndPartialFailure(t *testing.T) {
	api := &fakeDashboard{}
	d := NewDashboard(api)
	ctx := context.Background()

	require.NoError(t, d.Fetch(ctx))
	data := d.Data()
	require.NotNil(t, data.KPIs)
	assert.EqualValues(t, 7, data.KPIs.TotalOrders)
	assert.Len(t, data.Today, 1)
	assert.Len(t, data.Upcoming, UpcomingDays)
	assert.Len(t, data.RecentActivity, 2)

	api.failActivity = true
	require.Error(t, d.Fetch(ctx))
	assert.Contains(t, d.Err(), "timeout")
	assert.Len(t, d.Data().RecentActivity, 2)
}

func TestDashboardRunStopsWithContext(t *testing.T) {
	d := NewDashboard(&fakeDashboard{})
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})

	go func() {
		d.Run(ctx, time.Millisecond)
		close(stopped)
	}()
	cancel()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

type fakeAuth struct {
	session   utils.Session
	err       error
	loggedOut []string
}

func (f *fakeAuth) LoginWithPin(ctx context.Context, pin string) (utils.Session, error) {
	return f.session, f.err
}

func (f *fakeAuth) Logout(ctx context.Context, s utils.Session) {
	f.loggedOut = append(f.loggedOut, s.Email)
}

func TestAuthLoginRestoreLogout(t *testing.T) {
	api := &fakeAuth{session: utils.Session{ID: uuid.New(), Email: "sam@blacktie.test", FirstName: "Sam", Role: "staff"}}
	store := &MemoryStore{}
	a := NewAuth(api, store, "secret", time.Hour)
	ctx := context.Background()

	_, err := a.Login(ctx, "1234")
	require.NoError(t, err)
	assert.True(t, a.IsAuthenticated())

	token, _ := store.Load()
	require.NotEmpty(t, token)

	restored := NewAuth(api, store, "secret", time.Hour)
	require.NoError(t, restored.Restore())
	s, ok := restored.Session()
	require.True(t, ok)
	assert.Equal(t, "sam@blacktie.test", s.Email)

	sctx := restored.Context(ctx)
	fromCtx, ok := services.SessionFromContext(sctx)
	require.True(t, ok)
	assert.Equal(t, s.ID, fromCtx.ID)

	require.NoError(t, restored.Logout(ctx))
	assert.False(t, restored.IsAuthenticated())
	assert.Equal(t, []string{"sam@blacktie.test"}, api.loggedOut)
	token, _ = store.Load()
	assert.Empty(t, token)
}

func TestAuthFailedLoginSavesNothing(t *testing.T) {
	api := &fakeAuth{err: services.ErrInvalidPin}
	store := &MemoryStore{}
	a := NewAuth(api, store, "secret", time.Hour)

	_, err := a.Login(context.Background(), "0000")

	assert.ErrorIs(t, err, services.ErrInvalidPin)
	assert.False(t, a.IsAuthenticated())
	assert.NotEmpty(t, a.Err())
	token, _ := store.Load()
	assert.Empty(t, token)
}

func TestAuthRestoreDiscardsForeignToken(t *testing.T) {
	token, err := utils.GenerateSessionToken("other-secret", utils.Session{ID: uuid.New()}, time.Hour)
	require.NoError(t, err)
	store := FileStore{Path: filepath.Join(t.TempDir(), "session")}
	require.NoError(t, store.Save(token))

	a := NewAuth(&fakeAuth{}, store, "secret", time.Hour)

	require.NoError(t, a.Restore())
	assert.False(t, a.IsAuthenticated())
	saved, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, saved)
}

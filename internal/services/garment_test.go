package services

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/blacktie/internal/models"
)

func TestLatestSizesKeepsNewestPerType(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	records := []models.MemberSize{
		{SizeType: models.SizeChest, Measurement: "38", MeasuredAt: base},
		{SizeType: models.SizeChest, Measurement: "40", MeasuredAt: base.Add(48 * time.Hour)},
		{SizeType: models.SizeWaist, Measurement: "32", MeasuredAt: base.Add(time.Hour)},
		{SizeType: models.SizeChest, Measurement: "39", MeasuredAt: base.Add(24 * time.Hour)},
	}

	latest := LatestSizes(records)
	require.Len(t, latest, 2)
	assert.Equal(t, "40", latest[models.SizeChest].Measurement)
	assert.Equal(t, "32", latest[models.SizeWaist].Measurement)

	assert.Empty(t, LatestSizes(nil))
}

func TestCategoriesListsOnlyActiveInOrder(t *testing.T) {
	f := newFixture(t)
	f.category(t, "Shirt", 3)
	f.category(t, "Jacket", 1)
	hidden := f.category(t, "Cravat", 2)

	inactive := false
	_, err := f.garments.UpdateCategory(f.ctx, hidden.ID, CategoryPatch{Active: &inactive})
	require.NoError(t, err)

	categories, err := f.garments.ListCategories(f.ctx)
	require.NoError(t, err)
	require.Len(t, categories, 2)
	assert.Equal(t, "Jacket", categories[0].Name)
	assert.Equal(t, "Shirt", categories[1].Name)

	_, err = f.garments.UpdateCategory(f.ctx, uuid.New(), CategoryPatch{Active: &inactive})
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = f.garments.CreateCategory(f.ctx, CategoryInput{Name: " "})
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestGarmentListFiltersAndCategory(t *testing.T) {
	f := newFixture(t)
	jackets := f.category(t, "Jacket", 1)
	shirts := f.category(t, "Shirt", 2)

	_, err := f.garments.Create(f.ctx, GarmentInput{CategoryID: jackets.ID, Name: "Navy lounge", Color: strPtr("Navy"), SortOrder: 2,
		RentalPrice: decimal.NewNullDecimal(decimal.RequireFromString("45.00"))})
	require.NoError(t, err)
	_, err = f.garments.Create(f.ctx, GarmentInput{CategoryID: jackets.ID, Name: "Black tux", Color: strPtr("Black"), SortOrder: 1})
	require.NoError(t, err)
	retired := false
	_, err = f.garments.Create(f.ctx, GarmentInput{CategoryID: shirts.ID, Name: "Wing collar", Active: &retired})
	require.NoError(t, err)

	page, err := f.garments.List(f.ctx, 1, 10, GarmentFilters{CategoryID: &jackets.ID})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "Black tux", page.Items[0].Name)
	require.NotNil(t, page.Items[1].Category)
	assert.Equal(t, "Jacket", page.Items[1].Category.Name)
	assert.True(t, page.Items[1].RentalPrice.Valid)
	assert.True(t, page.Items[1].RentalPrice.Decimal.Equal(decimal.NewFromInt(45)))

	active := true
	page, err = f.garments.List(f.ctx, 1, 10, GarmentFilters{Active: &active, Color: "NAV"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total)

	byCategory, err := f.garments.ListByCategory(f.ctx, shirts.ID)
	require.NoError(t, err)
	assert.Empty(t, byCategory)

	found, err := f.garments.Search(f.ctx, "wing", 5)
	require.NoError(t, err)
	assert.Len(t, found, 1)
}

func TestGarmentCreateRejectsNegativePrice(t *testing.T) {
	f := newFixture(t)
	jackets := f.category(t, "Jacket", 1)

	_, err := f.garments.Create(f.ctx, GarmentInput{CategoryID: jackets.ID, Name: "Tux",
		PurchasePrice: decimal.NewNullDecimal(decimal.NewFromInt(-1))})
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestGarmentGetManySkipsUnknownIDs(t *testing.T) {
	f := newFixture(t)
	jackets := f.category(t, "Jacket", 1)
	tux, err := f.garments.Create(f.ctx, GarmentInput{CategoryID: jackets.ID, Name: "Black tux"})
	require.NoError(t, err)

	found, err := f.garments.GetMany(f.ctx, []uuid.UUID{tux.ID, uuid.New()})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, jackets.ID, found[0].CategoryID)

	found, err = f.garments.GetMany(f.ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestAssignmentQuantityZeroRemoves(t *testing.T) {
	f := newFixture(t)
	c := f.customer(t, "Tom", "Groom")
	o := f.order(t, c.ID, models.OrderStatusDraft, nil)
	m, err := f.orders.AddMember(f.ctx, o.ID, MemberInput{FirstName: "Tom", LastName: "Groom"})
	require.NoError(t, err)
	jackets := f.category(t, "Jacket", 1)
	jacket, err := f.garments.Create(f.ctx, GarmentInput{CategoryID: jackets.ID, Name: "Black tux"})
	require.NoError(t, err)

	a, err := f.garments.AssignToMember(f.ctx, AssignmentInput{MemberID: m.ID, GarmentID: jacket.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, a.Quantity)
	assert.True(t, a.IsRental)

	two := 2
	a, err = f.garments.UpdateAssignment(f.ctx, a.ID, AssignmentPatch{Quantity: &two})
	require.NoError(t, err)
	assert.Equal(t, 2, a.Quantity)

	zero := 0
	_, err = f.garments.UpdateAssignment(f.ctx, a.ID, AssignmentPatch{Quantity: &zero})
	require.NoError(t, err)

	list, err := f.garments.ListMemberGarments(f.ctx, m.ID)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = f.garments.UpdateAssignment(f.ctx, a.ID, AssignmentPatch{Quantity: &zero})
	assert.True(t, errors.Is(err, ErrNotFound))

	err = f.garments.Delete(f.ctx, jacket.ID)
	require.NoError(t, err)
}

func TestGarmentDeleteRefusesAssigned(t *testing.T) {
	f := newFixture(t)
	c := f.customer(t, "Tom", "Groom")
	o := f.order(t, c.ID, models.OrderStatusDraft, nil)
	m, err := f.orders.AddMember(f.ctx, o.ID, MemberInput{FirstName: "Tom", LastName: "Groom"})
	require.NoError(t, err)
	jackets := f.category(t, "Jacket", 1)
	jacket, err := f.garments.Create(f.ctx, GarmentInput{CategoryID: jackets.ID, Name: "Black tux"})
	require.NoError(t, err)
	_, err = f.garments.AssignToMember(f.ctx, AssignmentInput{MemberID: m.ID, GarmentID: jacket.ID, Quantity: 1})
	require.NoError(t, err)

	err = f.garments.Delete(f.ctx, jacket.ID)
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestMemberSizesHistory(t *testing.T) {
	f := newFixture(t)
	c := f.customer(t, "Tom", "Groom")
	o := f.order(t, c.ID, models.OrderStatusDraft, nil)
	m, err := f.orders.AddMember(f.ctx, o.ID, MemberInput{FirstName: "Tom", LastName: "Groom"})
	require.NoError(t, err)

	first := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	second := first.Add(72 * time.Hour)
	old, err := f.garments.AddMemberSize(f.ctx, SizeInput{MemberID: m.ID, SizeType: models.SizeChest, Measurement: "40", MeasuredAt: &first})
	require.NoError(t, err)
	require.NotNil(t, old.MeasuredBy)
	assert.Equal(t, "Sam Tailor", *old.MeasuredBy)

	_, err = f.garments.AddMemberSize(f.ctx, SizeInput{MemberID: m.ID, SizeType: models.SizeChest, Measurement: "41", MeasuredAt: &second})
	require.NoError(t, err)
	_, err = f.garments.AddMemberSize(f.ctx, SizeInput{MemberID: m.ID, SizeType: models.SizeInsideLeg, Measurement: "31", MeasuredAt: &first})
	require.NoError(t, err)

	history, err := f.garments.ListMemberSizes(f.ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "41", history[0].Measurement)

	latest, err := f.garments.LatestMemberSizes(f.ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "41", latest[models.SizeChest].Measurement)
	assert.Equal(t, "31", latest[models.SizeInsideLeg].Measurement)

	updated, err := f.garments.UpdateMemberSize(f.ctx, old.ID, SizePatch{Measurement: strPtr("40.5"), MeasurementUnit: strPtr("in")})
	require.NoError(t, err)
	assert.Equal(t, "40.5", updated.Measurement)

	_, err = f.garments.AddMemberSize(f.ctx, SizeInput{MemberID: m.ID, SizeType: "neck", Measurement: "15"})
	assert.True(t, errors.Is(err, ErrValidation))
	_, err = f.garments.UpdateMemberSize(f.ctx, uuid.New(), SizePatch{Notes: strPtr("x")})
	assert.True(t, errors.Is(err, ErrNotFound))
}

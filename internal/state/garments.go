package state

import (
	"context"

	"github.com/google/uuid"

	"github.com/example/blacktie/internal/models"
	"github.com/example/blacktie/internal/services"
	"github.com/example/blacktie/internal/utils"
)

// GarmentAPI is the catalog, assignment and measurement surface the
// containers need.
type GarmentAPI interface {
	ListCategories(ctx context.Context) ([]models.GarmentCategory, error)
	CreateCategory(ctx context.Context, in services.CategoryInput) (models.GarmentCategory, error)
	List(ctx context.Context, page, limit int, f services.GarmentFilters) (services.Page[models.Garment], error)
	Create(ctx context.Context, in services.GarmentInput) (models.Garment, error)
	Update(ctx context.Context, id uuid.UUID, patch services.GarmentPatch) (models.Garment, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, query string, limit int) ([]models.Garment, error)
	AssignToMember(ctx context.Context, in services.AssignmentInput) (models.MemberGarment, error)
	UpdateAssignment(ctx context.Context, id uuid.UUID, patch services.AssignmentPatch) (models.MemberGarment, error)
	RemoveFromMember(ctx context.Context, id uuid.UUID) error
	ListMemberGarments(ctx context.Context, memberID uuid.UUID) ([]models.MemberGarment, error)
	AddMemberSize(ctx context.Context, in services.SizeInput) (models.MemberSize, error)
	UpdateMemberSize(ctx context.Context, id uuid.UUID, patch services.SizePatch) (models.MemberSize, error)
	ListMemberSizes(ctx context.Context, memberID uuid.UUID) ([]models.MemberSize, error)
}

// GarmentList is a page of catalog garments with their categories.
type GarmentList struct {
	list[models.Garment, services.GarmentFilters]
	api GarmentAPI
}

func NewGarmentList(api GarmentAPI, opts ListOptions[services.GarmentFilters]) *GarmentList {
	return &GarmentList{list: newList[models.Garment](api.List, opts), api: api}
}

func (l *GarmentList) Create(ctx context.Context, in services.GarmentInput) (models.Garment, error) {
	created, err := mutate(&l.tracker, func() (models.Garment, error) {
		return l.api.Create(ctx, in)
	}, nil)
	if err != nil {
		return created, err
	}
	_ = l.Fetch(ctx)
	return created, nil
}

// Update saves patch. The row on the page keeps its loaded category when
// the service returns none.
func (l *GarmentList) Update(ctx context.Context, id uuid.UUID, patch services.GarmentPatch) (models.Garment, error) {
	return mutate(&l.tracker, func() (models.Garment, error) {
		return l.api.Update(ctx, id, patch)
	}, func(g models.Garment) {
		for i := range l.items {
			if l.items[i].ID != id {
				continue
			}
			if g.Category == nil && g.CategoryID == l.items[i].CategoryID {
				g.Category = l.items[i].Category
			}
			l.items[i] = g
		}
	})
}

func (l *GarmentList) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := mutate(&l.tracker, func() (struct{}, error) {
		return struct{}{}, l.api.Delete(ctx, id)
	}, func(struct{}) {
		l.dropped(func(it models.Garment) bool { return it.ID == id })
	})
	return err
}

func (l *GarmentList) Search(ctx context.Context, query string, limit int) []models.Garment {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	found, err := l.api.Search(ctx, query, limit)
	if err != nil {
		utils.ErrorLogger.WithError(err).WithField("query", query).Error("garment search failed")
		return []models.Garment{}
	}
	return found
}

// Categories is the garment category list.
type Categories struct {
	tracker
	api        GarmentAPI
	categories []models.GarmentCategory
}

func NewCategories(api GarmentAPI) *Categories {
	return &Categories{api: api, categories: []models.GarmentCategory{}}
}

func (c *Categories) Fetch(ctx context.Context) error {
	_, err := track(&c.tracker, func() ([]models.GarmentCategory, error) {
		return c.api.ListCategories(ctx)
	}, func(cats []models.GarmentCategory) { c.categories = cats })
	return err
}

// Create stores a category and reloads the list in sort order.
func (c *Categories) Create(ctx context.Context, in services.CategoryInput) (models.GarmentCategory, error) {
	created, err := mutate(&c.tracker, func() (models.GarmentCategory, error) {
		return c.api.CreateCategory(ctx, in)
	}, nil)
	if err != nil {
		return created, err
	}
	_ = c.Fetch(ctx)
	return created, nil
}

func (c *Categories) Items() []models.GarmentCategory {
	var out []models.GarmentCategory
	c.read(func() { out = clone(c.categories) })
	return out
}

// MemberGarments is the set of garments assigned to one party member.
type MemberGarments struct {
	tracker
	api         GarmentAPI
	memberID    uuid.UUID
	assignments []models.MemberGarment
}

func NewMemberGarments(api GarmentAPI, memberID uuid.UUID) *MemberGarments {
	return &MemberGarments{api: api, memberID: memberID, assignments: []models.MemberGarment{}}
}

func (m *MemberGarments) Fetch(ctx context.Context) error {
	if m.memberID == uuid.Nil {
		return nil
	}
	_, err := track(&m.tracker, func() ([]models.MemberGarment, error) {
		return m.api.ListMemberGarments(ctx, m.memberID)
	}, func(rows []models.MemberGarment) { m.assignments = rows })
	return err
}

// Assign adds a garment to the member and reloads so the garment and its
// category are attached.
func (m *MemberGarments) Assign(ctx context.Context, in services.AssignmentInput) (models.MemberGarment, error) {
	in.MemberID = m.memberID
	created, err := mutate(&m.tracker, func() (models.MemberGarment, error) {
		return m.api.AssignToMember(ctx, in)
	}, nil)
	if err != nil {
		return created, err
	}
	_ = m.Fetch(ctx)
	return created, nil
}

// Update changes an assignment in place. A quantity of zero removes it.
func (m *MemberGarments) Update(ctx context.Context, id uuid.UUID, patch services.AssignmentPatch) (models.MemberGarment, error) {
	return mutate(&m.tracker, func() (models.MemberGarment, error) {
		return m.api.UpdateAssignment(ctx, id, patch)
	}, func(a models.MemberGarment) {
		match := func(it models.MemberGarment) bool { return it.ID == id }
		if a.Quantity == 0 {
			m.assignments = removeWhere(m.assignments, match)
			return
		}
		for i := range m.assignments {
			if match(m.assignments[i]) && a.Garment == nil {
				a.Garment = m.assignments[i].Garment
			}
		}
		replaceWhere(m.assignments, match, a)
	})
}

func (m *MemberGarments) Remove(ctx context.Context, id uuid.UUID) error {
	_, err := mutate(&m.tracker, func() (struct{}, error) {
		return struct{}{}, m.api.RemoveFromMember(ctx, id)
	}, func(struct{}) {
		m.assignments = removeWhere(m.assignments, func(it models.MemberGarment) bool { return it.ID == id })
	})
	return err
}

func (m *MemberGarments) Items() []models.MemberGarment {
	var out []models.MemberGarment
	m.read(func() { out = clone(m.assignments) })
	return out
}

// MemberSizes is a member's measurement history and the latest value of
// each size type.
type MemberSizes struct {
	tracker
	api      GarmentAPI
	memberID uuid.UUID
	history  []models.MemberSize
}

func NewMemberSizes(api GarmentAPI, memberID uuid.UUID) *MemberSizes {
	return &MemberSizes{api: api, memberID: memberID, history: []models.MemberSize{}}
}

func (m *MemberSizes) Fetch(ctx context.Context) error {
	if m.memberID == uuid.Nil {
		return nil
	}
	_, err := track(&m.tracker, func() ([]models.MemberSize, error) {
		return m.api.ListMemberSizes(ctx, m.memberID)
	}, func(rows []models.MemberSize) { m.history = rows })
	return err
}

func (m *MemberSizes) Add(ctx context.Context, in services.SizeInput) (models.MemberSize, error) {
	in.MemberID = m.memberID
	return mutate(&m.tracker, func() (models.MemberSize, error) {
		return m.api.AddMemberSize(ctx, in)
	}, func(s models.MemberSize) {
		m.history = append([]models.MemberSize{s}, m.history...)
	})
}

func (m *MemberSizes) Update(ctx context.Context, id uuid.UUID, patch services.SizePatch) (models.MemberSize, error) {
	return mutate(&m.tracker, func() (models.MemberSize, error) {
		return m.api.UpdateMemberSize(ctx, id, patch)
	}, func(s models.MemberSize) {
		replaceWhere(m.history, func(it models.MemberSize) bool { return it.ID == id }, s)
	})
}

// History returns every record, newest first as loaded.
func (m *MemberSizes) History() []models.MemberSize {
	var out []models.MemberSize
	m.read(func() { out = clone(m.history) })
	return out
}

// Latest reduces the history to the newest record per size type.
func (m *MemberSizes) Latest() map[models.SizeType]models.MemberSize {
	return services.LatestSizes(m.History())
}

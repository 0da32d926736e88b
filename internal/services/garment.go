package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/example/blacktie/internal/models"
	"github.com/example/blacktie/internal/utils"
)

// GarmentFilters narrows the garment list.
type GarmentFilters struct {
	Search     string     `json:"search,omitempty"`
	CategoryID *uuid.UUID `json:"category_id,omitempty"`
	Active     *bool      `json:"active,omitempty"`
	Color      string     `json:"color,omitempty"`
	Material   string     `json:"material,omitempty"`
}

// CategoryInput is the payload for a new garment category.
type CategoryInput struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	SortOrder   int     `json:"sort_order"`
	Active      *bool   `json:"active"`
}

// CategoryPatch carries only the category fields to change.
type CategoryPatch struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	SortOrder   *int    `json:"sort_order"`
	Active      *bool   `json:"active"`
}

// GarmentInput is the payload for a new catalog garment.
type GarmentInput struct {
	CategoryID    uuid.UUID           `json:"category_id"`
	Name          string              `json:"name"`
	Description   *string             `json:"description"`
	Color         *string             `json:"color"`
	Material      *string             `json:"material"`
	Brand         *string             `json:"brand"`
	SKU           *string             `json:"sku"`
	RentalPrice   decimal.NullDecimal `json:"rental_price"`
	PurchasePrice decimal.NullDecimal `json:"purchase_price"`
	Active        *bool               `json:"active"`
	SortOrder     int                 `json:"sort_order"`
}

// GarmentPatch carries only the garment fields to change.
type GarmentPatch struct {
	CategoryID    *uuid.UUID           `json:"category_id"`
	Name          *string              `json:"name"`
	Description   *string              `json:"description"`
	Color         *string              `json:"color"`
	Material      *string              `json:"material"`
	Brand         *string              `json:"brand"`
	SKU           *string              `json:"sku"`
	RentalPrice   *decimal.NullDecimal `json:"rental_price"`
	PurchasePrice *decimal.NullDecimal `json:"purchase_price"`
	Active        *bool                `json:"active"`
	SortOrder     *int                 `json:"sort_order"`
}

// AssignmentInput assigns a garment to a party member.
type AssignmentInput struct {
	MemberID  uuid.UUID `json:"member_id"`
	GarmentID uuid.UUID `json:"garment_id"`
	Quantity  int       `json:"quantity"`
	IsRental  *bool     `json:"is_rental"`
	Notes     *string   `json:"notes"`
}

// AssignmentPatch carries only the assignment fields to change. A quantity
// of zero removes the assignment.
type AssignmentPatch struct {
	Quantity *int    `json:"quantity"`
	IsRental *bool   `json:"is_rental"`
	Notes    *string `json:"notes"`
}

// SizeInput records one measurement for a member.
type SizeInput struct {
	MemberID        uuid.UUID       `json:"member_id"`
	SizeType        models.SizeType `json:"size_type"`
	Measurement     string          `json:"measurement"`
	MeasurementUnit *string         `json:"measurement_unit"`
	Notes           *string         `json:"notes"`
	MeasuredAt      *time.Time      `json:"measured_at"`
	MeasuredBy      *string         `json:"measured_by"`
}

func (in SizeInput) model() (models.MemberSize, error) {
	size := models.MemberSize{
		MemberID:        in.MemberID,
		SizeType:        in.SizeType,
		Measurement:     strings.TrimSpace(in.Measurement),
		MeasurementUnit: optional(in.MeasurementUnit),
		Notes:           optional(in.Notes),
		MeasuredBy:      optional(in.MeasuredBy),
	}
	if in.MeasuredAt != nil {
		size.MeasuredAt = in.MeasuredAt.UTC()
	}
	if !size.SizeType.Valid() {
		return size, invalid("unknown size type " + string(size.SizeType))
	}
	if size.Measurement == "" {
		return size, invalid("measurement is required")
	}
	return size, nil
}

// SizePatch carries only the measurement fields to change.
type SizePatch struct {
	Measurement     *string `json:"measurement"`
	MeasurementUnit *string `json:"measurement_unit"`
	Notes           *string `json:"notes"`
	MeasuredBy      *string `json:"measured_by"`
}

// LatestSizes keeps the most recently measured record of each size type.
func LatestSizes(records []models.MemberSize) map[models.SizeType]models.MemberSize {
	latest := make(map[models.SizeType]models.MemberSize, len(records))
	for _, r := range records {
		if cur, ok := latest[r.SizeType]; !ok || r.MeasuredAt.After(cur.MeasuredAt) {
			latest[r.SizeType] = r
		}
	}
	return latest
}

// GarmentService implements the catalog, assignments and measurements.
type GarmentService struct {
	db       *gorm.DB
	activity *ActivityLogger
}

// NewGarmentService constructs GarmentService.
func NewGarmentService(db *gorm.DB, activity *ActivityLogger) *GarmentService {
	return &GarmentService{db: db, activity: activity}
}

// ListCategories returns active categories in display order.
func (s *GarmentService) ListCategories(ctx context.Context) ([]models.GarmentCategory, error) {
	categories := []models.GarmentCategory{}
	if err := s.db.WithContext(ctx).
		Where("active = ?", true).
		Order("sort_order asc").
		Find(&categories).Error; err != nil {
		return nil, failed("fetch garment categories", err)
	}
	return categories, nil
}

// CreateCategory inserts a category; it is active unless stated otherwise.
func (s *GarmentService) CreateCategory(ctx context.Context, in CategoryInput) (models.GarmentCategory, error) {
	category := models.GarmentCategory{
		Name:        strings.TrimSpace(in.Name),
		Description: optional(in.Description),
		SortOrder:   in.SortOrder,
		Active:      in.Active == nil || *in.Active,
	}
	if category.Name == "" {
		return models.GarmentCategory{}, failed("create garment category", invalid("name is required"))
	}

	if err := s.db.WithContext(ctx).Create(&category).Error; err != nil {
		return models.GarmentCategory{}, failed("create garment category", err)
	}

	s.activity.Log(ctx, Activity{
		Action:      models.ActionCreate,
		EntityType:  "garment_category",
		EntityID:    idPtr(category.ID),
		EntityName:  category.Name,
		Description: "Created garment category: " + category.Name,
		Details:     map[string]any{"categoryData": in},
	})
	return category, nil
}

// UpdateCategory applies the provided fields of patch.
func (s *GarmentService) UpdateCategory(ctx context.Context, id uuid.UUID, patch CategoryPatch) (models.GarmentCategory, error) {
	updates := map[string]any{}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return models.GarmentCategory{}, failed("update garment category", invalid("name cannot be blank"))
		}
		updates["name"] = name
	}
	if patch.Description != nil {
		updates["description"] = patchValue(patch.Description)
	}
	if patch.SortOrder != nil {
		updates["sort_order"] = *patch.SortOrder
	}
	if patch.Active != nil {
		updates["active"] = *patch.Active
	}

	if len(updates) > 0 {
		res := s.db.WithContext(ctx).Model(&models.GarmentCategory{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return models.GarmentCategory{}, failed("update garment category", res.Error)
		}
		if res.RowsAffected == 0 {
			return models.GarmentCategory{}, failed("update garment category", notFound("garment category"))
		}
	}

	var category models.GarmentCategory
	if err := s.db.WithContext(ctx).First(&category, "id = ?", id).Error; err != nil {
		return models.GarmentCategory{}, failed("update garment category", lookupErr("garment category", err))
	}

	s.activity.Log(ctx, Activity{
		Action:      models.ActionUpdate,
		EntityType:  "garment_category",
		EntityID:    idPtr(id),
		EntityName:  category.Name,
		Description: "Updated garment category: " + category.Name,
		Details:     map[string]any{"updates": patch},
	})
	return category, nil
}

func (s *GarmentService) filtered(ctx context.Context, f GarmentFilters) *gorm.DB {
	q := s.db.WithContext(ctx).Model(&models.Garment{})

	if f.Search != "" {
		p := containsPattern(f.Search)
		q = q.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ? OR LOWER(brand) LIKE ? OR LOWER(sku) LIKE ?", p, p, p, p)
	}
	if f.CategoryID != nil {
		q = q.Where("category_id = ?", *f.CategoryID)
	}
	if f.Active != nil {
		q = q.Where("active = ?", *f.Active)
	}
	if f.Color != "" {
		q = q.Where("LOWER(color) LIKE ?", containsPattern(f.Color))
	}
	if f.Material != "" {
		q = q.Where("LOWER(material) LIKE ?", containsPattern(f.Material))
	}
	return q
}

// List returns one page of garments with their category, in display order.
func (s *GarmentService) List(ctx context.Context, page, limit int, f GarmentFilters) (Page[models.Garment], error) {
	pg := utils.NewPagination(page, limit)

	var total int64
	if err := s.filtered(ctx, f).Count(&total).Error; err != nil {
		return Page[models.Garment]{}, failed("fetch garments", err)
	}

	var garments []models.Garment
	if err := s.filtered(ctx, f).
		Preload("Category").
		Order("sort_order asc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&garments).Error; err != nil {
		return Page[models.Garment]{}, failed("fetch garments", err)
	}

	s.activity.Log(ctx, Activity{
		Action:      models.ActionView,
		EntityType:  "garment_list",
		Description: "Viewed garment list",
		Details: map[string]any{
			"filters": f,
			"page":    pg.Page,
			"limit":   pg.Limit,
			"total":   total,
		},
	})

	return newPage(garments, total, pg), nil
}

func (s *GarmentService) find(ctx context.Context, id uuid.UUID) (models.Garment, error) {
	var garment models.Garment
	err := s.db.WithContext(ctx).Preload("Category").First(&garment, "id = ?", id).Error
	return garment, lookupErr("garment", err)
}

// GetByID returns a garment with its category.
func (s *GarmentService) GetByID(ctx context.Context, id uuid.UUID) (models.Garment, error) {
	garment, err := s.find(ctx, id)
	if err != nil {
		return models.Garment{}, failed("fetch garment", err)
	}

	s.activity.Log(ctx, Activity{
		Action:      models.ActionView,
		EntityType:  "garment",
		EntityID:    idPtr(id),
		EntityName:  garment.Name,
		Description: "Viewed garment: " + garment.Name,
	})
	return garment, nil
}

// ListByCategory returns the active garments of one category.
func (s *GarmentService) ListByCategory(ctx context.Context, categoryID uuid.UUID) ([]models.Garment, error) {
	garments := []models.Garment{}
	if err := s.db.WithContext(ctx).
		Where("category_id = ? AND active = ?", categoryID, true).
		Order("sort_order asc").
		Find(&garments).Error; err != nil {
		return nil, failed("fetch garments by category", err)
	}
	return garments, nil
}

// GetMany returns the garments with the given IDs. Unknown IDs are skipped.
func (s *GarmentService) GetMany(ctx context.Context, ids []uuid.UUID) ([]models.Garment, error) {
	garments := []models.Garment{}
	if len(ids) == 0 {
		return garments, nil
	}
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&garments).Error; err != nil {
		return nil, failed("fetch garments", err)
	}
	return garments, nil
}

// Create inserts a garment; it is active unless stated otherwise.
func (s *GarmentService) Create(ctx context.Context, in GarmentInput) (models.Garment, error) {
	garment := models.Garment{
		CategoryID:    in.CategoryID,
		Name:          strings.TrimSpace(in.Name),
		Description:   optional(in.Description),
		Color:         optional(in.Color),
		Material:      optional(in.Material),
		Brand:         optional(in.Brand),
		SKU:           optional(in.SKU),
		RentalPrice:   in.RentalPrice,
		PurchasePrice: in.PurchasePrice,
		Active:        in.Active == nil || *in.Active,
		SortOrder:     in.SortOrder,
	}
	if garment.Name == "" {
		return models.Garment{}, failed("create garment", invalid("name is required"))
	}
	if garment.CategoryID == uuid.Nil {
		return models.Garment{}, failed("create garment", invalid("category is required"))
	}
	for _, price := range []decimal.NullDecimal{in.RentalPrice, in.PurchasePrice} {
		if price.Valid && price.Decimal.IsNegative() {
			return models.Garment{}, failed("create garment", invalid("prices cannot be negative"))
		}
	}

	if err := s.db.WithContext(ctx).Create(&garment).Error; err != nil {
		return models.Garment{}, failed("create garment", err)
	}

	s.activity.Log(ctx, Activity{
		Action:      models.ActionCreate,
		EntityType:  "garment",
		EntityID:    idPtr(garment.ID),
		EntityName:  garment.Name,
		Description: "Created garment: " + garment.Name,
		Details:     map[string]any{"garmentData": in},
	})
	return garment, nil
}

// Update applies the provided fields of patch.
func (s *GarmentService) Update(ctx context.Context, id uuid.UUID, patch GarmentPatch) (models.Garment, error) {
	updates := map[string]any{}
	if patch.CategoryID != nil {
		updates["category_id"] = *patch.CategoryID
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return models.Garment{}, failed("update garment", invalid("name cannot be blank"))
		}
		updates["name"] = name
	}
	for column, value := range map[string]*string{
		"description": patch.Description,
		"color":       patch.Color,
		"material":    patch.Material,
		"brand":       patch.Brand,
		"sku":         patch.SKU,
	} {
		if value != nil {
			updates[column] = patchValue(value)
		}
	}
	for column, value := range map[string]*decimal.NullDecimal{
		"rental_price":   patch.RentalPrice,
		"purchase_price": patch.PurchasePrice,
	} {
		if value == nil {
			continue
		}
		if value.Valid && value.Decimal.IsNegative() {
			return models.Garment{}, failed("update garment", invalid("prices cannot be negative"))
		}
		updates[column] = *value
	}
	if patch.Active != nil {
		updates["active"] = *patch.Active
	}
	if patch.SortOrder != nil {
		updates["sort_order"] = *patch.SortOrder
	}

	if len(updates) > 0 {
		res := s.db.WithContext(ctx).Model(&models.Garment{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return models.Garment{}, failed("update garment", res.Error)
		}
		if res.RowsAffected == 0 {
			return models.Garment{}, failed("update garment", notFound("garment"))
		}
	}

	garment, err := s.find(ctx, id)
	if err != nil {
		return models.Garment{}, failed("update garment", err)
	}

	s.activity.Log(ctx, Activity{
		Action:      models.ActionUpdate,
		EntityType:  "garment",
		EntityID:    idPtr(id),
		EntityName:  garment.Name,
		Description: "Updated garment: " + garment.Name,
		Details:     map[string]any{"updates": patch},
	})
	return garment, nil
}

// Delete removes a garment that is not assigned to anyone.
func (s *GarmentService) Delete(ctx context.Context, id uuid.UUID) error {
	garment, err := s.find(ctx, id)
	if err != nil {
		return failed("delete garment", err)
	}

	var assigned int64
	if err := s.db.WithContext(ctx).Model(&models.MemberGarment{}).Where("garment_id = ?", id).Count(&assigned).Error; err != nil {
		return failed("delete garment", err)
	}
	if assigned > 0 {
		return failed("delete garment", invalid("garment is assigned to party members; deactivate it instead"))
	}

	if err := s.db.WithContext(ctx).Delete(&models.Garment{}, "id = ?", id).Error; err != nil {
		return failed("delete garment", err)
	}

	s.activity.Log(ctx, Activity{
		Action:      models.ActionDelete,
		EntityType:  "garment",
		EntityID:    idPtr(id),
		EntityName:  garment.Name,
		Description: "Deleted garment: " + garment.Name,
	})
	return nil
}

// Search returns up to limit garments matching query.
func (s *GarmentService) Search(ctx context.Context, query string, limit int) ([]models.Garment, error) {
	garments := []models.Garment{}
	if strings.TrimSpace(query) == "" {
		return garments, nil
	}
	if limit <= 0 {
		limit = 10
	}

	if err := s.filtered(ctx, GarmentFilters{Search: query}).
		Preload("Category").
		Order("sort_order asc").
		Limit(limit).
		Find(&garments).Error; err != nil {
		return nil, failed("search garments", err)
	}
	return garments, nil
}

func (in AssignmentInput) model() (models.MemberGarment, error) {
	assignment := models.MemberGarment{
		MemberID:  in.MemberID,
		GarmentID: in.GarmentID,
		Quantity:  in.Quantity,
		IsRental:  in.IsRental == nil || *in.IsRental,
		Notes:     optional(in.Notes),
	}
	if in.MemberID == uuid.Nil || in.GarmentID == uuid.Nil {
		return assignment, invalid("member and garment are required")
	}
	if assignment.Quantity == 0 {
		assignment.Quantity = 1
	}
	if assignment.Quantity < 1 {
		return assignment, invalid("quantity must be positive")
	}
	return assignment, nil
}

// AssignToMember attaches a garment to a member. Garments are hired unless
// IsRental is false.
func (s *GarmentService) AssignToMember(ctx context.Context, in AssignmentInput) (models.MemberGarment, error) {
	assignment, err := in.model()
	if err != nil {
		return models.MemberGarment{}, failed("assign garment", err)
	}

	if err := s.db.WithContext(ctx).Create(&assignment).Error; err != nil {
		return models.MemberGarment{}, failed("assign garment", err)
	}

	s.activity.Log(ctx, Activity{
		Action:      models.ActionCreate,
		EntityType:  "member_garment",
		EntityID:    idPtr(assignment.ID),
		Description: "Assigned garment to member",
		Details:     map[string]any{"assignmentData": in},
	})
	return assignment, nil
}

// UpdateAssignment applies patch. Setting the quantity to zero removes the
// assignment and returns the removed row.
func (s *GarmentService) UpdateAssignment(ctx context.Context, id uuid.UUID, patch AssignmentPatch) (models.MemberGarment, error) {
	var assignment models.MemberGarment
	if err := s.db.WithContext(ctx).First(&assignment, "id = ?", id).Error; err != nil {
		return models.MemberGarment{}, failed("update garment assignment", lookupErr("garment assignment", err))
	}

	if patch.Quantity != nil && *patch.Quantity == 0 {
		if err := s.RemoveFromMember(ctx, id); err != nil {
			return models.MemberGarment{}, err
		}
		assignment.Quantity = 0
		return assignment, nil
	}

	updates := map[string]any{}
	if patch.Quantity != nil {
		if *patch.Quantity < 0 {
			return models.MemberGarment{}, failed("update garment assignment", invalid("quantity cannot be negative"))
		}
		updates["quantity"] = *patch.Quantity
	}
	if patch.IsRental != nil {
		updates["is_rental"] = *patch.IsRental
	}
	if patch.Notes != nil {
		updates["notes"] = patchValue(patch.Notes)
	}
	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(&assignment).Updates(updates).Error; err != nil {
			return models.MemberGarment{}, failed("update garment assignment", err)
		}
	}
	if err := s.db.WithContext(ctx).First(&assignment, "id = ?", id).Error; err != nil {
		return models.MemberGarment{}, failed("update garment assignment", lookupErr("garment assignment", err))
	}

	s.activity.Log(ctx, Activity{
		Action:      models.ActionUpdate,
		EntityType:  "member_garment",
		EntityID:    idPtr(id),
		Description: "Updated garment assignment",
		Details:     map[string]any{"updates": patch},
	})
	return assignment, nil
}

// RemoveFromMember deletes an assignment.
func (s *GarmentService) RemoveFromMember(ctx context.Context, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Delete(&models.MemberGarment{}, "id = ?", id)
	if res.Error != nil {
		return failed("remove garment from member", res.Error)
	}
	if res.RowsAffected == 0 {
		return failed("remove garment from member", notFound("garment assignment"))
	}

	s.activity.Log(ctx, Activity{
		Action:      models.ActionDelete,
		EntityType:  "member_garment",
		EntityID:    idPtr(id),
		Description: "Removed garment from member",
	})
	return nil
}

// ListMemberGarments returns a member's assignments with garment and category.
func (s *GarmentService) ListMemberGarments(ctx context.Context, memberID uuid.UUID) ([]models.MemberGarment, error) {
	assignments := []models.MemberGarment{}
	if err := s.db.WithContext(ctx).
		Preload("Garment.Category").
		Where("member_id = ?", memberID).
		Order("created_at asc").
		Find(&assignments).Error; err != nil {
		return nil, failed("fetch member garments", err)
	}
	return assignments, nil
}

// AddMemberSize records a measurement. MeasuredBy defaults to the staff
// member in ctx.
func (s *GarmentService) AddMemberSize(ctx context.Context, in SizeInput) (models.MemberSize, error) {
	size, err := in.model()
	if err != nil {
		return models.MemberSize{}, failed("add member size", err)
	}
	if size.MeasuredBy == nil {
		if sess, ok := SessionFromContext(ctx); ok {
			name := strings.TrimSpace(sess.DisplayName())
			size.MeasuredBy = &name
		}
	}

	if err := s.db.WithContext(ctx).Create(&size).Error; err != nil {
		return models.MemberSize{}, failed("add member size", err)
	}

	s.activity.Log(ctx, Activity{
		Action:      models.ActionCreate,
		EntityType:  "member_size",
		EntityID:    idPtr(size.ID),
		Description: "Added " + string(size.SizeType) + " measurement",
		Details:     map[string]any{"sizeData": in},
	})
	return size, nil
}

// UpdateMemberSize applies the provided fields of patch to a measurement.
func (s *GarmentService) UpdateMemberSize(ctx context.Context, id uuid.UUID, patch SizePatch) (models.MemberSize, error) {
	updates := map[string]any{}
	if patch.Measurement != nil {
		m := strings.TrimSpace(*patch.Measurement)
		if m == "" {
			return models.MemberSize{}, failed("update member size", invalid("measurement cannot be blank"))
		}
		updates["measurement"] = m
	}
	if patch.MeasurementUnit != nil {
		updates["measurement_unit"] = patchValue(patch.MeasurementUnit)
	}
	if patch.Notes != nil {
		updates["notes"] = patchValue(patch.Notes)
	}
	if patch.MeasuredBy != nil {
		updates["measured_by"] = patchValue(patch.MeasuredBy)
	}

	if len(updates) > 0 {
		res := s.db.WithContext(ctx).Model(&models.MemberSize{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return models.MemberSize{}, failed("update member size", res.Error)
		}
		if res.RowsAffected == 0 {
			return models.MemberSize{}, failed("update member size", notFound("member size"))
		}
	}

	var size models.MemberSize
	if err := s.db.WithContext(ctx).First(&size, "id = ?", id).Error; err != nil {
		return models.MemberSize{}, failed("update member size", lookupErr("member size", err))
	}

	s.activity.Log(ctx, Activity{
		Action:      models.ActionUpdate,
		EntityType:  "member_size",
		EntityID:    idPtr(id),
		Description: "Updated " + string(size.SizeType) + " measurement",
		Details:     map[string]any{"updates": patch},
	})
	return size, nil
}

// ListMemberSizes returns a member's measurement history, newest first.
func (s *GarmentService) ListMemberSizes(ctx context.Context, memberID uuid.UUID) ([]models.MemberSize, error) {
	sizes := []models.MemberSize{}
	if err := s.db.WithContext(ctx).
		Where("member_id = ?", memberID).
		Order("measured_at desc").
		Find(&sizes).Error; err != nil {
		return nil, failed("fetch member sizes", err)
	}
	return sizes, nil
}

// LatestMemberSizes returns the current value of each size type for a member.
func (s *GarmentService) LatestMemberSizes(ctx context.Context, memberID uuid.UUID) (map[models.SizeType]models.MemberSize, error) {
	sizes, err := s.ListMemberSizes(ctx, memberID)
	if err != nil {
		return nil, failed("fetch latest member sizes", err)
	}
	return LatestSizes(sizes), nil
}

// Package wizard drives order creation in three steps: pick the customer and
// the function, build each member's outfit, then record sizes. Moving
// forward is gated by per-step checks; the finished party is stored in one
// transaction.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/blacktie/internal/models"
	"github.com/example/blacktie/internal/services"
	"github.com/example/blacktie/internal/utils"
)

// Step is a wizard page.
type Step int

const (
	StepCustomerAndFunction Step = iota
	StepOutfitBuilder
	StepSizes
)

func (s Step) String() string {
	switch s {
	case StepCustomerAndFunction:
		return "customer_and_function"
	case StepOutfitBuilder:
		return "outfit_builder"
	case StepSizes:
		return "sizes"
	}
	return fmt.Sprintf("step(%d)", int(s))
}

// RequiredCategories must each have a garment in every member's outfit.
// Names match case-insensitively.
var RequiredCategories = []string{"jacket", "trousers", "shirt"}

// DefaultExpectedMembers is the party size assumed until staff change it.
const DefaultExpectedMembers = 4

// ErrNotReady is returned by Submit before the sizes step is reached.
var ErrNotReady = errors.New("order is not ready to submit")

// Warning explains why the wizard refused to move forward. It is shown to
// staff and is not a failure.
type Warning struct {
	Title   string
	Message string
	Fields  utils.FieldErrors
}

func (w *Warning) Error() string {
	return w.Title + ": " + w.Message
}

// CustomerCreator creates customers picked up in the first step.
type CustomerCreator interface {
	Create(ctx context.Context, in services.CustomerInput) (models.Customer, error)
	Search(ctx context.Context, query string, limit int) ([]models.Customer, error)
}

// PartyCreator stores the completed order with its party.
type PartyCreator interface {
	CreateWithParty(ctx context.Context, draft services.PartyDraft) (models.Order, error)
}

// FunctionDetails describes the event being outfitted.
type FunctionDetails struct {
	WeddingDate     *time.Time          `json:"wedding_date" validate:"required"`
	WeddingVenue    string              `json:"wedding_venue" validate:"max=255"`
	WeddingTime     string              `json:"wedding_time"`
	FunctionType    models.FunctionType `json:"function_type" validate:"omitempty,oneof=wedding corporate formal black_tie military other"`
	Notes           string              `json:"notes"`
	ExpectedMembers int                 `json:"total_members" validate:"gte=0"`
}

// Validate reports missing or malformed function fields.
func (f FunctionDetails) Validate() utils.FieldErrors {
	return utils.ValidateStruct(f)
}

// NewCustomerForm is the inline customer form on the first step.
type NewCustomerForm struct {
	FirstName string `json:"first_name" validate:"required,min=2,max=100"`
	LastName  string `json:"last_name" validate:"required,min=2,max=100"`
	Email     string `json:"email" validate:"omitempty,email"`
	Phone     string `json:"phone" validate:"omitempty,min=10,max=20"`
}

// Validate requires two-character names and, when given, a valid email
// and phone. Surrounding spaces are ignored.
func (f NewCustomerForm) Validate() utils.FieldErrors {
	f.FirstName = strings.TrimSpace(f.FirstName)
	f.LastName = strings.TrimSpace(f.LastName)
	f.Email = strings.TrimSpace(f.Email)
	f.Phone = strings.TrimSpace(f.Phone)
	return utils.ValidateStruct(f)
}

func (f NewCustomerForm) input() services.CustomerInput {
	in := services.CustomerInput{
		FirstName: strings.TrimSpace(f.FirstName),
		LastName:  strings.TrimSpace(f.LastName),
	}
	if v := strings.TrimSpace(f.Email); v != "" {
		in.Email = &v
	}
	if v := strings.TrimSpace(f.Phone); v != "" {
		in.Phone = &v
	}
	return in
}

// Member is one party member being planned.
type Member struct {
	Info     services.MemberInput
	Garments []services.GarmentSelection
	Sizes    []services.SizeInput
}

// outfitRules knows which catalog category each garment belongs to.
type outfitRules struct {
	categories map[uuid.UUID]string
	garments   map[uuid.UUID]uuid.UUID
}

func newOutfitRules(categories []models.GarmentCategory, garments []models.Garment) outfitRules {
	r := outfitRules{
		categories: make(map[uuid.UUID]string, len(categories)),
		garments:   make(map[uuid.UUID]uuid.UUID, len(garments)),
	}
	for _, c := range categories {
		r.categories[c.ID] = strings.ToLower(strings.TrimSpace(c.Name))
	}
	for _, g := range garments {
		r.garments[g.ID] = g.CategoryID
	}
	return r
}

// required lists the RequiredCategories the catalog actually has.
func (r outfitRules) required() []string {
	present := map[string]bool{}
	for _, name := range r.categories {
		present[name] = true
	}
	var required []string
	for _, name := range RequiredCategories {
		if present[name] {
			required = append(required, name)
		}
	}
	return required
}

// missing returns the required categories with no selected garment.
// Deselected garments do not count.
func (r outfitRules) missing(selected []services.GarmentSelection) []string {
	picked := map[string]bool{}
	for _, g := range selected {
		if g.Quantity <= 0 {
			continue
		}
		if cat, ok := r.garments[g.GarmentID]; ok {
			picked[r.categories[cat]] = true
		}
	}
	var missing []string
	for _, name := range r.required() {
		if !picked[name] {
			missing = append(missing, name)
		}
	}
	return missing
}

// ValidateDraft checks a party submitted in one go: at least one member,
// every member's details, and an outfit covering the required categories
// present in the catalog. Errors are keyed by JSON path, e.g.
// "members[0].garments".
func ValidateDraft(draft services.PartyDraft, categories []models.GarmentCategory, garments []models.Garment) utils.FieldErrors {
	errs := utils.ValidateStruct(draft)
	if draft.Order.CustomerID == uuid.Nil {
		errs.Add("order.customer_id", "Customer is required")
	}
	if draft.Order.WeddingDate == nil {
		errs.Add("order.wedding_date", "Wedding date is required")
	}
	rules := newOutfitRules(categories, garments)
	for i, m := range draft.Members {
		if missing := rules.missing(m.Garments); len(missing) > 0 {
			errs.Add(fmt.Sprintf("members[%d].garments", i), "No garment for: "+strings.Join(missing, ", "))
		}
	}
	return errs
}

// Wizard holds the in-progress order. It is not safe for concurrent use.
type Wizard struct {
	customers CustomerCreator
	orders    PartyCreator
	outfitRules

	step     Step
	customer *models.Customer
	function FunctionDetails
	members  []*Member
}

// New starts a wizard over the given catalog. categories and garments are
// used to check that outfits cover the required categories.
func New(customers CustomerCreator, orders PartyCreator, categories []models.GarmentCategory, garments []models.Garment) *Wizard {
	return &Wizard{
		customers:   customers,
		orders:      orders,
		outfitRules: newOutfitRules(categories, garments),
		function: FunctionDetails{
			FunctionType:    models.FunctionWedding,
			ExpectedMembers: DefaultExpectedMembers,
		},
	}
}

func (w *Wizard) Step() Step { return w.step }

func (w *Wizard) Customer() (models.Customer, bool) {
	if w.customer == nil {
		return models.Customer{}, false
	}
	return *w.customer, true
}

func (w *Wizard) Function() FunctionDetails { return w.function }

// Members returns the planned party in order.
func (w *Wizard) Members() []Member {
	out := make([]Member, len(w.members))
	for i, m := range w.members {
		out[i] = Member{
			Info:     m.Info,
			Garments: append([]services.GarmentSelection(nil), m.Garments...),
			Sizes:    append([]services.SizeInput(nil), m.Sizes...),
		}
	}
	return out
}

// SearchCustomers looks up existing customers. Queries shorter than two
// characters return nothing.
func (w *Wizard) SearchCustomers(ctx context.Context, query string) ([]models.Customer, error) {
	if len([]rune(strings.TrimSpace(query))) < 2 {
		return []models.Customer{}, nil
	}
	return w.customers.Search(ctx, query, 10)
}

func (w *Wizard) SelectCustomer(c models.Customer) {
	w.customer = &c
}

func (w *Wizard) ClearCustomer() {
	w.customer = nil
}

// CreateCustomer validates form, stores the customer and selects it. A
// form problem is returned as a *Warning.
func (w *Wizard) CreateCustomer(ctx context.Context, form NewCustomerForm) (models.Customer, error) {
	if errs := form.Validate(); !errs.Empty() {
		return models.Customer{}, &Warning{Title: "Check customer details", Message: "Please fix the highlighted fields", Fields: errs}
	}
	c, err := w.customers.Create(ctx, form.input())
	if err != nil {
		return models.Customer{}, err
	}
	w.customer = &c
	return c, nil
}

func (w *Wizard) SetFunction(f FunctionDetails) {
	w.function = f
}

// AddMember appends a member and returns its index.
func (w *Wizard) AddMember(info services.MemberInput) int {
	w.members = append(w.members, &Member{Info: info})
	return len(w.members) - 1
}

func (w *Wizard) member(i int) (*Member, error) {
	if i < 0 || i >= len(w.members) {
		return nil, fmt.Errorf("member %d: %w", i, services.ErrNotFound)
	}
	return w.members[i], nil
}

func (w *Wizard) UpdateMember(i int, info services.MemberInput) error {
	m, err := w.member(i)
	if err != nil {
		return err
	}
	m.Info = info
	return nil
}

func (w *Wizard) RemoveMember(i int) error {
	if _, err := w.member(i); err != nil {
		return err
	}
	w.members = append(w.members[:i], w.members[i+1:]...)
	return nil
}

// SetGarment puts sel into member i's outfit, replacing any earlier pick
// of the same garment. A quantity of zero or less removes it; removing a
// garment that is not selected is a no-op.
func (w *Wizard) SetGarment(i int, sel services.GarmentSelection) error {
	m, err := w.member(i)
	if err != nil {
		return err
	}
	kept := m.Garments[:0]
	for _, g := range m.Garments {
		if g.GarmentID != sel.GarmentID {
			kept = append(kept, g)
		}
	}
	m.Garments = kept
	if sel.Quantity > 0 {
		m.Garments = append(m.Garments, sel)
	}
	return nil
}

// SetSize records a measurement for member i. A blank measurement clears
// the size type.
func (w *Wizard) SetSize(i int, sizeType models.SizeType, measurement, unit string) error {
	m, err := w.member(i)
	if err != nil {
		return err
	}
	if !sizeType.Valid() {
		return fmt.Errorf("unknown size type %q: %w", sizeType, services.ErrValidation)
	}
	kept := m.Sizes[:0]
	for _, s := range m.Sizes {
		if s.SizeType != sizeType {
			kept = append(kept, s)
		}
	}
	m.Sizes = kept
	if strings.TrimSpace(measurement) == "" {
		return nil
	}
	in := services.SizeInput{SizeType: sizeType, Measurement: strings.TrimSpace(measurement)}
	if unit = strings.TrimSpace(unit); unit != "" {
		in.MeasurementUnit = &unit
	}
	m.Sizes = append(m.Sizes, in)
	return nil
}

// Next validates the current step and moves forward. When the step is
// incomplete the wizard stays put and a *Warning is returned.
func (w *Wizard) Next() error {
	switch w.step {
	case StepCustomerAndFunction:
		if w.customer == nil {
			return &Warning{Title: "Customer Required", Message: "Please select or create a customer"}
		}
		if errs := w.function.Validate(); !errs.Empty() {
			return &Warning{Title: "Function details required", Message: "Please complete the function details", Fields: errs}
		}
	case StepOutfitBuilder:
		if warn := w.checkOutfits(); warn != nil {
			return warn
		}
	case StepSizes:
		return nil
	}
	w.step++
	return nil
}

// Back returns to the previous step. Later steps keep what was entered.
func (w *Wizard) Back() {
	if w.step > StepCustomerAndFunction {
		w.step--
	}
}

func (w *Wizard) checkOutfits() *Warning {
	if len(w.members) == 0 {
		return &Warning{Title: "Outfits Required", Message: "Please add at least one member with an outfit"}
	}
	for _, m := range w.members {
		if missing := w.missing(m.Garments); len(missing) > 0 {
			return &Warning{
				Title:   "Outfits Required",
				Message: fmt.Sprintf("%s %s has no garment for: %s", m.Info.FirstName, m.Info.LastName, strings.Join(missing, ", ")),
			}
		}
	}
	return nil
}

// Draft assembles the order and party as they stand.
func (w *Wizard) Draft() services.PartyDraft {
	order := services.OrderInput{
		WeddingDate:  w.function.WeddingDate,
		FunctionType: w.function.FunctionType,
		Status:       models.OrderStatusDraft,
		TotalMembers: w.function.ExpectedMembers,
	}
	if w.customer != nil {
		order.CustomerID = w.customer.ID
	}
	if v := strings.TrimSpace(w.function.WeddingVenue); v != "" {
		order.WeddingVenue = &v
	}
	if v := strings.TrimSpace(w.function.WeddingTime); v != "" {
		order.WeddingTime = &v
	}
	if v := strings.TrimSpace(w.function.Notes); v != "" {
		order.SpecialRequirements = &v
	}
	if len(w.members) > order.TotalMembers {
		order.TotalMembers = len(w.members)
	}

	draft := services.PartyDraft{Order: order, Members: make([]services.PartyMemberDraft, 0, len(w.members))}
	for i, m := range w.members {
		info := m.Info
		if info.SortOrder == 0 {
			info.SortOrder = i
		}
		draft.Members = append(draft.Members, services.PartyMemberDraft{
			Member:   info,
			Garments: append([]services.GarmentSelection(nil), m.Garments...),
			Sizes:    append([]services.SizeInput(nil), m.Sizes...),
		})
	}
	return draft
}

// Submit stores the order with every member, garment and size. Nothing is
// stored if any write fails.
func (w *Wizard) Submit(ctx context.Context) (models.Order, error) {
	if w.step != StepSizes || w.customer == nil {
		return models.Order{}, ErrNotReady
	}
	return w.orders.CreateWithParty(ctx, w.Draft())
}

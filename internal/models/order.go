package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatus is the persisted lifecycle status of an order.
type OrderStatus string

const (
	OrderStatusDraft      OrderStatus = "draft"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusInProgress OrderStatus = "in_progress"
	OrderStatusReady      OrderStatus = "ready"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// Valid reports whether s is a known lifecycle status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusDraft, OrderStatusConfirmed, OrderStatusInProgress,
		OrderStatusReady, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

// FunctionType classifies the event an order is outfitting.
type FunctionType string

const (
	FunctionWedding   FunctionType = "wedding"
	FunctionCorporate FunctionType = "corporate"
	FunctionFormal    FunctionType = "formal"
	FunctionBlackTie  FunctionType = "black_tie"
	FunctionMilitary  FunctionType = "military"
	FunctionOther     FunctionType = "other"
)

func (f FunctionType) Valid() bool {
	switch f {
	case FunctionWedding, FunctionCorporate, FunctionFormal,
		FunctionBlackTie, FunctionMilitary, FunctionOther:
		return true
	}
	return false
}

// Order is a booking for one wedding or formal function.
type Order struct {
	BaseModel
	CustomerID          uuid.UUID     `gorm:"type:uuid;index;not null" json:"customer_id"`
	Customer            *Customer     `gorm:"constraint:OnDelete:CASCADE" json:"customer,omitempty"`
	OrderNumber         string        `gorm:"uniqueIndex;not null" json:"order_number"`
	WeddingDate         *time.Time    `gorm:"type:date;index" json:"wedding_date"`
	WeddingVenue        *string       `json:"wedding_venue"`
	WeddingTime         *string       `json:"wedding_time"`
	FunctionType        FunctionType  `gorm:"not null;default:'wedding'" json:"function_type"`
	Status              OrderStatus   `gorm:"not null;default:'draft';index" json:"status"`
	TotalMembers        int           `gorm:"not null;default:1" json:"total_members"`
	SpecialRequirements *string       `gorm:"type:text" json:"special_requirements"`
	InternalNotes       *string       `gorm:"type:text" json:"internal_notes"`
	CompletedAt         *time.Time    `json:"completed_at"`
	Members             []OrderMember `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"members,omitempty"`
}

// MemberRole is the part a member plays in the wedding party.
type MemberRole string

const (
	RoleGroom         MemberRole = "groom"
	RoleBestMan       MemberRole = "best_man"
	RoleGroomsman     MemberRole = "groomsman"
	RoleFatherOfGroom MemberRole = "father_of_groom"
	RoleFatherOfBride MemberRole = "father_of_bride"
	RoleUsher         MemberRole = "usher"
	RolePageBoy       MemberRole = "page_boy"
	RoleOther         MemberRole = "other"
)

func (r MemberRole) Valid() bool {
	switch r {
	case RoleGroom, RoleBestMan, RoleGroomsman, RoleFatherOfGroom,
		RoleFatherOfBride, RoleUsher, RolePageBoy, RoleOther:
		return true
	}
	return false
}

// OrderMember is a person in the wedding party attached to one order.
//
// MeasurementsTaken and OutfitAssigned are not stored; they are filled at read
// time from the presence of member_sizes and member_garments rows.
type OrderMember struct {
	BaseModel
	OrderID           uuid.UUID       `gorm:"type:uuid;index;not null" json:"order_id"`
	FirstName         string          `gorm:"not null" json:"first_name"`
	LastName          string          `gorm:"not null" json:"last_name"`
	Role              MemberRole      `gorm:"not null" json:"role"`
	Email             *string         `json:"email"`
	Phone             *string         `json:"phone"`
	SortOrder         int             `gorm:"not null;default:0" json:"sort_order"`
	FittingCompleted  bool            `gorm:"not null;default:false" json:"fitting_completed"`
	Notes             *string         `gorm:"type:text" json:"notes"`
	Garments          []MemberGarment `gorm:"foreignKey:MemberID;constraint:OnDelete:CASCADE" json:"garments,omitempty"`
	Sizes             []MemberSize    `gorm:"foreignKey:MemberID;constraint:OnDelete:CASCADE" json:"sizes,omitempty"`
	MeasurementsTaken bool            `gorm:"-" json:"measurements_taken"`
	OutfitAssigned    bool            `gorm:"-" json:"outfit_assigned"`
}

// FullName joins first and last name.
func (m OrderMember) FullName() string {
	return m.FirstName + " " + m.LastName
}

// OrderSequence backs order number generation, one row per calendar year.
type OrderSequence struct {
	Year      int `gorm:"primaryKey;autoIncrement:false"`
	LastValue int `gorm:"not null;default:0"`
}

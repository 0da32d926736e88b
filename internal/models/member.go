package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MemberGarment assigns a catalog garment to a party member.
type MemberGarment struct {
	RecordModel
	MemberID  uuid.UUID `gorm:"type:uuid;index;not null" json:"member_id"`
	GarmentID uuid.UUID `gorm:"type:uuid;index;not null" json:"garment_id"`
	Garment   *Garment  `json:"garment,omitempty"`
	Quantity  int       `gorm:"not null" json:"quantity"`
	IsRental  bool      `gorm:"not null" json:"is_rental"`
	Notes     *string   `json:"notes"`
}

// SizeType names a body or garment measurement.
type SizeType string

const (
	SizeChest        SizeType = "chest"
	SizeWaist        SizeType = "waist"
	SizeInsideLeg    SizeType = "inside_leg"
	SizeTrouserWaist SizeType = "trouser_waist"
	SizeJacketLength SizeType = "jacket_length"
	SizeShirtCollar  SizeType = "shirt_collar"
	SizeShoeSize     SizeType = "shoe_size"
	SizeHeight       SizeType = "height"
	SizeWeight       SizeType = "weight"
)

func (s SizeType) Valid() bool {
	switch s {
	case SizeChest, SizeWaist, SizeInsideLeg, SizeTrouserWaist, SizeJacketLength,
		SizeShirtCollar, SizeShoeSize, SizeHeight, SizeWeight:
		return true
	}
	return false
}

// MemberSize is one recorded measurement. Rows accumulate as history; the
// newest per size type is the current value.
type MemberSize struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	MemberID        uuid.UUID `gorm:"type:uuid;index;not null" json:"member_id"`
	SizeType        SizeType  `gorm:"not null" json:"size_type"`
	Measurement     string    `gorm:"not null" json:"measurement"`
	MeasurementUnit *string   `json:"measurement_unit"`
	Notes           *string   `json:"notes"`
	MeasuredAt      time.Time `gorm:"not null;index" json:"measured_at"`
	MeasuredBy      *string   `json:"measured_by"`
}

func (s *MemberSize) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.MeasuredAt.IsZero() {
		s.MeasuredAt = time.Now().UTC()
	}
	return nil
}

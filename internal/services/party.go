package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/blacktie/internal/models"
	"github.com/example/blacktie/internal/procedures"
)

// GarmentSelection is one garment picked for a member in the outfit builder.
// Quantity zero means the garment was deselected and is skipped.
type GarmentSelection struct {
	GarmentID uuid.UUID `json:"garment_id"`
	Quantity  int       `json:"quantity"`
	IsRental  bool      `json:"is_rental"`
	Notes     *string   `json:"notes,omitempty"`
}

// PartyMemberDraft is a member with the garments and sizes captured for them.
type PartyMemberDraft struct {
	Member   MemberInput        `json:"member"`
	Garments []GarmentSelection `json:"garments"`
	Sizes    []SizeInput        `json:"sizes"`
}

// PartyDraft is a complete order with its wedding party.
type PartyDraft struct {
	Order   OrderInput         `json:"order"`
	Members []PartyMemberDraft `json:"members" validate:"min=1,dive"`
}

// CreateWithParty writes the order, every member, their garment assignments
// and their sizes in one transaction. Either everything is stored or nothing
// is. Audit entries are written after the commit.
func (s *OrderService) CreateWithParty(ctx context.Context, draft PartyDraft) (models.Order, error) {
	order, err := draft.Order.model()
	if err != nil {
		return models.Order{}, failed("create order", err)
	}
	if draft.Order.TotalMembers == 0 && len(draft.Members) > 0 {
		order.TotalMembers = len(draft.Members)
	}

	type pending struct {
		member   models.OrderMember
		garments []models.MemberGarment
		sizes    []models.MemberSize
	}
	party := make([]pending, 0, len(draft.Members))
	for i, md := range draft.Members {
		member, err := md.Member.model(uuid.Nil)
		if err != nil {
			return models.Order{}, failed("create order", fmt.Errorf("member %d: %w", i+1, err))
		}
		if md.Member.SortOrder == 0 {
			member.SortOrder = i
		}

		p := pending{member: member}
		for _, g := range md.Garments {
			if g.Quantity == 0 {
				continue
			}
			if g.Quantity < 0 || g.GarmentID == uuid.Nil {
				return models.Order{}, failed("create order", invalid(fmt.Sprintf("member %d: invalid garment selection", i+1)))
			}
			p.garments = append(p.garments, models.MemberGarment{
				GarmentID: g.GarmentID,
				Quantity:  g.Quantity,
				IsRental:  g.IsRental,
				Notes:     optional(g.Notes),
			})
		}
		for _, in := range md.Sizes {
			size, err := in.model()
			if err != nil {
				return models.Order{}, failed("create order", fmt.Errorf("member %d: %w", i+1, err))
			}
			p.sizes = append(p.sizes, size)
		}
		party = append(party, p)
	}

	var activities []Activity
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		number, err := procedures.GenerateOrderNumber(ctx, tx, s.now())
		if err != nil {
			return fmt.Errorf("generate order number: %w", err)
		}
		order.OrderNumber = number
		s.stampCompletion(&order)

		if err := tx.Create(&order).Error; err != nil {
			return err
		}
		activities = append(activities, Activity{
			Action:      models.ActionCreate,
			EntityType:  "order",
			EntityID:    idPtr(order.ID),
			EntityName:  order.OrderNumber,
			Description: "Created order: " + order.OrderNumber,
			Details:     map[string]any{"orderData": draft.Order, "members": len(party)},
		})

		for i := range party {
			p := &party[i]
			p.member.OrderID = order.ID
			if err := tx.Create(&p.member).Error; err != nil {
				return err
			}
			activities = append(activities, Activity{
				Action:      models.ActionCreate,
				EntityType:  "order_member",
				EntityID:    idPtr(p.member.ID),
				EntityName:  p.member.FullName(),
				Description: "Added member: " + p.member.FullName() + " to order",
			})

			for j := range p.garments {
				p.garments[j].MemberID = p.member.ID
			}
			if len(p.garments) > 0 {
				if err := tx.Create(&p.garments).Error; err != nil {
					return err
				}
			}

			for j := range p.sizes {
				p.sizes[j].MemberID = p.member.ID
			}
			if len(p.sizes) > 0 {
				if err := tx.Create(&p.sizes).Error; err != nil {
					return err
				}
			}

			p.member.Garments = p.garments
			p.member.Sizes = p.sizes
			p.member.OutfitAssigned = len(p.garments) > 0
			p.member.MeasurementsTaken = len(p.sizes) > 0
			order.Members = append(order.Members, p.member)
		}
		return nil
	})
	if err != nil {
		return models.Order{}, failed("create order with party", err)
	}

	s.activity.LogAll(ctx, activities)
	return order, nil
}

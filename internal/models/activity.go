package models

import "github.com/google/uuid"

// ActivityAction enumerates audited actions.
type ActivityAction string

const (
	ActionCreate ActivityAction = "create"
	ActionUpdate ActivityAction = "update"
	ActionDelete ActivityAction = "delete"
	ActionView   ActivityAction = "view"
	ActionLogin  ActivityAction = "login"
	ActionLogout ActivityAction = "logout"
)

// ActivityLog is an append-only audit record.
type ActivityLog struct {
	RecordModel
	UserIdentifier string         `gorm:"not null;index" json:"user_identifier"`
	UserName       *string        `json:"user_name"`
	Action         ActivityAction `gorm:"not null" json:"action"`
	EntityType     string         `gorm:"not null;index" json:"entity_type"`
	EntityID       *uuid.UUID     `gorm:"type:uuid" json:"entity_id"`
	EntityName     *string        `json:"entity_name"`
	Description    string         `gorm:"not null" json:"description"`
	Details        map[string]any `gorm:"type:text;serializer:json" json:"details"`
}

package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/learnloom/learnloom-backend/pkg/enums"
)

// PaymentPreference holds an instructor's external payable account. One row
// per instructor; is_onboarded is monotonic false to true.
type PaymentPreference struct {
	ID                uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	InstructorID      uuid.UUID             `gorm:"column:instructor_id;type:uuid;not null;uniqueIndex:uq_payment_preferences_instructor"`
	Provider          enums.PaymentProvider `gorm:"column:provider;type:payment_provider;not null;default:'stripe'"`
	ExternalAccountID string                `gorm:"column:external_account_id"`
	IsOnboarded       bool                  `gorm:"column:is_onboarded;not null;default:false"`
	OnboardedAt       *time.Time            `gorm:"column:onboarded_at"`
	CreatedAt         time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payout is a batch settlement marking a set of transactions as paid to an instructor.
type Payout struct {
	ID               uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	InstructorID     uuid.UUID       `gorm:"column:instructor_id;type:uuid;not null;index"`
	Amount           decimal.Decimal `gorm:"column:amount;type:numeric(12,2);not null"`
	TransactionCount int             `gorm:"column:transaction_count;not null"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime"`
}

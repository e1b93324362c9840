package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/learnloom/learnloom-backend/pkg/enums"
)

// Transaction records a completed payment and its revenue split. One-to-one
// with Enrollment for paid courses. The split fields are carried verbatim from
// the checkout event; paid_out only ever transitions false to true.
type Transaction struct {
	ID                 uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EnrollmentID       uuid.UUID               `gorm:"column:enrollment_id;type:uuid;not null;uniqueIndex:uq_transactions_enrollment"`
	CourseID           uuid.UUID               `gorm:"column:course_id;type:uuid;not null;index"`
	InstructorID       uuid.UUID               `gorm:"column:instructor_id;type:uuid;not null;index"`
	StudentID          uuid.UUID               `gorm:"column:student_id;type:uuid;not null"`
	PaymentProvider    enums.PaymentProvider   `gorm:"column:payment_provider;type:payment_provider;not null;default:'stripe'"`
	PaymentReferenceID string                  `gorm:"column:payment_reference_id;not null"`
	TotalAmount        decimal.Decimal         `gorm:"column:total_amount;type:numeric(12,2);not null"`
	PlatformFee        decimal.Decimal         `gorm:"column:platform_fee;type:numeric(12,2);not null"`
	InstructorEarnings decimal.Decimal         `gorm:"column:instructor_earnings;type:numeric(12,2);not null"`
	CommissionRate     decimal.Decimal         `gorm:"column:commission_rate;type:numeric(5,4);not null"`
	Status             enums.TransactionStatus `gorm:"column:status;type:transaction_status;not null;default:'pending'"`
	PaidOut            bool                    `gorm:"column:paid_out;not null;default:false"`
	PayoutID           *uuid.UUID              `gorm:"column:payout_id;type:uuid"`
	CreatedAt          time.Time               `gorm:"column:created_at;autoCreateTime"`
}

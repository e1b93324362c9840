package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/learnloom/learnloom-backend/pkg/enums"
)

// Enrollment grants a student access to a course. At most one row may exist
// per (student, course); the unique index is the concurrency arbiter for
// webhook redelivery, so the application never relies on read-then-write alone.
type Enrollment struct {
	ID                 uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	StudentID          uuid.UUID           `gorm:"column:student_id;type:uuid;not null;uniqueIndex:uq_enrollments_student_course"`
	CourseID           uuid.UUID           `gorm:"column:course_id;type:uuid;not null;uniqueIndex:uq_enrollments_student_course"`
	PaymentMethod      enums.PaymentMethod `gorm:"column:payment_method;type:payment_method;not null;default:'card'"`
	PaymentReferenceID string              `gorm:"column:payment_reference_id"`
	AmountPaid         decimal.Decimal     `gorm:"column:amount_paid;type:numeric(12,2);not null"`
	CreatedAt          time.Time           `gorm:"column:created_at;autoCreateTime"`
}

package paymentwebhook

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/learnloom/learnloom-backend/pkg/errors"
)

const (
	// EventTypeCheckoutCompleted is the only event type the ledger pipeline
	// consumes; everything else is acknowledged and dropped.
	EventTypeCheckoutCompleted = "checkout.completed"
)

// Event is the provider's webhook envelope.
type Event struct {
	ID      string    `json:"id"`
	Type    string    `json:"type"`
	Created int64     `json:"created"`
	Data    EventData `json:"data"`
}

type EventData struct {
	Object CheckoutObject `json:"object"`
}

// CheckoutObject is the checkout session embedded in a checkout.completed
// event. The amounts and course routing live in the metadata bag our checkout
// flow attached when the session was created.
type CheckoutObject struct {
	ID            string            `json:"id"`
	PaymentIntent string            `json:"payment_intent"`
	Metadata      map[string]string `json:"metadata"`
}

// CheckoutCompleted is a validated, typed view of a checkout.completed event.
type CheckoutCompleted struct {
	EventID            string
	PaymentReferenceID string
	StudentID          uuid.UUID
	CourseID           uuid.UUID
	InstructorID       uuid.UUID
	TotalAmount        decimal.Decimal
	PlatformFee        decimal.Decimal
	InstructorEarnings decimal.Decimal
	CommissionRate     decimal.Decimal
}

// ParseCheckoutCompleted extracts and validates the payment facts from a
// checkout.completed event. Any missing or malformed field is a validation
// error; the provider will redeliver the same broken payload forever, so the
// caller must treat these as permanent.
func ParseCheckoutCompleted(event *Event) (*CheckoutCompleted, error) {
	if event == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event is required")
	}
	if event.Type != EventTypeCheckoutCompleted {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unexpected event type %q", event.Type))
	}

	object := event.Data.Object
	reference := strings.TrimSpace(object.PaymentIntent)
	if reference == "" {
		reference = strings.TrimSpace(object.ID)
	}
	if reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment reference missing")
	}

	studentID, err := metadataUUID(object.Metadata, "student_id")
	if err != nil {
		return nil, err
	}
	courseID, err := metadataUUID(object.Metadata, "course_id")
	if err != nil {
		return nil, err
	}
	instructorID, err := metadataUUID(object.Metadata, "instructor_id")
	if err != nil {
		return nil, err
	}
	totalAmount, err := metadataDecimal(object.Metadata, "total_amount")
	if err != nil {
		return nil, err
	}
	platformFee, err := metadataDecimal(object.Metadata, "platform_fee")
	if err != nil {
		return nil, err
	}
	instructorEarnings, err := metadataDecimal(object.Metadata, "instructor_earnings")
	if err != nil {
		return nil, err
	}
	commissionRate, err := metadataDecimal(object.Metadata, "commission_rate")
	if err != nil {
		return nil, err
	}

	return &CheckoutCompleted{
		EventID:            strings.TrimSpace(event.ID),
		PaymentReferenceID: reference,
		StudentID:          studentID,
		CourseID:           courseID,
		InstructorID:       instructorID,
		TotalAmount:        totalAmount,
		PlatformFee:        platformFee,
		InstructorEarnings: instructorEarnings,
		CommissionRate:     commissionRate,
	}, nil
}

func metadataUUID(metadata map[string]string, key string) (uuid.UUID, error) {
	raw := strings.TrimSpace(metadata[key])
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("metadata %s missing", key))
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("metadata %s is not a uuid", key))
	}
	return parsed, nil
}

func metadataDecimal(metadata map[string]string, key string) (decimal.Decimal, error) {
	raw := strings.TrimSpace(metadata[key])
	if raw == "" {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("metadata %s missing", key))
	}
	parsed, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("metadata %s is not a decimal", key))
	}
	if parsed.IsNegative() {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("metadata %s is negative", key))
	}
	return parsed, nil
}

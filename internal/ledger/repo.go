package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/learnloom/learnloom-backend/pkg/db/models"
	"github.com/learnloom/learnloom-backend/pkg/enums"
)

// EarningsFilter narrows earnings sums. Zero value sums every completed transaction.
type EarningsFilter struct {
	UnpaidOnly   bool
	CreatedAfter *time.Time
}

// Repository is the durable ledger: enrollments, transactions, payout batches.
// Uniqueness constraints in the schema are the final arbiter for concurrent
// writers; callers interpret constraint violations, not this layer.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindEnrollment(ctx context.Context, studentID, courseID uuid.UUID) (*models.Enrollment, error)
	CreateEnrollment(ctx context.Context, enrollment *models.Enrollment) error
	CreateTransaction(ctx context.Context, transaction *models.Transaction) error
	FindTransactionByEnrollment(ctx context.Context, enrollmentID uuid.UUID) (*models.Transaction, error)
	SumEarnings(ctx context.Context, instructorID uuid.UUID, filter EarningsFilter) (decimal.Decimal, error)
	FindOrphanEnrollmentsBefore(ctx context.Context, cutoff time.Time) ([]models.Enrollment, error)
	CountPaidOutMissingPayout(ctx context.Context) (int64, error)
	ListUnpaidTransactions(ctx context.Context, instructorID uuid.UUID) ([]models.Transaction, error)
	CreatePayout(ctx context.Context, payout *models.Payout) error
	MarkTransactionsPaidOut(ctx context.Context, instructorID, payoutID uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindEnrollment(ctx context.Context, studentID, courseID uuid.UUID) (*models.Enrollment, error) {
	var enrollment models.Enrollment
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND course_id = ?", studentID, courseID).
		First(&enrollment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &enrollment, nil
}

func (r *repository) CreateEnrollment(ctx context.Context, enrollment *models.Enrollment) error {
	return r.db.WithContext(ctx).Create(enrollment).Error
}

func (r *repository) CreateTransaction(ctx context.Context, transaction *models.Transaction) error {
	return r.db.WithContext(ctx).Create(transaction).Error
}

func (r *repository) FindTransactionByEnrollment(ctx context.Context, enrollmentID uuid.UUID) (*models.Transaction, error) {
	var transaction models.Transaction
	err := r.db.WithContext(ctx).
		Where("enrollment_id = ?", enrollmentID).
		First(&transaction).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &transaction, nil
}

func (r *repository) SumEarnings(ctx context.Context, instructorID uuid.UUID, filter EarningsFilter) (decimal.Decimal, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("instructor_id = ? AND status = ?", instructorID, enums.TransactionStatusCompleted)
	if filter.UnpaidOnly {
		query = query.Where("paid_out = ?", false)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at >= ?", *filter.CreatedAfter)
	}

	var total decimal.Decimal
	row := query.Select("COALESCE(SUM(instructor_earnings), 0)").Row()
	if err := row.Scan(&total); err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

func (r *repository) FindOrphanEnrollmentsBefore(ctx context.Context, cutoff time.Time) ([]models.Enrollment, error) {
	var enrollments []models.Enrollment
	err := r.db.WithContext(ctx).
		Model(&models.Enrollment{}).
		Joins("LEFT JOIN transactions ON transactions.enrollment_id = enrollments.id").
		Where("transactions.id IS NULL").
		Where("enrollments.amount_paid > 0").
		Where("enrollments.created_at < ?", cutoff).
		Find(&enrollments).Error
	if err != nil {
		return nil, err
	}
	return enrollments, nil
}

// CountPaidOutMissingPayout counts transactions marked settled without a
// payout batch reference. A non-zero count means a settlement write was torn.
func (r *repository) CountPaidOutMissingPayout(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("paid_out = ? AND payout_id IS NULL", true).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repository) ListUnpaidTransactions(ctx context.Context, instructorID uuid.UUID) ([]models.Transaction, error) {
	var transactions []models.Transaction
	err := r.db.WithContext(ctx).
		Where("instructor_id = ? AND status = ? AND paid_out = ?",
			instructorID, enums.TransactionStatusCompleted, false).
		Order("created_at ASC").
		Find(&transactions).Error
	if err != nil {
		return nil, err
	}
	return transactions, nil
}

func (r *repository) CreatePayout(ctx context.Context, payout *models.Payout) error {
	return r.db.WithContext(ctx).Create(payout).Error
}

func (r *repository) MarkTransactionsPaidOut(ctx context.Context, instructorID, payoutID uuid.UUID) (int64, error) {
	// paid_out is monotonic; the WHERE clause makes re-marking a no-op
	result := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("instructor_id = ? AND status = ? AND paid_out = ?",
			instructorID, enums.TransactionStatusCompleted, false).
		Updates(map[string]any{"paid_out": true, "payout_id": payoutID})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

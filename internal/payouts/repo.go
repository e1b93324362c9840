package payouts

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/learnloom/learnloom-backend/pkg/db/models"
)

// PreferenceRepository persists per-instructor payment preferences. There is
// at most one row per instructor, enforced by a unique constraint.
type PreferenceRepository interface {
	WithTx(tx *gorm.DB) PreferenceRepository
	FindByInstructor(ctx context.Context, instructorID uuid.UUID) (*models.PaymentPreference, error)
	// InsertPlaceholder writes an empty preference row unless one already
	// exists. It never overwrites.
	InsertPlaceholder(ctx context.Context, preference *models.PaymentPreference) error
	// FindByInstructorForUpdate locks the row until the enclosing transaction
	// ends, serializing concurrent account provisioning.
	FindByInstructorForUpdate(ctx context.Context, instructorID uuid.UUID) (*models.PaymentPreference, error)
	Update(ctx context.Context, preference *models.PaymentPreference) error
	// MarkOnboarded flips is_onboarded false to true. The guarded WHERE keeps
	// the flag monotonic under concurrent refreshes.
	MarkOnboarded(ctx context.Context, instructorID uuid.UUID, at time.Time) (bool, error)
}

type preferenceRepository struct {
	db *gorm.DB
}

func NewPreferenceRepository(db *gorm.DB) PreferenceRepository {
	return &preferenceRepository{db: db}
}

func (r *preferenceRepository) WithTx(tx *gorm.DB) PreferenceRepository {
	if tx == nil {
		return r
	}
	return &preferenceRepository{db: tx}
}

func (r *preferenceRepository) FindByInstructor(ctx context.Context, instructorID uuid.UUID) (*models.PaymentPreference, error) {
	var preference models.PaymentPreference
	err := r.db.WithContext(ctx).
		Where("instructor_id = ?", instructorID).
		First(&preference).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &preference, nil
}

func (r *preferenceRepository) InsertPlaceholder(ctx context.Context, preference *models.PaymentPreference) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "instructor_id"}},
			DoNothing: true,
		}).
		Create(preference).Error
}

func (r *preferenceRepository) FindByInstructorForUpdate(ctx context.Context, instructorID uuid.UUID) (*models.PaymentPreference, error) {
	var preference models.PaymentPreference
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).
		Where("instructor_id = ?", instructorID).
		First(&preference).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &preference, nil
}

func (r *preferenceRepository) Update(ctx context.Context, preference *models.PaymentPreference) error {
	return r.db.WithContext(ctx).Save(preference).Error
}

func (r *preferenceRepository) MarkOnboarded(ctx context.Context, instructorID uuid.UUID, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.PaymentPreference{}).
		Where("instructor_id = ? AND is_onboarded = ?", instructorID, false).
		Updates(map[string]any{"is_onboarded": true, "onboarded_at": at})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

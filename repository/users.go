package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/kendall-kelly/home-services-api/models"
)

// UserRepository persists user accounts and role-change audit records.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByID looks a user up by exact subject id.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// Update writes the named columns from patch.
func (r *UserRepository) Update(ctx context.Context, id string, patch models.User, columns ...string) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Select(touched(columns)).
		Updates(patch).Error
}

// EscalateToProvider moves a customer to the provider role. It reports false
// when the user no longer holds the customer role.
func (r *UserRepository) EscalateToProvider(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND role = ?", id, models.RoleCustomer).
		Select("role", "updated_at").
		Updates(models.User{Role: models.RoleProvider})
	return res.RowsAffected == 1, res.Error
}

// List returns users filtered by role, newest first.
func (r *UserRepository) List(ctx context.Context, role string, page Page) ([]models.User, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.User{})
	if role != "" {
		q = q.Where("role = ?", role)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var out []models.User
	err := page.apply(q.Order("created_at DESC")).Find(&out).Error
	return out, total, err
}

// AddPoints atomically credits points to a user.
func (r *UserRepository) AddPoints(ctx context.Context, id string, points int) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("points", gorm.Expr("points + ?", points)).Error
}

// ChangeRole sets a new role and writes the audit record in one transaction.
func (r *UserRepository) ChangeRole(ctx context.Context, id, role string, log *models.RoleChangeLog) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).
			Where("id = ?", id).
			Select("role", "updated_at").
			Updates(models.User{Role: role})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Create(log).Error
	})
}

// RoleChanges returns the audit trail for a user, newest first.
func (r *UserRepository) RoleChanges(ctx context.Context, userID string) ([]models.RoleChangeLog, error) {
	var out []models.RoleChangeLog
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("changed_at DESC").Find(&out).Error
	return out, err
}

package postgres

import (
	"context"
	"errors"

	userDatamodel "github.com/frahmantamala/gatepass/internal/core/datamodel/user"
	coreuser "github.com/frahmantamala/gatepass/internal/core/user"
	"github.com/frahmantamala/gatepass/internal/user"
	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*coreuser.User, error) {
	var row userDatamodel.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, coreuser.ErrNotFound
		}
		return nil, err
	}
	return user.FromDataModel(&row), nil
}

func (r *UserRepository) List(ctx context.Context, limit, offset int) ([]*coreuser.User, error) {
	var rows []*userDatamodel.User
	err := r.db.WithContext(ctx).
		Order("id ASC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	return fromRows(rows), err
}

func (r *UserRepository) ListByRole(ctx context.Context, role coreuser.Role) ([]*coreuser.User, error) {
	var rows []*userDatamodel.User
	err := r.db.WithContext(ctx).
		Where("role = ?", string(role)).
		Order("name ASC").Order("id ASC").
		Find(&rows).Error
	return fromRows(rows), err
}

func (r *UserRepository) UsernameTaken(ctx context.Context, username string, excludeID int64) (bool, error) {
	return r.taken(ctx, "username = ?", username, excludeID)
}

func (r *UserRepository) EmailTaken(ctx context.Context, email string, excludeID int64) (bool, error) {
	return r.taken(ctx, "email = ?", email, excludeID)
}

func (r *UserRepository) taken(ctx context.Context, query string, value string, excludeID int64) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&userDatamodel.User{}).
		Where(query, value).
		Where("id <> ?", excludeID).
		Count(&n).Error
	return n > 0, err
}

func (r *UserRepository) Create(ctx context.Context, u *coreuser.User) error {
	row := user.ToDataModel(u)
	// is_active has a column default, so a false value has to be written explicitly.
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(row).Error; err != nil {
			return err
		}
		if !u.IsActive {
			return tx.Model(row).Update("is_active", false).Error
		}
		return nil
	})
	if err != nil {
		return err
	}
	u.ID = row.ID
	u.CreatedAt = row.CreatedAt
	u.UpdatedAt = row.UpdatedAt
	return nil
}

func (r *UserRepository) Update(ctx context.Context, u *coreuser.User) error {
	row := user.ToDataModel(u)
	res := r.db.WithContext(ctx).Model(&userDatamodel.User{ID: u.ID}).
		Select("name", "username", "email", "phone", "role", "password_hash", "is_active", "updated_at").
		Updates(row)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return coreuser.ErrNotFound
	}
	u.UpdatedAt = row.UpdatedAt
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&userDatamodel.User{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return coreuser.ErrNotFound
	}
	return nil
}

func fromRows(rows []*userDatamodel.User) []*coreuser.User {
	out := make([]*coreuser.User, len(rows))
	for i, row := range rows {
		out[i] = user.FromDataModel(row)
	}
	return out
}

var _ user.Repository = (*UserRepository)(nil)

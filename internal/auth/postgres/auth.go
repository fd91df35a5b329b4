package postgres

import (
	"context"
	"errors"

	"github.com/frahmantamala/gatepass/internal/auth"
	userDatamodel "github.com/frahmantamala/gatepass/internal/core/datamodel/user"
	coreuser "github.com/frahmantamala/gatepass/internal/core/user"
	"github.com/frahmantamala/gatepass/internal/user"
	"gorm.io/gorm"
)

// Repository reads credentials from the users table.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db: db,
	}
}

func (r *Repository) GetByUsername(ctx context.Context, username string) (*coreuser.User, error) {
	return r.first(ctx, "username = ?", username)
}

func (r *Repository) GetByID(ctx context.Context, id int64) (*coreuser.User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *Repository) first(ctx context.Context, query string, arg interface{}) (*coreuser.User, error) {
	var row userDatamodel.User
	if err := r.db.WithContext(ctx).Where(query, arg).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, coreuser.ErrNotFound
		}
		return nil, err
	}
	return user.FromDataModel(&row), nil
}

func (r *Repository) UsernameExists(ctx context.Context, username string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&userDatamodel.User{}).Where("username = ?", username).Count(&n).Error
	return n > 0, err
}

func (r *Repository) EmailExists(ctx context.Context, email string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&userDatamodel.User{}).Where("email = ?", email).Count(&n).Error
	return n > 0, err
}

func (r *Repository) Create(ctx context.Context, u *coreuser.User) error {
	row := user.ToDataModel(u)
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return err
	}
	u.ID = row.ID
	u.CreatedAt = row.CreatedAt
	u.UpdatedAt = row.UpdatedAt
	return nil
}

var _ auth.UserRepository = (*Repository)(nil)

package relica

import (
	"context"
	"database/sql"
	"errors"

	"github.com/coregx/relica"

	"github.com/shelfstream/catalog"
	"github.com/shelfstream/catalog/model"
)

// UserRepository implements catalog.UserRepository using Relica.
type UserRepository struct {
	db          *relica.DB
	tablePrefix string
}

// NewUserRepository creates a new UserRepository with default table prefix.
func NewUserRepository(sqlDB *sql.DB, driverName string) *UserRepository {
	return &UserRepository{db: relica.WrapDB(sqlDB, driverName), tablePrefix: "catalog_"}
}

// NewUserRepositoryWithPrefix creates a new UserRepository with custom table prefix.
func NewUserRepositoryWithPrefix(sqlDB *sql.DB, driverName, prefix string) *UserRepository {
	return &UserRepository{db: relica.WrapDB(sqlDB, driverName), tablePrefix: prefix}
}

func (r *UserRepository) tableName() string {
	return r.tablePrefix + "user"
}

// Load retrieves a user by ID.
func (r *UserRepository) Load(ctx context.Context, id int64) (model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Select("*").From(r.tableName()).Where("id = ?", id).One(&user)
	if errors.Is(err, sql.ErrNoRows) {
		return user, catalog.ErrNoData
	}
	if err != nil {
		return user, catalog.NewErrorWithCause(catalog.ErrCodeDatabase, "failed to load user", err)
	}
	return user, nil
}

// Save creates or updates a user.
func (r *UserRepository) Save(ctx context.Context, u *model.User) (*model.User, error) {
	if u.ID == 0 {
		err := r.db.WithContext(ctx).Model(u).Table(r.tableName()).Insert()
		if err != nil {
			return u, catalog.NewErrorWithCause(catalog.ErrCodeDatabase, "failed to insert user", err)
		}
		return u, nil
	}

	err := r.db.WithContext(ctx).Model(u).Table(r.tableName()).Update()
	if err != nil {
		return u, catalog.NewErrorWithCause(catalog.ErrCodeDatabase, "failed to update user", err)
	}
	return u, nil
}

// FindByUsername retrieves an active user by username.
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Select("*").
		From(r.tableName()).
		Where("username = ? AND is_active = ?", username, true).
		One(&user)
	if errors.Is(err, sql.ErrNoRows) {
		return user, catalog.ErrNoData
	}
	if err != nil {
		return user, catalog.NewErrorWithCause(catalog.ErrCodeDatabase, "failed to find user by username", err)
	}
	return user, nil
}

package domain

import (
	"context"
	"time"

	"github.com/tair/movie-review/pkg/apperror"
	"github.com/tair/movie-review/pkg/auth"
)

var (
	ErrUserNotFound       = apperror.New(apperror.KindNotFound, "user not found")
	ErrDuplicateUsername  = apperror.New(apperror.KindDuplicate, "username already exists")
	ErrDuplicateEmail     = apperror.New(apperror.KindDuplicate, "email already exists")
	ErrInvalidCredentials = apperror.New(apperror.KindUnauthenticated, "invalid username or password")
)

// User represents the user entity (domain model)
type User struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Username  string    `json:"username" gorm:"size:50;not null;uniqueIndex:idx_users_username"`
	Email     string    `json:"email" gorm:"size:255;not null;uniqueIndex:idx_users_email"`
	Password  string    `json:"-" gorm:"not null"` // bcrypt hash
	Role      auth.Role `json:"role" gorm:"type:varchar(20);not null;default:'USER'"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name
func (User) TableName() string {
	return "users"
}

// IsAdmin checks if user has admin role
func (u *User) IsAdmin() bool {
	return u.Role == auth.RoleAdmin
}

// Roles returns the role set carried in issued tokens
func (u *User) Roles() []auth.Role {
	return []auth.Role{u.Role}
}

// UserRepository defines the contract for user data access.
// Create returns ErrDuplicateUsername or ErrDuplicateEmail when a unique
// index rejects the row. Find methods return ErrUserNotFound.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	FindByUsername(ctx context.Context, username string) (*User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	CountByRole(ctx context.Context) (map[auth.Role]int64, error)
}

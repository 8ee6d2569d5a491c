package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// NewUser carries the fields accepted at registration.
type NewUser struct {
	FirstName     string
	MiddleName    string
	LastName      string
	ExtensionName string
	Email         string
	Password      string
	Role          Role
}

// NameUpdate carries optional name changes; empty fields are left untouched.
type NameUpdate struct {
	FirstName     string
	MiddleName    string
	LastName      string
	ExtensionName string
}

// UserRepository persists users with GORM.
type UserRepository struct {
	db           *gorm.DB
	passwordCost int

	// decoyHash is compared against when the email is unknown so the miss
	// costs the same bcrypt work as a wrong password.
	decoyOnce sync.Once
	decoyHash string
}

// NewUserRepository constructs a repository over an open GORM handle.
func NewUserRepository(db *gorm.DB, passwordCost int) *UserRepository {
	return &UserRepository{db: db, passwordCost: passwordCost}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create registers a user. The password is hashed before it is stored.
func (repository *UserRepository) Create(ctx context.Context, input NewUser) (*User, error) {
	role := input.Role
	if role == "" {
		role = RoleUser
	}
	if !role.Valid() {
		return nil, fmt.Errorf("accounts.users.create: invalid role %q", role)
	}
	email := normalizeEmail(input.Email)
	if _, findErr := repository.FindByEmail(ctx, email); findErr == nil {
		return nil, fmt.Errorf("accounts.users.create: %w", ErrEmailTaken)
	} else if !errors.Is(findErr, ErrUserNotFound) {
		return nil, findErr
	}
	passwordHash, hashErr := hashPassword(input.Password, repository.passwordCost)
	if hashErr != nil {
		return nil, hashErr
	}
	record := User{
		UserID:        uuid.NewString(),
		FirstName:     strings.TrimSpace(input.FirstName),
		MiddleName:    strings.TrimSpace(input.MiddleName),
		LastName:      strings.TrimSpace(input.LastName),
		ExtensionName: strings.TrimSpace(input.ExtensionName),
		Email:         email,
		PasswordHash:  passwordHash,
		Role:          role,
	}
	if err := repository.db.WithContext(ctx).Create(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("accounts.users.create: %w", ErrEmailTaken)
		}
		return nil, fmt.Errorf("accounts.users.create: %w", err)
	}
	return &record, nil
}

// Authenticate returns the user whose credentials match.
func (repository *UserRepository) Authenticate(ctx context.Context, email string, password string) (*User, error) {
	user, err := repository.FindByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		passwordMatches(repository.decoyPasswordHash(), password)
		return nil, fmt.Errorf("accounts.users.authenticate: %w", ErrInvalidCredentials)
	}
	if err != nil {
		return nil, err
	}
	if password == "" || !passwordMatches(user.PasswordHash, password) {
		return nil, fmt.Errorf("accounts.users.authenticate: %w", ErrInvalidCredentials)
	}
	return user, nil
}

func (repository *UserRepository) decoyPasswordHash() string {
	repository.decoyOnce.Do(func() {
		hashed, err := bcrypt.GenerateFromPassword([]byte("storekeep-decoy-password"), repository.passwordCost)
		if err == nil {
			repository.decoyHash = string(hashed)
		}
	})
	return repository.decoyHash
}

// FindByEmail looks a user up by email.
func (repository *UserRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return repository.take(ctx, "find_by_email", "email = ?", normalizeEmail(email))
}

// FindByUserID looks a user up by its public identifier.
func (repository *UserRepository) FindByUserID(ctx context.Context, userID string) (*User, error) {
	return repository.take(ctx, "find_by_user_id", "user_id = ?", userID)
}

// FindByIdentity requires both the identifier and the role to match the record.
func (repository *UserRepository) FindByIdentity(ctx context.Context, userID string, role Role) (*User, error) {
	return repository.take(ctx, "find_by_identity", "user_id = ? AND role = ?", userID, role)
}

func (repository *UserRepository) take(ctx context.Context, operation string, query string, arguments ...interface{}) (*User, error) {
	var record User
	err := repository.db.WithContext(ctx).Where(query, arguments...).Take(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("accounts.users.%s: %w", operation, ErrUserNotFound)
		}
		return nil, fmt.Errorf("accounts.users.%s: %w", operation, err)
	}
	return &record, nil
}

// List returns every user ordered by creation.
func (repository *UserRepository) List(ctx context.Context) ([]User, error) {
	var records []User
	if err := repository.db.WithContext(ctx).Order("id ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("accounts.users.list: %w", err)
	}
	return records, nil
}

// UpdateName applies the non-empty fields of the update and saves the user.
func (repository *UserRepository) UpdateName(ctx context.Context, user *User, update NameUpdate) error {
	if user == nil {
		return fmt.Errorf("accounts.users.update_name: %w", ErrUserNotFound)
	}
	if value := strings.TrimSpace(update.FirstName); value != "" {
		user.FirstName = value
	}
	if value := strings.TrimSpace(update.MiddleName); value != "" {
		user.MiddleName = value
	}
	if value := strings.TrimSpace(update.LastName); value != "" {
		user.LastName = value
	}
	if value := strings.TrimSpace(update.ExtensionName); value != "" {
		user.ExtensionName = value
	}
	if err := repository.db.WithContext(ctx).Save(user).Error; err != nil {
		return fmt.Errorf("accounts.users.update_name: %w", err)
	}
	return nil
}

// EnsureAdmin creates the bootstrap admin when no admin exists yet.
func (repository *UserRepository) EnsureAdmin(ctx context.Context, email string, password string) (bool, error) {
	var adminCount int64
	if err := repository.db.WithContext(ctx).Model(&User{}).Where("role = ?", RoleAdmin).Count(&adminCount).Error; err != nil {
		return false, fmt.Errorf("accounts.users.ensure_admin: %w", err)
	}
	if adminCount > 0 {
		return false, nil
	}
	if _, err := repository.Create(ctx, NewUser{
		FirstName: "Admin",
		LastName:  "User",
		Email:     email,
		Password:  password,
		Role:      RoleAdmin,
	}); err != nil {
		return false, fmt.Errorf("accounts.users.ensure_admin: %w", err)
	}
	return true, nil
}

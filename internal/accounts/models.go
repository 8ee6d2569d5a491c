package accounts

import (
	"errors"
	"time"
)

// Role is the authorization level stored on a user record.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Valid reports whether the role is one of the known roles.
func (role Role) Valid() bool {
	return role == RoleAdmin || role == RoleUser
}

var (
	// ErrUserNotFound indicates no user matched the lookup.
	ErrUserNotFound = errors.New("accounts.users.not_found")
	// ErrEmailTaken indicates another user already registered the email.
	ErrEmailTaken = errors.New("accounts.users.email_taken")
	// ErrInvalidCredentials indicates the email/password pair did not match.
	ErrInvalidCredentials = errors.New("accounts.users.invalid_credentials")
	// ErrWeakPassword indicates the password does not satisfy the format policy.
	ErrWeakPassword = errors.New("accounts.users.weak_password")
	// ErrStoreNotFound indicates no store matched the lookup.
	ErrStoreNotFound = errors.New("accounts.stores.not_found")
)

// User is an application account.
type User struct {
	ID            uint      `gorm:"primaryKey"`
	UserID        string    `gorm:"column:user_id;uniqueIndex;not null"`
	FirstName     string    `gorm:"column:first_name;not null"`
	MiddleName    string    `gorm:"column:middle_name;not null;default:''"`
	LastName      string    `gorm:"column:last_name;not null"`
	ExtensionName string    `gorm:"column:extension_name;not null;default:''"`
	Email         string    `gorm:"column:email;uniqueIndex;not null"`
	PasswordHash  string    `gorm:"column:password_hash;not null"`
	Role          Role      `gorm:"column:role;index;not null"`
	CreatedAt     time.Time `gorm:"column:created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at"`
}

func (User) TableName() string {
	return "users"
}

// IsAdmin reports whether the user holds the admin role.
func (user *User) IsAdmin() bool {
	return user != nil && user.Role == RoleAdmin
}

// Store is a retail location owned by a single user.
type Store struct {
	ID          uint      `gorm:"primaryKey"`
	StoreID     string    `gorm:"column:store_id;uniqueIndex;not null"`
	OwnerID     string    `gorm:"column:owner_id;index;not null"`
	Owner       User      `gorm:"foreignKey:OwnerID;references:UserID"`
	Name        string    `gorm:"column:name;not null"`
	AddressLine string    `gorm:"column:address_line;not null"`
	City        string    `gorm:"column:city;not null"`
	Province    string    `gorm:"column:province;not null"`
	Region      string    `gorm:"column:region;not null"`
	CreatedAt   time.Time `gorm:"column:created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (Store) TableName() string {
	return "stores"
}

// OwnerUserID returns the userId of the owning user.
func (store *Store) OwnerUserID() string {
	if store == nil {
		return ""
	}
	return store.OwnerID
}

// NameView is the public shape of a user's name.
type NameView struct {
	First     string `json:"first"`
	Middle    string `json:"middle,omitempty"`
	Last      string `json:"last"`
	Extension string `json:"extension,omitempty"`
}

// UserView is the public shape of a user; credentials are never included.
type UserView struct {
	UserID    string    `json:"userId"`
	Name      NameView  `json:"name"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// OwnerView is the populated owner embedded in store responses.
type OwnerView struct {
	UserID string   `json:"userId"`
	Name   NameView `json:"name"`
	Role   Role     `json:"role"`
}

// LocationView is the public shape of a store location.
type LocationView struct {
	AddressLine string `json:"addressLine"`
	City        string `json:"city"`
	Province    string `json:"province"`
	Region      string `json:"region"`
}

// StoreView is the public shape of a store with its owner populated.
type StoreView struct {
	StoreID   string       `json:"storeId"`
	Name      string       `json:"name"`
	Location  LocationView `json:"location"`
	Owner     OwnerView    `json:"owner"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

func (user *User) nameView() NameView {
	return NameView{
		First:     user.FirstName,
		Middle:    user.MiddleName,
		Last:      user.LastName,
		Extension: user.ExtensionName,
	}
}

// View returns the credential-free representation of the user.
func (user *User) View() UserView {
	return UserView{
		UserID:    user.UserID,
		Name:      user.nameView(),
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}

// View returns the store with its preloaded owner.
func (store *Store) View() StoreView {
	return StoreView{
		StoreID: store.StoreID,
		Name:    store.Name,
		Location: LocationView{
			AddressLine: store.AddressLine,
			City:        store.City,
			Province:    store.Province,
			Region:      store.Region,
		},
		Owner: OwnerView{
			UserID: store.Owner.UserID,
			Name:   store.Owner.nameView(),
			Role:   store.Owner.Role,
		},
		CreatedAt: store.CreatedAt,
		UpdatedAt: store.UpdatedAt,
	}
}

package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StoreDetails carries store fields for creation and partial updates.
type StoreDetails struct {
	Name        string
	AddressLine string
	City        string
	Province    string
	Region      string
}

// StoreRepository persists stores with GORM.
type StoreRepository struct {
	db *gorm.DB
}

// NewStoreRepository constructs a repository over an open GORM handle.
func NewStoreRepository(db *gorm.DB) *StoreRepository {
	return &StoreRepository{db: db}
}

// Create inserts a store owned by ownerUserID.
func (repository *StoreRepository) Create(ctx context.Context, ownerUserID string, details StoreDetails) (*Store, error) {
	if strings.TrimSpace(ownerUserID) == "" {
		return nil, fmt.Errorf("accounts.stores.create: %w", ErrUserNotFound)
	}
	record := Store{
		StoreID:     uuid.NewString(),
		OwnerID:     ownerUserID,
		Name:        strings.TrimSpace(details.Name),
		AddressLine: strings.TrimSpace(details.AddressLine),
		City:        strings.TrimSpace(details.City),
		Province:    strings.TrimSpace(details.Province),
		Region:      strings.TrimSpace(details.Region),
	}
	if err := repository.db.WithContext(ctx).Omit(clause.Associations).Create(&record).Error; err != nil {
		return nil, fmt.Errorf("accounts.stores.create: %w", err)
	}
	return &record, nil
}

// FindByStoreID returns the store with its owner preloaded.
func (repository *StoreRepository) FindByStoreID(ctx context.Context, storeID string) (*Store, error) {
	var record Store
	err := repository.db.WithContext(ctx).Preload("Owner").Where("store_id = ?", storeID).Take(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("accounts.stores.find: %w", ErrStoreNotFound)
		}
		return nil, fmt.Errorf("accounts.stores.find: %w", err)
	}
	return &record, nil
}

// List returns all stores, or only those owned by ownerUserID when it is non-empty.
func (repository *StoreRepository) List(ctx context.Context, ownerUserID string) ([]Store, error) {
	query := repository.db.WithContext(ctx).Preload("Owner").Order("id ASC")
	if ownerUserID != "" {
		query = query.Where("owner_id = ?", ownerUserID)
	}
	var records []Store
	if err := query.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("accounts.stores.list: %w", err)
	}
	return records, nil
}

// Update applies the non-empty fields of details. Ownership never changes.
func (repository *StoreRepository) Update(ctx context.Context, store *Store, details StoreDetails) error {
	if store == nil {
		return fmt.Errorf("accounts.stores.update: %w", ErrStoreNotFound)
	}
	changes := map[string]interface{}{}
	if value := strings.TrimSpace(details.Name); value != "" {
		changes["name"] = value
		store.Name = value
	}
	if value := strings.TrimSpace(details.AddressLine); value != "" {
		changes["address_line"] = value
		store.AddressLine = value
	}
	if value := strings.TrimSpace(details.City); value != "" {
		changes["city"] = value
		store.City = value
	}
	if value := strings.TrimSpace(details.Province); value != "" {
		changes["province"] = value
		store.Province = value
	}
	if value := strings.TrimSpace(details.Region); value != "" {
		changes["region"] = value
		store.Region = value
	}
	if len(changes) == 0 {
		return nil
	}
	result := repository.db.WithContext(ctx).Model(&Store{}).Where("store_id = ?", store.StoreID).Updates(changes)
	if result.Error != nil {
		return fmt.Errorf("accounts.stores.update: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("accounts.stores.update: %w", ErrStoreNotFound)
	}
	return nil
}

// Delete removes the store.
func (repository *StoreRepository) Delete(ctx context.Context, storeID string) error {
	result := repository.db.WithContext(ctx).Where("store_id = ?", storeID).Delete(&Store{})
	if result.Error != nil {
		return fmt.Errorf("accounts.stores.delete: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("accounts.stores.delete: %w", ErrStoreNotFound)
	}
	return nil
}

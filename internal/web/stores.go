package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tyemirov/storekeep/internal/accounts"
	"github.com/tyemirov/storekeep/internal/apierror"
	"github.com/tyemirov/storekeep/internal/authkit"
)

// StoreRepository is the store persistence used by the controllers.
type StoreRepository interface {
	Create(ctx context.Context, ownerUserID string, details accounts.StoreDetails) (*accounts.Store, error)
	FindByStoreID(ctx context.Context, storeID string) (*accounts.Store, error)
	List(ctx context.Context, ownerUserID string) ([]accounts.Store, error)
	Update(ctx context.Context, store *accounts.Store, details accounts.StoreDetails) error
	Delete(ctx context.Context, storeID string) error
}

type createStoreRequest struct {
	Name        string `json:"name" binding:"required,max=200"`
	AddressLine string `json:"addressLine" binding:"required,max=200"`
	City        string `json:"city" binding:"required,max=100"`
	Province    string `json:"province" binding:"required,max=100"`
	Region      string `json:"region" binding:"required,max=100"`
}

type updateStoreRequest struct {
	Name        string `json:"name" binding:"max=200"`
	AddressLine string `json:"addressLine" binding:"max=200"`
	City        string `json:"city" binding:"max=100"`
	Province    string `json:"province" binding:"max=100"`
	Region      string `json:"region" binding:"max=100"`
}

// StoreHandlers serves the /stores resource.
type StoreHandlers struct {
	stores StoreRepository
}

// NewStoreHandlers constructs the store controllers.
func NewStoreHandlers(stores StoreRepository) *StoreHandlers {
	if stores == nil {
		panic("store repository is required")
	}
	return &StoreHandlers{stores: stores}
}

// OwnershipRule guards /stores/:storeId routes.
func (handlers *StoreHandlers) OwnershipRule() authkit.OwnershipRule {
	return authkit.OwnershipRule{
		Param:    "storeId",
		Resource: "store",
		Lookup: func(ctx context.Context, storeID string) (authkit.OwnedResource, error) {
			store, err := handlers.stores.FindByStoreID(ctx, storeID)
			if err != nil {
				if errors.Is(err, accounts.ErrStoreNotFound) {
					return nil, fmt.Errorf("%w: %w", authkit.ErrResourceNotFound, err)
				}
				return nil, err
			}
			return store, nil
		},
	}
}

// HandleListStores returns all stores to admins and owned stores to everyone else.
func (handlers *StoreHandlers) HandleListStores(contextGin *gin.Context) {
	user, ok := authkit.CurrentUser(contextGin)
	if !ok {
		apierror.Abort(contextGin, apierror.Unauthorized("This action requires logging in first"))
		return
	}
	ownerFilter := user.UserID
	if user.IsAdmin() {
		ownerFilter = ""
	}
	stores, err := handlers.stores.List(contextGin.Request.Context(), ownerFilter)
	if err != nil {
		apierror.Abort(contextGin, err)
		return
	}
	views := make([]accounts.StoreView, 0, len(stores))
	for index := range stores {
		views = append(views, stores[index].View())
	}
	contextGin.JSON(http.StatusOK, views)
}

// HandleCreateStore creates a store owned by the authenticated user.
func (handlers *StoreHandlers) HandleCreateStore(contextGin *gin.Context) {
	user, ok := authkit.CurrentUser(contextGin)
	if !ok {
		apierror.Abort(contextGin, apierror.Unauthorized("This action requires logging in first"))
		return
	}
	var inbound createStoreRequest
	if bindErr := contextGin.ShouldBindJSON(&inbound); bindErr != nil {
		apierror.Abort(contextGin, apierror.FromBinding(bindErr))
		return
	}
	store, err := handlers.stores.Create(contextGin.Request.Context(), user.UserID, accounts.StoreDetails{
		Name:        inbound.Name,
		AddressLine: inbound.AddressLine,
		City:        inbound.City,
		Province:    inbound.Province,
		Region:      inbound.Region,
	})
	if err != nil {
		apierror.Abort(contextGin, err)
		return
	}
	contextGin.JSON(http.StatusCreated, gin.H{"storeId": store.StoreID})
}

// HandleGetStore returns the store attached by the ownership check.
func (handlers *StoreHandlers) HandleGetStore(contextGin *gin.Context) {
	store, ok := ownedStore(contextGin)
	if !ok {
		return
	}
	contextGin.JSON(http.StatusOK, store.View())
}

// HandleUpdateStore applies the provided fields to the store.
func (handlers *StoreHandlers) HandleUpdateStore(contextGin *gin.Context) {
	store, ok := ownedStore(contextGin)
	if !ok {
		return
	}
	var inbound updateStoreRequest
	if bindErr := contextGin.ShouldBindJSON(&inbound); bindErr != nil {
		apierror.Abort(contextGin, apierror.FromBinding(bindErr))
		return
	}
	updateErr := handlers.stores.Update(contextGin.Request.Context(), store, accounts.StoreDetails{
		Name:        inbound.Name,
		AddressLine: inbound.AddressLine,
		City:        inbound.City,
		Province:    inbound.Province,
		Region:      inbound.Region,
	})
	if updateErr != nil {
		abortStoreError(contextGin, updateErr)
		return
	}
	contextGin.Status(http.StatusNoContent)
}

// HandleDeleteStore removes the store.
func (handlers *StoreHandlers) HandleDeleteStore(contextGin *gin.Context) {
	store, ok := ownedStore(contextGin)
	if !ok {
		return
	}
	if deleteErr := handlers.stores.Delete(contextGin.Request.Context(), store.StoreID); deleteErr != nil {
		abortStoreError(contextGin, deleteErr)
		return
	}
	contextGin.Status(http.StatusNoContent)
}

func ownedStore(contextGin *gin.Context) (*accounts.Store, bool) {
	owned, found := authkit.OwnedResourceFromContext(contextGin)
	store, ok := owned.(*accounts.Store)
	if !found || !ok || store == nil {
		apierror.Abort(contextGin, errors.New("web.stores.owned_store_missing"))
		return nil, false
	}
	return store, true
}

// abortStoreError reports a store removed between the ownership check and the write as NotFound.
func abortStoreError(contextGin *gin.Context, err error) {
	if errors.Is(err, accounts.ErrStoreNotFound) {
		apierror.Abort(contextGin, apierror.NotFound("Store not found").Wrap(err))
		return
	}
	apierror.Abort(contextGin, err)
}

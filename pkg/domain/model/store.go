package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrStoreNotFound = errors.New("store not found")

// Store holds the connection parameters the fetch pipeline is parameterized
// by. Its lifecycle (OAuth install, token rotation) is owned elsewhere.
type Store struct {
	ID          uuid.UUID
	ShopDomain  string
	AccessToken string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type StoreRepository interface {
	NextID() (uuid.UUID, error)
	Create(store *Store) error
	Find(id uuid.UUID) (*Store, error)
	FindByDomain(shopDomain string) (*Store, error)
	List() ([]Store, error)
	Deactivate(id uuid.UUID) error
}

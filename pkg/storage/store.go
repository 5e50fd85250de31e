package storage

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"shopdash/pkg/domain/model"
)

// NewStoreRepository returns a MySQL-backed model.StoreRepository.
func NewStoreRepository(db *sqlx.DB) model.StoreRepository {
	return &storeRepository{db: db}
}

type storeRepository struct {
	db *sqlx.DB
}

type storeRow struct {
	ID          string    `db:"id"`
	ShopDomain  string    `db:"shop_domain"`
	AccessToken string    `db:"access_token"`
	IsActive    bool      `db:"is_active"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r *storeRepository) NextID() (uuid.UUID, error) {
	id, err := uuid.NewUUID()
	if err != nil {
		return uuid.Nil, errors.Wrap(err, "generate store id")
	}
	return id, nil
}

func (r *storeRepository) Create(store *model.Store) error {
	const query = `
		INSERT INTO stores (id, shop_domain, access_token, is_active, created_at, updated_at)
		VALUES (:id, :shop_domain, :access_token, :is_active, :created_at, :updated_at)
		ON DUPLICATE KEY UPDATE
			access_token = VALUES(access_token),
			is_active = VALUES(is_active),
			updated_at = VALUES(updated_at)`

	now := time.Now().UTC()
	if store.CreatedAt.IsZero() {
		store.CreatedAt = now
	}
	store.UpdatedAt = now

	_, err := r.db.NamedExec(query, storeRow{
		ID:          store.ID.String(),
		ShopDomain:  store.ShopDomain,
		AccessToken: store.AccessToken,
		IsActive:    store.IsActive,
		CreatedAt:   store.CreatedAt,
		UpdatedAt:   store.UpdatedAt,
	})
	return errors.Wrap(err, "insert store")
}

func (r *storeRepository) Find(id uuid.UUID) (*model.Store, error) {
	const query = `
		SELECT id, shop_domain, access_token, is_active, created_at, updated_at
		FROM stores WHERE id = ?`

	var row storeRow
	if err := r.db.Get(&row, query, id.String()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrStoreNotFound
		}
		return nil, errors.Wrap(err, "select store")
	}
	return row.toModel()
}

func (r *storeRepository) FindByDomain(shopDomain string) (*model.Store, error) {
	const query = `
		SELECT id, shop_domain, access_token, is_active, created_at, updated_at
		FROM stores WHERE shop_domain = ?`

	var row storeRow
	if err := r.db.Get(&row, query, shopDomain); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrStoreNotFound
		}
		return nil, errors.Wrap(err, "select store by domain")
	}
	return row.toModel()
}

func (r *storeRepository) List() ([]model.Store, error) {
	const query = `
		SELECT id, shop_domain, access_token, is_active, created_at, updated_at
		FROM stores ORDER BY created_at`

	var rows []storeRow
	if err := r.db.Select(&rows, query); err != nil {
		return nil, errors.Wrap(err, "select stores")
	}

	stores := make([]model.Store, 0, len(rows))
	for _, row := range rows {
		store, err := row.toModel()
		if err != nil {
			return nil, err
		}
		stores = append(stores, *store)
	}
	return stores, nil
}

func (r *storeRepository) Deactivate(id uuid.UUID) error {
	const query = `UPDATE stores SET is_active = FALSE, updated_at = ? WHERE id = ?`

	result, err := r.db.Exec(query, time.Now().UTC(), id.String())
	if err != nil {
		return errors.Wrap(err, "deactivate store")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "deactivate store")
	}
	if affected == 0 {
		return model.ErrStoreNotFound
	}
	return nil
}

func (row storeRow) toModel() (*model.Store, error) {
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return nil, errors.Wrap(err, "parse store id")
	}
	return &model.Store{
		ID:          id,
		ShopDomain:  row.ShopDomain,
		AccessToken: row.AccessToken,
		IsActive:    row.IsActive,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}, nil
}

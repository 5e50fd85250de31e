package normalize

import (
	"encoding/json"

	"github.com/pkg/errors"

	"shopdash/pkg/domain/model"
	"shopdash/pkg/shopify"
)

type restInventoryLevel struct {
	InventoryItemID int64 `json:"inventory_item_id"`
	LocationID      int64 `json:"location_id"`
	Available       int   `json:"available"`
}

// InventoryLevelFromREST maps one REST inventory_level object to the
// canonical record. Available may legitimately be negative (oversold stock).
func InventoryLevelFromREST(raw json.RawMessage) (model.InventoryLevel, error) {
	var src restInventoryLevel
	if err := json.Unmarshal(raw, &src); err != nil {
		return model.InventoryLevel{}, errors.Wrap(err, "decode rest inventory level")
	}
	if src.InventoryItemID == 0 {
		return model.InventoryLevel{}, errors.New("rest inventory level missing inventory_item_id")
	}
	return model.InventoryLevel{
		InventoryItemID: src.InventoryItemID,
		LocationID:      src.LocationID,
		Available:       src.Available,
	}, nil
}

type gqlInventoryLevel struct {
	Available int `json:"available"`
	Item      *struct {
		ID string `json:"id"`
	} `json:"item"`
	Location *struct {
		ID string `json:"id"`
	} `json:"location"`
}

// InventoryLevelFromGraphQL maps one GraphQL inventoryLevel node to the
// canonical record.
func InventoryLevelFromGraphQL(node json.RawMessage) (model.InventoryLevel, error) {
	var src gqlInventoryLevel
	if err := json.Unmarshal(node, &src); err != nil {
		return model.InventoryLevel{}, errors.Wrap(err, "decode graphql inventory level")
	}
	if src.Item == nil || src.Item.ID == "" {
		return model.InventoryLevel{}, errors.New("graphql inventory level missing item id")
	}

	itemID, err := shopify.ParseNumericID(src.Item.ID)
	if err != nil {
		return model.InventoryLevel{}, err
	}

	level := model.InventoryLevel{InventoryItemID: itemID, Available: src.Available}
	if src.Location != nil && src.Location.ID != "" {
		locationID, err := shopify.ParseNumericID(src.Location.ID)
		if err != nil {
			return model.InventoryLevel{}, err
		}
		level.LocationID = locationID
	}
	return level, nil
}

package normalize

import (
	"encoding/json"

	"github.com/pkg/errors"

	"shopdash/pkg/domain/model"
	"shopdash/pkg/shopify"
)

type restLineItem struct {
	ProductID   int64  `json:"product_id"`
	VariantID   int64  `json:"variant_id"`
	Title       string `json:"title"`
	Quantity    int    `json:"quantity"`
	Price       string `json:"price"`
	Vendor      string `json:"vendor"`
	ProductType string `json:"product_type"`
}

type restOrder struct {
	ID              int64          `json:"id"`
	CreatedAt       string         `json:"created_at"`
	ProcessedAt     *string        `json:"processed_at"`
	TotalPrice      string         `json:"total_price"`
	SubtotalPrice   string         `json:"subtotal_price"`
	TotalTax        string         `json:"total_tax"`
	FinancialStatus string         `json:"financial_status"`
	CancelledAt     *string        `json:"cancelled_at"`
	Customer        *struct {
		ID int64 `json:"id"`
	} `json:"customer"`
	LineItems []restLineItem `json:"line_items"`
}

// OrderFromREST maps one REST order object to the canonical record.
func OrderFromREST(raw json.RawMessage) (model.Order, error) {
	var src restOrder
	if err := json.Unmarshal(raw, &src); err != nil {
		return model.Order{}, errors.Wrap(err, "decode rest order")
	}
	if src.ID == 0 {
		return model.Order{}, errors.New("rest order missing id")
	}

	createdAt, err := parseTime(src.CreatedAt)
	if err != nil {
		return model.Order{}, errors.Wrap(err, "rest order created_at")
	}
	processedAt, err := parseOptionalTime(src.ProcessedAt)
	if err != nil {
		return model.Order{}, errors.Wrap(err, "rest order processed_at")
	}
	cancelledAt, err := parseOptionalTime(src.CancelledAt)
	if err != nil {
		return model.Order{}, errors.Wrap(err, "rest order cancelled_at")
	}

	totalPrice, err := Money(src.TotalPrice)
	if err != nil {
		return model.Order{}, err
	}
	subtotal, err := Money(src.SubtotalPrice)
	if err != nil {
		return model.Order{}, err
	}
	totalTax, err := Money(src.TotalTax)
	if err != nil {
		return model.Order{}, err
	}

	order := model.Order{
		ID:              src.ID,
		CreatedAt:       createdAt,
		ProcessedAt:     processedAt,
		TotalPrice:      totalPrice,
		SubtotalPrice:   subtotal,
		TotalTax:        totalTax,
		FinancialStatus: Enum(src.FinancialStatus),
		CancelledAt:     cancelledAt,
		LineItems:       make([]model.LineItem, 0, len(src.LineItems)),
	}
	if src.Customer != nil {
		order.CustomerID = src.Customer.ID
	}

	for _, li := range src.LineItems {
		price, err := Money(li.Price)
		if err != nil {
			return model.Order{}, errors.Wrap(err, "rest line item price")
		}
		order.LineItems = append(order.LineItems, model.LineItem{
			ProductID:   li.ProductID,
			VariantID:   li.VariantID,
			Title:       li.Title,
			Quantity:    li.Quantity,
			Price:       price,
			Vendor:      li.Vendor,
			ProductType: li.ProductType,
		})
	}
	return order, nil
}

type gqlMoneySet struct {
	ShopMoney struct {
		Amount string `json:"amount"`
	} `json:"shopMoney"`
}

type gqlOrderLineItem struct {
	Title    string `json:"title"`
	Quantity int    `json:"quantity"`
	Vendor   string `json:"vendor"`
	Product  *struct {
		ID          string `json:"id"`
		ProductType string `json:"productType"`
	} `json:"product"`
	Variant *struct {
		ID string `json:"id"`
	} `json:"variant"`
	OriginalUnitPriceSet gqlMoneySet `json:"originalUnitPriceSet"`
}

type gqlOrder struct {
	ID                     string  `json:"id"`
	CreatedAt              string  `json:"createdAt"`
	ProcessedAt            *string `json:"processedAt"`
	CancelledAt            *string `json:"cancelledAt"`
	DisplayFinancialStatus string  `json:"displayFinancialStatus"`
	TotalPriceSet          gqlMoneySet `json:"totalPriceSet"`
	SubtotalPriceSet       gqlMoneySet `json:"subtotalPriceSet"`
	TotalTaxSet            gqlMoneySet `json:"totalTaxSet"`
	Customer               *struct {
		ID string `json:"id"`
	} `json:"customer"`
	LineItems struct {
		Edges []struct {
			Node gqlOrderLineItem `json:"node"`
		} `json:"edges"`
	} `json:"lineItems"`
}

// OrderFromGraphQL maps one GraphQL order node to the canonical record.
// Global IDs are resolved to bare numeric ids and the PascalCase/uppercase
// enum vocabulary is lowered to match the REST path.
func OrderFromGraphQL(node json.RawMessage) (model.Order, error) {
	var src gqlOrder
	if err := json.Unmarshal(node, &src); err != nil {
		return model.Order{}, errors.Wrap(err, "decode graphql order")
	}
	if src.ID == "" {
		return model.Order{}, errors.New("graphql order missing id")
	}

	id, err := shopify.ParseNumericID(src.ID)
	if err != nil {
		return model.Order{}, err
	}
	createdAt, err := parseTime(src.CreatedAt)
	if err != nil {
		return model.Order{}, errors.Wrap(err, "graphql order createdAt")
	}
	processedAt, err := parseOptionalTime(src.ProcessedAt)
	if err != nil {
		return model.Order{}, errors.Wrap(err, "graphql order processedAt")
	}
	cancelledAt, err := parseOptionalTime(src.CancelledAt)
	if err != nil {
		return model.Order{}, errors.Wrap(err, "graphql order cancelledAt")
	}

	totalPrice, err := Money(src.TotalPriceSet.ShopMoney.Amount)
	if err != nil {
		return model.Order{}, err
	}
	subtotal, err := Money(src.SubtotalPriceSet.ShopMoney.Amount)
	if err != nil {
		return model.Order{}, err
	}
	totalTax, err := Money(src.TotalTaxSet.ShopMoney.Amount)
	if err != nil {
		return model.Order{}, err
	}

	order := model.Order{
		ID:              id,
		CreatedAt:       createdAt,
		ProcessedAt:     processedAt,
		TotalPrice:      totalPrice,
		SubtotalPrice:   subtotal,
		TotalTax:        totalTax,
		FinancialStatus: Enum(src.DisplayFinancialStatus),
		CancelledAt:     cancelledAt,
		LineItems:       make([]model.LineItem, 0, len(src.LineItems.Edges)),
	}
	if src.Customer != nil {
		customerID, err := shopify.ParseNumericID(src.Customer.ID)
		if err != nil {
			return model.Order{}, err
		}
		order.CustomerID = customerID
	}

	for _, edge := range src.LineItems.Edges {
		li := edge.Node
		price, err := Money(li.OriginalUnitPriceSet.ShopMoney.Amount)
		if err != nil {
			return model.Order{}, errors.Wrap(err, "graphql line item price")
		}
		item := model.LineItem{
			Title:    li.Title,
			Quantity: li.Quantity,
			Price:    price,
			Vendor:   li.Vendor,
		}
		if li.Product != nil {
			productID, err := shopify.ParseNumericID(li.Product.ID)
			if err != nil {
				return model.Order{}, err
			}
			item.ProductID = productID
			item.ProductType = li.Product.ProductType
		}
		if li.Variant != nil {
			variantID, err := shopify.ParseNumericID(li.Variant.ID)
			if err != nil {
				return model.Order{}, err
			}
			item.VariantID = variantID
		}
		order.LineItems = append(order.LineItems, item)
	}
	return order, nil
}

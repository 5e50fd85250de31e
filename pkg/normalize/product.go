package normalize

import (
	"encoding/json"

	"github.com/pkg/errors"

	"shopdash/pkg/domain/model"
	"shopdash/pkg/shopify"
)

type restVariant struct {
	ID                int64   `json:"id"`
	SKU               string  `json:"sku"`
	Price             string  `json:"price"`
	InventoryQuantity int     `json:"inventory_quantity"`
	CompareAtPrice    *string `json:"compare_at_price"`
}

type restImage struct {
	ID  int64  `json:"id"`
	Src string `json:"src"`
	Alt string `json:"alt"`
}

type restProduct struct {
	ID          int64         `json:"id"`
	Title       string        `json:"title"`
	Vendor      string        `json:"vendor"`
	ProductType string        `json:"product_type"`
	Status      string        `json:"status"`
	Variants    []restVariant `json:"variants"`
	Images      []restImage   `json:"images"`
}

// ProductFromREST maps one REST product object to the canonical record.
func ProductFromREST(raw json.RawMessage) (model.Product, error) {
	var src restProduct
	if err := json.Unmarshal(raw, &src); err != nil {
		return model.Product{}, errors.Wrap(err, "decode rest product")
	}
	if src.ID == 0 {
		return model.Product{}, errors.New("rest product missing id")
	}

	product := model.Product{
		ID:          src.ID,
		Title:       src.Title,
		Vendor:      src.Vendor,
		ProductType: src.ProductType,
		Status:      Enum(src.Status),
		Variants:    make([]model.Variant, 0, len(src.Variants)),
		Images:      make([]model.Image, 0, len(src.Images)),
	}

	for _, v := range src.Variants {
		price, err := Money(v.Price)
		if err != nil {
			return model.Product{}, errors.Wrap(err, "rest variant price")
		}
		variant := model.Variant{
			ID:                v.ID,
			SKU:               v.SKU,
			Price:             price,
			InventoryQuantity: v.InventoryQuantity,
		}
		if v.CompareAtPrice != nil && *v.CompareAtPrice != "" {
			compareAt, err := Money(*v.CompareAtPrice)
			if err != nil {
				return model.Product{}, errors.Wrap(err, "rest variant compare_at_price")
			}
			variant.CompareAtPrice = &compareAt
		}
		product.Variants = append(product.Variants, variant)
	}

	for _, img := range src.Images {
		product.Images = append(product.Images, model.Image{ID: img.ID, Src: img.Src, Alt: img.Alt})
	}
	return product, nil
}

type gqlVariant struct {
	ID                string  `json:"id"`
	SKU               string  `json:"sku"`
	Price             string  `json:"price"`
	InventoryQuantity int     `json:"inventoryQuantity"`
	CompareAtPrice    *string `json:"compareAtPrice"`
}

type gqlImage struct {
	ID      string `json:"id"`
	URL     string `json:"url"`
	AltText string `json:"altText"`
}

type gqlProduct struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Vendor      string `json:"vendor"`
	ProductType string `json:"productType"`
	Status      string `json:"status"`
	Variants    struct {
		Edges []struct {
			Node gqlVariant `json:"node"`
		} `json:"edges"`
	} `json:"variants"`
	Images struct {
		Edges []struct {
			Node gqlImage `json:"node"`
		} `json:"edges"`
	} `json:"images"`
}

// ProductFromGraphQL maps one GraphQL product node to the canonical record.
func ProductFromGraphQL(node json.RawMessage) (model.Product, error) {
	var src gqlProduct
	if err := json.Unmarshal(node, &src); err != nil {
		return model.Product{}, errors.Wrap(err, "decode graphql product")
	}
	if src.ID == "" {
		return model.Product{}, errors.New("graphql product missing id")
	}

	id, err := shopify.ParseNumericID(src.ID)
	if err != nil {
		return model.Product{}, err
	}

	product := model.Product{
		ID:          id,
		Title:       src.Title,
		Vendor:      src.Vendor,
		ProductType: src.ProductType,
		Status:      Enum(src.Status),
		Variants:    make([]model.Variant, 0, len(src.Variants.Edges)),
		Images:      make([]model.Image, 0, len(src.Images.Edges)),
	}

	for _, edge := range src.Variants.Edges {
		v := edge.Node
		variantID, err := shopify.ParseNumericID(v.ID)
		if err != nil {
			return model.Product{}, err
		}
		price, err := Money(v.Price)
		if err != nil {
			return model.Product{}, errors.Wrap(err, "graphql variant price")
		}
		variant := model.Variant{
			ID:                variantID,
			SKU:               v.SKU,
			Price:             price,
			InventoryQuantity: v.InventoryQuantity,
		}
		if v.CompareAtPrice != nil && *v.CompareAtPrice != "" {
			compareAt, err := Money(*v.CompareAtPrice)
			if err != nil {
				return model.Product{}, errors.Wrap(err, "graphql variant compareAtPrice")
			}
			variant.CompareAtPrice = &compareAt
		}
		product.Variants = append(product.Variants, variant)
	}

	for _, edge := range src.Images.Edges {
		img := edge.Node
		imageID, err := shopify.ParseNumericID(img.ID)
		if err != nil {
			return model.Product{}, err
		}
		product.Images = append(product.Images, model.Image{ID: imageID, Src: img.URL, Alt: img.AltText})
	}
	return product, nil
}

package normalize

import (
	"encoding/json"
	"strconv"

	"github.com/pkg/errors"

	"shopdash/pkg/domain/model"
	"shopdash/pkg/shopify"
)

type restCustomer struct {
	ID               int64  `json:"id"`
	Email            string `json:"email"`
	CreatedAt        string `json:"created_at"`
	OrdersCount      int    `json:"orders_count"`
	TotalSpent       string `json:"total_spent"`
	Tags             string `json:"tags"`
	AcceptsMarketing bool   `json:"accepts_marketing"`
}

// CustomerFromREST maps one REST customer object to the canonical record.
// Email may be empty when the app lacks the protected-customer-data scope.
func CustomerFromREST(raw json.RawMessage) (model.Customer, error) {
	var src restCustomer
	if err := json.Unmarshal(raw, &src); err != nil {
		return model.Customer{}, errors.Wrap(err, "decode rest customer")
	}
	if src.ID == 0 {
		return model.Customer{}, errors.New("rest customer missing id")
	}

	createdAt, err := parseTime(src.CreatedAt)
	if err != nil {
		return model.Customer{}, errors.Wrap(err, "rest customer created_at")
	}
	totalSpent, err := Money(src.TotalSpent)
	if err != nil {
		return model.Customer{}, err
	}

	return model.Customer{
		ID:               src.ID,
		Email:            src.Email,
		CreatedAt:        createdAt,
		OrdersCount:      src.OrdersCount,
		TotalSpent:       totalSpent,
		Tags:             splitTags(src.Tags),
		AcceptsMarketing: src.AcceptsMarketing,
	}, nil
}

type gqlCustomer struct {
	ID             string   `json:"id"`
	Email          string   `json:"email"`
	CreatedAt      string   `json:"createdAt"`
	NumberOfOrders string   `json:"numberOfOrders"`
	Tags           []string `json:"tags"`
	AmountSpent    struct {
		Amount string `json:"amount"`
	} `json:"amountSpent"`
	EmailMarketingConsent *struct {
		MarketingState string `json:"marketingState"`
	} `json:"emailMarketingConsent"`
}

// CustomerFromGraphQL maps one GraphQL customer node to the canonical record.
// The GraphQL field set is the reduced, scope-compliant one used as the
// protected-data fallback.
func CustomerFromGraphQL(node json.RawMessage) (model.Customer, error) {
	var src gqlCustomer
	if err := json.Unmarshal(node, &src); err != nil {
		return model.Customer{}, errors.Wrap(err, "decode graphql customer")
	}
	if src.ID == "" {
		return model.Customer{}, errors.New("graphql customer missing id")
	}

	id, err := shopify.ParseNumericID(src.ID)
	if err != nil {
		return model.Customer{}, err
	}
	createdAt, err := parseTime(src.CreatedAt)
	if err != nil {
		return model.Customer{}, errors.Wrap(err, "graphql customer createdAt")
	}
	totalSpent, err := Money(src.AmountSpent.Amount)
	if err != nil {
		return model.Customer{}, err
	}

	ordersCount, err := parseOrdersCount(src.NumberOfOrders)
	if err != nil {
		return model.Customer{}, err
	}

	tags := src.Tags
	if tags == nil {
		tags = []string{}
	}

	customer := model.Customer{
		ID:          id,
		Email:       src.Email,
		CreatedAt:   createdAt,
		OrdersCount: ordersCount,
		TotalSpent:  totalSpent,
		Tags:        tags,
	}
	if src.EmailMarketingConsent != nil {
		customer.AcceptsMarketing = Enum(src.EmailMarketingConsent.MarketingState) == "subscribed"
	}
	return customer, nil
}

// numberOfOrders is an UnsignedInt64 serialized as a string.
func parseOrdersCount(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	count, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.Wrapf(err, "parse orders count %q", raw)
	}
	return count, nil
}

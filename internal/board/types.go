package board

import (
	"encoding/json"
	"time"
)

// CustomerCard is the shape of a customer entry on the board
type CustomerCard struct {
	// Name is the item display name
	Name string

	// Email is the customer's email address
	Email string

	// Phone is the customer's phone number, may be empty
	Phone string

	// SourceID is the customer identifier in the booking system
	SourceID string

	// CreatedAt is when the customer was created in the booking system
	CreatedAt time.Time
}

// Item is a board item as returned by the platform API
type Item struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// graphqlRequest is the envelope for a GraphQL-over-HTTP call
type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// graphqlError is a single error entry in a GraphQL response
type graphqlError struct {
	Message string `json:"message"`
}

// graphqlResponse is the envelope of a GraphQL response. Data is decoded
// per-operation by the caller.
type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphqlError  `json:"errors,omitempty"`
}

// itemsPageByColumnValuesData is the response shape for the item search
type itemsPageByColumnValuesData struct {
	ItemsPageByColumnValues struct {
		Items []Item `json:"items"`
	} `json:"items_page_by_column_values"`
}

// itemMutationData is the response shape for item create/update mutations
type itemMutationData struct {
	CreateItem *Item `json:"create_item,omitempty"`
	ChangeItem *Item `json:"change_multiple_column_values,omitempty"`
}

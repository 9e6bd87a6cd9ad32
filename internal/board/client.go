// Package board provides a client for the hosted work-management
// platform's GraphQL API, scoped to a single customer board.
package board

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bookwell/customer-sync/internal/httpclient"
	"github.com/bookwell/customer-sync/internal/logger"
)

// Client is an interface for board operations
type Client interface {
	// FindByEmail searches the board for an item whose email column
	// matches the given address. Returns nil when no item matches.
	FindByEmail(ctx context.Context, email string) (*Item, error)

	// CreateCustomer creates a new board item from the customer card
	CreateCustomer(ctx context.Context, card *CustomerCard) (*Item, error)

	// UpdateCustomer overwrites the column values of an existing item
	UpdateCustomer(ctx context.Context, itemID string, card *CustomerCard) (*Item, error)
}

// ColumnMapping maps customer card fields to board column identifiers
type ColumnMapping struct {
	Email      string
	Phone      string
	CustomerID string
	CreatedAt  string
}

// graphqlClient implements Client against the platform's GraphQL endpoint
type graphqlClient struct {
	httpClient httpclient.Client
	endpoint   string
	boardID    string
	groupID    string
	columns    ColumnMapping
}

// NewClient creates a new board client
func NewClient(httpClient httpclient.Client, endpoint, boardID, groupID string, columns ColumnMapping) Client {
	return &graphqlClient{
		httpClient: httpClient,
		endpoint:   endpoint,
		boardID:    boardID,
		groupID:    groupID,
		columns:    columns,
	}
}

const findByEmailQuery = `query ($boardID: ID!, $columnID: String!, $email: String!) {
  items_page_by_column_values(board_id: $boardID, columns: [{column_id: $columnID, column_values: [$email]}], limit: 1) {
    items {
      id
      name
    }
  }
}`

// FindByEmail looks up a board item by its email column value
func (c *graphqlClient) FindByEmail(ctx context.Context, email string) (*Item, error) {
	variables := map[string]any{
		"boardID":  c.boardID,
		"columnID": c.columns.Email,
		"email":    email,
	}

	var data itemsPageByColumnValuesData
	if err := c.execute(ctx, findByEmailQuery, variables, &data); err != nil {
		return nil, fmt.Errorf("failed to search board for email: %w", err)
	}

	items := data.ItemsPageByColumnValues.Items
	if len(items) == 0 {
		return nil, nil
	}
	return &items[0], nil
}

const createItemMutation = `mutation ($boardID: ID!, $groupID: String!, $name: String!, $columnValues: JSON!) {
  create_item(board_id: $boardID, group_id: $groupID, item_name: $name, column_values: $columnValues) {
    id
    name
  }
}`

// CreateCustomer creates a new item on the board
func (c *graphqlClient) CreateCustomer(ctx context.Context, card *CustomerCard) (*Item, error) {
	columnValues, err := c.encodeColumnValues(card)
	if err != nil {
		return nil, err
	}

	variables := map[string]any{
		"boardID":      c.boardID,
		"groupID":      c.groupID,
		"name":         card.Name,
		"columnValues": columnValues,
	}

	var data itemMutationData
	if err := c.execute(ctx, createItemMutation, variables, &data); err != nil {
		return nil, fmt.Errorf("failed to create board item: %w", err)
	}
	if data.CreateItem == nil {
		return nil, fmt.Errorf("create item response missing item")
	}

	logger.Debugf("Created board item %s for %s", data.CreateItem.ID, card.Email)
	return data.CreateItem, nil
}

const updateItemMutation = `mutation ($boardID: ID!, $itemID: ID!, $columnValues: JSON!) {
  change_multiple_column_values(board_id: $boardID, item_id: $itemID, column_values: $columnValues) {
    id
    name
  }
}`

// UpdateCustomer overwrites the column values of an existing board item
func (c *graphqlClient) UpdateCustomer(ctx context.Context, itemID string, card *CustomerCard) (*Item, error) {
	columnValues, err := c.encodeColumnValues(card)
	if err != nil {
		return nil, err
	}

	variables := map[string]any{
		"boardID":      c.boardID,
		"itemID":       itemID,
		"columnValues": columnValues,
	}

	var data itemMutationData
	if err := c.execute(ctx, updateItemMutation, variables, &data); err != nil {
		return nil, fmt.Errorf("failed to update board item %s: %w", itemID, err)
	}
	if data.ChangeItem == nil {
		return nil, fmt.Errorf("update item response missing item")
	}

	logger.Debugf("Updated board item %s for %s", itemID, card.Email)
	return data.ChangeItem, nil
}

// encodeColumnValues builds the JSON-encoded column values string the
// platform expects for the JSON scalar type
func (c *graphqlClient) encodeColumnValues(card *CustomerCard) (string, error) {
	values := map[string]any{}
	if c.columns.Email != "" && card.Email != "" {
		values[c.columns.Email] = map[string]string{
			"email": card.Email,
			"text":  card.Email,
		}
	}
	if c.columns.Phone != "" && card.Phone != "" {
		values[c.columns.Phone] = card.Phone
	}
	if c.columns.CustomerID != "" && card.SourceID != "" {
		values[c.columns.CustomerID] = card.SourceID
	}
	if c.columns.CreatedAt != "" && !card.CreatedAt.IsZero() {
		values[c.columns.CreatedAt] = map[string]string{
			"date": card.CreatedAt.UTC().Format("2006-01-02"),
			"time": card.CreatedAt.UTC().Format("15:04:05"),
		}
	}

	encoded, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("failed to encode column values: %w", err)
	}
	return string(encoded), nil
}

// execute sends a GraphQL request and decodes the data payload into out
func (c *graphqlClient) execute(ctx context.Context, query string, variables map[string]any, out any) error {
	req := graphqlRequest{
		Query:     query,
		Variables: variables,
	}

	body, err := c.httpClient.PostJSON(ctx, c.endpoint, req)
	if err != nil {
		return err
	}

	var resp graphqlResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if len(resp.Errors) > 0 {
		messages := make([]string, 0, len(resp.Errors))
		for _, gqlErr := range resp.Errors {
			messages = append(messages, gqlErr.Message)
		}
		return fmt.Errorf("graphql errors: %s", strings.Join(messages, "; "))
	}

	if out != nil && len(resp.Data) > 0 {
		if err := json.Unmarshal(resp.Data, out); err != nil {
			return fmt.Errorf("failed to decode response data: %w", err)
		}
	}
	return nil
}

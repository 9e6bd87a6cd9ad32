package board_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookwell/customer-sync/internal/board"
	"github.com/bookwell/customer-sync/internal/httpclient"
)

var testColumns = board.ColumnMapping{
	Email:      "email",
	Phone:      "phone",
	CustomerID: "text_customer_id",
	CreatedAt:  "date_created",
}

func newTestClient(t *testing.T, handler http.HandlerFunc) board.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return board.NewClient(httpclient.NewDefaultClient(), server.URL, "12345", "new_customers", testColumns)
}

func decodeRequest(t *testing.T, r *http.Request) (string, map[string]any) {
	t.Helper()
	var req struct {
		Query     string         `json:"query"`
		Variables map[string]any `json:"variables"`
	}
	require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
	return req.Query, req.Variables
}

func TestFindByEmail(t *testing.T) {
	t.Parallel()

	t.Run("found", func(t *testing.T) {
		t.Parallel()

		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			query, vars := decodeRequest(t, r)
			assert.Contains(t, query, "items_page_by_column_values")
			assert.Equal(t, "12345", vars["boardID"])
			assert.Equal(t, "email", vars["columnID"])
			assert.Equal(t, "anna.berg@example.com", vars["email"])

			_, _ = w.Write([]byte(`{"data": {"items_page_by_column_values": {"items": [{"id": "987", "name": "Anna Berg"}]}}}`))
		})

		item, err := client.FindByEmail(context.Background(), "anna.berg@example.com")
		require.NoError(t, err)
		require.NotNil(t, item)
		assert.Equal(t, "987", item.ID)
		assert.Equal(t, "Anna Berg", item.Name)
	})

	t.Run("not found returns nil item", func(t *testing.T) {
		t.Parallel()

		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"data": {"items_page_by_column_values": {"items": []}}}`))
		})

		item, err := client.FindByEmail(context.Background(), "missing@example.com")
		require.NoError(t, err)
		assert.Nil(t, item)
	})

	t.Run("graphql errors are surfaced", func(t *testing.T) {
		t.Parallel()

		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"errors": [{"message": "Board not found"}]}`))
		})

		_, err := client.FindByEmail(context.Background(), "anna@example.com")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Board not found")
	})
}

func TestCreateCustomer(t *testing.T) {
	t.Parallel()

	card := &board.CustomerCard{
		Name:      "Anna Berg",
		Email:     "anna.berg@example.com",
		Phone:     "+46701234567",
		SourceID:  "cust-1",
		CreatedAt: time.Date(2026, 3, 1, 10, 15, 0, 0, time.UTC),
	}

	t.Run("creates item with column values", func(t *testing.T) {
		t.Parallel()

		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			query, vars := decodeRequest(t, r)
			assert.Contains(t, query, "create_item")
			assert.Equal(t, "12345", vars["boardID"])
			assert.Equal(t, "new_customers", vars["groupID"])
			assert.Equal(t, "Anna Berg", vars["name"])

			var columnValues map[string]any
			require.NoError(t, json.Unmarshal([]byte(vars["columnValues"].(string)), &columnValues))
			assert.Equal(t, map[string]any{
				"email": "anna.berg@example.com",
				"text":  "anna.berg@example.com",
			}, columnValues["email"])
			assert.Equal(t, "+46701234567", columnValues["phone"])
			assert.Equal(t, "cust-1", columnValues["text_customer_id"])
			assert.Equal(t, map[string]any{
				"date": "2026-03-01",
				"time": "10:15:00",
			}, columnValues["date_created"])

			_, _ = w.Write([]byte(`{"data": {"create_item": {"id": "1001", "name": "Anna Berg"}}}`))
		})

		item, err := client.CreateCustomer(context.Background(), card)
		require.NoError(t, err)
		assert.Equal(t, "1001", item.ID)
	})

	t.Run("missing item in response is an error", func(t *testing.T) {
		t.Parallel()

		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"data": {}}`))
		})

		_, err := client.CreateCustomer(context.Background(), card)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing item")
	})
}

func TestUpdateCustomer(t *testing.T) {
	t.Parallel()

	card := &board.CustomerCard{
		Name:     "Anna Berg",
		Email:    "anna.berg@example.com",
		SourceID: "cust-1",
	}

	t.Run("updates item column values", func(t *testing.T) {
		t.Parallel()

		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			query, vars := decodeRequest(t, r)
			assert.Contains(t, query, "change_multiple_column_values")
			assert.Equal(t, "987", vars["itemID"])

			var columnValues map[string]any
			require.NoError(t, json.Unmarshal([]byte(vars["columnValues"].(string)), &columnValues))
			assert.NotContains(t, columnValues, "phone")
			assert.NotContains(t, columnValues, "date_created")

			_, _ = w.Write([]byte(`{"data": {"change_multiple_column_values": {"id": "987", "name": "Anna Berg"}}}`))
		})

		item, err := client.UpdateCustomer(context.Background(), "987", card)
		require.NoError(t, err)
		assert.Equal(t, "987", item.ID)
	})

	t.Run("transport error is surfaced", func(t *testing.T) {
		t.Parallel()

		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		})

		_, err := client.UpdateCustomer(context.Background(), "987", card)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to update board item 987")
	})
}

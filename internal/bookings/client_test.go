package bookings_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookwell/customer-sync/internal/bookings"
	"github.com/bookwell/customer-sync/internal/httpclient"
)

func TestListCustomers(t *testing.T) {
	t.Parallel()

	from := time.Date(2026, 3, 1, 5, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 2, 5, 0, 0, 0, time.UTC)

	t.Run("single page", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/customers", r.URL.Path)
			assert.Equal(t, from.Format(time.RFC3339), r.URL.Query().Get("createdFrom"))
			assert.Equal(t, to.Format(time.RFC3339), r.URL.Query().Get("createdTo"))
			assert.Equal(t, "1", r.URL.Query().Get("page"))
			assert.Equal(t, "100", r.URL.Query().Get("pageSize"))

			_ = json.NewEncoder(w).Encode(map[string]any{
				"customers": []map[string]any{
					{
						"id":        "cust-1",
						"firstName": "Anna",
						"lastName":  "Berg",
						"email":     "anna.berg@example.com",
						"phone":     "+46701234567",
						"createdAt": "2026-03-01T10:15:00Z",
					},
				},
				"page":       1,
				"pageSize":   100,
				"totalCount": 1,
			})
		}))
		defer server.Close()

		client := bookings.NewClient(httpclient.NewDefaultClient(), server.URL, 100)
		customers, err := client.ListCustomers(context.Background(), from, to)
		require.NoError(t, err)
		require.Len(t, customers, 1)
		assert.Equal(t, "cust-1", customers[0].ID)
		assert.Equal(t, "anna.berg@example.com", customers[0].Email)
		assert.Equal(t, "Anna Berg", customers[0].FullName())
	})

	t.Run("follows pagination until short page", func(t *testing.T) {
		t.Parallel()

		const pageSize = 2
		pages := map[string][]map[string]any{
			"1": {
				{"id": "c1", "firstName": "A", "lastName": "One", "createdAt": "2026-03-01T10:00:00Z"},
				{"id": "c2", "firstName": "B", "lastName": "Two", "createdAt": "2026-03-01T11:00:00Z"},
			},
			"2": {
				{"id": "c3", "firstName": "C", "lastName": "Three", "createdAt": "2026-03-01T12:00:00Z"},
			},
		}

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			page := r.URL.Query().Get("page")
			pageNum, err := strconv.Atoi(page)
			assert.NoError(t, err)
			assert.Equal(t, strconv.Itoa(pageSize), r.URL.Query().Get("pageSize"))
			_ = json.NewEncoder(w).Encode(map[string]any{
				"customers": pages[page],
				"page":      pageNum,
			})
		}))
		defer server.Close()

		client := bookings.NewClient(httpclient.NewDefaultClient(), server.URL, pageSize)
		customers, err := client.ListCustomers(context.Background(), from, to)
		require.NoError(t, err)
		require.Len(t, customers, 3)
		assert.Equal(t, "c3", customers[2].ID)
	})

	t.Run("endless pagination is rejected", func(t *testing.T) {
		t.Parallel()

		// A server that always returns a full page would loop forever;
		// the client must give up instead of silently truncating.
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			pageNum, err := strconv.Atoi(r.URL.Query().Get("page"))
			assert.NoError(t, err)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"customers": []map[string]any{
					{"id": "c" + strconv.Itoa(pageNum), "createdAt": "2026-03-01T10:00:00Z"},
				},
				"page": pageNum,
			})
		}))
		defer server.Close()

		client := bookings.NewClient(httpclient.NewDefaultClient(), server.URL, 1)
		_, err := client.ListCustomers(context.Background(), from, to)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "did not terminate")
	})

	t.Run("empty result", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{"customers": []any{}})
		}))
		defer server.Close()

		client := bookings.NewClient(httpclient.NewDefaultClient(), server.URL, 100)
		customers, err := client.ListCustomers(context.Background(), from, to)
		require.NoError(t, err)
		assert.Empty(t, customers)
	})

	t.Run("server error is surfaced", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		client := bookings.NewClient(httpclient.NewDefaultClient(), server.URL, 100)
		_, err := client.ListCustomers(context.Background(), from, to)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to fetch customers page 1")
	})

	t.Run("malformed response is surfaced", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("not json"))
		}))
		defer server.Close()

		client := bookings.NewClient(httpclient.NewDefaultClient(), server.URL, 100)
		_, err := client.ListCustomers(context.Background(), from, to)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to decode customers response")
	})
}

func TestFullName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		customer bookings.Customer
		expected string
	}{
		{name: "both names", customer: bookings.Customer{FirstName: "Anna", LastName: "Berg"}, expected: "Anna Berg"},
		{name: "first only", customer: bookings.Customer{FirstName: "Anna"}, expected: "Anna"},
		{name: "last only", customer: bookings.Customer{LastName: "Berg"}, expected: "Berg"},
		{name: "empty", customer: bookings.Customer{}, expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, tt.customer.FullName())
		})
	}
}

// Package bookings provides a read-only client for the booking system's
// customer API.
package bookings

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bookwell/customer-sync/internal/httpclient"
	"github.com/bookwell/customer-sync/internal/logger"
)

const (
	// DefaultPageSize is the number of customers requested per page
	DefaultPageSize = 100

	// maxPages bounds the paging loop against a misbehaving server
	maxPages = 1000
)

// Client is an interface for fetching customers from the booking system
type Client interface {
	// ListCustomers returns all customers created in the half-open
	// interval [from, to)
	ListCustomers(ctx context.Context, from, to time.Time) ([]Customer, error)
}

// apiClient implements Client against the booking system HTTP API
type apiClient struct {
	httpClient httpclient.Client
	baseURL    string
	pageSize   int
}

// NewClient creates a new booking system API client
func NewClient(httpClient httpclient.Client, baseURL string, pageSize int) Client {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &apiClient{
		httpClient: httpClient,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		pageSize:   pageSize,
	}
}

// ListCustomers fetches customers page by page until the server returns
// a short page
func (c *apiClient) ListCustomers(ctx context.Context, from, to time.Time) ([]Customer, error) {
	var customers []Customer

	for page := 1; ; page++ {
		if page > maxPages {
			return nil, fmt.Errorf("customer listing did not terminate after %d pages", maxPages)
		}

		pageData, err := c.fetchPage(ctx, from, to, page)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch customers page %d: %w", page, err)
		}

		customers = append(customers, pageData.Customers...)

		if len(pageData.Customers) < c.pageSize {
			break
		}
	}

	logger.Debugf("Fetched %d customers created between %s and %s",
		len(customers), from.Format(time.RFC3339), to.Format(time.RFC3339))
	return customers, nil
}

func (c *apiClient) fetchPage(ctx context.Context, from, to time.Time, page int) (*customersPage, error) {
	query := url.Values{}
	query.Set("createdFrom", from.UTC().Format(time.RFC3339))
	query.Set("createdTo", to.UTC().Format(time.RFC3339))
	query.Set("page", strconv.Itoa(page))
	query.Set("pageSize", strconv.Itoa(c.pageSize))

	requestURL := c.baseURL + "/customers?" + query.Encode()

	data, err := c.httpClient.Get(ctx, requestURL)
	if err != nil {
		return nil, err
	}

	var pageData customersPage
	if err := json.Unmarshal(data, &pageData); err != nil {
		return nil, fmt.Errorf("failed to decode customers response: %w", err)
	}

	return &pageData, nil
}

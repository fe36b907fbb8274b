package infra

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// ProductSnapshot is everything the order needs to freeze about a product
// at checkout time.
type ProductSnapshot struct {
	ID          uint64  `json:"id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Qty         int64   `json:"qty"`
	Image       string  `json:"image"`
	Barcode     string  `json:"barcode"`
	Description string  `json:"description"`
}

type CatalogClientInterface interface {
	GetProductByID(ctx context.Context, id uint64) (*ProductSnapshot, error)
}

// CatalogClient fetches product snapshots from the catalog service.
type CatalogClient struct {
	baseURL    string
	httpClient *http.Client
}

var _ CatalogClientInterface = (*CatalogClient)(nil)

func NewCatalogClient(baseURL string, timeout time.Duration) *CatalogClient {
	return &CatalogClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *CatalogClient) GetProductByID(ctx context.Context, id uint64) (*ProductSnapshot, error) {
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/products/%d", c.baseURL, id), nil)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog service returned status %d", resp.StatusCode)
	}

	var p ProductSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

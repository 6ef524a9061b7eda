package client

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/pkg/httpclient"
)

const catalogUpstream = "catalog"

// CatalogClient looks up product display data.
type CatalogClient struct {
	httpClient HTTPDoer
	baseURL    string
	logger     *slog.Logger
}

// NewCatalogClient creates a client for the catalog API at baseURL.
func NewCatalogClient(httpClient HTTPDoer, baseURL string, logger *slog.Logger) *CatalogClient {
	return &CatalogClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		logger:     logger,
	}
}

type catalogProduct struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	DiscountPrice decimal.Decimal `json:"discount_price"`
	Images        []string        `json:"images"`
	Stock         int             `json:"stock"`
}

// GetProduct returns the current snapshot of productID.
func (c *CatalogClient) GetProduct(ctx context.Context, productID string) (*domain.ProductSnapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		joinURL(c.baseURL, "/api/v1/products/"+url.PathEscape(productID)), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create get product request: %w", err)
	}

	resp, err := c.httpClient.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("call catalog service: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, httpclient.ParseResponseError(resp, catalogUpstream)
	}
	defer resp.Body.Close()

	p, err := decodeData[catalogProduct](resp, "get product")
	if err != nil {
		return nil, err
	}

	return &domain.ProductSnapshot{
		Name:          p.Name,
		Price:         p.Price,
		DiscountPrice: p.DiscountPrice,
		Images:        p.Images,
		Stock:         p.Stock,
	}, nil
}

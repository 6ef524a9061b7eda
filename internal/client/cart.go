package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httpclient"
)

const cartUpstream = "cart"

// CartClient talks to the authenticated shopper's cart API.
type CartClient struct {
	httpClient HTTPDoer
	baseURL    string
	logger     *slog.Logger
}

// NewCartClient creates a client for the cart API at baseURL.
func NewCartClient(httpClient HTTPDoer, baseURL string, logger *slog.Logger) *CartClient {
	return &CartClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		logger:     logger,
	}
}

// addItemRequest matches the cart API's add-item body, which is camelCase.
type addItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// AddItem adds item to the cart of the user identified by token. The request is
// never retried by the client, so a timeout may leave the outcome unknown.
func (c *CartClient) AddItem(ctx context.Context, token string, item domain.MergeItem) (*domain.ServerCart, error) {
	if token == "" {
		return nil, apperrors.Unauthorized("missing access token")
	}

	body, err := json.Marshal(addItemRequest{ProductID: item.ProductID, Quantity: item.Quantity})
	if err != nil {
		return nil, fmt.Errorf("marshal add item request: %w", err)
	}

	req, err := httpclient.NewBufferedRequest(ctx, http.MethodPost, joinURL(c.baseURL, "/api/v1/cart/items"), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create add item request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("call cart service: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, httpclient.ParseResponseError(resp, cartUpstream)
	}
	defer resp.Body.Close()

	cart, err := decodeData[*domain.ServerCart](resp, "add item")
	if err != nil {
		return nil, err
	}

	c.logger.DebugContext(ctx, "item added to server cart",
		slog.String("product_id", item.ProductID),
		slog.Int("quantity", item.Quantity),
	)

	return cart, nil
}

// GetCart returns the cart of the user identified by token.
func (c *CartClient) GetCart(ctx context.Context, token string) (*domain.ServerCart, error) {
	if token == "" {
		return nil, apperrors.Unauthorized("missing access token")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, joinURL(c.baseURL, "/api/v1/cart"), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create get cart request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("call cart service: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, httpclient.ParseResponseError(resp, cartUpstream)
	}
	defer resp.Body.Close()

	return decodeData[*domain.ServerCart](resp, "get cart")
}

// ForUser binds the client to a single user's token.
func (c *CartClient) ForUser(token string) *UserCart {
	return &UserCart{client: c, token: token}
}

// UserCart is a CartClient bound to one access token.
type UserCart struct {
	client *CartClient
	token  string
}

// AddItem adds item to the bound user's cart.
func (u *UserCart) AddItem(ctx context.Context, item domain.MergeItem) error {
	_, err := u.client.AddItem(ctx, u.token, item)
	return err
}

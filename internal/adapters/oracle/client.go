package oracle

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"

	"github.com/fund-service/fund_service/internal/adapters/httpclient"
	"github.com/fund-service/fund_service/internal/domain/entities"
)

const (
	ServiceName   = "price_oracle"
	priceEndpoint = "/v1/prices/"
)

type priceResponse struct {
	AssetID string           `json:"asset_id"`
	Price   *decimal.Decimal `json:"price"`
}

// Client fetches spot prices, in base-asset units, from the price oracle
type Client struct {
	http *httpclient.Client
}

func NewClient(http *httpclient.Client) *Client {
	return &Client{http: http}
}

// GetPrice returns the current price of assetID. An unknown asset or a
// missing or non-positive price yields entities.ErrPriceUnavailable.
func (c *Client) GetPrice(ctx context.Context, assetID string) (decimal.Decimal, error) {
	var resp priceResponse
	if err := c.http.Do(ctx, http.MethodGet, priceEndpoint+url.PathEscape(assetID), nil, &resp); err != nil {
		if httpclient.StatusCode(err) == http.StatusNotFound {
			return decimal.Zero, fmt.Errorf("%w: %s", entities.ErrPriceUnavailable, assetID)
		}
		return decimal.Zero, fmt.Errorf("fetch price for %s: %w", assetID, err)
	}

	if resp.Price == nil || !resp.Price.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s", entities.ErrPriceUnavailable, assetID)
	}
	return *resp.Price, nil
}

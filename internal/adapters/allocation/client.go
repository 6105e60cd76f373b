package allocation

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fund-service/fund_service/internal/adapters/httpclient"
	"github.com/fund-service/fund_service/internal/domain/entities"
)

const ServiceName = "allocation_source"

type recommendationEntry struct {
	AssetID                 string          `json:"asset_id"`
	Recommendation          string          `json:"recommendation"`
	TargetAllocationPercent decimal.Decimal `json:"target_allocation_percent"`
	Rationale               string          `json:"rationale"`
}

type recommendationResponse struct {
	FundID          string                `json:"fund_id"`
	Recommendations []recommendationEntry `json:"recommendations"`
}

// Client reads the ranked recommendation list for a fund. Entries are
// returned as received; validation belongs to the reconciler.
type Client struct {
	http *httpclient.Client
}

func NewClient(http *httpclient.Client) *Client {
	return &Client{http: http}
}

// GetRecommendation returns the fund's current recommendation list. A fund
// the source has nothing for yields an empty list.
func (c *Client) GetRecommendation(ctx context.Context, fundID uuid.UUID) ([]entities.Recommendation, error) {
	endpoint := fmt.Sprintf("/v1/funds/%s/recommendation", fundID)

	var resp recommendationResponse
	if err := c.http.Do(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		if httpclient.StatusCode(err) == http.StatusNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch recommendation for fund %s: %w", fundID, err)
	}

	recs := make([]entities.Recommendation, 0, len(resp.Recommendations))
	for _, e := range resp.Recommendations {
		recs = append(recs, entities.Recommendation{
			AssetID:                 e.AssetID,
			Action:                  entities.NormalizeAction(e.Recommendation),
			TargetAllocationPercent: e.TargetAllocationPercent,
			Rationale:               e.Rationale,
		})
	}
	return recs, nil
}

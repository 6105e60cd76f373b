package allocation

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/fund-service/fund_service/internal/adapters/httpclient"
	"github.com/fund-service/fund_service/internal/domain/entities"
	"github.com/fund-service/fund_service/pkg/circuitbreaker"
	apperrors "github.com/fund-service/fund_service/pkg/errors"
)

func newSource(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(httpclient.New(ServiceName, apperrors.CodeAllocationAPIError, httpclient.Config{
		BaseURL: srv.URL,
		Timeout: 2 * time.Second,
		Breaker: circuitbreaker.DefaultConfig(),
	}, zaptest.NewLogger(t)))
}

func TestGetRecommendation(t *testing.T) {
	fundID := uuid.New()
	c := newSource(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/funds/"+fundID.String()+"/recommendation", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"fund_id": "` + fundID.String() + `",
			"recommendations": [
				{"asset_id": "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", "recommendation": "BUY", "target_allocation_percent": 40, "rationale": "momentum"},
				{"asset_id": "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263", "recommendation": " Sell ", "target_allocation_percent": "0"},
				{"asset_id": "bad", "recommendation": "hold", "target_allocation_percent": 5}
			]
		}`))
	})

	recs, err := c.GetRecommendation(context.Background(), fundID)
	require.NoError(t, err)
	require.Len(t, recs, 3)

	assert.Equal(t, entities.ActionBuy, recs[0].Action)
	assert.True(t, recs[0].TargetAllocationPercent.Equal(decimal.NewFromInt(40)))
	assert.Equal(t, "momentum", recs[0].Rationale)

	assert.Equal(t, entities.ActionSell, recs[1].Action)
	assert.True(t, recs[1].IsFullExit())

	// passed through untouched for the reconciler to judge
	assert.Equal(t, "bad", recs[2].AssetID)
}

func TestGetRecommendation_NothingForFund(t *testing.T) {
	c := newSource(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	recs, err := c.GetRecommendation(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestGetRecommendation_UpstreamError(t *testing.T) {
	c := newSource(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})

	_, err := c.GetRecommendation(context.Background(), uuid.New())
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeAllocationAPIError, apperrors.GetCode(err))
}

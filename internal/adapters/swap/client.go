package swap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/fund-service/fund_service/internal/adapters/httpclient"
	"github.com/fund-service/fund_service/internal/domain/entities"
	apperrors "github.com/fund-service/fund_service/pkg/errors"
)

const (
	ServiceName      = "swap_gateway"
	PaperServiceName = "paper_gateway"

	submitEndpoint     = "/v1/swaps"
	settlementEndpoint = "/v1/settlements/"

	// paperRefPrefix marks references issued by the paper gateway so
	// settlement queries go back to it
	paperRefPrefix = "paper:"
)

type submitRequest struct {
	FundID          string `json:"fund_id"`
	InputAsset      string `json:"input_asset"`
	OutputAsset     string `json:"output_asset"`
	Amount          string `json:"amount"`
	SlippagePercent string `json:"slippage_percent"`
	Simulated       bool   `json:"simulated"`
}

type submitResponse struct {
	TxRef     string `json:"tx_ref"`
	Signature string `json:"signature"`
}

type settlementResponse struct {
	TxRef              string          `json:"tx_ref"`
	Status             string          `json:"status"`
	ActualSourceAmount decimal.Decimal `json:"actual_source_amount"`
	ActualDestAmount   decimal.Decimal `json:"actual_dest_amount"`
	Error              string          `json:"error"`
}

// Client submits swaps to the execution gateway and queries their settlement.
// Simulated funds go to the paper gateway when one is configured.
type Client struct {
	live   *httpclient.Client
	paper  *httpclient.Client
	logger *zap.Logger
}

// NewClient builds a gateway client. paper may be nil, in which case
// simulated swaps are sent to the live gateway flagged as simulated.
func NewClient(live, paper *httpclient.Client, logger *zap.Logger) *Client {
	return &Client{live: live, paper: paper, logger: logger}
}

// SubmitSwap hands a swap to the gateway and returns its transaction reference.
// Failures are classified as entities.ErrSwapTransient or entities.ErrSwapRejected.
func (c *Client) SubmitSwap(ctx context.Context, req entities.SwapRequest) (*entities.SwapSubmission, error) {
	target, prefix := c.live, ""
	if req.Simulated && c.paper != nil {
		target, prefix = c.paper, paperRefPrefix
	}

	body := submitRequest{
		FundID:          req.FundID,
		InputAsset:      req.SourceAsset,
		OutputAsset:     req.DestAsset,
		Amount:          req.Amount.String(),
		SlippagePercent: req.SlippagePercent.String(),
		Simulated:       req.Simulated,
	}

	var resp submitResponse
	if err := target.Do(ctx, http.MethodPost, submitEndpoint, body, &resp); err != nil {
		return nil, classifySubmitError(err)
	}

	ref := resp.TxRef
	if ref == "" {
		ref = resp.Signature
	}
	if ref == "" {
		return nil, fmt.Errorf("%w: %s returned no transaction reference", entities.ErrSwapRejected, target.Service())
	}

	c.logger.Info("Swap submitted",
		zap.String("gateway", target.Service()),
		zap.String("fund_id", req.FundID),
		zap.String("tx_ref", ref))

	return &entities.SwapSubmission{TxRef: prefix + ref}, nil
}

// GetSettlement reports the settlement state of txRef. A reference the
// indexer has not seen yet is reported as pending.
func (c *Client) GetSettlement(ctx context.Context, txRef string) (*entities.Settlement, error) {
	target, ref := c.live, txRef
	if strings.HasPrefix(txRef, paperRefPrefix) && c.paper != nil {
		target, ref = c.paper, strings.TrimPrefix(txRef, paperRefPrefix)
	}

	var resp settlementResponse
	err := target.Do(ctx, http.MethodGet, settlementEndpoint+url.PathEscape(ref), nil, &resp)
	if err != nil {
		if httpclient.StatusCode(err) == http.StatusNotFound {
			return &entities.Settlement{TxRef: txRef, Status: entities.SettlementPending}, nil
		}
		return nil, err
	}

	return &entities.Settlement{
		TxRef:              txRef,
		Status:             normalizeStatus(resp.Status),
		ActualSourceAmount: resp.ActualSourceAmount,
		ActualDestAmount:   resp.ActualDestAmount,
		FailureReason:      resp.Error,
	}, nil
}

func normalizeStatus(s string) entities.SettlementStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "success", "confirmed", "finalized", "settled":
		return entities.SettlementSuccess
	case "failed", "error", "reverted", "expired":
		return entities.SettlementFailed
	default:
		return entities.SettlementPending
	}
}

// classifySubmitError sorts a gateway failure into transient or rejected.
// Network faults, 5xx, 408, 429 and stale-blockhash responses are transient.
func classifySubmitError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	status := httpclient.StatusCode(err)
	transient := status == 0 ||
		status >= http.StatusInternalServerError ||
		status == http.StatusRequestTimeout ||
		status == http.StatusTooManyRequests

	if !transient {
		switch apperrors.ClassifyError(errors.New(httpclient.ResponseBody(err))) {
		case apperrors.ErrorTypeTransient, apperrors.ErrorTypeTimeout:
			transient = true
		}
	}

	if transient {
		return fmt.Errorf("%w: %w", entities.ErrSwapTransient, err)
	}
	return fmt.Errorf("%w: %w", entities.ErrSwapRejected, err)
}

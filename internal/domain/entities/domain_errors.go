package entities

import (
	apperrors "github.com/fund-service/fund_service/pkg/errors"
)

var (
	// ErrFundNotFound aborts a fund's cycle
	ErrFundNotFound = apperrors.New(apperrors.ErrorTypeNotFound, apperrors.CodeFundNotFound, "fund not found")

	// ErrPositionNotFound is returned by stores when no row matches
	ErrPositionNotFound = apperrors.New(apperrors.ErrorTypeNotFound, apperrors.CodeNotFound, "position not found")

	// ErrInvalidAssetID aborts a fund's cycle
	ErrInvalidAssetID = apperrors.New(apperrors.ErrorTypeValidation, apperrors.CodeInvalidAssetID, "malformed asset identifier")

	// ErrInvalidRecommendation rejects a single allocation entry
	ErrInvalidRecommendation = apperrors.New(apperrors.ErrorTypeValidation, apperrors.CodeInvalidAllocation, "invalid recommendation")

	// ErrPriceUnavailable means the oracle has no price for an asset
	ErrPriceUnavailable = apperrors.New(apperrors.ErrorTypeNotFound, apperrors.CodePriceUnavailable, "price unavailable")

	// ErrSwapRejected is a non-transient submission failure
	ErrSwapRejected = apperrors.New(apperrors.ErrorTypeValidation, apperrors.CodeSwapRejected, "swap rejected")

	// ErrSwapTransient is a submission failure worth one immediate resubmission
	ErrSwapTransient = apperrors.New(apperrors.ErrorTypeTransient, apperrors.CodeSwapTransient, "transient swap submission error")

	// ErrSettlementPending is returned while a swap has not finalised
	ErrSettlementPending = apperrors.New(apperrors.ErrorTypeTransient, apperrors.CodeSettlementPending, "settlement pending")

	// ErrSettlementTimeout means the poll budget ran out
	ErrSettlementTimeout = apperrors.New(apperrors.ErrorTypeTimeout, apperrors.CodeSettlementTimeout, "settlement not confirmed")

	// ErrSettlementFailed means the swap finalised unsuccessfully
	ErrSettlementFailed = &apperrors.AppError{
		Type:    apperrors.ErrorTypeExternal,
		Code:    apperrors.CodeSettlementFailed,
		Message: "settlement failed",
	}
)

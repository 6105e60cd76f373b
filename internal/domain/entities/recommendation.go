package entities

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// RecommendationAction tags which variant a recommendation is
type RecommendationAction string

const (
	ActionBuy  RecommendationAction = "buy"
	ActionSell RecommendationAction = "sell"
	ActionHold RecommendationAction = "hold"
)

// Recommendation is one entry of an allocation source's ranked output.
type Recommendation struct {
	AssetID                 string               `json:"asset_id" validate:"required,asset_id"`
	Action                  RecommendationAction `json:"recommendation" validate:"required,oneof=buy sell hold"`
	TargetAllocationPercent decimal.Decimal      `json:"target_allocation_percent" validate:"gte=0,lte=100"`
	Rationale               string               `json:"rationale" validate:"max=4000"`
}

// IsFullExit is a sell with a zero target
func (r Recommendation) IsFullExit() bool {
	return r.Action == ActionSell && r.TargetAllocationPercent.IsZero()
}

// assetIDPattern accepts base58 mint addresses
var assetIDPattern = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]{32,44}$`)

var recommendationValidator = newRecommendationValidator()

func newRecommendationValidator() *validator.Validate {
	v := validator.New()
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	_ = v.RegisterValidation("asset_id", func(fl validator.FieldLevel) bool {
		return IsValidAssetID(fl.Field().String())
	})
	return v
}

// IsValidAssetID reports whether id is a well-formed asset identifier
func IsValidAssetID(id string) bool {
	return assetIDPattern.MatchString(id)
}

// NormalizeAction maps loosely cased actions onto the known variants
func NormalizeAction(s string) RecommendationAction {
	return RecommendationAction(strings.ToLower(strings.TrimSpace(s)))
}

// ValidateRecommendation checks one entry. A malformed asset identifier
// yields ErrInvalidAssetID; any other problem yields ErrInvalidRecommendation.
func ValidateRecommendation(r Recommendation) error {
	err := recommendationValidator.Struct(r)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidRecommendation, err)
	}

	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Field() == "AssetID" {
			return fmt.Errorf("%w: %q", ErrInvalidAssetID, r.AssetID)
		}
		fields = append(fields, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("%w: asset %s: %s", ErrInvalidRecommendation, r.AssetID, strings.Join(fields, ", "))
}

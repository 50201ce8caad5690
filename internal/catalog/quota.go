package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/bajo3/Meli-test/internal/gateway"
	"github.com/bajo3/Meli-test/internal/models"
	"github.com/bajo3/Meli-test/internal/util"

	"go.uber.org/zap"
)

// QuotaResolver derives per-tier promotional quota from the seller's active
// promotion pack.
type QuotaResolver struct {
	gw     gateway.Caller
	logger *zap.Logger
}

func NewQuotaResolver(gw gateway.Caller) *QuotaResolver {
	return &QuotaResolver{
		gw:     gw,
		logger: util.GetLogger(),
	}
}

type packListingDetail struct {
	ListingTypeID     string `json:"listing_type_id"`
	UsedListings      int    `json:"used_listings"`
	RemainingListings int    `json:"remaining_listings"`
	TotalListings     *int   `json:"total_listings"`
}

type promotionPack struct {
	Status            string              `json:"status"`
	ListingDetails    []packListingDetail `json:"listing_details"`
	UsedListings      *int                `json:"used_listings"`
	RemainingListings *int                `json:"remaining_listings"`
	TotalListings     *int                `json:"total_listings"`
}

// Resolve fetches the seller's publication promotion packs and derives the
// silver/gold quota from the active one. No active pack, or a response that
// is not a pack array, yields an empty quota: that is a normal outcome, not
// an error, and leaves both tiers unknown.
func (r *QuotaResolver) Resolve(ctx context.Context, userID string) (models.Quota, error) {
	path := "/users/" + userID + "/classifieds_promotion_packs?package_content=publications"
	raw, err := r.gw.Call(ctx, http.MethodGet, path, nil)
	if err != nil {
		return models.Quota{}, err
	}

	var packs []promotionPack
	if err := json.Unmarshal(raw, &packs); err != nil {
		r.logger.Debug("promotion packs response is not an array", zap.Error(err))
		return models.Quota{}, nil
	}

	var active *promotionPack
	for i := range packs {
		if packs[i].Status == "active" {
			active = &packs[i]
			break
		}
	}
	if active == nil {
		return models.Quota{}, nil
	}

	var silver, gold *models.QuotaInfo
	for _, det := range active.ListingDetails {
		tier := strings.ToLower(det.ListingTypeID)
		switch {
		case silver == nil && strings.Contains(tier, models.TierSilver):
			silver = quotaFromDetail(det)
		case gold == nil && strings.Contains(tier, models.TierGoldPrefix):
			gold = quotaFromDetail(det)
		}
	}

	// Entry-level packs report only aggregate counters without per-tier
	// lines; those counters are the silver quota. Gold is never fabricated.
	if silver == nil && (active.UsedListings != nil || active.RemainingListings != nil) {
		used, available := 0, 0
		if active.UsedListings != nil {
			used = *active.UsedListings
		}
		if active.RemainingListings != nil {
			available = *active.RemainingListings
		}
		total := used + available
		if active.TotalListings != nil {
			total = *active.TotalListings
		}
		silver = &models.QuotaInfo{Used: used, Available: available, Total: total}
	}

	return models.Quota{Silver: silver, Gold: gold}, nil
}

func quotaFromDetail(det packListingDetail) *models.QuotaInfo {
	total := det.UsedListings + det.RemainingListings
	if det.TotalListings != nil {
		total = *det.TotalListings
	}
	return &models.QuotaInfo{
		Used:      det.UsedListings,
		Available: det.RemainingListings,
		Total:     total,
	}
}

package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/bajo3/Meli-test/internal/broker"
	"github.com/bajo3/Meli-test/internal/catalog"
	"github.com/bajo3/Meli-test/internal/gateway"
	"github.com/bajo3/Meli-test/internal/models"
	"github.com/bajo3/Meli-test/internal/store"
	"github.com/bajo3/Meli-test/internal/util"

	"go.uber.org/zap"
)

// ListingService handles the seller's listing working set: loading active
// listings, price updates, closes and quota reloads.
type ListingService struct {
	gw       gateway.Caller
	fetcher  *catalog.Fetcher
	quotas   *catalog.QuotaResolver
	store    *store.ListingStore
	events   *broker.ListingEventPublisher
	logger   *zap.Logger
	userID   string
	pageSize int

	mu       sync.Mutex
	inFlight map[string]struct{}
	quota    models.Quota
}

// NewListingService creates a new listing service
func NewListingService(
	gw gateway.Caller,
	fetcher *catalog.Fetcher,
	quotas *catalog.QuotaResolver,
	listings *store.ListingStore,
	events *broker.ListingEventPublisher,
	userID string,
	pageSize int,
) *ListingService {
	return &ListingService{
		gw:       gw,
		fetcher:  fetcher,
		quotas:   quotas,
		store:    listings,
		events:   events,
		logger:   util.GetLogger(),
		userID:   userID,
		pageSize: pageSize,
		inFlight: make(map[string]struct{}),
	}
}

// beginWrite marks a listing id as having a write in flight. Writes on
// different ids are independent.
func (s *ListingService) beginWrite(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[id]; busy {
		return false
	}
	s.inFlight[id] = struct{}{}
	return true
}

func (s *ListingService) endWrite(id string) {
	s.mu.Lock()
	delete(s.inFlight, id)
	s.mu.Unlock()
}

// LoadListings searches the seller's active listing ids, resolves them into
// full records and replaces the working set.
func (s *ListingService) LoadListings(ctx context.Context) ([]models.Listing, error) {
	ctx, span := util.StartSpan(ctx, "ListingService.LoadListings")
	defer span.End()

	ids, err := s.fetcher.SearchActiveIDs(ctx, s.userID, s.pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to search active listings: %w", err)
	}

	if len(ids) == 0 {
		s.store.ReplaceAll(nil)
		return []models.Listing{}, nil
	}

	listings, err := s.fetcher.FetchDetails(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch listing details: %w", err)
	}

	s.store.ReplaceAll(listings)
	util.ListingsLoadedTotal.Add(float64(len(listings)))
	s.logger.Info("Listings loaded",
		zap.Int("searched", len(ids)),
		zap.Int("resolved", len(listings)))

	return listings, nil
}

// Listings projects the working set through search, tier filter and sort.
func (s *ListingService) Listings(search string, tier store.TierFilter, order store.SortOrder) []models.Listing {
	return store.ApplyFilters(s.store.All(), search, tier, order)
}

// UpdatePrice validates and applies a price change to one listing.
func (s *ListingService) UpdatePrice(ctx context.Context, id string, price float64) (models.Listing, error) {
	if price <= 0 {
		return models.Listing{}, &ValidationError{Field: "price", Reason: "must be greater than zero"}
	}

	if !s.beginWrite(id) {
		return models.Listing{}, &OperationInFlightError{ListingID: id}
	}
	defer s.endWrite(id)

	raw, err := s.gw.Call(ctx, http.MethodPut, "/items/"+id, map[string]float64{"price": price})
	if err != nil {
		return models.Listing{}, err
	}

	// The remote service echoes the updated item; its price is authoritative.
	var updated models.ItemDetail
	if err := json.Unmarshal(raw, &updated); err == nil && updated.Price > 0 {
		price = updated.Price
	}

	s.store.SetPrice(id, price)
	util.PriceUpdatesTotal.Inc()
	s.logger.Info("Price updated", zap.String("listing_id", id), zap.Float64("price", price))

	if err := s.events.PublishPriceUpdated(ctx, id, price); err != nil {
		s.logger.Error("Failed to publish PriceUpdated event", zap.Error(err))
	}

	listing, _ := s.store.Get(id)
	return listing, nil
}

// CloseListing closes one listing and drops it from the working set. A close
// the remote service accepted but did not confirm is logged, not fatal: the
// listing leaves the working set either way, matching what the seller sees.
func (s *ListingService) CloseListing(ctx context.Context, id string) error {
	if !s.beginWrite(id) {
		return &OperationInFlightError{ListingID: id}
	}
	defer s.endWrite(id)

	raw, err := s.gw.Call(ctx, http.MethodPut, "/items/"+id, map[string]string{"status": models.StatusClosed})
	if err != nil {
		return err
	}

	var closed models.ItemDetail
	if err := json.Unmarshal(raw, &closed); err == nil && closed.Status != models.StatusClosed {
		s.logger.Warn("Close not confirmed by remote service",
			zap.String("listing_id", id),
			zap.String("status", closed.Status))
	}

	s.store.Remove(id)
	util.ListingsClosedTotal.Inc()
	s.logger.Info("Listing closed", zap.String("listing_id", id))

	if err := s.events.PublishListingClosed(ctx, id, closed.Status); err != nil {
		s.logger.Error("Failed to publish ListingClosed event", zap.Error(err))
	}

	if _, err := s.ReloadQuota(ctx); err != nil {
		s.logger.Warn("Quota reload after close failed", zap.Error(err))
	}

	return nil
}

// ReloadQuota recomputes the per-tier quota snapshot from the remote
// promotion packs. The snapshot is replaced wholesale.
func (s *ListingService) ReloadQuota(ctx context.Context) (models.Quota, error) {
	quota, err := s.quotas.Resolve(ctx, s.userID)
	if err != nil {
		return models.Quota{}, err
	}

	s.mu.Lock()
	s.quota = quota
	s.mu.Unlock()

	util.QuotaReloadsTotal.Inc()
	return quota, nil
}

// Quota returns the current quota snapshot.
func (s *ListingService) Quota() models.Quota {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quota
}

// QuotaForTier returns a copy of the locally known quota for the tier family
// of listingTypeID, or nil when the quota is unknown.
func (s *ListingService) QuotaForTier(listingTypeID string) *models.QuotaInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	tier := strings.ToLower(listingTypeID)
	var info *models.QuotaInfo
	switch {
	case strings.Contains(tier, models.TierGoldPrefix):
		info = s.quota.Gold
	case strings.Contains(tier, models.TierSilver):
		info = s.quota.Silver
	}
	if info == nil {
		return nil
	}
	copied := *info
	return &copied
}

package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/bajo3/Meli-test/internal/models"
	"github.com/bajo3/Meli-test/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdatePriceRejectsNonPositivePrice(t *testing.T) {
	_, ls, _, fake := newTestEnv(func(method, path string, body interface{}) (json.RawMessage, error) {
		t.Fatal("validation must happen before any remote call")
		return nil, nil
	})

	for _, price := range []float64{0, -10} {
		_, err := ls.UpdatePrice(context.Background(), "MLA1", price)
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "price", vErr.Field)
	}
	assert.Zero(t, fake.callCount())
}

func TestUpdatePricePatchesWorkingSet(t *testing.T) {
	_, ls, st, fake := newTestEnv(func(method, path string, body interface{}) (json.RawMessage, error) {
		return json.RawMessage(`{"id": "MLA1", "price": 175.5, "status": "active"}`), nil
	})
	st.Upsert(models.Listing{ID: "MLA1", Price: 100})

	updated, err := ls.UpdatePrice(context.Background(), "MLA1", 175.5)
	require.NoError(t, err)
	assert.Equal(t, 175.5, updated.Price)

	stored, _ := st.Get("MLA1")
	assert.Equal(t, 175.5, stored.Price)
	assert.Equal(t, 1, fake.countMatching("PUT", "/items/MLA1"))
}

func TestUpdatePriceBlockedWhileAnotherWriteRuns(t *testing.T) {
	_, ls, _, fake := newTestEnv(func(method, path string, body interface{}) (json.RawMessage, error) {
		t.Fatal("no remote call expected")
		return nil, nil
	})
	require.True(t, ls.beginWrite("MLA1"))
	defer ls.endWrite("MLA1")

	_, err := ls.UpdatePrice(context.Background(), "MLA1", 100)

	var inFlight *OperationInFlightError
	require.ErrorAs(t, err, &inFlight)
	assert.Zero(t, fake.callCount())
}

func TestCloseListingRemovesFromWorkingSet(t *testing.T) {
	_, ls, st, fake := newTestEnv(func(method, path string, body interface{}) (json.RawMessage, error) {
		if strings.Contains(path, "classifieds_promotion_packs") {
			return json.RawMessage(`[{"status": "active", "listing_details": [
				{"listing_type_id": "silver", "used_listings": 1, "remaining_listings": 9}
			]}]`), nil
		}
		return json.RawMessage(`{"id": "MLA1", "status": "closed"}`), nil
	})
	st.Upsert(models.Listing{ID: "MLA1"})

	require.NoError(t, ls.CloseListing(context.Background(), "MLA1"))

	_, there := st.Get("MLA1")
	assert.False(t, there)

	// closing consumes quota, so the snapshot was reloaded
	quota := ls.Quota()
	require.NotNil(t, quota.Silver)
	assert.Equal(t, 9, quota.Silver.Available)
	assert.Equal(t, 1, fake.countMatching("PUT", "/items/MLA1"))
}

func TestCloseListingUnconfirmedStatusStillRemoves(t *testing.T) {
	_, ls, st, _ := newTestEnv(func(method, path string, body interface{}) (json.RawMessage, error) {
		if strings.Contains(path, "classifieds_promotion_packs") {
			return json.RawMessage(`[]`), nil
		}
		return json.RawMessage(`{"id": "MLA1", "status": "under_review"}`), nil
	})
	st.Upsert(models.Listing{ID: "MLA1"})

	require.NoError(t, ls.CloseListing(context.Background(), "MLA1"))

	_, there := st.Get("MLA1")
	assert.False(t, there)
}

func TestLoadListingsReplacesWorkingSet(t *testing.T) {
	_, ls, st, _ := newTestEnv(func(method, path string, body interface{}) (json.RawMessage, error) {
		switch {
		case strings.Contains(path, "/items/search"):
			return json.RawMessage(`{"results": ["MLA1", "MLA2"], "paging": {"total": 2}}`), nil
		case strings.HasPrefix(path, "/items?ids="):
			return json.RawMessage(`[
				{"code": 200, "body": {"id": "MLA1", "title": "one", "price": 10, "currency_id": "ARS"}},
				{"code": 200, "body": {"id": "MLA2", "title": "two", "price": 20, "currency_id": "ARS"}}
			]`), nil
		default:
			t.Fatalf("unexpected call: %s %s", method, path)
			return nil, nil
		}
	})
	st.Upsert(models.Listing{ID: "stale"})

	listings, err := ls.LoadListings(context.Background())
	require.NoError(t, err)
	assert.Len(t, listings, 2)
	assert.Equal(t, 2, st.Len())
	_, stale := st.Get("stale")
	assert.False(t, stale)
}

func TestLoadListingsEmptySearchClearsWorkingSet(t *testing.T) {
	_, ls, st, fake := newTestEnv(func(method, path string, body interface{}) (json.RawMessage, error) {
		return json.RawMessage(`{"results": [], "paging": {"total": 0}}`), nil
	})
	st.Upsert(models.Listing{ID: "gone soon"})

	listings, err := ls.LoadListings(context.Background())
	require.NoError(t, err)
	assert.Empty(t, listings)
	assert.Zero(t, st.Len())

	// no batch fetch for an empty id set
	assert.Zero(t, fake.countMatching("GET", "/items?ids="))
}

func TestListingsProjection(t *testing.T) {
	_, ls, st, _ := newTestEnv(nil)
	st.ReplaceAll([]models.Listing{
		{ID: "MLA1", Title: "Ford Fiesta", ListingTypeID: "silver"},
		{ID: "MLA2", Title: "Toyota Hilux", ListingTypeID: "gold_pro"},
	})

	gold := ls.Listings("", store.TierFilterGold, store.SortNewestFirst)
	require.Len(t, gold, 1)
	assert.Equal(t, "MLA2", gold[0].ID)
}

func TestQuotaForTierFamilies(t *testing.T) {
	_, ls, _, _ := newTestEnv(nil)
	ls.quota = models.Quota{
		Silver: &models.QuotaInfo{Available: 3},
		Gold:   &models.QuotaInfo{Available: 5},
	}

	require.NotNil(t, ls.QuotaForTier("silver"))
	assert.Equal(t, 3, ls.QuotaForTier("silver").Available)

	// any gold family variant maps to the gold quota
	for _, tier := range []string{"gold", "gold_special", "GOLD_PRO"} {
		info := ls.QuotaForTier(tier)
		require.NotNil(t, info, tier)
		assert.Equal(t, 5, info.Available, tier)
	}

	// unknown families have no local quota
	assert.Nil(t, ls.QuotaForTier("bronze"))
}

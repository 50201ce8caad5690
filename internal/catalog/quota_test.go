package catalog

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newQuotaResolver(response string) *QuotaResolver {
	fake := &fakeCaller{handler: func(method, path string, body interface{}) (json.RawMessage, error) {
		return json.RawMessage(response), nil
	}}
	return NewQuotaResolver(fake)
}

func TestResolveNonArrayResponseIsEmptyNotError(t *testing.T) {
	r := newQuotaResolver(`{"error": "unexpected shape"}`)

	quota, err := r.Resolve(context.Background(), "327544193")
	require.NoError(t, err)
	assert.Nil(t, quota.Silver)
	assert.Nil(t, quota.Gold)
}

func TestResolveNoActivePackIsEmpty(t *testing.T) {
	r := newQuotaResolver(`[{"status": "expired", "listing_details": [
		{"listing_type_id": "silver", "used_listings": 1, "remaining_listings": 5}
	]}]`)

	quota, err := r.Resolve(context.Background(), "327544193")
	require.NoError(t, err)
	assert.Nil(t, quota.Silver)
	assert.Nil(t, quota.Gold)
}

func TestResolveMatchesTierLines(t *testing.T) {
	r := newQuotaResolver(`[{"status": "active", "listing_details": [
		{"listing_type_id": "SILVER", "used_listings": 3, "remaining_listings": 7},
		{"listing_type_id": "gold_special", "used_listings": 1, "remaining_listings": 0}
	]}]`)

	quota, err := r.Resolve(context.Background(), "327544193")
	require.NoError(t, err)

	require.NotNil(t, quota.Silver)
	assert.Equal(t, 3, quota.Silver.Used)
	assert.Equal(t, 7, quota.Silver.Available)
	assert.Equal(t, 10, quota.Silver.Total)

	require.NotNil(t, quota.Gold)
	assert.Equal(t, 1, quota.Gold.Used)
	assert.Equal(t, 0, quota.Gold.Available)
	assert.Equal(t, 1, quota.Gold.Total)
}

func TestResolveExplicitTotalIsAuthoritative(t *testing.T) {
	r := newQuotaResolver(`[{"status": "active", "listing_details": [
		{"listing_type_id": "silver", "used_listings": 2, "remaining_listings": 3, "total_listings": 10}
	]}]`)

	quota, err := r.Resolve(context.Background(), "327544193")
	require.NoError(t, err)
	require.NotNil(t, quota.Silver)
	assert.Equal(t, 10, quota.Silver.Total)
}

func TestResolveSilverFallsBackToPackAggregates(t *testing.T) {
	r := newQuotaResolver(`[{"status": "active", "used_listings": 4, "remaining_listings": 6}]`)

	quota, err := r.Resolve(context.Background(), "327544193")
	require.NoError(t, err)

	require.NotNil(t, quota.Silver)
	assert.Equal(t, 4, quota.Silver.Used)
	assert.Equal(t, 6, quota.Silver.Available)
	assert.Equal(t, 10, quota.Silver.Total)

	// gold is never fabricated from aggregates
	assert.Nil(t, quota.Gold)
}

func TestResolveGoldVariantsMatchFamily(t *testing.T) {
	for _, tier := range []string{"gold", "gold_pro", "GOLD_SPECIAL"} {
		r := newQuotaResolver(`[{"status": "active", "listing_details": [
			{"listing_type_id": "` + tier + `", "used_listings": 1, "remaining_listings": 2}
		]}]`)

		quota, err := r.Resolve(context.Background(), "327544193")
		require.NoError(t, err)
		require.NotNil(t, quota.Gold, tier)
		assert.Equal(t, 2, quota.Gold.Available, tier)
	}
}

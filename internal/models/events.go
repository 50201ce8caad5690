package models

import "time"

// Event types
const (
	EventTypePriceUpdated = "LISTING_PRICE_UPDATED"
	EventTypeClosed       = "LISTING_CLOSED"
	EventTypeRelisted     = "LISTING_RELISTED"
	EventTypeRelistFailed = "LISTING_RELIST_FAILED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// PriceUpdatedEvent published when a listing price changes
type PriceUpdatedEvent struct {
	BaseEvent
	ListingID string  `json:"listing_id"`
	NewPrice  float64 `json:"new_price"`
}

// ListingClosedEvent published when a listing is closed
type ListingClosedEvent struct {
	BaseEvent
	ListingID string `json:"listing_id"`
	Status    string `json:"status"`
}

// ListingRelistedEvent published when a relist completes
type ListingRelistedEvent struct {
	BaseEvent
	SourceListingID string `json:"source_listing_id"`
	NewListingID    string `json:"new_listing_id"`
	ListingTypeID   string `json:"listing_type_id"`
}

// RelistFailedEvent published when a relist ends in a failure state
type RelistFailedEvent struct {
	BaseEvent
	SourceListingID string `json:"source_listing_id"`
	ListingTypeID   string `json:"listing_type_id"`
	Phase           string `json:"phase"`
	Reason          string `json:"reason"`
}

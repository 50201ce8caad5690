package broker

import (
	"context"
	"time"

	"github.com/bajo3/Meli-test/internal/models"

	"github.com/google/uuid"
)

// ListingEventPublisher publishes listing lifecycle events. A nil publisher
// (or one without a producer) is a no-op, so event publishing stays optional.
type ListingEventPublisher struct {
	producer *Producer
}

// NewListingEventPublisher creates a new event publisher
func NewListingEventPublisher(producer *Producer) *ListingEventPublisher {
	return &ListingEventPublisher{producer: producer}
}

func (ep *ListingEventPublisher) enabled() bool {
	return ep != nil && ep.producer != nil
}

func baseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now(),
	}
}

// PublishPriceUpdated publishes a LISTING_PRICE_UPDATED event
func (ep *ListingEventPublisher) PublishPriceUpdated(ctx context.Context, listingID string, newPrice float64) error {
	if !ep.enabled() {
		return nil
	}
	return ep.producer.PublishEvent(ctx, "listing-"+listingID, &models.PriceUpdatedEvent{
		BaseEvent: baseEvent(models.EventTypePriceUpdated),
		ListingID: listingID,
		NewPrice:  newPrice,
	})
}

// PublishListingClosed publishes a LISTING_CLOSED event
func (ep *ListingEventPublisher) PublishListingClosed(ctx context.Context, listingID, status string) error {
	if !ep.enabled() {
		return nil
	}
	return ep.producer.PublishEvent(ctx, "listing-"+listingID, &models.ListingClosedEvent{
		BaseEvent: baseEvent(models.EventTypeClosed),
		ListingID: listingID,
		Status:    status,
	})
}

// PublishListingRelisted publishes a LISTING_RELISTED event
func (ep *ListingEventPublisher) PublishListingRelisted(ctx context.Context, sourceID, newID, listingTypeID string) error {
	if !ep.enabled() {
		return nil
	}
	return ep.producer.PublishEvent(ctx, "listing-"+sourceID, &models.ListingRelistedEvent{
		BaseEvent:       baseEvent(models.EventTypeRelisted),
		SourceListingID: sourceID,
		NewListingID:    newID,
		ListingTypeID:   listingTypeID,
	})
}

// PublishRelistFailed publishes a LISTING_RELIST_FAILED event
func (ep *ListingEventPublisher) PublishRelistFailed(ctx context.Context, sourceID, listingTypeID, phase, reason string) error {
	if !ep.enabled() {
		return nil
	}
	return ep.producer.PublishEvent(ctx, "listing-"+sourceID, &models.RelistFailedEvent{
		BaseEvent:       baseEvent(models.EventTypeRelistFailed),
		SourceListingID: sourceID,
		ListingTypeID:   listingTypeID,
		Phase:           phase,
		Reason:          reason,
	})
}

package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/bajo3/Meli-test/internal/broker"
	"github.com/bajo3/Meli-test/internal/gateway"
	"github.com/bajo3/Meli-test/internal/models"
	"github.com/bajo3/Meli-test/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// excludedAttributeIDs are tier-assignment and brand-verification attributes
// the remote service rejects on creation.
var excludedAttributeIDs = map[string]struct{}{
	"MARKET":              {},
	"IS_OFFERED_BY_BRAND": {},
	"VERIFIED_VEHICLES":   {},
}

// RelistOrchestrator runs the relist workflow: close the source listing and
// create a replacement under the requested tier, carrying over its content.
// Once the close call is issued the workflow runs to completion or ends in a
// reported failure state; there is no mid-operation cancellation.
type RelistOrchestrator struct {
	gw              gateway.Caller
	listings        *ListingService
	events          *broker.ListingEventPublisher
	logger          *zap.Logger
	defaultLocation models.Location
}

// NewRelistOrchestrator creates a new relist orchestrator
func NewRelistOrchestrator(
	gw gateway.Caller,
	listings *ListingService,
	events *broker.ListingEventPublisher,
	defaultLocation models.Location,
) *RelistOrchestrator {
	return &RelistOrchestrator{
		gw:              gw,
		listings:        listings,
		events:          events,
		logger:          util.GetLogger(),
		defaultLocation: defaultLocation,
	}
}

// Relist clones sourceID under listingTypeID and closes the original. The
// returned operation reflects the phase reached; on error its Phase is
// "failed" and the error is one of the relist failure types.
func (o *RelistOrchestrator) Relist(ctx context.Context, sourceID, listingTypeID string) (*models.RelistOperation, error) {
	// Local precondition: a known-exhausted quota refuses without a remote
	// round-trip. An unknown quota proceeds; the remote service is
	// authoritative.
	if q := o.listings.QuotaForTier(listingTypeID); q != nil && q.Available <= 0 {
		util.RelistsFailedTotal.WithLabelValues("quota_local").Inc()
		return nil, &QuotaExhaustedError{ListingTypeID: listingTypeID}
	}

	if !o.listings.beginWrite(sourceID) {
		return nil, &OperationInFlightError{ListingID: sourceID}
	}
	defer o.listings.endWrite(sourceID)

	op := &models.RelistOperation{
		ID:              uuid.New().String(),
		SourceListingID: sourceID,
		TargetTier:      listingTypeID,
		Phase:           models.RelistPhaseClosing,
	}

	o.logger.Info("Relist started",
		zap.String("operation_id", op.ID),
		zap.String("source_id", sourceID),
		zap.String("listing_type_id", listingTypeID))

	if err := o.run(ctx, op); err != nil {
		failedPhase := op.Phase
		op.Phase = models.RelistPhaseFailed

		err = o.classifyFailure(err, listingTypeID)
		util.RelistsFailedTotal.WithLabelValues(failureReason(err)).Inc()
		o.logger.Error("Relist failed",
			zap.String("operation_id", op.ID),
			zap.String("source_id", sourceID),
			zap.String("phase", failedPhase),
			zap.Error(err))

		if perr := o.events.PublishRelistFailed(ctx, sourceID, listingTypeID, failedPhase, err.Error()); perr != nil {
			o.logger.Error("Failed to publish RelistFailed event", zap.Error(perr))
		}
		return op, err
	}

	op.Phase = models.RelistPhaseIdle
	util.RelistsCompletedTotal.Inc()
	o.logger.Info("Relist completed",
		zap.String("operation_id", op.ID),
		zap.String("source_id", sourceID),
		zap.String("new_id", op.ResultListingID))

	if err := o.events.PublishListingRelisted(ctx, sourceID, op.ResultListingID, listingTypeID); err != nil {
		o.logger.Error("Failed to publish ListingRelisted event", zap.Error(err))
	}

	if _, err := o.listings.ReloadQuota(ctx); err != nil {
		o.logger.Warn("Quota reload after relist failed", zap.Error(err))
	}

	return op, nil
}

// run executes the closing and creating phases. The three primary remote
// calls (fetch original, close, create) are strictly sequential: each one
// depends on the previous result, and the close must land before the create
// so two live listings never share one quota slot.
func (o *RelistOrchestrator) run(ctx context.Context, op *models.RelistOperation) error {
	ctx, span := util.StartSpan(ctx, "RelistOrchestrator.run")
	defer span.End()

	sourceID := op.SourceListingID

	// The full source record is needed before the close mutates it.
	raw, err := o.gw.Call(ctx, http.MethodGet, "/items/"+sourceID, nil)
	if err != nil {
		return fmt.Errorf("failed to fetch source listing: %w", err)
	}
	var original models.ItemDetail
	if err := json.Unmarshal(raw, &original); err != nil {
		return fmt.Errorf("failed to decode source listing: %w", err)
	}

	// Best-effort: a missing description never aborts the relist.
	if raw, err := o.gw.Call(ctx, http.MethodGet, "/items/"+sourceID+"/description", nil); err != nil {
		o.logger.Warn("No description available for source listing",
			zap.String("source_id", sourceID),
			zap.Error(err))
	} else {
		var desc struct {
			PlainText string `json:"plain_text"`
		}
		if err := json.Unmarshal(raw, &desc); err == nil {
			op.ClonedDescription = desc.PlainText
		}
	}

	raw, err = o.gw.Call(ctx, http.MethodPut, "/items/"+sourceID, map[string]string{"status": models.StatusClosed})
	if err != nil {
		return fmt.Errorf("failed to close source listing: %w", err)
	}
	var closed models.ItemDetail
	if err := json.Unmarshal(raw, &closed); err != nil {
		return fmt.Errorf("failed to decode close response: %w", err)
	}
	if closed.Status != models.StatusClosed {
		return &CloseNotConfirmedError{ListingID: sourceID, Status: closed.Status}
	}

	// The source is now closed remotely, so it leaves the working set even
	// if creation fails below.
	o.listings.store.Remove(sourceID)

	op.Phase = models.RelistPhaseCreating

	body := o.buildNewItemBody(&original, op.TargetTier)
	raw, err = o.gw.Call(ctx, http.MethodPost, "/items", body)
	if err != nil {
		return &ClosedButCreateFailedError{SourceListingID: sourceID, Err: err}
	}
	var created models.ItemDetail
	if err := json.Unmarshal(raw, &created); err != nil {
		return &ClosedButCreateFailedError{SourceListingID: sourceID, Err: fmt.Errorf("failed to decode created listing: %w", err)}
	}
	op.ResultListingID = created.ID

	// Best-effort: a replacement without its cloned description is a
	// degraded outcome, not a failure.
	if op.ClonedDescription != "" && created.ID != "" {
		_, err := o.gw.Call(ctx, http.MethodPost, "/items/"+created.ID+"/description",
			map[string]string{"plain_text": op.ClonedDescription})
		if err != nil {
			o.logger.Warn("Failed to clone description to new listing",
				zap.String("new_id", created.ID),
				zap.Error(err))
		}
	}

	o.listings.store.Upsert(created.ToListing())
	return nil
}

// buildNewItemBody derives the creation payload from the source listing.
func (o *RelistOrchestrator) buildNewItemBody(src *models.ItemDetail, listingTypeID string) models.NewItemBody {
	attrs := make([]models.Attribute, 0, len(src.Attributes))
	for _, attr := range src.Attributes {
		if _, excluded := excludedAttributeIDs[attr.ID()]; excluded {
			continue
		}
		attrs = append(attrs, attr)
	}

	pictures := make([]models.PictureSource, 0, len(src.Pictures))
	for _, p := range src.Pictures {
		pictures = append(pictures, models.PictureSource{Source: p.URL})
	}

	quantity := src.AvailableQuantity
	if quantity <= 0 {
		quantity = 1
	}

	location := o.defaultLocation
	if src.Location != nil && src.Location.Qualified() {
		location = *src.Location
	}

	body := models.NewItemBody{
		Title:             src.Title,
		CategoryID:        src.CategoryID,
		Price:             src.Price,
		CurrencyID:        src.CurrencyID,
		AvailableQuantity: quantity,
		BuyingMode:        src.BuyingMode,
		ListingTypeID:     listingTypeID,
		Condition:         src.Condition,
		Pictures:          pictures,
		Attributes:        attrs,
		Warranty:          src.Warranty,
		Location:          location,
		SellerCustomField: src.SellerCustomField,
	}

	// Presence is opt-in for these: omitted entirely when the source lacks
	// them.
	if len(src.SellerContact) > 0 {
		body.SellerContact = src.SellerContact
	}
	if src.VideoID != "" {
		body.VideoID = src.VideoID
	}

	return body
}

// classifyFailure maps a quota-exhaustion message from the remote service to
// the authoritative quota failure. Everything else passes through unchanged.
func (o *RelistOrchestrator) classifyFailure(err error, listingTypeID string) error {
	if isQuotaExhaustedMessage(err.Error()) {
		return &QuotaExhaustedError{ListingTypeID: listingTypeID, Remote: true}
	}
	return err
}

func failureReason(err error) string {
	switch err.(type) {
	case *QuotaExhaustedError:
		return "quota_remote"
	case *CloseNotConfirmedError:
		return "close_not_confirmed"
	case *ClosedButCreateFailedError:
		return "create_failed"
	default:
		return "remote_error"
	}
}

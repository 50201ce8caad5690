package service

import (
	"fmt"
	"strings"
)

// ValidationError rejects bad input before any remote call is made.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// OperationInFlightError signals that another write is already running for
// the same listing id.
type OperationInFlightError struct {
	ListingID string
}

func (e *OperationInFlightError) Error() string {
	return fmt.Sprintf("an operation is already in flight for listing %s", e.ListingID)
}

// QuotaExhaustedError refuses a relist because no promotional slots remain
// for the requested tier. Remote distinguishes the authoritative remote
// detection from the local precondition check.
type QuotaExhaustedError struct {
	ListingTypeID string
	Remote        bool
}

func (e *QuotaExhaustedError) Error() string {
	if e.Remote {
		return fmt.Sprintf("remote service reports no quota available for listing type %s", e.ListingTypeID)
	}
	return fmt.Sprintf("no quota available for listing type %s in the current promotion pack", e.ListingTypeID)
}

// CloseNotConfirmedError is returned when the remote service accepted the
// close call but the listing did not come back closed. Proceeding to create
// would double-count quota and inventory, so the relist stops here.
type CloseNotConfirmedError struct {
	ListingID string
	Status    string
}

func (e *CloseNotConfirmedError) Error() string {
	return fmt.Sprintf("remote service did not confirm close of %s (status is %q)", e.ListingID, e.Status)
}

// ClosedButCreateFailedError is the partial-failure state: the source listing
// was closed but no replacement was created. There is no automatic reopen;
// the caller must inform the user.
type ClosedButCreateFailedError struct {
	SourceListingID string
	Err             error
}

func (e *ClosedButCreateFailedError) Error() string {
	return fmt.Sprintf("listing %s was closed but creating the replacement failed: %v", e.SourceListingID, e.Err)
}

func (e *ClosedButCreateFailedError) Unwrap() error {
	return e.Err
}

// quotaExhaustedMarker is the substring the remote service puts in error
// messages when no promotional slots remain. Matching remote wording is
// fragile, so it lives in this one place only.
const quotaExhaustedMarker = "not available quota"

func isQuotaExhaustedMessage(msg string) bool {
	return strings.Contains(strings.ToLower(msg), quotaExhaustedMarker)
}

package models

import (
	"encoding/json"
	"strings"
	"time"
)

// Listing statuses. The remote service defines more; anything else is kept
// as an opaque string.
const (
	StatusActive = "active"
	StatusClosed = "closed"
)

// Listing tier families. "silver" is an exact listing type, the gold family
// covers variants such as gold, gold_pro and gold_special.
const (
	TierSilver     = "silver"
	TierGoldPrefix = "gold"
)

// Listing is the working-set projection of a seller's marketplace item.
type Listing struct {
	ID                string      `json:"id"`
	Title             string      `json:"title"`
	Price             float64     `json:"price"`
	CurrencyID        string      `json:"currency_id"`
	AvailableQuantity int         `json:"available_quantity"`
	Status            string      `json:"status"`
	ListingTypeID     string      `json:"listing_type_id"`
	DateCreated       time.Time   `json:"date_created,omitempty"`
	Thumbnail         string      `json:"thumbnail,omitempty"`
	Permalink         string      `json:"permalink,omitempty"`
	Attributes        []Attribute `json:"attributes,omitempty"`
}

// IsGoldTier reports whether a listing type belongs to the gold family.
func IsGoldTier(listingTypeID string) bool {
	return strings.HasPrefix(listingTypeID, TierGoldPrefix)
}

// Attribute is an opaque key/value descriptor passed through unmodified.
type Attribute map[string]interface{}

// ID returns the attribute identifier, or "" when absent.
func (a Attribute) ID() string {
	id, _ := a["id"].(string)
	return id
}

type Picture struct {
	URL string `json:"url"`
}

// PictureSource is the creation-schema counterpart of Picture.
type PictureSource struct {
	Source string `json:"source"`
}

type Place struct {
	Name string `json:"name"`
}

type Location struct {
	AddressLine string `json:"address_line"`
	ZipCode     string `json:"zip_code"`
	City        Place  `json:"city"`
	State       Place  `json:"state"`
	Country     Place  `json:"country"`
}

// Qualified reports whether the location names city, state and country.
func (l Location) Qualified() bool {
	return l.City.Name != "" && l.State.Name != "" && l.Country.Name != ""
}

// ItemDetail is the full item body returned by the remote catalog service.
// Fields absent in a response decode to their zero values.
type ItemDetail struct {
	ID                string          `json:"id"`
	Title             string          `json:"title"`
	CategoryID        string          `json:"category_id"`
	Price             float64         `json:"price"`
	CurrencyID        string          `json:"currency_id"`
	AvailableQuantity int             `json:"available_quantity"`
	BuyingMode        string          `json:"buying_mode"`
	ListingTypeID     string          `json:"listing_type_id"`
	Condition         string          `json:"condition"`
	Status            string          `json:"status"`
	Pictures          []Picture       `json:"pictures"`
	Attributes        []Attribute     `json:"attributes"`
	Warranty          string          `json:"warranty"`
	Location          *Location       `json:"location"`
	SellerContact     json.RawMessage `json:"seller_contact,omitempty"`
	SellerCustomField string          `json:"seller_custom_field,omitempty"`
	VideoID           string          `json:"video_id,omitempty"`
	DateCreated       time.Time       `json:"date_created"`
	Thumbnail         string          `json:"thumbnail"`
	Permalink         string          `json:"permalink"`
}

// ToListing projects the full item body onto the working-set record.
func (d *ItemDetail) ToListing() Listing {
	return Listing{
		ID:                d.ID,
		Title:             d.Title,
		Price:             d.Price,
		CurrencyID:        d.CurrencyID,
		AvailableQuantity: d.AvailableQuantity,
		Status:            d.Status,
		ListingTypeID:     d.ListingTypeID,
		DateCreated:       d.DateCreated,
		Thumbnail:         d.Thumbnail,
		Permalink:         d.Permalink,
		Attributes:        d.Attributes,
	}
}

// NewItemBody is the creation payload for POST /items.
type NewItemBody struct {
	Title             string          `json:"title"`
	CategoryID        string          `json:"category_id"`
	Price             float64         `json:"price"`
	CurrencyID        string          `json:"currency_id"`
	AvailableQuantity int             `json:"available_quantity"`
	BuyingMode        string          `json:"buying_mode,omitempty"`
	ListingTypeID     string          `json:"listing_type_id"`
	Condition         string          `json:"condition,omitempty"`
	Pictures          []PictureSource `json:"pictures"`
	Attributes        []Attribute     `json:"attributes"`
	Warranty          string          `json:"warranty,omitempty"`
	Location          Location        `json:"location"`
	SellerCustomField string          `json:"seller_custom_field,omitempty"`
	SellerContact     json.RawMessage `json:"seller_contact,omitempty"`
	VideoID           string          `json:"video_id,omitempty"`
}

// QuotaInfo is the promotional-slot usage for one listing tier within the
// seller's active promotion pack.
type QuotaInfo struct {
	Used      int `json:"used"`
	Available int `json:"available"`
	Total     int `json:"total"`
}

// Quota aggregates per-tier usage. A nil tier means the quota is unknown,
// which is distinct from a zero quota and must not block a relist attempt.
type Quota struct {
	Silver *QuotaInfo `json:"silver,omitempty"`
	Gold   *QuotaInfo `json:"gold,omitempty"`
}

// Relist phases
const (
	RelistPhaseIdle     = "idle"
	RelistPhaseClosing  = "closing"
	RelistPhaseCreating = "creating"
	RelistPhaseFailed   = "failed"
)

// RelistOperation is the transient workflow record for one in-flight relist.
// It is never persisted.
type RelistOperation struct {
	ID                string `json:"id"`
	SourceListingID   string `json:"source_listing_id"`
	TargetTier        string `json:"target_tier"`
	Phase             string `json:"phase"`
	ClonedDescription string `json:"-"`
	ResultListingID   string `json:"result_listing_id,omitempty"`
}

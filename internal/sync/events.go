package sync

import "time"

const (
	EventListingUpsert  = "listing.upsert"
	EventListingDelete  = "listing.delete"
	EventListingImport  = "listing.import"
	EventListingReset   = "listing.reset"
	EventCategoryUpdate = "category.update"
)

// Event tells connected pages that the catalog changed and they should
// re-render. It is only sent after the change was persisted.
type Event struct {
	Type       string    `json:"type"`
	ListingID  int64     `json:"listing_id,omitempty"`
	Count      int       `json:"count,omitempty"`
	Categories []string  `json:"categories,omitempty"`
	Seq        uint64    `json:"seq"`
	At         time.Time `json:"at"`
}

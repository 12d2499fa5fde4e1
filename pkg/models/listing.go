package models

import "time"

// MaxImages caps how many image references a listing may hold.
const MaxImages = 12

// ImageRef points at one stored image. The local backend only fills ID
// (the blob key); the remote backend fills both the remote file id and the
// hosted URL.
type ImageRef struct {
	ID  string `json:"id,omitempty" bson:"id,omitempty"`
	URL string `json:"url,omitempty" bson:"url,omitempty"`
}

// Listing is the canonical catalog entry. Price and coordinates are nil when
// unset; Latitude and Longitude are either both set or both nil.
type Listing struct {
	ID              int64      `json:"id" bson:"_id"`
	Title           string     `json:"title" bson:"title"`
	Description     string     `json:"description" bson:"description"`
	Type            string     `json:"type" bson:"type"`
	Price           *float64   `json:"price" bson:"price,omitempty"`
	PriceUnit       string     `json:"priceUnit" bson:"priceUnit"`
	FacebookURL     string     `json:"facebookUrl" bson:"facebookUrl"`
	Latitude        *float64   `json:"latitude" bson:"latitude,omitempty"`
	Longitude       *float64   `json:"longitude" bson:"longitude,omitempty"`
	ImageReferences []ImageRef `json:"imageReferences" bson:"imageReferences"`
	CreatedAt       time.Time  `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt" bson:"updatedAt"`
}

// HasLocation reports whether both coordinates are present.
func (l Listing) HasLocation() bool {
	return l.Latitude != nil && l.Longitude != nil
}

// Cover returns the first image reference, if any.
func (l Listing) Cover() (ImageRef, bool) {
	if len(l.ImageReferences) == 0 {
		return ImageRef{}, false
	}
	return l.ImageReferences[0], true
}

// ClampImages returns refs truncated to MaxImages.
func ClampImages(refs []ImageRef) []ImageRef {
	if len(refs) > MaxImages {
		return refs[:MaxImages]
	}
	return refs
}

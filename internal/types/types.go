// README: Shared scalar types used across modules.
package types

// ID is an opaque document or principal identifier.
type ID string

// Point is a WGS84 coordinate pair resolved from a delivery address.
type Point struct {
	Lat float64 `firestore:"lat" json:"lat"`
	Lng float64 `firestore:"lng" json:"lng"`
}

package types

// ImageRef pairs a public URL with the storage key needed to delete the object
// later. Persisted as JSON alongside the owning record.
type ImageRef struct {
	URL      string `json:"url"`
	PublicID string `json:"public_id"`
}

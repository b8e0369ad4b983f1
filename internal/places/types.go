package places

// Coordinates is a WGS84 point.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Candidate is a place offered in the Explore swipe deck.
type Candidate struct {
	ExternalID string  `json:"external_id"`
	Name       string  `json:"name"`
	Kinds      string  `json:"kinds"`
	Rate       int     `json:"rate"`
	Locality   string  `json:"locality"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
}

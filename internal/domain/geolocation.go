package domain

// Geolocation is the canonical record every provider response is normalized
// into. Loc is "lat,lng" and is non-empty in every record handed to callers;
// a provider response without usable coordinates counts as a provider
// failure, not as a record.
type Geolocation struct {
	IP         string `json:"ip"`
	City       string `json:"city"`
	Region     string `json:"region"`
	Country    string `json:"country"`
	Loc        string `json:"loc"`
	Org        string `json:"org"`
	Postal     string `json:"postal"`
	Timezone   string `json:"timezone"`
	Provenance string `json:"provenance"`
}

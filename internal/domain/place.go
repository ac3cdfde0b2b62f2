package domain

// RawResult is a provider-native record from one page of a place search.
type RawResult struct {
	ProviderID  string
	Name        string
	Address     string
	Lat         float64
	Lng         float64
	Categories  []string
	Rating      float64
	ReviewCount int
}

// PlaceDetail is the optional per-result enrichment record. Any field may
// be empty; detail retrieval is best-effort.
type PlaceDetail struct {
	Phone   string
	Website string
	Address string
	Email   string // providers rarely carry this; usually filled by website enrichment
}

// Contact holds contact fields recovered from a lead's own website.
type Contact struct {
	Phone string
	Email string
}

// ResultPage is one page of provider search results plus the continuation
// token for the next page (empty when the provider is exhausted).
type ResultPage struct {
	Results       []RawResult
	NextPageToken string
}

// GeoBias narrows a provider search around a known location. A nil bias
// means no geographic narrowing.
type GeoBias struct {
	Lat          float64
	Lng          float64
	RadiusMeters int
}

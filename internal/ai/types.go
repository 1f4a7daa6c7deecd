package ai

// AlcoholInfo is the shape the identification service returns for one bottle.
type AlcoholInfo struct {
	Name              string   `json:"name"`
	Type              string   `json:"type"`
	Subtype           *string  `json:"subtype,omitempty"`
	Brand             *string  `json:"brand,omitempty"`
	Producer          *string  `json:"producer,omitempty"`
	OriginCountry     *string  `json:"origin_country,omitempty"`
	OriginRegion      *string  `json:"origin_region,omitempty"`
	AlcoholPercentage *float64 `json:"alcohol_percentage,omitempty"`
	PriceRange        *string  `json:"price_range,omitempty"`
	Characteristics   []string `json:"characteristics,omitempty"`
}

// Query is one identification request. Exactly one of ImageURL, ImageBase64
// or Text should be set. RejectedName asks for alternatives after the user
// turned down a confident single match.
type Query struct {
	ImageURL     string `json:"imageUrl,omitempty"`
	ImageBase64  string `json:"imageBase64,omitempty"`
	Text         string `json:"text,omitempty"`
	Type         string `json:"type,omitempty"`
	RejectedName string `json:"rejectedName,omitempty"`
}

// HasImage reports whether the query carries photo input.
func (q Query) HasImage() bool { return q.ImageURL != "" || q.ImageBase64 != "" }

// Result is the discriminated response: either one confident match or a
// bounded list of candidates.
type Result struct {
	Unique     bool          `json:"unique"`
	Result     *AlcoholInfo  `json:"result"`
	Candidates []AlcoholInfo `json:"candidates,omitempty"`
}

// MaxCandidates is the cap the service promises on candidate lists.
const MaxCandidates = 5

package linkedin

import "time"

// ProfileSource records which extraction path produced a profile.
type ProfileSource string

const (
	// SourceStructured means the profile came from the embedded JSON-LD block.
	SourceStructured ProfileSource = "structured"
	// SourceRendered means the profile was assembled from the rendered DOM.
	SourceRendered ProfileSource = "rendered"
	// SourceFallback means extraction failed and the record carries only
	// identity fields.
	SourceFallback ProfileSource = "fallback"
)

// Profile is a scraped LinkedIn profile.
type Profile struct {
	ProfileID   string        `json:"profile_id"`
	Name        string        `json:"name"`
	Headline    string        `json:"headline,omitempty"`
	Location    string        `json:"location,omitempty"`
	Connections string        `json:"connections,omitempty"`
	About       string        `json:"about,omitempty"`
	Experiences []Experience  `json:"experiences"`
	Education   []Education   `json:"education"`
	Skills      []string      `json:"skills"`
	Source      ProfileSource `json:"source"`
	ProfileURL  string        `json:"profile_url"`
	ScrapedAt   time.Time     `json:"scraped_at"`
}

// Experience is one position entry on a profile.
type Experience struct {
	Title       string `json:"title"`
	Company     string `json:"company,omitempty"`
	DateRange   string `json:"date_range,omitempty"`
	Location    string `json:"location,omitempty"`
	Description string `json:"description,omitempty"`
}

// Education is one education entry on a profile.
type Education struct {
	School    string `json:"school"`
	Degree    string `json:"degree,omitempty"`
	Field     string `json:"field,omitempty"`
	DateRange string `json:"date_range,omitempty"`
}

// FallbackProfile returns the record handed to callers when extraction could
// not produce anything useful. Slices are allocated so consumers can range
// and marshal without nil checks.
func FallbackProfile(profileURL string) *Profile {
	return &Profile{
		ProfileID:   ProfileID(profileURL),
		Name:        "Unknown",
		Experiences: []Experience{},
		Education:   []Education{},
		Skills:      []string{},
		Source:      SourceFallback,
		ProfileURL:  profileURL,
		ScrapedAt:   time.Now().UTC(),
	}
}

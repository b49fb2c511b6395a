package linkedin

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"liscraper/pkg/logger"
)

// ErrNoProfileData indicates neither extraction tier produced a usable name.
// Callers substitute a fallback record rather than surfacing this upward.
var ErrNoProfileData = errors.New("no profile data found on page")

// Extractor pulls profile fields out of a rendered LinkedIn profile page.
// It works on HTML text rather than a live browser so extraction can be
// exercised without Chrome.
type Extractor struct {
	logger logger.Logger
}

// NewExtractor creates an extractor.
func NewExtractor(log logger.Logger) *Extractor {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Extractor{logger: log}
}

// Extract parses the page and returns a profile. The structured JSON-LD
// block is preferred; when it is missing or unusable the rendered DOM is
// walked through the selector fallback chains. A profile without a name is
// treated as no data at all.
func (e *Extractor) Extract(html, profileURL string) (*Profile, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	if p := e.fromStructuredData(doc, profileURL); p != nil {
		e.logger.DebugWithFields("Profile extracted from structured data", map[string]interface{}{
			"profile_id": p.ProfileID,
		})
		return p, nil
	}

	p := e.fromRenderedDOM(doc, profileURL)
	if p.Name == "" {
		return nil, ErrNoProfileData
	}

	e.logger.DebugWithFields("Profile extracted from rendered DOM", map[string]interface{}{
		"profile_id":  p.ProfileID,
		"experiences": len(p.Experiences),
	})
	return p, nil
}

// jsonLDPerson mirrors the schema.org Person shape LinkedIn embeds in
// profile pages.
type jsonLDPerson struct {
	Type     string          `json:"@type"`
	Name     string          `json:"name"`
	JobTitle json.RawMessage `json:"jobTitle"`
	Address  struct {
		AddressLocality string `json:"addressLocality"`
		AddressCountry  string `json:"addressCountry"`
	} `json:"address"`
	Description string `json:"description"`
	WorksFor    []struct {
		Name string `json:"name"`
	} `json:"worksFor"`
	AlumniOf []struct {
		Type   string `json:"@type"`
		Name   string `json:"name"`
		Member struct {
			StartDate string `json:"startDate"`
			EndDate   string `json:"endDate"`
		} `json:"member"`
	} `json:"alumniOf"`
}

func (e *Extractor) fromStructuredData(doc *goquery.Document, profileURL string) *Profile {
	var person *jsonLDPerson

	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		raw := strings.TrimSpace(s.Text())
		if raw == "" {
			return true
		}
		if p := decodePerson([]byte(raw)); p != nil {
			person = p
			return false
		}
		return true
	})

	if person == nil || strings.TrimSpace(person.Name) == "" {
		return nil
	}

	profile := &Profile{
		ProfileID:   ProfileID(profileURL),
		Name:        strings.TrimSpace(person.Name),
		Headline:    decodeJobTitle(person.JobTitle),
		About:       strings.TrimSpace(person.Description),
		Experiences: []Experience{},
		Education:   []Education{},
		Skills:      []string{},
		Source:      SourceStructured,
		ProfileURL:  profileURL,
		ScrapedAt:   time.Now().UTC(),
	}

	if person.Address.AddressLocality != "" {
		profile.Location = person.Address.AddressLocality
		if person.Address.AddressCountry != "" {
			profile.Location += ", " + person.Address.AddressCountry
		}
	}

	for _, org := range person.WorksFor {
		if org.Name == "" {
			continue
		}
		profile.Experiences = append(profile.Experiences, Experience{
			Title:   profile.Headline,
			Company: org.Name,
		})
	}

	for _, alum := range person.AlumniOf {
		switch alum.Type {
		case "EducationalOrganization":
			edu := Education{School: alum.Name}
			if alum.Member.StartDate != "" || alum.Member.EndDate != "" {
				edu.DateRange = strings.TrimSpace(alum.Member.StartDate + " - " + alum.Member.EndDate)
			}
			profile.Education = append(profile.Education, edu)
		case "Organization":
			// Past employers appear under alumniOf as plain organizations
			if alum.Name != "" {
				profile.Experiences = append(profile.Experiences, Experience{
					Company:   alum.Name,
					DateRange: strings.TrimSpace(strings.Trim(alum.Member.StartDate+" - "+alum.Member.EndDate, " -")),
				})
			}
		}
	}

	return profile
}

// decodePerson finds a Person node either at the top level or inside an
// @graph array. Malformed JSON returns nil so the caller falls through to
// the DOM tier.
func decodePerson(raw []byte) *jsonLDPerson {
	var direct jsonLDPerson
	if err := json.Unmarshal(raw, &direct); err == nil && direct.Type == "Person" {
		return &direct
	}

	var graph struct {
		Graph []json.RawMessage `json:"@graph"`
	}
	if err := json.Unmarshal(raw, &graph); err != nil {
		return nil
	}
	for _, node := range graph.Graph {
		var p jsonLDPerson
		if err := json.Unmarshal(node, &p); err == nil && p.Type == "Person" {
			return &p
		}
	}
	return nil
}

// decodeJobTitle handles jobTitle being either a string or an array of
// strings.
func decodeJobTitle(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return strings.TrimSpace(single)
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err == nil && len(many) > 0 {
		return strings.TrimSpace(many[0])
	}
	return ""
}

func (e *Extractor) fromRenderedDOM(doc *goquery.Document, profileURL string) *Profile {
	profile := &Profile{
		ProfileID:   ProfileID(profileURL),
		Name:        firstText(doc, nameSelectors),
		Headline:    firstText(doc, headlineSelectors),
		Location:    firstText(doc, locationSelectors),
		Connections: firstText(doc, connectionsSelectors),
		About:       firstText(doc, aboutSelectors),
		Experiences: []Experience{},
		Education:   []Education{},
		Skills:      []string{},
		Source:      SourceRendered,
		ProfileURL:  profileURL,
		ScrapedAt:   time.Now().UTC(),
	}

	forEachEntry(doc, experienceAnchor, experienceSectionSelectors, func(s *goquery.Selection) {
		exp := Experience{
			Title:       firstTextIn(s, entryTitleSelectors),
			Company:     firstTextIn(s, entrySubtitleSelectors),
			DateRange:   firstTextIn(s, entryDateSelectors),
			Description: firstTextIn(s, entryDescriptionSelectors),
		}
		if exp.Title != "" || exp.Company != "" {
			profile.Experiences = append(profile.Experiences, exp)
		}
	})

	forEachEntry(doc, educationAnchor, educationSectionSelectors, func(s *goquery.Selection) {
		edu := Education{
			School:    firstTextIn(s, entryTitleSelectors),
			Degree:    firstTextIn(s, entrySubtitleSelectors),
			DateRange: firstTextIn(s, entryDateSelectors),
		}
		if edu.School != "" {
			profile.Education = append(profile.Education, edu)
		}
	})

	seen := make(map[string]bool)
	for _, sel := range skillsSectionSelectors {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			skill := cleanText(s.Text())
			if skill != "" && !seen[skill] {
				seen[skill] = true
				profile.Skills = append(profile.Skills, skill)
			}
		})
		if len(profile.Skills) > 0 {
			break
		}
	}

	return profile
}

// firstText tries each selector in order and returns the first non-empty
// text match.
func firstText(doc *goquery.Document, selectors []string) string {
	for _, sel := range selectors {
		if text := cleanText(doc.Find(sel).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

func firstTextIn(s *goquery.Selection, selectors []string) string {
	for _, sel := range selectors {
		if text := cleanText(s.Find(sel).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

// forEachEntry visits the list items of one profile section. The modern
// layout is tried first: an anchor div marks the section and the first
// following list container holds its entries. Legacy layouts fall back to
// plain selectors.
func forEachEntry(doc *goquery.Document, anchor string, selectors []string, fn func(*goquery.Selection)) {
	if a := doc.Find(anchor).First(); a.Length() > 0 {
		container := a.NextAllFiltered(".pvs-list__outer-container").First()
		items := container.Find("ul > li")
		if items.Length() > 0 {
			items.Each(func(_ int, s *goquery.Selection) { fn(s) })
			return
		}
	}
	for _, sel := range selectors {
		items := doc.Find(sel)
		if items.Length() == 0 {
			continue
		}
		items.Each(func(_ int, s *goquery.Selection) { fn(s) })
		return
	}
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// DetectChallengeMarkup scans the rendered page for captcha frames and
// verification inputs that do not always show up in the URL.
func DetectChallengeMarkup(html string) bool {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return false
	}
	for _, sel := range challengePageSelectors {
		if doc.Find(sel).Length() > 0 {
			return true
		}
	}
	return false
}

// LoginErrorText returns the text of the first login failure banner on the
// page, or "" when none is present.
func LoginErrorText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	for _, sel := range loginErrorSelectors {
		if text := cleanText(doc.Find(sel).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

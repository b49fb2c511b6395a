package linkedin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const profileURL = "https://www.linkedin.com/in/janedoe/"

const structuredProfileHTML = `<!DOCTYPE html>
<html><head>
<script type="application/ld+json">
{
  "@context": "http://schema.org",
  "@graph": [
    {
      "@type": "Person",
      "name": "Jane Doe",
      "jobTitle": ["Staff Software Engineer"],
      "description": "Building distributed systems.",
      "address": {"@type": "PostalAddress", "addressLocality": "Berlin", "addressCountry": "DE"},
      "worksFor": [{"@type": "Organization", "name": "Acme Corp"}],
      "alumniOf": [
        {"@type": "EducationalOrganization", "name": "TU Berlin",
         "member": {"startDate": "2010", "endDate": "2014"}}
      ]
    }
  ]
}
</script>
</head><body><main><h1>Jane Doe</h1></main></body></html>`

const renderedProfileHTML = `<!DOCTYPE html>
<html><body><main>
<h1 class="text-heading-xlarge">John Smith</h1>
<div class="pv-text-details__left-panel">
  <div class="text-body-medium">Platform Engineer at Example</div>
  <span class="text-body-small inline">Amsterdam, Netherlands</span>
</div>
<div id="experience"></div>
<div class="pvs-list__outer-container"><ul>
  <li>
    <span class="t-bold"><span aria-hidden="true">Platform Engineer</span></span>
    <span class="t-14 t-normal"><span aria-hidden="true">Example B.V.</span></span>
    <span class="t-14 t-normal t-black--light"><span aria-hidden="true">2019 - Present</span></span>
  </li>
</ul></div>
<div id="education"></div>
<div class="pvs-list__outer-container"><ul>
  <li>
    <span class="t-bold"><span aria-hidden="true">Utrecht University</span></span>
    <span class="t-14 t-normal"><span aria-hidden="true">BSc Computer Science</span></span>
  </li>
</ul></div>
</main></body></html>`

func TestExtractStructured(t *testing.T) {
	e := NewExtractor(nil)

	profile, err := e.Extract(structuredProfileHTML, profileURL)
	require.NoError(t, err)

	assert.Equal(t, SourceStructured, profile.Source)
	assert.Equal(t, "janedoe", profile.ProfileID)
	assert.Equal(t, "Jane Doe", profile.Name)
	assert.Equal(t, "Staff Software Engineer", profile.Headline)
	assert.Equal(t, "Berlin, DE", profile.Location)
	assert.Equal(t, "Building distributed systems.", profile.About)
	require.Len(t, profile.Experiences, 1)
	assert.Equal(t, "Acme Corp", profile.Experiences[0].Company)
	require.Len(t, profile.Education, 1)
	assert.Equal(t, "TU Berlin", profile.Education[0].School)
	assert.Equal(t, "2010 - 2014", profile.Education[0].DateRange)
	assert.NotNil(t, profile.Skills)
}

func TestExtractRenderedFallback(t *testing.T) {
	e := NewExtractor(nil)

	profile, err := e.Extract(renderedProfileHTML, "https://www.linkedin.com/in/johnsmith/")
	require.NoError(t, err)

	assert.Equal(t, SourceRendered, profile.Source)
	assert.Equal(t, "John Smith", profile.Name)
	assert.Equal(t, "Platform Engineer at Example", profile.Headline)
	assert.Equal(t, "Amsterdam, Netherlands", profile.Location)
	require.Len(t, profile.Experiences, 1)
	assert.Equal(t, "Platform Engineer", profile.Experiences[0].Title)
	assert.Equal(t, "Example B.V.", profile.Experiences[0].Company)
	assert.Equal(t, "2019 - Present", profile.Experiences[0].DateRange)
	require.Len(t, profile.Education, 1)
	assert.Equal(t, "Utrecht University", profile.Education[0].School)
	assert.Equal(t, "BSc Computer Science", profile.Education[0].Degree)
}

func TestExtractMalformedJSONLDFallsThrough(t *testing.T) {
	html := `<html><head>
<script type="application/ld+json">{broken json</script>
</head><body><main><h1>Broken Page Persona</h1></main></body></html>`

	e := NewExtractor(nil)
	profile, err := e.Extract(html, profileURL)
	require.NoError(t, err)

	assert.Equal(t, SourceRendered, profile.Source)
	assert.Equal(t, "Broken Page Persona", profile.Name)
}

func TestExtractNoData(t *testing.T) {
	e := NewExtractor(nil)

	_, err := e.Extract("<html><body><div>nothing useful</div></body></html>", profileURL)
	assert.ErrorIs(t, err, ErrNoProfileData)
}

func TestExtractSlicesNeverNil(t *testing.T) {
	html := `<html><body><main><h1>Lonely Name</h1></main></body></html>`

	e := NewExtractor(nil)
	profile, err := e.Extract(html, profileURL)
	require.NoError(t, err)

	assert.NotNil(t, profile.Experiences)
	assert.NotNil(t, profile.Education)
	assert.NotNil(t, profile.Skills)
}

func TestDetectChallengeMarkup(t *testing.T) {
	tests := []struct {
		name     string
		html     string
		expected bool
	}{
		{
			name:     "captcha iframe",
			html:     `<html><body><iframe src="https://challenge.example/captcha/frame"></iframe></body></html>`,
			expected: true,
		},
		{
			name:     "two factor pin input",
			html:     `<html><body><form><input name="pin" type="text"></form></body></html>`,
			expected: true,
		},
		{
			name:     "one time code input",
			html:     `<html><body><input autocomplete="one-time-code"></body></html>`,
			expected: true,
		},
		{
			name:     "clean profile page",
			html:     `<html><body><main><h1>Jane Doe</h1></main></body></html>`,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DetectChallengeMarkup(tt.html))
		})
	}
}

func TestLoginErrorText(t *testing.T) {
	html := `<html><body>
<div class="form-error">Wrong email or password. Try again.</div>
</body></html>`

	assert.Equal(t, "Wrong email or password. Try again.", LoginErrorText(html))
	assert.Empty(t, LoginErrorText("<html><body><p>fine</p></body></html>"))
}

func TestFallbackProfile(t *testing.T) {
	p := FallbackProfile(profileURL)

	assert.Equal(t, "janedoe", p.ProfileID)
	assert.Equal(t, "Unknown", p.Name)
	assert.Equal(t, SourceFallback, p.Source)
	assert.Equal(t, profileURL, p.ProfileURL)
	assert.NotNil(t, p.Experiences)
	assert.NotNil(t, p.Education)
	assert.NotNil(t, p.Skills)
	assert.Empty(t, p.Experiences)
}

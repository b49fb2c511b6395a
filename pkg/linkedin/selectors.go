package linkedin

// LinkedIn renders profiles with several different DOM layouts depending on
// viewer state and rollout bucket. Each field carries an ordered list of
// selectors tried first to last; the first non-empty match wins.

// Login form selectors.
const (
	selectorLoginEmail    = "#username, input[name='session_key']"
	selectorLoginPassword = "#password, input[name='session_password']"
	selectorLoginSubmit   = "button[type='submit'], button[data-litms-control-urn=\"login-submit\"]"
)

// Login failure banners.
var loginErrorSelectors = []string{
	".alert-error",
	".login__form-error",
	".form-error",
	"#error-for-username",
	"#error-for-password",
}

// Challenge page markers checked in the rendered DOM.
var challengePageSelectors = []string{
	"iframe[src*=\"captcha\"]",
	"#captcha-internal",
	"input[name='pin']",
	"input[autocomplete=\"one-time-code\"]",
}

// Profile field selector fallback chains.
var (
	nameSelectors = []string{
		"main h1",
		"h1.text-heading-xlarge",
		".pv-text-details__left-panel h1",
		".top-card-layout__title",
	}

	headlineSelectors = []string{
		".pv-text-details__left-panel .text-body-medium",
		"main .text-body-medium.break-words",
		".top-card-layout__headline",
	}

	locationSelectors = []string{
		".pv-text-details__left-panel .text-body-small.inline",
		"main .text-body-small.inline.t-black--light.break-words",
		".top-card-layout__first-subline .top-card__subline-item",
	}

	connectionsSelectors = []string{
		".pv-top-card--list-bullet li .t-bold",
		"main span.t-bold",
		".top-card__subline-item--bullet",
	}

	aboutSelectors = []string{
		"#about ~ .display-flex .inline-show-more-text span[aria-hidden='true']",
		"section[data-section='summary'] .core-section-container__content p",
		".summary .pv-about__summary-text",
	}

	// Modern profile layout puts an empty anchor div before each section's
	// list container; the anchor is looked up first and legacy selectors
	// are tried when it is absent.
	experienceAnchor           = "#experience"
	experienceSectionSelectors = []string{
		"section[data-section='experience'] ul.experience__list > li",
		"#experience-section ul > li",
	}

	educationAnchor           = "#education"
	educationSectionSelectors = []string{
		"section[data-section='educationsDetails'] ul.education__list > li",
		"#education-section ul > li",
	}

	skillsSectionSelectors = []string{
		"#skills ~ .pvs-list__outer-container span[aria-hidden='true']",
		"section[data-section='skills'] .skills__item-name",
		".pv-skill-category-entity__name-text",
	}
)

// Per-entry selectors within an experience or education list item.
var (
	entryTitleSelectors = []string{
		".t-bold span[aria-hidden='true']",
		".profile-section-card__title",
		"h3",
	}
	entrySubtitleSelectors = []string{
		".t-14.t-normal span[aria-hidden='true']",
		".profile-section-card__subtitle",
		"h4",
	}
	entryDateSelectors = []string{
		".t-14.t-normal.t-black--light span[aria-hidden='true']",
		".date-range",
		"time",
	}
	entryDescriptionSelectors = []string{
		".inline-show-more-text span[aria-hidden='true']",
		".profile-section-card__description",
		"p.show-more-less-text__text--less",
	}
)

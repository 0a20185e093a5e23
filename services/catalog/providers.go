package catalog

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"screenscout/config"
	"screenscout/models"
	"screenscout/utils"
)

// providerRules holds the normalized reconciliation policy built from config.
// The allow/deny lists are data so they can be updated without a rebuild.
type providerRules struct {
	region                   string
	allowed                  []string
	excluded                 []string
	showRentBuyWithStreaming bool
}

func newProviderRules(cfg config.ProviderSettings) providerRules {
	rules := providerRules{
		region:                   strings.ToUpper(strings.TrimSpace(cfg.Region)),
		showRentBuyWithStreaming: cfg.ShowRentBuyWithStreaming,
	}
	if rules.region == "" {
		rules.region = "US"
	}
	for _, name := range cfg.AllowedServices {
		if n := normalizeProviderName(name); n != "" {
			rules.allowed = append(rules.allowed, n)
		}
	}
	for _, name := range cfg.ExcludedServices {
		if n := normalizeProviderName(name); n != "" {
			rules.excluded = append(rules.excluded, n)
		}
	}
	return rules
}

var (
	providerSuffixRe  = regexp.MustCompile(`\s+(premium|plus|tv|streaming|subscription|ad-free|ad free)$`)
	whitespaceRe      = regexp.MustCompile(`\s+`)
	usRegionSpellings = map[string]bool{"US": true, "USA": true, "UNITED STATES": true}
)

// normalizeProviderName lowercases, trims, and collapses whitespace.
func normalizeProviderName(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	return whitespaceRe.ReplaceAllString(n, " ")
}

// baseServiceName strips the suffix family (premium/plus/tv/streaming/
// subscription) that catalogs append to one real-world service. Apple TV is
// special-cased: "tv" is part of the brand, not a suffix.
func baseServiceName(normalized string) string {
	if strings.HasPrefix(normalized, "apple tv") {
		return "apple tv"
	}
	base := providerSuffixRe.ReplaceAllString(normalized, "")
	return strings.TrimSpace(base)
}

// isExcluded reports whether the provider matches the deny list of
// region-locked services. Deny wins even when the regional catalog listed it.
func (r providerRules) isExcluded(normalized string) bool {
	for _, excluded := range r.excluded {
		if strings.Contains(normalized, excluded) {
			return true
		}
	}
	return false
}

// allowedKey matches a provider against the allow list and returns the
// canonical dedup key for its service family. Providers matching nothing are
// dropped as catalog noise.
func (r providerRules) allowedKey(normalized string) (string, bool) {
	// Apple's catalog names vary a lot ("Apple TV", "Apple TV+", "Apple TV
	// Plus", but also "Apple Music" style noise): require the apple tv prefix.
	if strings.Contains(normalized, "apple") {
		if strings.HasPrefix(normalized, "apple tv") {
			return "apple tv", true
		}
		return "", false
	}

	base := baseServiceName(normalized)
	for _, service := range r.allowed {
		if strings.HasPrefix(service, "apple tv") {
			continue
		}
		serviceBase := baseServiceName(service)
		if normalized == service || normalized == serviceBase || base == serviceBase {
			return serviceBase, true
		}
		// Containment only counts for names long enough to be unambiguous.
		if len(serviceBase) > 4 && strings.Contains(normalized, serviceBase) {
			return serviceBase, true
		}
	}
	return "", false
}

// offerIndex is the pricing/deep-link lookup built from Watchmode sources,
// keyed by normalized provider name.
type offerIndex map[string]watchmodeSource

// buildOfferIndex keeps only sources in the configured region (accepting the
// common US spellings) and collapses one provider's listings to a single
// record, preferring the subscription listing over transactional ones.
func (r providerRules) buildOfferIndex(sources []watchmodeSource) offerIndex {
	idx := make(offerIndex)
	for _, src := range sources {
		region := strings.ToUpper(strings.TrimSpace(src.Region))
		if r.region == "US" {
			if !usRegionSpellings[region] {
				continue
			}
		} else if region != r.region {
			continue
		}
		key := normalizeProviderName(src.Name)
		if key == "" {
			continue
		}
		existing, ok := idx[key]
		if !ok || (existing.Type != "sub" && src.Type == "sub") {
			idx[key] = src
		}
	}
	return idx
}

// lookup finds the pricing record for a provider: exact normalized-name match
// first, then a bounded fuzzy pass (containment in either direction, plus the
// Apple TV special case).
func (idx offerIndex) lookup(normalized string) (watchmodeSource, bool) {
	if src, ok := idx[normalized]; ok {
		return src, true
	}
	base := baseServiceName(normalized)
	if src, ok := idx[base]; ok {
		return src, true
	}
	for key, src := range idx {
		if base == "apple tv" {
			if strings.Contains(key, "apple") {
				return src, true
			}
			continue
		}
		if len(base) > 4 && (strings.Contains(key, base) || strings.Contains(base, key)) {
			return src, true
		}
	}
	return watchmodeSource{}, false
}

// netflixSearchURL synthesizes a search deep link for Netflix when neither
// source provided a direct one.
func netflixSearchURL(title string) string {
	return "https://www.netflix.com/search?q=" + url.QueryEscape(title)
}

// reconcileProviders merges the TMDB regional catalog (presence) with the
// Watchmode listings (pricing/deep links) into one deduplicated availability
// set for the configured region.
//
// Presence is authoritative: a provider confirmed by the regional catalog is
// shown even without a pricing match; a provider only Watchmode knows about is
// not shown at all. No regional fallback: no US entry means empty availability.
func (r providerRules) reconcileProviders(presence *tmdbProviderRegion, sources []watchmodeSource, title string) models.WatchAvailability {
	availability := models.EmptyAvailability()
	if presence == nil {
		return availability
	}

	offers := r.buildOfferIndex(sources)

	categories := []struct {
		offerType models.OfferType
		providers []tmdbProvider
	}{
		{models.OfferStreaming, presence.Flatrate},
		{models.OfferRent, presence.Rent},
		{models.OfferBuy, presence.Buy},
	}

	for _, category := range categories {
		seen := make(map[string]bool)
		for _, provider := range category.providers {
			normalized := normalizeProviderName(provider.ProviderName)
			if normalized == "" || r.isExcluded(normalized) {
				continue
			}
			key, ok := r.allowedKey(normalized)
			if !ok {
				continue
			}
			if seen[key] {
				continue
			}
			seen[key] = true

			option := models.WatchOption{
				Provider: strings.TrimSpace(provider.ProviderName),
				Type:     category.offerType,
				LogoURL:  tmdbImageURL(provider.LogoPath, tmdbLogoSize),
			}
			if src, found := offers.lookup(normalized); found {
				if src.Price != nil {
					price := fmt.Sprintf("$%.2f", *src.Price)
					option.Price = &price
				}
				if link := sanitizeDeepLink(src.WebURL); link != "" {
					option.DeepLink = &link
				}
			}
			if option.DeepLink == nil && key == "netflix" {
				link := netflixSearchURL(title)
				option.DeepLink = &link
			}

			switch category.offerType {
			case models.OfferStreaming:
				availability.Streaming = append(availability.Streaming, option)
			case models.OfferRent:
				availability.Rent = append(availability.Rent, option)
			case models.OfferBuy:
				availability.Buy = append(availability.Buy, option)
			}
		}
	}

	// A title already covered by a subscription hides its purchase options
	// unless configured otherwise.
	if len(availability.Streaming) > 0 && !r.showRentBuyWithStreaming {
		availability.Rent = []models.WatchOption{}
		availability.Buy = []models.WatchOption{}
	}
	return availability
}

// sanitizeDeepLink re-encodes provider URLs that arrive with raw spaces.
func sanitizeDeepLink(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	encoded, err := utils.EncodeURLWithSpaces(raw)
	if err != nil {
		return ""
	}
	return encoded
}

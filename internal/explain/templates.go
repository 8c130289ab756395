package explain

import (
	"fmt"
	"strings"

	"stillopen-api/internal/features"
	"stillopen-api/internal/models"
)

// describe returns the dedupe group and the subject clause for a feature,
// worded from the place's actual value. An empty subject means the feature
// has no sentence.
func describe(feature string, place models.Place, v features.Vector) (string, string) {
	x := value(v, feature)
	present := x != 0

	switch feature {
	case features.FeatureConfidence:
		if missing(v, features.SignalConfidence) {
			return feature, "No source confidence reported"
		}
		return feature, fmt.Sprintf("Source confidence is %.2f", x)
	case features.FeatureHasWebsite:
		return feature, pick(present, "Website is listed", "No website found")
	case features.FeatureHasSocial:
		return feature, pick(present, "Social media presence detected", "No social media presence found")
	case features.FeatureHasPhone:
		return feature, pick(present, "Phone number is listed", "No phone number listed")
	case features.FeatureHasAddress:
		return feature, pick(present, "Street address on record", "No street address on record")
	case features.FeatureHasEmail:
		return feature, pick(present, "Email contact is listed", "No email contact listed")
	case features.FeatureHasBrand:
		if present && place.Metadata.Brand != nil {
			return feature, fmt.Sprintf("Part of the %s brand", strings.TrimSpace(*place.Metadata.Brand))
		}
		return feature, "Not associated with a known brand"
	case features.FeatureNumSources:
		switch n := int(x); n {
		case 0:
			return feature, "No contributing sources on record"
		case 1:
			return feature, "Confirmed by 1 source"
		default:
			return feature, fmt.Sprintf("Confirmed by %d sources", n)
		}
	case features.FeatureSourceMeanConfidence:
		if missing(v, features.SignalSources) {
			return features.FeatureNumSources, "No contributing sources on record"
		}
		return feature, fmt.Sprintf("Sources report an average confidence of %.2f", x)
	case features.FeatureDaysSinceUpdate, features.FeatureHasUpdateTime:
		if value(v, features.FeatureHasUpdateTime) == 0 {
			return "recency", "No update date on record"
		}
		days := int(value(v, features.FeatureDaysSinceUpdate))
		switch {
		case days < recentDays:
			return "recency", "Updated recently"
		default:
			return "recency", fmt.Sprintf("Last updated %d days ago", days)
		}
	case features.FeatureHasOpeningHours, features.FeatureHoursParseable:
		switch {
		case value(v, features.FeatureHasOpeningHours) == 0:
			return "hours", "No opening hours listed"
		case value(v, features.FeatureHoursParseable) == 1:
			return "hours", "Opening hours are listed"
		default:
			return "hours", "Listed opening hours could not be read"
		}
	case features.FeatureHasLocation, features.FeatureLatitude, features.FeatureLongitude:
		if loc, ok := place.ValidLocation(); ok {
			return "location", fmt.Sprintf("Located at %.4f, %.4f", loc.Lat, loc.Lon)
		}
		return "location", "No valid location on record"
	case features.FeatureSourceOSM:
		return feature, pick(present, "Listed in OpenStreetMap", "Not listed in OpenStreetMap")
	case features.FeatureSourceOverture:
		return feature, pick(present, "Listed in Overture Maps", "Not listed in Overture Maps")
	case features.FeatureCategoryFreq:
		category := categoryOf(place)
		switch {
		case category == "":
			return feature, "No category on record"
		case present:
			return feature, fmt.Sprintf("Category %q is common in the catalog", category)
		default:
			return feature, fmt.Sprintf("Category %q is rare in the catalog", category)
		}
	}

	if sector, ok := strings.CutPrefix(feature, features.CategoryPrefix); ok {
		if present {
			return "sector", fmt.Sprintf("Categorized as %s", sectorLabel(sector))
		}
		return "sector", fmt.Sprintf("Not categorized as %s", sectorLabel(sector))
	}
	return feature, ""
}

func pick(cond bool, yes, no string) string {
	if cond {
		return yes
	}
	return no
}

func categoryOf(place models.Place) string {
	if c := strings.TrimSpace(place.Category); c != "" {
		return c
	}
	return strings.TrimSpace(place.Metadata.PrimaryCategory)
}

package features

import (
	"fmt"
	"strconv"
	"strings"
)

var weekdays = map[string]bool{
	"Mo": true, "Tu": true, "We": true, "Th": true, "Fr": true, "Sa": true, "Su": true,
}

// ParseOpeningHours checks an OSM-style opening_hours value and returns the
// number of rules in it. Supported: "24/7", rules separated by ';' made of
// an optional day selector (Mo-Fr, Sa,Su, PH, SH) followed by time ranges
// (08:00-12:00,13:00-17:00), "24/7", "off" or "closed".
func ParseOpeningHours(text string) (int, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, fmt.Errorf("opening hours: empty")
	}
	rules := 0
	for _, rule := range strings.Split(text, ";") {
		rule = strings.TrimSpace(rule)
		if rule == "" {
			continue
		}
		if err := parseRule(rule); err != nil {
			return 0, fmt.Errorf("opening hours: rule %q: %w", rule, err)
		}
		rules++
	}
	if rules == 0 {
		return 0, fmt.Errorf("opening hours: no rules")
	}
	return rules, nil
}

func parseRule(rule string) error {
	fields := strings.Fields(rule)
	if len(fields) > 0 && looksLikeDays(fields[0]) {
		if err := parseDays(fields[0]); err != nil {
			return err
		}
		fields = fields[1:]
		if len(fields) == 0 {
			return nil
		}
	}
	if len(fields) != 1 {
		return fmt.Errorf("expected one time selector, got %d", len(fields))
	}
	switch strings.ToLower(fields[0]) {
	case "24/7", "off", "closed":
		return nil
	}
	for _, span := range strings.Split(fields[0], ",") {
		if err := parseSpan(span); err != nil {
			return err
		}
	}
	return nil
}

func looksLikeDays(token string) bool {
	return len(token) >= 2 && (weekdays[token[:2]] || token[:2] == "PH" || token[:2] == "SH")
}

func parseDays(token string) error {
	for _, item := range strings.Split(token, ",") {
		if item == "PH" || item == "SH" {
			continue
		}
		bounds := strings.Split(item, "-")
		if len(bounds) > 2 {
			return fmt.Errorf("bad day range %q", item)
		}
		for _, d := range bounds {
			if !weekdays[d] {
				return fmt.Errorf("unknown day %q", d)
			}
		}
	}
	return nil
}

func parseSpan(span string) error {
	bounds := strings.Split(span, "-")
	if len(bounds) != 2 {
		return fmt.Errorf("bad time range %q", span)
	}
	for _, b := range bounds {
		if _, err := parseClock(b); err != nil {
			return err
		}
	}
	return nil
}

// parseClock accepts HH:MM with hours up to 48 for ranges that run past
// midnight.
func parseClock(s string) (int, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 || len(parts[0]) == 0 || len(parts[0]) > 2 || len(parts[1]) != 2 {
		return 0, fmt.Errorf("bad time %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 48 {
		return 0, fmt.Errorf("bad hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("bad minute in %q", s)
	}
	return h*60 + m, nil
}

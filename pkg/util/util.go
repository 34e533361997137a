package util

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// SecondsPerHour is the unit OmniPlan reports efforts in, divided out to get Acunote hours.
const SecondsPerHour = 3600

var nonDigits = regexp.MustCompile(`\D`)

// ToDestinationPriority converts an OmniPlan priority of the form "P<n>" into the
// Acunote scale, 6 - (n mod 6). An empty value stays empty.
// Values outside 1..6 are not rejected; they map to whatever the formula gives.
func ToDestinationPriority(native string) string {
	if native == "" {
		return ""
	}
	n, _ := strconv.Atoi(nonDigits.ReplaceAllString(native, ""))
	return strconv.Itoa(6 - mod6(n))
}

// ToSourcePriority converts an Acunote priority back into "P<n>" form.
// Note that P0 and P6 both come back as P6.
func ToSourcePriority(dest string) string {
	if dest == "" {
		return ""
	}
	n, _ := strconv.Atoi(strings.TrimSpace(dest))
	return "P" + strconv.Itoa(6-mod6(n))
}

// mod6 matches floored modulo so negative input still lands in 0..5.
func mod6(n int) int {
	m := n % 6
	if m < 0 {
		m += 6
	}
	return m
}

// ParsePercent parses "40" or "40%" into 0.4.
func ParsePercent(value string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(value), "%"), 64)
	if err != nil {
		return 0
	}
	return f / 100.0
}

// SecondsToHours parses an effort in seconds and returns whole hours, truncating.
// An empty value returns nil: the effort is unknown, not zero.
func SecondsToHours(seconds string) (*int, error) {
	seconds = strings.TrimSpace(seconds)
	if seconds == "" {
		return nil, nil
	}
	s, err := strconv.ParseFloat(seconds, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid effort %q: %w", seconds, err)
	}
	h := int(s) / SecondsPerHour
	return &h, nil
}

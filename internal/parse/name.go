package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// BayPrefix marks lay-by spots, which are drawn larger on the map.
const BayPrefix = "zaliv"

var (
	seqRe   = regexp.MustCompile(`(?:-|\s)\s*(\d+)\s*$`)
	spaceRe = regexp.MustCompile(`\s+`)
)

// SpotName holds the structured data parsed from a spot's display name.
type SpotName struct {
	Zone string
	Seq  int
	Bay  bool
}

// ParseSpotName extracts zone and sequence number from a raw spot name such
// as "A2-14", "zaliv-3" or "P1 #12". A name without a separated trailing
// number keeps Seq at 0.
func ParseSpotName(raw string) (SpotName, error) {
	// '#' is a separator, not part of the zone
	s := strings.ReplaceAll(strings.TrimSpace(raw), "#", " ")
	s = strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
	if s == "" {
		return SpotName{}, fmt.Errorf("unable to parse empty spot name: %q", raw)
	}

	seq := 0
	zone := s
	if loc := seqRe.FindStringSubmatchIndex(s); loc != nil {
		if n, err := strconv.Atoi(s[loc[2]:loc[3]]); err == nil {
			seq = n
			zone = strings.TrimSpace(s[:loc[0]])
		}
	}
	if zone == "" {
		return SpotName{}, fmt.Errorf("unable to parse zone from spot name: %q", raw)
	}

	return SpotName{
		Zone: zone,
		Seq:  seq,
		Bay:  IsBay(s),
	}, nil
}

// IsBay reports whether name denotes a lay-by spot.
func IsBay(name string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(name)), BayPrefix)
}

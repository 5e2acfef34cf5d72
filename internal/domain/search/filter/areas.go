package filter

import (
	"regexp"
	"strings"
)

// NeighborhoodGroups maps friendly area names to upstream neighborhood codes.
var NeighborhoodGroups = map[string][]string{
	"manhattan": {
		"roosevelt-island", "financial-district", "tribeca", "soho", "little-italy",
		"lower-east-side", "chinatown", "battery-park-city", "gramercy-park",
		"chelsea", "west-chelsea", "greenwich-village", "east-village", "west-village",
		"flatiron", "nomad", "nolita", "midtown", "central-park-south", "midtown-south",
		"midtown-east", "murray-hill", "kips-bay", "midtown-west", "hells-kitchen",
		"upper-west-side", "lincoln-square", "upper-east-side", "lenox-hill", "yorkville",
		"carnegie-hill", "morningside-heights", "hamilton-heights", "washington-heights",
		"inwood", "central-harlem", "east-harlem", "south-harlem",
	},
	"brooklyn": {
		"greenpoint", "williamsburg", "east-williamsburg", "downtown-brooklyn",
		"fort-greene", "brooklyn-heights", "boerum-hill", "dumbo", "bedford-stuyvesant",
		"bushwick", "red-hook", "park-slope", "gowanus", "carroll-gardens", "cobble-hill",
		"sunset-park", "windsor-terrace", "crown-heights", "prospect-heights", "clinton-hill",
	},
	"queens": {
		"astoria", "long-island-city", "sunnyside", "woodside", "jackson-heights",
		"forest-hills", "flushing", "ridgewood",
	},
	"bronx": {
		"mott-haven", "riverdale", "concourse", "fordham", "pelham-bay", "morris-park",
		"woodlawn",
	},
	"staten-island": {"saint-george", "tompkinsville", "stapleton"},
	"downtown": {
		"financial-district", "tribeca", "soho", "little-italy", "lower-east-side",
		"chinatown", "battery-park-city", "west-village", "east-village", "nolita",
	},
	"midtown": {
		"chelsea", "gramercy-park", "flatiron", "nomad", "midtown", "midtown-south",
		"midtown-east", "murray-hill", "kips-bay", "midtown-west", "hells-kitchen",
	},
	"upper-manhattan": {
		"upper-west-side", "upper-east-side", "morningside-heights",
		"hamilton-heights", "washington-heights", "inwood", "central-harlem", "east-harlem",
	},
}

// FriendlyAreas are the names offered to the user in conversation.
var FriendlyAreas = []string{
	"Manhattan", "Brooklyn", "Queens", "Bronx", "Staten Island",
	"Downtown Manhattan", "Midtown", "Upper Manhattan",
	"East Village", "West Village", "Lower East Side", "Upper East Side", "Upper West Side",
	"Chelsea", "Tribeca", "SoHo", "Financial District",
	"Williamsburg", "Bushwick", "Greenpoint", "DUMBO", "Park Slope",
	"Astoria", "Long Island City", "Forest Hills",
}

var (
	whitespace     = regexp.MustCompile(`\s+`)
	knownNeighbors = buildKnown()
)

func buildKnown() map[string]struct{} {
	known := make(map[string]struct{})
	for _, codes := range NeighborhoodGroups {
		for _, c := range codes {
			known[c] = struct{}{}
		}
	}
	return known
}

// ExpandArea maps a friendly area name to neighborhood codes. A known neighborhood
// returns itself; a group returns its members; anything else returns nil.
// "midtown" is both a neighborhood and a group and resolves as the neighborhood.
func ExpandArea(area string) []string {
	norm := whitespace.ReplaceAllString(strings.ToLower(strings.TrimSpace(area)), "-")
	if _, ok := knownNeighbors[norm]; ok {
		return []string{norm}
	}
	group, ok := NeighborhoodGroups[norm]
	if !ok {
		return nil
	}
	out := make([]string, len(group))
	copy(out, group)
	return out
}

// ExpandAreas splits a comma-separated list and expands each entry in order.
func ExpandAreas(areas string) []string {
	var out []string
	for _, a := range strings.Split(areas, ",") {
		out = append(out, ExpandArea(a)...)
	}
	return out
}

// Package analysis scores listing photos from vision labels.
package analysis

import (
	"math"
	"strings"
)

// MaxScore is the upper bound of both per-image scores.
const MaxScore = 10

// RoomTypes is the fixed room vocabulary, in match priority order.
var RoomTypes = []string{
	"bedroom", "bathroom", "kitchen", "living room", "dining room",
	"office", "closet", "laundry room",
}

// ImageAnalysis is the scored result for a single listing photo.
type ImageAnalysis struct {
	Labels            []string `json:"labels"`
	RoomType          string   `json:"roomType,omitempty"`
	NaturalLightScore int      `json:"naturalLightScore"`
	ModernScore       int      `json:"modernScore"`
}

// RGB is a dominant color reported by the vision collaborator, channels in [0,255].
type RGB struct {
	Red   float64
	Green float64
	Blue  float64
}

type windowQuality int

const (
	windowNone windowQuality = iota
	windowStandard
	windowSmall
	windowLarge
)

var (
	largeWindowIndicators    = []string{"large window", "floor to ceiling", "panoramic", "bay window"}
	standardWindowIndicators = []string{"window", "daylight"}
	smallWindowIndicators    = []string{"small window"}
)

var windowPoints = map[windowQuality]float64{
	windowLarge:    4,
	windowStandard: 2.5,
	windowSmall:    1,
}

type feature struct {
	name   string
	points float64
}

// modernFeatures is grouped as appliances, flooring, fixtures.
var modernFeatures = []feature{
	{"stainless steel appliance", 2},
	{"smart appliance", 2},
	{"new appliance", 1.5},
	{"modern appliance", 1.5},
	{"updated kitchen", 1},

	{"hardwood floor", 1.5},
	{"modern flooring", 1},
	{"new flooring", 1},

	{"recessed lighting", 1},
	{"led lighting", 1},
	{"modern light fixture", 0.8},
	{"modern hardware", 0.8},
	{"modern door", 0.7},
}

var modernObjectMarkers = []string{"modern", "new", "stainless"}

const modernObjectPoints = 0.5

// Score derives room type and the natural-light and modern scores from raw vision output.
// Labels are lower-cased; the returned analysis keeps them in input order.
func Score(labels []string, colors []RGB, objects []string) ImageAnalysis {
	lower := make([]string, len(labels))
	for i, l := range labels {
		lower[i] = strings.ToLower(l)
	}

	return ImageAnalysis{
		Labels:            lower,
		RoomType:          roomType(lower),
		NaturalLightScore: NaturalLightScore(lower, colors),
		ModernScore:       ModernScore(lower, objects),
	}
}

func roomType(labels []string) string {
	for _, rt := range RoomTypes {
		for _, l := range labels {
			if strings.Contains(l, rt) {
				return rt
			}
		}
	}
	return ""
}

// NaturalLightScore sums window points per matching label and adds twice the mean brightness.
func NaturalLightScore(labels []string, colors []RGB) int {
	var raw float64
	for _, l := range labels {
		raw += windowPoints[classifyWindow(l)]
	}
	raw += 2 * Brightness(colors)
	return clamp(raw)
}

// classifyWindow picks a single category per label; large wins over small, small over standard.
func classifyWindow(label string) windowQuality {
	switch {
	case containsAny(label, largeWindowIndicators):
		return windowLarge
	case containsAny(label, smallWindowIndicators):
		return windowSmall
	case containsAny(label, standardWindowIndicators):
		return windowStandard
	default:
		return windowNone
	}
}

// Brightness is the mean relative luminance of the colors, in [0,1]. No colors yields 0.
func Brightness(colors []RGB) float64 {
	if len(colors) == 0 {
		return 0
	}
	var sum float64
	for _, c := range colors {
		sum += (0.299*c.Red + 0.587*c.Green + 0.114*c.Blue) / 255
	}
	return sum / float64(len(colors))
}

// ModernScore sums feature points present in any label plus a bonus per modern-looking object.
func ModernScore(labels, objects []string) int {
	var raw float64
	for _, f := range modernFeatures {
		for _, l := range labels {
			if strings.Contains(l, f.name) {
				raw += f.points
				break
			}
		}
	}
	for _, o := range objects {
		if containsAny(strings.ToLower(o), modernObjectMarkers) {
			raw += modernObjectPoints
		}
	}
	return clamp(raw)
}

// clamp rounds half up and bounds the result to [0, MaxScore].
func clamp(raw float64) int {
	r := int(math.Floor(raw + 0.5))
	if r < 0 {
		return 0
	}
	if r > MaxScore {
		return MaxScore
	}
	return r
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

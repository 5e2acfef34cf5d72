package listing

import (
	"math"
	"sort"

	"github.com/kailas-cloud/aptsearch/internal/domain/analysis"
)

// DisplayScores are the per-listing scores shown next to a result. They are derived
// on every render and never stored.
type DisplayScores struct {
	NaturalLight int `json:"naturalLight"`
	Modern       int `json:"modern"`
}

const topLightPhotos = 4

var lightWeights = [topLightPhotos]float64{1.5, 1.2, 1, 1}

// Scores aggregates per-image analysis into listing-level display scores.
func Scores(images map[string]analysis.ImageAnalysis) DisplayScores {
	if len(images) == 0 {
		return DisplayScores{}
	}
	return DisplayScores{
		NaturalLight: naturalLight(images),
		Modern:       modern(images),
	}
}

// naturalLight weights the four brightest photos, best first.
func naturalLight(images map[string]analysis.ImageAnalysis) int {
	scores := make([]int, 0, len(images))
	for _, a := range images {
		scores = append(scores, a.NaturalLightScore)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(scores)))
	if len(scores) > topLightPhotos {
		scores = scores[:topLightPhotos]
	}

	var sum float64
	for i, s := range scores {
		sum += float64(s) * lightWeights[i]
	}
	return capped(sum / (float64(len(scores)) * 1.2) * 1.3)
}

// modern prefers kitchen photos (best score boosted by half); otherwise 80% of the best photo.
func modern(images map[string]analysis.ImageAnalysis) int {
	bestKitchen, bestAny := -1, 0
	for _, a := range images {
		if a.RoomType == "kitchen" && a.ModernScore > bestKitchen {
			bestKitchen = a.ModernScore
		}
		if a.ModernScore > bestAny {
			bestAny = a.ModernScore
		}
	}
	if bestKitchen >= 0 {
		return capped(float64(bestKitchen) * 1.5)
	}
	return capped(float64(bestAny) * 0.8)
}

func capped(v float64) int {
	r := int(math.Floor(v + 0.5))
	if r > analysis.MaxScore {
		return analysis.MaxScore
	}
	if r < 0 {
		return 0
	}
	return r
}

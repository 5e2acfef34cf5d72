package listing

import (
	"testing"

	"github.com/kailas-cloud/aptsearch/internal/domain/analysis"
)

func TestSummaryText(t *testing.T) {
	d := DetailedListing{
		Bedrooms:     2,
		Bathrooms:    1.5,
		Sqft:         850,
		PropertyType: "condo",
		Neighborhood: "East Village",
		Borough:      "Manhattan",
		NoFee:        true,
		Description:  "Sunny corner unit",
		Amenities:    []string{"Dishwasher", "Elevator"},
	}
	want := "2 bedroom 1.5 bathroom 850 square feet condo East Village Manhattan no fee Sunny corner unit Dishwasher Elevator"
	if got := d.SummaryText(); got != want {
		t.Errorf("got  %q\nwant %q", got, want)
	}
}

func TestSummaryText_SkipsEmptyParts(t *testing.T) {
	d := DetailedListing{Bedrooms: 0, Bathrooms: 1, Borough: "Brooklyn"}
	want := "0 bedroom 1 bathroom Brooklyn fee"
	if got := d.SummaryText(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestNeedsImageAnalysis(t *testing.T) {
	tests := []struct {
		name string
		d    DetailedListing
		want bool
	}{
		{"no images", DetailedListing{}, false},
		{"images without analysis", DetailedListing{Images: []string{"a"}}, true},
		{"partial analysis", DetailedListing{
			Images:        []string{"a", "b"},
			ImageAnalysis: map[string]analysis.ImageAnalysis{"a": {}},
		}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.d.NeedsImageAnalysis(); got != tc.want {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestClone_IsDeep(t *testing.T) {
	d := DetailedListing{
		Amenities:     []string{"Gym"},
		ImageAnalysis: map[string]analysis.ImageAnalysis{"a": {Labels: []string{"window"}}},
	}
	c := d.Clone()
	c.Amenities[0] = "Pool"
	c.ImageAnalysis["a"].Labels[0] = "door"
	c.ImageAnalysis["b"] = analysis.ImageAnalysis{}

	if d.Amenities[0] != "Gym" || d.ImageAnalysis["a"].Labels[0] != "window" || len(d.ImageAnalysis) != 1 {
		t.Fatalf("original mutated: %+v", d)
	}
}

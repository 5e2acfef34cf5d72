package preferences

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/kailas-cloud/aptsearch/internal/domain/search/filter"
)

// Appliance preferences.
const (
	ApplianceNew = "new"
	ApplianceAny = "any"
)

// Preferences is the structured reading of a free-text apartment request.
type Preferences struct {
	NeedsMoreInfo    bool     `json:"needsMoreInfo"`
	FollowUpQuestion string   `json:"followUpQuestion,omitempty"`
	Areas            []string `json:"areas"`
	MinBeds          *int     `json:"minBeds,omitempty"`
	MaxBeds          *int     `json:"maxBeds,omitempty"`
	MinBaths         *float64 `json:"minBaths,omitempty"`
	MinPrice         *int     `json:"minPrice,omitempty"`
	MaxPrice         *int     `json:"maxPrice,omitempty"`
	NoFee            *bool    `json:"noFee,omitempty"`
	Additional       Extras   `json:"additionalPreferences"`
}

// Extras are soft preferences the upstream search cannot express.
type Extras struct {
	MustHave               []string `json:"mustHave"`
	ModernPreference       *bool    `json:"modernPreference,omitempty"`
	NaturalLightPreference *bool    `json:"naturalLightPreference,omitempty"`
	AppliancePreference    string   `json:"appliancePreference,omitempty"`
}

// Filters converts the preferences into search filters. Must-have items become
// required amenities.
func (p Preferences) Filters() filter.SearchFilters {
	f := filter.SearchFilters{
		MinBedrooms:   p.MinBeds,
		MaxBedrooms:   p.MaxBeds,
		MinBaths:      p.MinBaths,
		MinPrice:      p.MinPrice,
		MaxPrice:      p.MaxPrice,
		NoFee:         p.NoFee,
		Neighborhoods: append([]string(nil), p.Areas...),
	}
	for _, m := range p.Additional.MustHave {
		m = strings.TrimSpace(m)
		if m == "" {
			continue
		}
		if strings.EqualFold(m, "pet friendly") {
			f.PetFriendly = true
			continue
		}
		f.Amenities = append(f.Amenities, m)
	}
	return f
}

// modelReply is the raw JSON the chat model returns. Scalars arrive as strings,
// numbers or booleans depending on the model.
type modelReply struct {
	NeedsMoreInfo    flexBool   `json:"needsMoreInfo"`
	FollowUpQuestion string     `json:"followUpQuestion"`
	Areas            flexString `json:"areas"`
	MinBeds          flexString `json:"minBeds"`
	MaxBeds          flexString `json:"maxBeds"`
	MinBaths         flexString `json:"minBaths"`
	MinPrice         flexString `json:"minPrice"`
	MaxPrice         flexString `json:"maxPrice"`
	NoFee            flexString `json:"noFee"`
	Additional       struct {
		MustHave               []string `json:"mustHave"`
		ModernPreference       *bool    `json:"modernPreference"`
		NaturalLightPreference *bool    `json:"naturalLightPreference"`
		AppliancePreference    string   `json:"appliancePreference"`
	} `json:"additionalPreferences"`
}

// parseReply decodes the model output. Unparseable numbers are treated as unset.
func parseReply(raw string) (Preferences, error) {
	var r modelReply
	if err := json.Unmarshal([]byte(stripFences(raw)), &r); err != nil {
		return Preferences{}, fmt.Errorf("decode model reply: %w", err)
	}

	p := Preferences{
		NeedsMoreInfo:    bool(r.NeedsMoreInfo),
		FollowUpQuestion: strings.TrimSpace(r.FollowUpQuestion),
		Areas:            filter.ExpandAreas(string(r.Areas)),
		MinBeds:          parseBeds(string(r.MinBeds)),
		MaxBeds:          parseBeds(string(r.MaxBeds)),
		MinBaths:         parseFloat(string(r.MinBaths)),
		MinPrice:         parsePrice(string(r.MinPrice)),
		MaxPrice:         parsePrice(string(r.MaxPrice)),
		NoFee:            parseBool(string(r.NoFee)),
		Additional: Extras{
			MustHave:               r.Additional.MustHave,
			ModernPreference:       r.Additional.ModernPreference,
			NaturalLightPreference: r.Additional.NaturalLightPreference,
		},
	}
	if p.Areas == nil {
		p.Areas = []string{}
	}
	if p.Additional.MustHave == nil {
		p.Additional.MustHave = []string{}
	}
	switch ap := strings.ToLower(strings.TrimSpace(r.Additional.AppliancePreference)); ap {
	case ApplianceNew, ApplianceAny:
		p.Additional.AppliancePreference = ap
	}
	return p, nil
}

// stripFences removes a ```json fence some models wrap around the object.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func parseBeds(s string) *int {
	if strings.EqualFold(strings.TrimSpace(s), "studio") {
		v := 0
		return &v
	}
	return parsePrice(s)
}

func parsePrice(s string) *int {
	s = strings.NewReplacer("$", "", ",", "").Replace(strings.TrimSpace(s))
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return nil
	}
	v := int(f)
	return &v
}

func parseFloat(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return nil
	}
	return &f
}

func parseBool(s string) *bool {
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		return nil
	}
	return &b
}

// flexString accepts a JSON string, number, boolean or null.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err //nolint:wrapcheck // surfaced by parseReply
		}
		*f = flexString(s)
		return nil
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err //nolint:wrapcheck // surfaced by parseReply
	}
	switch t := v.(type) {
	case float64:
		*f = flexString(strconv.FormatFloat(t, 'f', -1, 64))
	case bool:
		*f = flexString(strconv.FormatBool(t))
	default:
		return fmt.Errorf("unexpected value %s", data)
	}
	return nil
}

// flexBool accepts a JSON boolean or a "true"/"false" string.
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	var fs flexString
	if err := fs.UnmarshalJSON(data); err != nil {
		return err
	}
	b, _ := strconv.ParseBool(string(fs))
	*f = flexBool(b)
	return nil
}

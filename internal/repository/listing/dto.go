package listing

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/kailas-cloud/aptsearch/internal/domain/analysis"
	domlisting "github.com/kailas-cloud/aptsearch/internal/domain/listing"
)

const analysisVersion = 1

// analysisEnvelope is the stored shape of the image analysis map.
type analysisEnvelope struct {
	V      int                               `json:"v"`
	Images map[string]analysis.ImageAnalysis `json:"images"`
}

// encodeAnalysis returns nil for an empty map so callers can keep the stored value.
func encodeAnalysis(m map[string]analysis.ImageAnalysis) ([]byte, error) {
	if len(m) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(analysisEnvelope{V: analysisVersion, Images: m})
	if err != nil {
		return nil, fmt.Errorf("marshal image analysis: %w", err)
	}
	return data, nil
}

// decodeAnalysis accepts the versioned envelope and the legacy bare map.
func decodeAnalysis(data []byte) (map[string]analysis.ImageAnalysis, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}

	var envelope struct {
		V      *int            `json:"v"`
		Images json.RawMessage `json:"images"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("unmarshal image analysis: %w", err)
	}

	raw := data
	if envelope.V != nil {
		if *envelope.V != analysisVersion {
			return nil, fmt.Errorf("unsupported image analysis version %d", *envelope.V)
		}
		raw = envelope.Images
	}

	var m map[string]analysis.ImageAnalysis
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("unmarshal image analysis: %w", err)
	}
	if len(m) == 0 {
		return nil, nil
	}
	return m, nil
}

// Hash field names.
const (
	fID            = "id"
	fStatus        = "status"
	fAddress       = "address"
	fPrice         = "price"
	fBorough       = "borough"
	fNeighborhood  = "neighborhood"
	fPropertyType  = "property_type"
	fSqft          = "sqft"
	fBedrooms      = "bedrooms"
	fBathrooms     = "bathrooms"
	fAmenities     = "amenities"
	fDescription   = "description"
	fImages        = "images"
	fImageAnalysis = "image_analysis"
	fNoFee         = "no_fee"
	fAgents        = "agents"
	fAvailableFrom = "available_from"
	fDaysOnMarket  = "days_on_market"
	fCreatedAt     = "created_at"
	fUpdatedAt     = "updated_at"
)

// buildHashFields flattens a listing for HSET. image_analysis is omitted when empty
// so an existing stored analysis survives the write.
func buildHashFields(d *domlisting.DetailedListing) (map[string]string, error) {
	amenities, err := marshalStrings(d.Amenities)
	if err != nil {
		return nil, err
	}
	images, err := marshalStrings(d.Images)
	if err != nil {
		return nil, err
	}
	agents, err := marshalStrings(d.Agents)
	if err != nil {
		return nil, err
	}

	m := map[string]string{
		fID:            d.ID,
		fStatus:        d.Status,
		fAddress:       d.Address,
		fPrice:         strconv.Itoa(d.Price),
		fBorough:       d.Borough,
		fNeighborhood:  d.Neighborhood,
		fPropertyType:  d.PropertyType,
		fSqft:          strconv.Itoa(d.Sqft),
		fBedrooms:      strconv.FormatFloat(d.Bedrooms, 'f', -1, 64),
		fBathrooms:     strconv.FormatFloat(d.Bathrooms, 'f', -1, 64),
		fAmenities:     amenities,
		fDescription:   d.Description,
		fImages:        images,
		fNoFee:         strconv.FormatBool(d.NoFee),
		fAgents:        agents,
		fAvailableFrom: d.AvailableFrom,
		fDaysOnMarket:  strconv.Itoa(d.DaysOnMarket),
		fCreatedAt:     d.CreatedAt.UTC().Format(time.RFC3339Nano),
		fUpdatedAt:     d.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}

	ia, err := encodeAnalysis(d.ImageAnalysis)
	if err != nil {
		return nil, err
	}
	if ia != nil {
		m[fImageAnalysis] = string(ia)
	}
	return m, nil
}

// parseHashFields rebuilds a listing from HGETALL output.
func parseHashFields(m map[string]string) (domlisting.DetailedListing, error) {
	d := domlisting.DetailedListing{
		ID:            m[fID],
		Status:        m[fStatus],
		Address:       m[fAddress],
		Borough:       m[fBorough],
		Neighborhood:  m[fNeighborhood],
		PropertyType:  m[fPropertyType],
		Description:   m[fDescription],
		AvailableFrom: m[fAvailableFrom],
	}

	var err error
	if d.Price, err = atoi(m, fPrice); err != nil {
		return d, err
	}
	if d.Sqft, err = atoi(m, fSqft); err != nil {
		return d, err
	}
	if d.DaysOnMarket, err = atoi(m, fDaysOnMarket); err != nil {
		return d, err
	}
	if d.Bedrooms, err = atof(m, fBedrooms); err != nil {
		return d, err
	}
	if d.Bathrooms, err = atof(m, fBathrooms); err != nil {
		return d, err
	}
	if v := m[fNoFee]; v != "" {
		if d.NoFee, err = strconv.ParseBool(v); err != nil {
			return d, fmt.Errorf("field %s: %w", fNoFee, err)
		}
	}
	if d.Amenities, err = unmarshalStrings(m, fAmenities); err != nil {
		return d, err
	}
	if d.Images, err = unmarshalStrings(m, fImages); err != nil {
		return d, err
	}
	if d.Agents, err = unmarshalStrings(m, fAgents); err != nil {
		return d, err
	}
	if d.ImageAnalysis, err = decodeAnalysis([]byte(m[fImageAnalysis])); err != nil {
		return d, err
	}
	if d.CreatedAt, err = parseTime(m, fCreatedAt); err != nil {
		return d, err
	}
	if d.UpdatedAt, err = parseTime(m, fUpdatedAt); err != nil {
		return d, err
	}
	return d, nil
}

func marshalStrings(s []string) (string, error) {
	if s == nil {
		s = []string{}
	}
	data, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("marshal list: %w", err)
	}
	return string(data), nil
}

func unmarshalStrings(m map[string]string, field string) ([]string, error) {
	v := m[field]
	if v == "" {
		return []string{}, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(v), &out); err != nil {
		return nil, fmt.Errorf("field %s: %w", field, err)
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}

func atoi(m map[string]string, field string) (int, error) {
	v := m[field]
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("field %s: %w", field, err)
	}
	return n, nil
}

func atof(m map[string]string, field string) (float64, error) {
	v := m[field]
	if v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("field %s: %w", field, err)
	}
	return f, nil
}

func parseTime(m map[string]string, field string) (time.Time, error) {
	v := m[field]
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("field %s: %w", field, err)
	}
	return t, nil
}

package preferences

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kailas-cloud/aptsearch/internal/domain"
)

type mockChat struct {
	reply    string
	err      error
	system   string
	messages []domain.ChatMessage
}

func (m *mockChat) CompleteJSON(_ context.Context, system string, messages []domain.ChatMessage) (string, error) {
	m.system = system
	m.messages = messages
	return m.reply, m.err
}

const fullReply = `{
  "needsMoreInfo": false,
  "areas": "Williamsburg, Queens , Atlantis",
  "minBeds": "studio",
  "maxBeds": "2",
  "minBaths": "1.5",
  "minPrice": "2,000",
  "maxPrice": "$4500",
  "noFee": "true",
  "additionalPreferences": {
    "mustHave": ["dishwasher", "Pet Friendly", " "],
    "modernPreference": true,
    "appliancePreference": "NEW"
  }
}`

func TestExtract(t *testing.T) {
	chat := &mockChat{reply: fullReply}
	svc := New(chat)
	history := []domain.ChatMessage{
		{Role: domain.RoleUser, Content: "looking in brooklyn"},
		{Role: domain.RoleAssistant, Content: "what budget?"},
	}

	p, err := svc.Extract(context.Background(), "  under 4500, no fee  ", history)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	if !strings.Contains(chat.system, "Long Island City") {
		t.Error("system prompt must list friendly areas")
	}
	if len(chat.messages) != 3 || chat.messages[2].Content != "under 4500, no fee" || chat.messages[2].Role != domain.RoleUser {
		t.Fatalf("unexpected conversation %+v", chat.messages)
	}

	if p.Areas[0] != "williamsburg" || p.Areas[1] != "astoria" || len(p.Areas) != 9 {
		t.Errorf("areas = %v", p.Areas)
	}
	if p.MinBeds == nil || *p.MinBeds != 0 || p.MaxBeds == nil || *p.MaxBeds != 2 {
		t.Errorf("beds = %v %v", p.MinBeds, p.MaxBeds)
	}
	if p.MinBaths == nil || *p.MinBaths != 1.5 {
		t.Errorf("baths = %v", p.MinBaths)
	}
	if *p.MinPrice != 2000 || *p.MaxPrice != 4500 {
		t.Errorf("price = %d-%d", *p.MinPrice, *p.MaxPrice)
	}
	if p.NoFee == nil || !*p.NoFee {
		t.Errorf("noFee = %v", p.NoFee)
	}
	if p.Additional.AppliancePreference != ApplianceNew {
		t.Errorf("appliance = %q", p.Additional.AppliancePreference)
	}
	if p.Additional.ModernPreference == nil || !*p.Additional.ModernPreference {
		t.Error("modern preference lost")
	}

	f := p.Filters()
	if len(f.Amenities) != 1 || f.Amenities[0] != "dishwasher" || !f.PetFriendly {
		t.Errorf("filters amenities=%v pet=%v", f.Amenities, f.PetFriendly)
	}
	if len(f.Neighborhoods) != len(p.Areas) || *f.MaxPrice != 4500 {
		t.Errorf("filters = %+v", f)
	}
}

func TestExtract_FollowUp(t *testing.T) {
	chat := &mockChat{reply: "```json\n{\"needsMoreInfo\":\"true\",\"followUpQuestion\":\" What is your budget? \"}\n```"}

	p, err := New(chat).Extract(context.Background(), "2br", nil)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !p.NeedsMoreInfo || p.FollowUpQuestion != "What is your budget?" {
		t.Errorf("unexpected preferences %+v", p)
	}
	if p.Areas == nil || p.Additional.MustHave == nil {
		t.Error("lists must be empty, not nil")
	}
	if p.MinBeds != nil || p.MaxPrice != nil {
		t.Error("absent bounds must stay unset")
	}
}

func TestExtract_NumericScalars(t *testing.T) {
	chat := &mockChat{reply: `{"needsMoreInfo":false,"minBeds":1,"maxPrice":3500.0,"noFee":false,"minBaths":null}`}

	p, err := New(chat).Extract(context.Background(), "1br", nil)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if *p.MinBeds != 1 || *p.MaxPrice != 3500 || *p.NoFee || p.MinBaths != nil {
		t.Errorf("unexpected preferences %+v", p)
	}
}

func TestExtract_Malformed(t *testing.T) {
	for _, reply := range []string{"Sure! Here are your preferences.", `{"minBeds":{"x":1}}`} {
		_, err := New(&mockChat{reply: reply}).Extract(context.Background(), "2br", nil)
		if !errors.Is(err, domain.ErrCollaborator) {
			t.Errorf("reply %q: expected ErrCollaborator, got %v", reply, err)
		}
	}
}

func TestExtract_ChatError(t *testing.T) {
	chat := &mockChat{err: &domain.UpstreamStatusError{Service: "openai", StatusCode: 429}}

	_, err := New(chat).Extract(context.Background(), "2br", nil)
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestExtract_EmptyQuery(t *testing.T) {
	chat := &mockChat{}
	_, err := New(chat).Extract(context.Background(), "   ", nil)
	if !errors.Is(err, domain.ErrInvalidFilters) {
		t.Fatalf("expected ErrInvalidFilters, got %v", err)
	}
	if chat.system != "" {
		t.Error("model must not be called for an empty query")
	}
}

func TestParseHelpers(t *testing.T) {
	if v := parsePrice("abc"); v != nil {
		t.Errorf("parsePrice(abc) = %v", *v)
	}
	if v := parsePrice("-5"); v != nil {
		t.Errorf("negative price must be unset")
	}
	if v := parseBeds("Studio"); v == nil || *v != 0 {
		t.Errorf("studio must map to 0")
	}
	if v := parseBool("maybe"); v != nil {
		t.Errorf("parseBool(maybe) = %v", *v)
	}
	if got := stripFences("```\n{}\n```"); got != "{}" {
		t.Errorf("stripFences = %q", got)
	}
}

// Package models defines funnel-level settings shared by the authoring engine and the player.
package models

// Segment is a named score range used to classify a captured lead. Min and
// Max are inclusive bounds.
type Segment struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Min   int    `json:"min"`
	Max   int    `json:"max"`
}

// Contains reports whether score falls inside the segment's inclusive range.
func (s Segment) Contains(score int) bool {
	return score >= s.Min && score <= s.Max
}

// ScoringConfig configures lead qualification. Segments are evaluated in
// authoring order; when ranges overlap the earliest listed wins.
type ScoringConfig struct {
	Enabled     bool      `json:"enabled"`
	MaxScore    int       `json:"max_score"`
	ShowSegment bool      `json:"show_segment"`
	Segments    []Segment `json:"segments"`
}

// WhatsAppConfig configures operator notification on new leads.
type WhatsAppConfig struct {
	Enabled bool   `json:"enabled"`
	Number  string `json:"number"`
	Prefill string `json:"prefill,omitempty"`
}

// RedirectionConfig configures where the end-user is sent after completion.
type RedirectionConfig struct {
	Enabled bool   `json:"enabled"`
	URL     string `json:"url"`
}

// MultiLanguageConfig is passthrough configuration for the delivery surface.
type MultiLanguageConfig struct {
	Enabled   bool     `json:"enabled"`
	Default   string   `json:"default"`
	Languages []string `json:"languages,omitempty"`
}

// BrandingConfig is passthrough configuration for the delivery surface.
type BrandingConfig struct {
	LogoURL   string `json:"logo_url,omitempty"`
	HideBadge bool   `json:"hide_badge"`
}

// FunnelSettings holds funnel-level configuration independent of individual
// steps. Only Scoring and WhatsApp are consumed by this service; the rest is
// stored and round-tripped for external delivery and tracking collaborators.
type FunnelSettings struct {
	Scoring       ScoringConfig       `json:"scoring"`
	Integrations  map[string]string   `json:"integrations,omitempty"`
	Pixels        map[string]string   `json:"pixels,omitempty"`
	MultiLanguage MultiLanguageConfig `json:"multi_language"`
	WhatsApp      WhatsAppConfig      `json:"whatsapp"`
	Redirection   RedirectionConfig   `json:"redirection"`
	Branding      BrandingConfig      `json:"branding"`
	Socials       map[string]string   `json:"socials,omitempty"`
}

// DefaultSettings returns the settings a freshly created funnel starts with:
// scoring on a 0-100 scale split into the three classic prospect segments.
func DefaultSettings() FunnelSettings {
	return FunnelSettings{
		Scoring: ScoringConfig{
			Enabled:     true,
			MaxScore:    100,
			ShowSegment: true,
			Segments: []Segment{
				{ID: "seg_cold", Label: "Froid", Min: 0, Max: 30},
				{ID: "seg_warm", Label: "Tiède", Min: 31, Max: 70},
				{ID: "seg_hot", Label: "Chaud", Min: 71, Max: 100},
			},
		},
		MultiLanguage: MultiLanguageConfig{Default: "fr"},
	}
}

func (s FunnelSettings) clone() FunnelSettings {
	out := s
	if s.Scoring.Segments != nil {
		out.Scoring.Segments = make([]Segment, len(s.Scoring.Segments))
		copy(out.Scoring.Segments, s.Scoring.Segments)
	}
	out.Integrations = cloneStringMap(s.Integrations)
	out.Pixels = cloneStringMap(s.Pixels)
	out.Socials = cloneStringMap(s.Socials)
	if s.MultiLanguage.Languages != nil {
		out.MultiLanguage.Languages = make([]string, len(s.MultiLanguage.Languages))
		copy(out.MultiLanguage.Languages, s.MultiLanguage.Languages)
	}
	return out
}

func cloneStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

package services

import (
	"sort"
	"strings"

	"adcp-sales-agent/pkg/models"
)

// ListFormatsParams filter the creative format listing. Zero values mean
// "no filter"; dimension bounds use pointers so 0 stays expressible.
type ListFormatsParams struct {
	Type         string
	NameSearch   string
	IsResponsive *bool
	FormatIDs    []string
	MinWidth     *int
	MaxWidth     *int
	MinHeight    *int
	MaxHeight    *int
}

// FormatRegistry holds the creative formats served by the discovery
// endpoint. The standard set is baked in; tenant-specific formats can be
// registered at startup.
type FormatRegistry struct {
	formats []models.Format
}

// NewFormatRegistry creates a registry seeded with the standard formats.
func NewFormatRegistry() *FormatRegistry {
	return &FormatRegistry{formats: standardFormats()}
}

// Register adds a custom format.
func (r *FormatRegistry) Register(f models.Format) {
	r.formats = append(r.formats, f)
}

// ListFormats returns the formats matching the filters, ordered by
// (type, name) for stable output.
func (r *FormatRegistry) ListFormats(params ListFormatsParams) []models.Format {
	var idSet map[string]bool
	if len(params.FormatIDs) > 0 {
		idSet = make(map[string]bool, len(params.FormatIDs))
		for _, id := range params.FormatIDs {
			idSet[id] = true
		}
	}

	search := strings.ToLower(params.NameSearch)

	out := make([]models.Format, 0, len(r.formats))
	for _, f := range r.formats {
		if params.Type != "" && string(f.Type) != params.Type {
			continue
		}
		if idSet != nil && !idSet[f.FormatID] {
			continue
		}
		if params.IsResponsive != nil && f.IsResponsive != *params.IsResponsive {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(f.Name), search) {
			continue
		}
		// Formats without dimension info are excluded once any dimension
		// filter is applied.
		if params.MinWidth != nil && (f.Width == 0 || f.Width < *params.MinWidth) {
			continue
		}
		if params.MaxWidth != nil && (f.Width == 0 || f.Width > *params.MaxWidth) {
			continue
		}
		if params.MinHeight != nil && (f.Height == 0 || f.Height < *params.MinHeight) {
			continue
		}
		if params.MaxHeight != nil && (f.Height == 0 || f.Height > *params.MaxHeight) {
			continue
		}
		out = append(out, f)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func standardFormats() []models.Format {
	return []models.Format{
		{FormatID: "display_300x250", Name: "Medium Rectangle", Type: models.FormatTypeDisplay, IsStandard: true, Width: 300, Height: 250},
		{FormatID: "display_728x90", Name: "Leaderboard", Type: models.FormatTypeDisplay, IsStandard: true, Width: 728, Height: 90},
		{FormatID: "display_320x50", Name: "Mobile Banner", Type: models.FormatTypeDisplay, IsStandard: true, Width: 320, Height: 50},
		{FormatID: "display_160x600", Name: "Wide Skyscraper", Type: models.FormatTypeDisplay, IsStandard: true, Width: 160, Height: 600},
		{FormatID: "display_970x250", Name: "Billboard", Type: models.FormatTypeDisplay, IsStandard: true, Width: 970, Height: 250},
		{FormatID: "display_native", Name: "Native", Type: models.FormatTypeDisplay, IsStandard: true, IsResponsive: true},
		{FormatID: "video_standard", Name: "Standard Video", Type: models.FormatTypeVideo, IsStandard: true, DurationMs: 30000},
		{FormatID: "video_vertical", Name: "Vertical Video", Type: models.FormatTypeVideo, IsStandard: true, Width: 1080, Height: 1920, DurationMs: 15000},
		{FormatID: "audio_standard_30s", Name: "Standard Audio 30s", Type: models.FormatTypeAudio, IsStandard: true, DurationMs: 30000},
	}
}

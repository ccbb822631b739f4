// Package broadcast renders and publishes the counties/townships text pair read by the
// display system.
package broadcast

import (
	"fmt"
	"strings"
	"time"

	"WeatherAlertWatch/internal/domain"
	"WeatherAlertWatch/internal/geo"
)

const (
	CountiesTemplate = "time ## %02d時%02d分至%02d時%02d分\r\narea ## %s\r\n\r\n"
	TownshipTemplate = "area ## %s\r\n"
	artifactTrailer  = "\r\n"
)

// Renderer turns a partition into artifact text.
type Renderer struct {
	translator *geo.Translator
	location   *time.Location
}

// NewRenderer renders times in loc; a nil loc means UTC.
func NewRenderer(translator *geo.Translator, loc *time.Location) *Renderer {
	if translator == nil {
		translator = geo.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Renderer{translator: translator, location: loc}
}

// Render builds both artifacts or fails with a template error before anything is written.
func (r *Renderer) Render(records []domain.CapRecord) (domain.ArtifactPair, error) {
	counties, err := r.Counties(records)
	if err != nil {
		return domain.ArtifactPair{}, err
	}
	townships, err := r.Townships(records)
	if err != nil {
		return domain.ArtifactPair{}, err
	}
	return domain.ArtifactPair{Counties: counties, Townships: townships}, nil
}

// Counties renders the time window of the last record and the union of translated counties.
func (r *Renderer) Counties(records []domain.CapRecord) (string, error) {
	if len(records) == 0 {
		return "", &domain.Error{Kind: domain.KindTemplateRender, Detail: "empty partition"}
	}

	seen := map[string]struct{}{}
	var names []string
	for _, rec := range records {
		if len(rec.Counties) == 0 {
			return "", &domain.Error{Kind: domain.KindTemplateRender, Field: "counties", Path: rec.SourcePath}
		}
		for _, county := range rec.Counties {
			name := r.translator.TranslateCounty(county)
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}

	last := records[len(records)-1]
	onset := last.Onset.In(r.location)
	expires := last.Expires.In(r.location)

	return fmt.Sprintf(CountiesTemplate,
		onset.Hour(), onset.Minute(),
		expires.Hour(), expires.Minute(),
		strings.Join(names, " ")), nil
}

// Townships renders one line per unique translated township followed by a blank line.
func (r *Renderer) Townships(records []domain.CapRecord) (string, error) {
	if len(records) == 0 {
		return "", &domain.Error{Kind: domain.KindTemplateRender, Detail: "empty partition"}
	}

	var b strings.Builder
	seen := map[string]struct{}{}
	for _, rec := range records {
		if len(rec.Townships) == 0 {
			return "", &domain.Error{Kind: domain.KindTemplateRender, Field: "townships", Path: rec.SourcePath}
		}
		for _, township := range rec.Townships {
			if township == "" {
				continue
			}
			name := r.translator.TranslateArea(township)
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			fmt.Fprintf(&b, TownshipTemplate, name)
		}
	}
	b.WriteString(artifactTrailer)
	return b.String(), nil
}

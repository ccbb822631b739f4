package alerttype

import (
	"context"
	"fmt"
	"strings"
	"time"

	"WeatherAlertWatch/internal/broadcast"
	"WeatherAlertWatch/internal/domain"
)

const (
	thunderstormLabel    = "雷雨速報"
	thunderstormPushCode = 2
	pushTimeLayout       = "2006-01-02 15:04"
)

// Thunderstorm is the only enabled alert family.
type Thunderstorm struct {
	classifier CAPClassifier
	generator  *broadcast.Generator
	location   *time.Location
}

var _ Handler = (*Thunderstorm)(nil)

// ThunderstormOptions configures the formal-mode markers and output wiring.
type ThunderstormOptions struct {
	FormalStatus  string
	FormalMsgType string
	Location      *time.Location
	Generator     *broadcast.Generator
}

// NewThunderstorm builds the thunderstorm handler.
func NewThunderstorm(opts ThunderstormOptions) *Thunderstorm {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Thunderstorm{
		classifier: CAPClassifier{
			Event:         domain.EventThunderstorm,
			FormalStatus:  opts.FormalStatus,
			FormalMsgType: opts.FormalMsgType,
			Location:      loc,
		},
		generator: opts.Generator,
		location:  loc,
	}
}

// Type identifies the handler inside the registry.
func (t *Thunderstorm) Type() domain.EventType {
	return domain.EventThunderstorm
}

// Label is the display name used in emails and push messages.
func (t *Thunderstorm) Label() string {
	return thunderstormLabel
}

// Classify extracts a record from a thunderstorm CAP document.
func (t *Thunderstorm) Classify(doc *domain.Document, path string) (domain.CapRecord, error) {
	return t.classifier.Classify(doc, path)
}

// Generate renders and publishes the partition's artifacts.
func (t *Thunderstorm) Generate(ctx context.Context, p domain.Partition) (domain.ArtifactPair, error) {
	if err := ctx.Err(); err != nil {
		return domain.ArtifactPair{}, err
	}
	if t.generator == nil {
		return domain.ArtifactPair{}, fmt.Errorf("thunderstorm generator is not configured")
	}
	return t.generator.Generate(p)
}

// PushMessage formats the time window of the last record and the raw areas of all records.
func (t *Thunderstorm) PushMessage(p domain.Partition) (int, string) {
	if len(p.Records) == 0 {
		return thunderstormPushCode, ""
	}

	var counties, townships []string
	seenCounty := map[string]struct{}{}
	seenTownship := map[string]struct{}{}
	for _, rec := range p.Records {
		for _, c := range rec.Counties {
			if _, ok := seenCounty[c]; !ok {
				seenCounty[c] = struct{}{}
				counties = append(counties, c)
			}
		}
		for _, tw := range rec.Townships {
			if _, ok := seenTownship[tw]; !ok {
				seenTownship[tw] = struct{}{}
				townships = append(townships, tw)
			}
		}
	}

	last := p.Last()
	msg := fmt.Sprintf("【%s】\r\n\r\n%s\r\n至\r\n%s\r\n\r\n%s\r\n\r\n%s",
		thunderstormLabel,
		last.Onset.In(t.location).Format(pushTimeLayout),
		last.Expires.In(t.location).Format(pushTimeLayout),
		strings.Join(counties, " "),
		strings.Join(townships, " "),
	)
	return thunderstormPushCode, msg
}

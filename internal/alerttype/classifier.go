package alerttype

import (
	"strings"
	"time"

	"WeatherAlertWatch/internal/domain"
	"WeatherAlertWatch/internal/infrastructure/parser"
)

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// CAPClassifier extracts a CapRecord from a CAP document for one event type.
type CAPClassifier struct {
	Event         domain.EventType
	FormalStatus  string
	FormalMsgType string
	Location      *time.Location
}

// Classify runs the extraction steps in order: event code, formal/test flag, identifier,
// then the required time and area fields.
func (c CAPClassifier) Classify(doc *domain.Document, path string) (domain.CapRecord, error) {
	rec := domain.CapRecord{EventType: c.Event, TestMode: true, SourcePath: path}

	code := parser.EventCode(doc)
	if code == "" || domain.EventType(code) != c.Event {
		return domain.CapRecord{}, &domain.Error{Kind: domain.KindUnsupportedEventType, Path: path, Detail: code}
	}

	status := doc.Lookup("status").Value()
	msgType := doc.Lookup("msgType").Value()
	rec.TestMode = status == "" || msgType == "" || status != c.FormalStatus || msgType != c.FormalMsgType

	rec.Identifier = doc.Lookup("identifier").Value()
	if rec.Identifier == "" {
		return domain.CapRecord{}, &domain.Error{Kind: domain.KindMissingIdentifier, Path: path}
	}

	info := doc.Lookup("info")
	if info == nil {
		return domain.CapRecord{}, malformed(path, "info")
	}

	var ok bool
	if rec.Onset, ok = c.parseTime(info.Child("onset").Value()); !ok {
		return domain.CapRecord{}, malformed(path, "onset")
	}
	if rec.Expires, ok = c.parseTime(info.Child("expires").Value()); !ok {
		return domain.CapRecord{}, malformed(path, "expires")
	}

	rec.Counties = splitCounties(parameter(info, "counties"))
	if len(rec.Counties) == 0 {
		return domain.CapRecord{}, malformed(path, "counties")
	}
	rec.Townships = strings.Fields(parameter(info, "townships"))
	if len(rec.Townships) == 0 {
		return domain.CapRecord{}, malformed(path, "townships")
	}

	return rec, nil
}

func (c CAPClassifier) parseTime(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parameter returns the value of the info/parameter whose valueName equals name.
func parameter(info *domain.Node, name string) string {
	for _, p := range info.ChildrenNamed("parameter") {
		if p.Child("valueName").Value() == name {
			return p.Child("value").Value()
		}
	}
	return ""
}

func splitCounties(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func malformed(path, field string) error {
	return &domain.Error{Kind: domain.KindMalformedContent, Field: field, Path: path}
}

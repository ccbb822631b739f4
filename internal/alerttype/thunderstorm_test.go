package alerttype

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"WeatherAlertWatch/internal/broadcast"
	"WeatherAlertWatch/internal/domain"
	"WeatherAlertWatch/internal/infrastructure/parser"
)

type capFields struct {
	identifier string
	status     string
	msgType    string
	eventCode  string
	onset      string
	expires    string
	counties   string
	townships  string
}

func defaultFields() capFields {
	return capFields{
		identifier: "X1",
		status:     "Actual",
		msgType:    "Alert",
		eventCode:  "Thunderstorm",
		onset:      "2024-01-01T10:05:00",
		expires:    "2024-01-01T11:00:00",
		counties:   "臺北市",
		townships:  "臺北市大安區",
	}
}

func element(name, value string) string {
	if value == "" {
		return ""
	}
	return "<cap:" + name + ">" + value + "</cap:" + name + ">"
}

func param(name, value string) string {
	if value == "" {
		return ""
	}
	return "<cap:parameter><cap:valueName>" + name + "</cap:valueName><cap:value>" + value + "</cap:value></cap:parameter>"
}

func buildCAP(f capFields) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><cap:alert xmlns:cap="urn:oasis:names:tc:emergency:cap:1.2">`)
	b.WriteString(element("identifier", f.identifier))
	b.WriteString(element("status", f.status))
	b.WriteString(element("msgType", f.msgType))
	b.WriteString("<cap:info>")
	if f.eventCode != "" {
		b.WriteString("<cap:eventCode><cap:valueName>profile:CAP-TWP:Event:1.0</cap:valueName>")
		b.WriteString(element("value", f.eventCode))
		b.WriteString("</cap:eventCode>")
	}
	b.WriteString(element("onset", f.onset))
	b.WriteString(element("expires", f.expires))
	b.WriteString(param("CHANNEL", "13,13911"))
	b.WriteString(param("counties", f.counties))
	b.WriteString(param("townships", f.townships))
	b.WriteString("</cap:info></cap:alert>")
	return b.String()
}

func mustParse(t *testing.T, f capFields) *domain.Document {
	t.Helper()
	doc, err := parser.Parse(strings.NewReader(buildCAP(f)))
	require.NoError(t, err)
	return doc
}

func newHandler(gen *broadcast.Generator) *Thunderstorm {
	return NewThunderstorm(ThunderstormOptions{
		FormalStatus:  "Actual",
		FormalMsgType: "Alert",
		Location:      time.UTC,
		Generator:     gen,
	})
}

func TestClassifyFormal(t *testing.T) {
	t.Parallel()

	rec, err := newHandler(nil).Classify(mustParse(t, defaultFields()), "/in/a.cap")
	require.NoError(t, err)

	assert.Equal(t, "X1", rec.Identifier)
	assert.Equal(t, domain.EventThunderstorm, rec.EventType)
	assert.False(t, rec.TestMode)
	assert.Equal(t, time.Date(2024, 1, 1, 10, 5, 0, 0, time.UTC), rec.Onset)
	assert.Equal(t, time.Date(2024, 1, 1, 11, 0, 0, 0, time.UTC), rec.Expires)
	assert.Equal(t, []string{"臺北市"}, rec.Counties)
	assert.Equal(t, []string{"臺北市大安區"}, rec.Townships)
	assert.Equal(t, "/in/a.cap", rec.SourcePath)
}

func TestClassifyTestMode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*capFields)
		wantTst bool
	}{
		{name: "exercise status", mutate: func(f *capFields) { f.status = "Exercise" }, wantTst: true},
		{name: "update msgType", mutate: func(f *capFields) { f.msgType = "Update" }, wantTst: true},
		{name: "missing status", mutate: func(f *capFields) { f.status = "" }, wantTst: true},
		{name: "missing msgType", mutate: func(f *capFields) { f.msgType = "" }, wantTst: true},
		{name: "formal", mutate: func(f *capFields) {}, wantTst: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := defaultFields()
			tt.mutate(&f)
			rec, err := newHandler(nil).Classify(mustParse(t, f), "/in/a.cap")
			require.NoError(t, err)
			assert.Equal(t, tt.wantTst, rec.TestMode)
		})
	}
}

func TestClassifyFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		mutate    func(*capFields)
		wantKind  domain.ErrorKind
		wantField string
	}{
		{name: "no event code", mutate: func(f *capFields) { f.eventCode = "" }, wantKind: domain.KindUnsupportedEventType},
		{name: "other event", mutate: func(f *capFields) { f.eventCode = "Earthquake" }, wantKind: domain.KindUnsupportedEventType},
		{name: "no identifier", mutate: func(f *capFields) { f.identifier = "" }, wantKind: domain.KindMissingIdentifier},
		{name: "no onset", mutate: func(f *capFields) { f.onset = "" }, wantKind: domain.KindMalformedContent, wantField: "onset"},
		{name: "bad expires", mutate: func(f *capFields) { f.expires = "tomorrow" }, wantKind: domain.KindMalformedContent, wantField: "expires"},
		{name: "no counties", mutate: func(f *capFields) { f.counties = "" }, wantKind: domain.KindMalformedContent, wantField: "counties"},
		{name: "no townships", mutate: func(f *capFields) { f.townships = "" }, wantKind: domain.KindMalformedContent, wantField: "townships"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := defaultFields()
			tt.mutate(&f)
			_, err := newHandler(nil).Classify(mustParse(t, f), "/in/a.cap")
			require.Error(t, err)

			var de *domain.Error
			require.True(t, errors.As(err, &de))
			assert.Equal(t, tt.wantKind, de.Kind)
			assert.Equal(t, tt.wantField, de.Field)
			assert.Equal(t, "/in/a.cap", de.Path)
		})
	}
}

func TestClassifySplitsAreas(t *testing.T) {
	t.Parallel()

	f := defaultFields()
	f.counties = "臺北市, 新北市,,桃園市"
	f.townships = "臺北市大安區  新北市板橋區 桃園市中壢區"
	f.onset = "2024-01-01T10:05:00+08:00"

	rec, err := newHandler(nil).Classify(mustParse(t, f), "/in/a.cap")
	require.NoError(t, err)
	assert.Equal(t, []string{"臺北市", "新北市", "桃園市"}, rec.Counties)
	assert.Equal(t, []string{"臺北市大安區", "新北市板橋區", "桃園市中壢區"}, rec.Townships)
	assert.Equal(t, 2, rec.Onset.UTC().Hour())
}

func TestPushMessage(t *testing.T) {
	t.Parallel()

	at := func(h, m int) time.Time { return time.Date(2024, 1, 1, h, m, 0, 0, time.UTC) }
	p := domain.Partition{Records: []domain.CapRecord{
		{Identifier: "A", Onset: at(8, 0), Expires: at(9, 0), Counties: []string{"臺北市"}, Townships: []string{"臺北市大安區"}},
		{Identifier: "B", Onset: at(10, 5), Expires: at(11, 0), Counties: []string{"臺北市", "新北市"}, Townships: []string{"新北市板橋區"}},
	}}

	code, msg := newHandler(nil).PushMessage(p)
	assert.Equal(t, 2, code)
	assert.Equal(t, "【雷雨速報】\r\n\r\n2024-01-01 10:05\r\n至\r\n2024-01-01 11:00\r\n\r\n臺北市 新北市\r\n\r\n臺北市大安區 新北市板橋區", msg)
}

func TestGenerateWritesArtifacts(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	live := broadcast.Targets{Counties: filepath.Join(dir, "alarm_rain.txt"), Townships: filepath.Join(dir, "alarm_rain_smal.txt")}
	pub, err := broadcast.NewPublisher(nil, "")
	require.NoError(t, err)
	gen := broadcast.NewGenerator(broadcast.NewRenderer(nil, time.UTC), pub, live, live)

	h := newHandler(gen)
	rec, err := h.Classify(mustParse(t, defaultFields()), "/in/a.cap")
	require.NoError(t, err)

	pair, err := h.Generate(context.Background(), domain.Partition{Records: []domain.CapRecord{rec}})
	require.NoError(t, err)
	assert.Contains(t, pair.Counties, "time ## 10時05分至11時00分")

	raw, err := os.ReadFile(live.Townships)
	require.NoError(t, err)
	assert.Equal(t, "area ## 臺北大安\r\n\r\n", string(raw))
}

func TestRegistryResolve(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.Register(newHandler(nil))

	h, err := reg.Resolve(domain.EventThunderstorm)
	require.NoError(t, err)
	assert.Equal(t, "雷雨速報", h.Label())
	assert.Equal(t, []domain.EventType{domain.EventThunderstorm}, reg.Types())

	_, err = reg.Resolve("earthquake")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnsupportedEventType))
}

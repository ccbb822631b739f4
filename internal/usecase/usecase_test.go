package usecase

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"WeatherAlertWatch/internal/alerttype"
	"WeatherAlertWatch/internal/broadcast"
	"WeatherAlertWatch/internal/domain"
	"WeatherAlertWatch/internal/geo"
	"WeatherAlertWatch/internal/infrastructure/fileio"
	"WeatherAlertWatch/internal/infrastructure/parser"
	"WeatherAlertWatch/internal/infrastructure/storage"
	"WeatherAlertWatch/internal/ports/portstest"
)

type alertFile struct {
	id        string
	status    string
	eventCode string
	onset     string
	expires   string
	counties  string
	townships string
}

func formalAlert(id string) alertFile {
	return alertFile{
		id:        id,
		status:    "Actual",
		eventCode: "Thunderstorm",
		onset:     "2024-01-01T10:05:00+08:00",
		expires:   "2024-01-01T11:00:00+08:00",
		counties:  "臺北市",
		townships: "臺北市大安區",
	}
}

func (a alertFile) xml() string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><alert xmlns="urn:oasis:names:tc:emergency:cap:1.2">`)
	if a.id != "" {
		fmt.Fprintf(&b, "<identifier>%s</identifier>", a.id)
	}
	fmt.Fprintf(&b, "<status>%s</status><msgType>Alert</msgType><info>", a.status)
	fmt.Fprintf(&b, "<eventCode><valueName>profile:CAP-TWP:Event:1.0</valueName><value>%s</value></eventCode>", a.eventCode)
	fmt.Fprintf(&b, "<onset>%s</onset><expires>%s</expires>", a.onset, a.expires)
	fmt.Fprintf(&b, "<parameter><valueName>counties</valueName><value>%s</value></parameter>", a.counties)
	fmt.Fprintf(&b, "<parameter><valueName>townships</valueName><value>%s</value></parameter>", a.townships)
	b.WriteString("</info></alert>")
	return b.String()
}

// fixture is a pipeline wired to real file-backed adapters in a temp dir.
type fixture struct {
	dir        string
	taipei     *time.Location
	locks      *fileio.Locks
	registry   *alerttype.Registry
	history    *storage.JSONHistoryStore
	dispatcher *portstest.MockDispatcher
	pusher     *portstest.MockPusher
	live       broadcast.Targets
	test       broadcast.Targets
	pipeline   *Pipeline
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dir := t.TempDir()
	taipei := time.FixedZone("CST", 8*3600)
	locks := fileio.NewLocks()

	pub, err := broadcast.NewPublisher(locks, "utf-8")
	require.NoError(t, err)

	f := &fixture{
		dir:        dir,
		taipei:     taipei,
		locks:      locks,
		registry:   alerttype.NewRegistry(),
		history:    storage.NewJSONHistoryStore(filepath.Join(dir, "history"), 3, locks),
		dispatcher: &portstest.MockDispatcher{},
		pusher:     &portstest.MockPusher{},
		live: broadcast.Targets{
			Counties:  filepath.Join(dir, "out", "thunderstorm.txt"),
			Townships: filepath.Join(dir, "out", "thunderstorm_townships.txt"),
		},
		test: broadcast.Targets{
			Counties:  filepath.Join(dir, "out", "thunderstorm_test.txt"),
			Townships: filepath.Join(dir, "out", "thunderstorm_test_townships.txt"),
		},
	}
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "out"), 0o755))

	gen := broadcast.NewGenerator(broadcast.NewRenderer(geo.Default(), taipei), pub, f.live, f.test)
	f.registry.Register(alerttype.NewThunderstorm(alerttype.ThunderstormOptions{
		FormalStatus:  "Actual",
		FormalMsgType: "Alert",
		Location:      taipei,
		Generator:     gen,
	}))

	f.pipeline = NewPipeline(PipelineDeps{
		Registry:       f.registry,
		History:        f.history,
		Dispatcher:     f.dispatcher,
		Pusher:         f.pusher,
		EmailOnSuccess: false,
	})
	return f
}

// write stores the alert under the watch dir and returns its path.
func (f *fixture) write(t *testing.T, name string, a alertFile) string {
	t.Helper()
	path := filepath.Join(f.dir, "in", name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(a.xml()), 0o644))
	return path
}

// observe parses a written alert into an observation the way intake does.
func (f *fixture) observe(t *testing.T, path string) domain.Observation {
	t.Helper()
	doc, err := parser.ParseFile(path)
	require.NoError(t, err)
	return domain.Observation{
		Path:       path,
		EventType:  domain.EventType(parser.EventCode(doc)),
		Document:   doc,
		ObservedAt: time.Now(),
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(raw)
}

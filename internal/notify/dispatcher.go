package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"WeatherAlertWatch/internal/domain"
	"WeatherAlertWatch/internal/infrastructure/fileio"
	"WeatherAlertWatch/internal/ports"
)

const (
	defaultSubject = "天氣速報通知"
	mailBodyFormat = "主機： %s\r\n類型： %s\r\n識別： %s\r\n訊息： %s\r\n時間： %s"
)

// Options configures a Dispatcher.
type Options struct {
	EventLog      ports.EventLog
	Mailer        ports.Mailer
	Label         func(domain.EventType) string
	Subject       string
	SuccessSuffix string
	FailureSuffix string
	Location      *time.Location
	Recent        *Recent
	Logger        *slog.Logger
	Now           func() time.Time
}

// Dispatcher writes the event log entry for an outcome, then renames source files and sends
// email independently of each other.
type Dispatcher struct {
	log     ports.EventLog
	mailer  ports.Mailer
	label   func(domain.EventType) string
	subject string
	success string
	failure string
	loc     *time.Location
	recent  *Recent
	logger  *slog.Logger
	now     func() time.Time
	host    string
}

var _ ports.Dispatcher = (*Dispatcher)(nil)

// New builds a dispatcher; missing optional fields get defaults.
func New(opts Options) *Dispatcher {
	d := &Dispatcher{
		log:     opts.EventLog,
		mailer:  opts.Mailer,
		label:   opts.Label,
		subject: opts.Subject,
		success: opts.SuccessSuffix,
		failure: opts.FailureSuffix,
		loc:     opts.Location,
		recent:  opts.Recent,
		logger:  opts.Logger,
		now:     opts.Now,
		host:    hostIPv4(),
	}
	if d.label == nil {
		d.label = func(domain.EventType) string { return "" }
	}
	if d.subject == "" {
		d.subject = defaultSubject
	}
	if d.success == "" {
		d.success = "success"
	}
	if d.failure == "" {
		d.failure = "failure"
	}
	if d.loc == nil {
		d.loc = time.UTC
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	if d.now == nil {
		d.now = time.Now
	}
	return d
}

// Dispatch handles one outcome. It returns once every side effect has finished.
func (d *Dispatcher) Dispatch(ctx context.Context, o domain.Outcome) {
	if o.At.IsZero() {
		o.At = d.now()
	}

	d.writeLog(o.EventType, o.At, o.Message, o.Identifiers)
	if d.recent != nil {
		d.recent.Add(o)
	}

	var g errgroup.Group
	if len(o.Rename) > 0 {
		g.Go(func() error {
			d.rename(o)
			return nil
		})
	}
	if o.SendEmail && d.mailer != nil {
		g.Go(func() error {
			d.email(ctx, o)
			return nil
		})
	}
	_ = g.Wait()
}

func (d *Dispatcher) rename(o domain.Outcome) {
	suffix := o.RenameAs
	if suffix == "" {
		suffix = d.failure
		if o.Succeeded {
			suffix = d.success
		}
	}
	for _, path := range o.Rename {
		if _, err := fileio.RenameWithSuffix(path, suffix); err != nil {
			d.writeLog(o.EventType, d.now(), fmt.Sprintf("failed to rename source file (error: %v)", err), []string{path})
		}
	}
}

func (d *Dispatcher) email(ctx context.Context, o domain.Outcome) {
	body := fmt.Sprintf(mailBodyFormat,
		d.host,
		d.label(o.EventType),
		strings.Join(o.Identifiers, ",\r\n"),
		o.Message,
		o.At.In(d.loc).Format("2006-01-02 15:04:05"),
	)
	if err := d.mailer.Send(ctx, d.subject, body); err != nil {
		d.writeLog("", d.now(), fmt.Sprintf("failed to send notification email (error: %v)", err), nil)
	}
}

// writeLog is the terminal reporting path; its own failures only reach the process logger.
func (d *Dispatcher) writeLog(event domain.EventType, at time.Time, message string, ids []string) {
	if d.log == nil {
		d.logger.Info(message, "event_type", string(event), "identifiers", ids)
		return
	}
	if err := d.log.Write(event, at, message, ids); err != nil {
		d.logger.Error("event log write failed", "error", err, "message", message)
	}
}

func hostIPv4() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "unknown"
	}
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() {
			continue
		}
		if v4 := ipNet.IP.To4(); v4 != nil {
			return v4.String()
		}
	}
	return "127.0.0.1"
}

package eventlog

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"WeatherAlertWatch/internal/domain"
	"WeatherAlertWatch/internal/infrastructure/fileio"
	"WeatherAlertWatch/internal/ports"
)

const (
	systemFolder = "system_log"
	fileSuffix   = "_log.txt"
)

// FileLog appends "HH:MM:SS - message - identifiers" entries to one file per day and event type.
type FileLog struct {
	root     string
	location *time.Location
	locks    *fileio.Locks
	logger   *slog.Logger
}

var _ ports.EventLog = (*FileLog)(nil)

// NewFileLog writes under root; entries are also mirrored to logger.
func NewFileLog(root string, loc *time.Location, locks *fileio.Locks, logger *slog.Logger) *FileLog {
	if loc == nil {
		loc = time.UTC
	}
	if locks == nil {
		locks = fileio.NewLocks()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FileLog{root: root, location: loc, locks: locks, logger: logger}
}

// Path returns the log file an entry at time at would be written to.
func (l *FileLog) Path(event domain.EventType, at time.Time) string {
	folder := systemFolder
	if event != "" {
		folder = string(event) + "_log"
	}
	return filepath.Join(l.root, folder, at.In(l.location).Format("2006-01-02")+fileSuffix)
}

// Write appends one entry.
func (l *FileLog) Write(event domain.EventType, at time.Time, message string, identifiers []string) error {
	ids := strings.Join(identifiers, ",\r\n")
	entry := fmt.Sprintf("%s - %s - %s\r\n\r\n", at.In(l.location).Format("15:04:05"), message, ids)

	l.logger.Info(message, "event_type", string(event), "identifiers", identifiers)

	path := l.Path(event, at)
	release := l.locks.Lock(path)
	defer release()

	if err := fileio.AppendFile(path, []byte(entry)); err != nil {
		return fmt.Errorf("append event log: %w", err)
	}
	return nil
}

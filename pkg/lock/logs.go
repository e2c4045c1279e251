package lock

import (
	"context"
)

// DefaultLogGroup is the log group read by GetLogEntries.
const DefaultLogGroup = 1

// StopFunc decides after each batch whether to stop reading the log. more
// reports whether the lock has further entries.
type StopFunc func(batch []LogEntry, more bool) bool

// UntilEnd reads the whole log.
func UntilEnd(_ []LogEntry, more bool) bool {
	return !more
}

// HasLogEntries reports whether the lock has log entries to read.
func (l *Lock) HasLogEntries(ctx context.Context) (bool, error) {
	if err := l.ensureAuthorized(ctx); err != nil {
		return false, err
	}
	return request(ctx, l, HasLogEntries(), true)
}

// GetLogEntries reads batches from a log group until stop returns true. A
// nil stop reads until the lock reports no more entries. The entries of
// every batch read are returned in order.
func (l *Lock) GetLogEntries(ctx context.Context, group int64, stop StopFunc) ([]LogEntry, error) {
	if err := l.ensureAuthorized(ctx); err != nil {
		return nil, err
	}
	if stop == nil {
		stop = UntilEnd
	}

	has, err := l.HasLogEntries(ctx)
	if err != nil || !has {
		return nil, err
	}

	if l.log != nil {
		l.log.Debugf("reading log group %d", group)
	}

	var entries []LogEntry
	for {
		page, err := request(ctx, l, GetLogEntry(group), true)
		if err != nil {
			return nil, err
		}
		entries = append(entries, page.Result...)
		if stop(page.Result, page.More) {
			break
		}
	}

	if l.log != nil {
		l.log.Debugf("read %d log entries", len(entries))
	}
	return entries, nil
}

// Package cachebust tracks cache-breaking tokens appended to attachment URLs
// so every view of an attachment converges on its latest bytes after an
// in-place edit.
package cachebust

import (
	"regexp"
	"strconv"
	"sync"
	"time"
)

// DefaultParam is the query parameter carrying the token.
const DefaultParam = "t"

// Entry is the staleness record of one attachment URL.
type Entry struct {
	Outdated  int64
	Suggested int64
}

// Tracker maps attachment URLs, stripped of their cache breaker, to the
// latest known staleness entry. Entries are never deleted; the table lives
// as long as the process. It is safe for concurrent use.
type Tracker struct {
	mu      sync.Mutex
	entries map[string]Entry
	now     func() time.Time
	param   string
	pattern *regexp.Regexp
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock overrides time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// WithParam overrides DefaultParam.
func WithParam(param string) Option {
	return func(t *Tracker) {
		if param != "" {
			t.param = param
		}
	}
}

// NewTracker returns an empty tracker.
func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{
		entries: map[string]Entry{},
		now:     time.Now,
		param:   DefaultParam,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}
	t.pattern = regexp.MustCompile(`^(.*)\?` + regexp.QuoteMeta(t.param) + `=(\d+)$`)
	return t
}

// Param returns the query parameter name.
func (t *Tracker) Param() string {
	return t.param
}

// Split parses src into its base URL and token. ok is false when src does
// not end with a cache breaker, in which case base is src itself.
func (t *Tracker) Split(src string) (base string, token int64, ok bool) {
	match := t.pattern.FindStringSubmatch(src)
	if match == nil {
		return src, 0, false
	}
	token, err := strconv.ParseInt(match[2], 10, 64)
	if err != nil {
		return match[1], 0, true
	}
	return match[1], token, true
}

// Join appends a cache breaker to base.
func (t *Tracker) Join(base string, token int64) string {
	return base + "?" + t.param + "=" + strconv.FormatInt(token, 10)
}

// Record stores the staleness entry for base, replacing any previous one.
func (t *Tracker) Record(base string, outdated, suggested int64) {
	t.mu.Lock()
	t.entries[base] = Entry{Outdated: outdated, Suggested: suggested}
	t.mu.Unlock()
}

// Lookup returns the entry for base.
func (t *Tracker) Lookup(base string) (Entry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.entries[base]
	return entry, ok
}

// Refresh is the on-load check. When src carries a token that is not newer
// than the recorded outdated marker, the suggested src is returned with
// changed set. A src without an entry, or already fresh, is left alone.
func (t *Tracker) Refresh(src string) (string, bool) {
	base, token, ok := t.Split(src)
	if !ok {
		return src, false
	}
	entry, found := t.Lookup(base)
	if !found || token > entry.Outdated {
		return src, false
	}
	return t.Join(base, entry.Suggested), true
}

// Invalidate marks every token issued so far for base as outdated after its
// bytes changed, and returns the fresh token views should converge on. Tokens
// stay monotonic per base even when the clock does not advance.
func (t *Tracker) Invalidate(base string) int64 {
	fresh := t.now().UnixMilli()

	t.mu.Lock()
	if prev, ok := t.entries[base]; ok && fresh <= prev.Suggested {
		fresh = prev.Suggested + 1
	}
	t.entries[base] = Entry{Outdated: fresh - 1, Suggested: fresh}
	t.mu.Unlock()

	return fresh
}

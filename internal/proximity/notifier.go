// Package proximity turns location samples into "you are near a note"
// notifications for the logged-in user.
package proximity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"mind-scribe/internal/services/notes"
	"mind-scribe/internal/session"
)

// Defaults used when no option overrides them.
const (
	DefaultDebounce = 60 * time.Second
	DefaultRadiusM  = 500
	DefaultMinMoveM = 100.0

	NotificationTitle = "Nearby Note"
)

// Sample is one location fix.
type Sample struct {
	Longitude float64
	Latitude  float64
	At        time.Time
}

// Notification is what the sink shows the user. Note carries the full
// document so a tap can reopen it.
type Notification struct {
	Title string      `json:"title"`
	Body  string      `json:"body"`
	Note  *notes.Note `json:"note"`
}

// NoteFinder queries the caller's notes around a point.
type NoteFinder interface {
	FindNearby(ctx context.Context, token string, longitude, latitude float64, radiusM int) ([]*notes.Note, error)
}

// Sessions yields the current login, or session.ErrNoSession.
type Sessions interface {
	Load() (*session.Session, error)
}

// Sink delivers notifications.
type Sink interface {
	Notify(ctx context.Context, n Notification) error
}

// Notifier debounces notification bursts per session identity.
type Notifier struct {
	finder   NoteFinder
	sessions Sessions
	sink     Sink
	log      *slog.Logger

	debounce time.Duration
	radiusM  int
	now      func() time.Time

	mu   sync.Mutex
	last map[string]time.Time
}

// Option customises a Notifier.
type Option func(*Notifier)

// WithDebounce sets the quiet period after a burst.
func WithDebounce(d time.Duration) Option { return func(n *Notifier) { n.debounce = d } }

// WithRadius sets the query radius in metres.
func WithRadius(m int) Option { return func(n *Notifier) { n.radiusM = m } }

// WithClock swaps time.Now.
func WithClock(now func() time.Time) Option { return func(n *Notifier) { n.now = now } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(n *Notifier) { n.log = l } }

// NewNotifier builds a notifier.
func NewNotifier(finder NoteFinder, sessions Sessions, sink Sink, opts ...Option) *Notifier {
	n := &Notifier{
		finder:   finder,
		sessions: sessions,
		sink:     sink,
		log:      slog.Default(),
		debounce: DefaultDebounce,
		radiusM:  DefaultRadiusM,
		now:      time.Now,
		last:     make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Handle processes one sample and returns how many notifications were sent.
// A missing session, an active debounce window and an empty result all
// return (0, nil). Lookup failures are returned without stamping the window.
func (n *Notifier) Handle(ctx context.Context, s Sample) (int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	sess, err := n.sessions.Load()
	if err != nil {
		if errors.Is(err, session.ErrNoSession) {
			return 0, nil
		}
		return 0, fmt.Errorf("load session: %w", err)
	}

	id := sess.Identity()
	if last, ok := n.last[id]; ok && n.now().Sub(last) < n.debounce {
		return 0, nil
	}

	found, err := n.finder.FindNearby(ctx, sess.Token, s.Longitude, s.Latitude, n.radiusM)
	if err != nil {
		return 0, fmt.Errorf("find nearby notes: %w", err)
	}
	if len(found) == 0 {
		return 0, nil
	}

	sent := 0
	var errs []error
	for _, note := range found {
		if err := n.sink.Notify(ctx, NotificationFor(note)); err != nil {
			errs = append(errs, err)
			continue
		}
		sent++
	}
	n.last[id] = n.now()

	return sent, errors.Join(errs...)
}

// Run handles samples until the channel closes or ctx is done. Errors are
// logged and the next sample retries.
func (n *Notifier) Run(ctx context.Context, samples <-chan Sample) {
	for {
		select {
		case <-ctx.Done():
			return
		case s, ok := <-samples:
			if !ok {
				return
			}
			sent, err := n.Handle(ctx, s)
			if err != nil {
				n.log.Error("proximity check failed", "error", err,
					"longitude", s.Longitude, "latitude", s.Latitude)
				continue
			}
			if sent > 0 {
				n.log.Info("nearby notes notified", "count", sent)
			}
		}
	}
}

// Reset forgets the debounce stamp for identity, e.g. after logout.
func (n *Notifier) Reset(identity string) {
	n.mu.Lock()
	delete(n.last, identity)
	n.mu.Unlock()
}

// NotificationFor renders the notification for one note.
func NotificationFor(note *notes.Note) Notification {
	return Notification{
		Title: NotificationTitle,
		Body:  "You are near the location of the note: " + note.Title,
		Note:  note,
	}
}

package settings

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/text/language"
)

var supported = []language.Tag{language.English, language.Russian, language.German}

var matcher = language.NewMatcher(supported)

// Snapshot is a consistent copy of the runtime settings.
type Snapshot struct {
	ReportInterval time.Duration
	Language       language.Tag
}

// DateLayout is the date format used in messages for the snapshot's language.
func (s Snapshot) DateLayout() string {
	base, _ := s.Language.Base()
	switch base.String() {
	case "ru", "de":
		return "02.01.2006"
	default:
		return "2006-01-02"
	}
}

// Settings holds runtime-mutable options and notifies subscribers on change.
// It is created once at startup and passed to whoever needs it.
type Settings struct {
	// notifyMu serialises updates with their fan-out so subscribers see
	// snapshots in the order the changes were made.
	notifyMu sync.Mutex
	mu       sync.RWMutex
	state    Snapshot
	nextID   int
	subs     map[int]func(Snapshot)
}

func New(reportInterval time.Duration, lang string) (*Settings, error) {
	tag, err := matchLanguage(lang)
	if err != nil {
		return nil, err
	}
	if reportInterval <= 0 {
		return nil, fmt.Errorf("report interval must be positive")
	}
	return &Settings{
		state: Snapshot{ReportInterval: reportInterval, Language: tag},
		subs:  make(map[int]func(Snapshot)),
	}, nil
}

func (s *Settings) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Settings) SetReportInterval(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("report interval must be positive")
	}
	s.update(func(st *Snapshot) bool {
		if st.ReportInterval == d {
			return false
		}
		st.ReportInterval = d
		return true
	})
	return nil
}

// SetLanguage parses a BCP 47 tag and picks the closest supported language.
func (s *Settings) SetLanguage(raw string) (language.Tag, error) {
	tag, err := matchLanguage(raw)
	if err != nil {
		return language.Und, err
	}
	s.update(func(st *Snapshot) bool {
		if st.Language == tag {
			return false
		}
		st.Language = tag
		return true
	})
	return tag, nil
}

// Subscribe registers fn to be called after every change. The returned
// function removes the subscription. fn may read Snapshot but must not
// change settings.
func (s *Settings) Subscribe(fn func(Snapshot)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Settings) update(mutate func(*Snapshot) bool) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	if !mutate(&s.state) {
		s.mu.Unlock()
		return
	}
	snap := s.state
	subs := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}

func matchLanguage(raw string) (language.Tag, error) {
	tag, err := language.Parse(raw)
	if err != nil {
		return language.Und, fmt.Errorf("parse language %q: %w", raw, err)
	}
	_, idx, conf := matcher.Match(tag)
	if conf == language.No {
		return language.Und, fmt.Errorf("language %q is not supported", raw)
	}
	return supported[idx], nil
}

package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"bee-finder/pkg/asset"
	"bee-finder/pkg/location"
	"bee-finder/pkg/scene"
	"bee-finder/pkg/weather"
)

// ErrNotFound is returned for unknown session IDs.
var ErrNotFound = errors.New("session not found")

// Result is the outcome of the image step.
type Result struct {
	GenerationID string
	BeeName      string
	Flower       string
	Bucket       scene.Bucket
	Prompt       string
	Message      string
	Fact         string
	Image        *asset.GeneratedAsset
	Video        *asset.GeneratedAsset
}

// Session is one user's walk through the multi-step flow.
type Session struct {
	ID        string
	Flow      State
	Animation State
	Query     location.Query
	Location  location.Resolved
	Weather   weather.Snapshot
	Bees      []scene.BeeCharacter
	Result    *Result
	LastError string
	UpdatedAt time.Time
}

// Fire applies ev to the flow machine. Leaving Results resets the animation.
func (s *Session) Fire(ev Event) error {
	next, err := Flow.Transition(s.Flow, ev)
	if err != nil {
		return err
	}
	s.Flow = next
	if next != Results {
		s.Animation = AnimationIdle
	}
	if next == Idle {
		s.Bees = nil
		s.Result = nil
		s.LastError = ""
		s.Location = location.Resolved{}
		s.Weather = weather.Snapshot{}
		s.Query = location.Query{}
	}
	return nil
}

// FireAnimation applies ev to the animation machine.
func (s *Session) FireAnimation(ev Event) error {
	if s.Flow != Results {
		return fmt.Errorf("%w: animation needs %s, session is %s", ErrInvalidTransition, Results, s.Flow)
	}
	next, err := Animation.Transition(s.Animation, ev)
	if err != nil {
		return err
	}
	s.Animation = next
	return nil
}

// OfferedBee finds name among the bees offered to this session.
func (s *Session) OfferedBee(name string) (scene.BeeCharacter, bool) {
	b, ok := scene.FindBee(name)
	if !ok {
		return scene.BeeCharacter{}, false
	}
	for _, offered := range s.Bees {
		if offered.Name == b.Name {
			return b, true
		}
	}
	return scene.BeeCharacter{}, false
}

func (s *Session) clone() *Session {
	cp := *s
	cp.Bees = append([]scene.BeeCharacter(nil), s.Bees...)
	if s.Result != nil {
		r := *s.Result
		cp.Result = &r
	}
	return &cp
}

// Store keeps sessions in memory.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	now      func() time.Time
}

func NewStore() *Store {
	return &Store{sessions: make(map[string]*Session), now: time.Now}
}

// Create starts an idle session.
func (st *Store) Create() *Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	s := &Session{ID: uuid.NewString(), Flow: Idle, Animation: AnimationIdle, UpdatedAt: st.now()}
	st.sessions[s.ID] = s
	return s.clone()
}

// Get returns a copy of the session.
func (st *Store) Get(id string) (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s.clone(), nil
}

// Update runs fn against the live session under the store lock and returns a copy
// of the result. Changes are discarded when fn fails.
func (st *Store) Update(id string, fn func(s *Session) error) (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	work := s.clone()
	if err := fn(work); err != nil {
		return s.clone(), err
	}
	work.UpdatedAt = st.now()
	st.sessions[id] = work
	return work.clone(), nil
}

// Delete drops the session.
func (st *Store) Delete(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, id)
}

// Prune drops sessions untouched for longer than maxAge and returns how many went.
func (st *Store) Prune(maxAge time.Duration) int {
	st.mu.Lock()
	defer st.mu.Unlock()
	cutoff := st.now().Add(-maxAge)
	n := 0
	for id, s := range st.sessions {
		if s.UpdatedAt.Before(cutoff) {
			delete(st.sessions, id)
			n++
		}
	}
	return n
}

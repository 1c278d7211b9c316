package session

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"bee-finder/pkg/location"
	"bee-finder/pkg/scene"
)

func TestFlowTransitions(t *testing.T) {
	tests := []struct {
		from State
		ev   Event
		want State
		ok   bool
	}{
		{Idle, Submit, LoadingLocation, true},
		{LoadingLocation, LocationReady, SelectBee, true},
		{LoadingLocation, Fail, Error, true},
		{SelectBee, ChooseBee, LoadingImage, true},
		{LoadingImage, ImageReady, Results, true},
		{LoadingImage, Fail, Error, true},
		{Error, Submit, LoadingLocation, true},

		{Idle, ChooseBee, Idle, false},
		{Idle, ImageReady, Idle, false},
		{SelectBee, Fail, SelectBee, false},
		{Results, Submit, Results, false},
		{Results, Fail, Results, false},
		{LoadingLocation, ChooseBee, LoadingLocation, false},
	}
	for _, tt := range tests {
		got, err := Flow.Transition(tt.from, tt.ev)
		if tt.ok {
			require.NoError(t, err, "%s --%s-->", tt.from, tt.ev)
		} else {
			require.ErrorIs(t, err, ErrInvalidTransition, "%s --%s-->", tt.from, tt.ev)
		}
		require.Equal(t, tt.want, got)
	}
}

func TestResetFromAnywhere(t *testing.T) {
	for _, table := range []Table{Flow, Simple, Animation} {
		for from := range table {
			got, err := table.Transition(from, Reset)
			require.NoError(t, err, from)
			require.Equal(t, Idle, got)
		}
	}
}

func TestSimpleFlow(t *testing.T) {
	m := NewMachine(Simple)
	require.Equal(t, Idle, m.State())
	require.NoError(t, m.Fire(Submit))
	require.Equal(t, Loading, m.State())
	require.NoError(t, m.Fire(Succeed))
	require.Equal(t, Success, m.State())
	require.ErrorIs(t, m.Fire(Succeed), ErrInvalidTransition)
	require.Equal(t, Success, m.State())

	require.NoError(t, m.Fire(Submit))
	require.NoError(t, m.Fire(Fail))
	require.Equal(t, Error, m.State())
}

func TestAnimationOnlyInResults(t *testing.T) {
	s := &Session{Flow: SelectBee, Animation: AnimationIdle}
	require.ErrorIs(t, s.FireAnimation(StartAnimation), ErrInvalidTransition)

	s.Flow = Results
	require.NoError(t, s.FireAnimation(StartAnimation))
	require.Equal(t, Animating, s.Animation)
	require.NoError(t, s.FireAnimation(Fail))
	require.Equal(t, AnimationIdle, s.Animation)

	require.NoError(t, s.FireAnimation(StartAnimation))
	require.NoError(t, s.FireAnimation(Succeed))
	require.Equal(t, Done, s.Animation)

	require.NoError(t, s.Fire(Reset))
	require.Equal(t, Idle, s.Flow)
	require.Equal(t, AnimationIdle, s.Animation)
}

func TestSessionResetClearsData(t *testing.T) {
	s := &Session{
		Flow:     Results,
		Query:    location.ZipcodeQuery("10001"),
		Location: location.Resolved{DisplayName: "New York City, NY"},
		Bees:     scene.BeeCharacters[:2],
		Result:   &Result{BeeName: "Honey Bunny"},
	}
	require.NoError(t, s.Fire(Reset))
	require.Empty(t, s.Bees)
	require.Nil(t, s.Result)
	require.Empty(t, s.Location.DisplayName)
}

func TestOfferedBee(t *testing.T) {
	s := &Session{Bees: []scene.BeeCharacter{scene.BeeCharacters[0], scene.BeeCharacters[2]}}

	b, ok := s.OfferedBee(scene.BeeCharacters[2].Name)
	require.True(t, ok)
	require.Equal(t, scene.BeeCharacters[2], b)

	_, ok = s.OfferedBee(scene.BeeCharacters[1].Name)
	require.False(t, ok, "real bee that was not offered")
	_, ok = s.OfferedBee("Hornet")
	require.False(t, ok)
}

func TestStoreUpdate(t *testing.T) {
	st := NewStore()
	s := st.Create()
	require.Equal(t, Idle, s.Flow)

	got, err := st.Update(s.ID, func(s *Session) error { return s.Fire(Submit) })
	require.NoError(t, err)
	require.Equal(t, LoadingLocation, got.Flow)

	boom := errors.New("boom")
	got, err = st.Update(s.ID, func(s *Session) error {
		s.LastError = "should be discarded"
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.Empty(t, got.LastError)

	got.Flow = Results
	fresh, err := st.Get(s.ID)
	require.NoError(t, err)
	require.Equal(t, LoadingLocation, fresh.Flow, "returned sessions are copies")

	_, err = st.Update("missing", func(*Session) error { return nil })
	require.ErrorIs(t, err, ErrNotFound)

	st.Delete(s.ID)
	_, err = st.Get(s.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStorePrune(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	st := NewStore()
	st.now = func() time.Time { return now }

	old := st.Create()
	now = now.Add(2 * time.Hour)
	fresh := st.Create()

	require.Equal(t, 1, st.Prune(time.Hour))
	_, err := st.Get(old.ID)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = st.Get(fresh.ID)
	require.NoError(t, err)
}

func TestStoreConcurrentUpdates(t *testing.T) {
	st := NewStore()
	s := st.Create()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = st.Update(s.ID, func(s *Session) error { return s.Fire(Reset) })
		}()
	}
	wg.Wait()

	got, err := st.Get(s.ID)
	require.NoError(t, err)
	require.Equal(t, Idle, got.Flow)
}

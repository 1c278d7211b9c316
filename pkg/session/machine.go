// Package session holds the presentation state machines and the multi-step session store.
package session

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition is returned for an event the current state does not accept.
var ErrInvalidTransition = errors.New("invalid state transition")

type State string

const (
	Idle            State = "idle"
	LoadingLocation State = "loadingLocation"
	SelectBee       State = "selectBee"
	LoadingImage    State = "loadingImage"
	Results         State = "results"
	Error           State = "error"

	// Single-request flow.
	Loading State = "loading"
	Success State = "success"

	// Animation sub-states. AnimationIdle shares the "idle" value.
	AnimationIdle State = "idle"
	Animating     State = "animating"
	Done          State = "done"
)

type Event string

const (
	Submit        Event = "submit"
	LocationReady Event = "locationReady"
	ChooseBee     Event = "chooseBee"
	ImageReady    Event = "imageReady"
	Succeed       Event = "succeed"
	Fail          Event = "fail"
	Reset         Event = "reset"

	StartAnimation Event = "startAnimation"
)

// Table maps a state and an event to the next state.
type Table map[State]map[Event]State

// Transition returns the state reached by firing ev in from.
func (t Table) Transition(from State, ev Event) (State, error) {
	if next, ok := t[from][ev]; ok {
		return next, nil
	}
	return from, fmt.Errorf("%w: %s in state %s", ErrInvalidTransition, ev, from)
}

// Flow is the multi-step flow: location, then bee choice, then image.
var Flow = Table{
	Idle:            {Submit: LoadingLocation, Reset: Idle},
	LoadingLocation: {LocationReady: SelectBee, Fail: Error, Reset: Idle},
	SelectBee:       {ChooseBee: LoadingImage, Reset: Idle},
	LoadingImage:    {ImageReady: Results, Fail: Error, Reset: Idle},
	Results:         {Reset: Idle},
	Error:           {Submit: LoadingLocation, Reset: Idle},
}

// Simple is the single-request flow.
var Simple = Table{
	Idle:    {Submit: Loading, Reset: Idle},
	Loading: {Succeed: Success, Fail: Error, Reset: Idle},
	Success: {Submit: Loading, Reset: Idle},
	Error:   {Submit: Loading, Reset: Idle},
}

// Animation runs only while the flow is in Results. A failure returns to AnimationIdle.
var Animation = Table{
	AnimationIdle: {StartAnimation: Animating, Reset: AnimationIdle},
	Animating:     {Succeed: Done, Fail: AnimationIdle, Reset: AnimationIdle},
	Done:          {StartAnimation: Animating, Reset: AnimationIdle},
}

// Machine tracks one current state against a Table.
type Machine struct {
	table Table
	state State
}

func NewMachine(t Table) *Machine {
	return &Machine{table: t, state: Idle}
}

func (m *Machine) State() State {
	return m.state
}

// Fire applies ev, leaving the state unchanged on error.
func (m *Machine) Fire(ev Event) error {
	next, err := m.table.Transition(m.state, ev)
	if err != nil {
		return err
	}
	m.state = next
	return nil
}

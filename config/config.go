// Package config loads declarative machina machine definitions from YAML
// documents. Guards and actions cannot be expressed in YAML; documents refer
// to them by name and a Registry supplies the implementations.
package config

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/enetx/g"
	"github.com/enetx/machina"
)

// Registry resolves the guard and action names a document references.
type Registry struct {
	Guards  map[string]machina.Guard
	Actions map[string]machina.Action
}

// MachineDoc is the top-level YAML document.
type MachineDoc struct {
	Name   string              `yaml:"name"`
	Start  string              `yaml:"start"`
	States map[string]StateDoc `yaml:"states"`
}

// StateDoc configures one state.
type StateDoc struct {
	Entry       []string                 `yaml:"entry,omitempty"`
	Exit        []string                 `yaml:"exit,omitempty"`
	Terminating bool                     `yaml:"terminating,omitempty"`
	On          map[string]TransitionDoc `yaml:"on,omitempty"`
	After       []TimerDoc               `yaml:"after,omitempty"`
	Signals     map[string]TransitionDoc `yaml:"signals,omitempty"`
}

// TransitionDoc configures one event- or signal-triggered transition.
type TransitionDoc struct {
	To       string `yaml:"to"`
	If       string `yaml:"if,omitempty"`
	Unless   string `yaml:"unless,omitempty"`
	Do       string `yaml:"do,omitempty"`
	Internal bool   `yaml:"internal,omitempty"`
}

// TimerDoc configures one timer-triggered transition. Delay and Tolerance
// use time.ParseDuration syntax.
type TimerDoc struct {
	Delay         string `yaml:"delay"`
	Tolerance     string `yaml:"tolerance,omitempty"`
	TransitionDoc `yaml:",inline"`
}

// Validate checks the document's structure:
// - Name and Start are present, States is non-empty
// - Start refers to a declared state
// - every transition target refers to a declared state or is internal
func (d *MachineDoc) Validate() error {
	if d.Name == "" {
		return errors.New("config: machine name is required")
	}
	if d.Start == "" {
		return errors.New("config: start state is required")
	}
	if len(d.States) == 0 {
		return errors.New("config: states map is required and cannot be empty")
	}
	if _, ok := d.States[d.Start]; !ok {
		return fmt.Errorf("config: start state %q not declared", d.Start)
	}

	for sid, state := range d.States {
		for event, t := range state.On {
			if err := d.checkTarget(t, sid); err != nil {
				return fmt.Errorf("config: state %q, event %q: %w", sid, event, err)
			}
		}
		for i, t := range state.After {
			if t.Delay == "" {
				return fmt.Errorf("config: state %q, timer %d: delay is required", sid, i)
			}
			if err := d.checkTarget(t.TransitionDoc, sid); err != nil {
				return fmt.Errorf("config: state %q, timer %d: %w", sid, i, err)
			}
		}
		for signal, t := range state.Signals {
			if err := d.checkTarget(t, sid); err != nil {
				return fmt.Errorf("config: state %q, signal %q: %w", sid, signal, err)
			}
		}
	}

	return nil
}

func (d *MachineDoc) checkTarget(t TransitionDoc, source string) error {
	if t.Internal {
		if t.To != "" && t.To != source {
			return fmt.Errorf("internal transition target %q differs from source", t.To)
		}
		return nil
	}
	if t.To == "" {
		return errors.New("transition target is required")
	}
	if _, ok := d.States[t.To]; !ok {
		return fmt.Errorf("transition target %q not declared", t.To)
	}
	return nil
}

// Load parses src, validates it, resolves guard and action names through reg
// and builds the machine. States are defined in sorted identifier order so
// loading is deterministic.
func Load(src []byte, reg Registry, opts ...machina.MachineOption) (*machina.Machine, error) {
	var doc MachineDoc
	if err := yaml.Unmarshal(src, &doc); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}

	if err := doc.Validate(); err != nil {
		return nil, err
	}

	plans, err := resolve(&doc, reg)
	if err != nil {
		return nil, err
	}

	opts = append(opts, machina.WithName(g.String(doc.Name)))
	m := machina.New(machina.StateID(doc.Start), opts...)

	for _, plan := range plans {
		m.Define(plan.id, plan.configure)
	}

	return m, nil
}

// statePlan is a fully-resolved state definition, built before the machine so
// resolution failures surface as errors rather than half-defined machines.
type statePlan struct {
	id        machina.StateID
	configure func(*machina.StateConfig)
}

func resolve(doc *MachineDoc, reg Registry) ([]statePlan, error) {
	ids := make([]string, 0, len(doc.States))
	for id := range doc.States {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var plans []statePlan

	for _, id := range ids {
		state := doc.States[id]

		var steps []func(*machina.StateConfig)

		for _, name := range state.Entry {
			action, err := reg.action(name)
			if err != nil {
				return nil, fmt.Errorf("config: state %q entry: %w", id, err)
			}
			steps = append(steps, func(c *machina.StateConfig) { c.OnEntry(action) })
		}

		for _, name := range state.Exit {
			action, err := reg.action(name)
			if err != nil {
				return nil, fmt.Errorf("config: state %q exit: %w", id, err)
			}
			steps = append(steps, func(c *machina.StateConfig) { c.OnExit(action) })
		}

		if state.Terminating {
			steps = append(steps, func(c *machina.StateConfig) { c.Terminating() })
		}

		events := sortedKeys(state.On)
		for _, event := range events {
			t := state.On[event]
			apply, err := reg.transition(t)
			if err != nil {
				return nil, fmt.Errorf("config: state %q, event %q: %w", id, event, err)
			}
			steps = append(steps, func(c *machina.StateConfig) { apply(c.On(machina.EventID(event))) })
		}

		for i, t := range state.After {
			delay, err := time.ParseDuration(t.Delay)
			if err != nil {
				return nil, fmt.Errorf("config: state %q, timer %d: bad delay: %w", id, i, err)
			}

			tolerance := time.Duration(0)
			if t.Tolerance != "" {
				tolerance, err = time.ParseDuration(t.Tolerance)
				if err != nil {
					return nil, fmt.Errorf("config: state %q, timer %d: bad tolerance: %w", id, i, err)
				}
			}

			apply, err := reg.transition(t.TransitionDoc)
			if err != nil {
				return nil, fmt.Errorf("config: state %q, timer %d: %w", id, i, err)
			}

			steps = append(steps, func(c *machina.StateConfig) {
				tc := c.After(delay)
				if tolerance > 0 {
					tc.Tolerance(tolerance)
				}
				apply(tc)
			})
		}

		signals := sortedKeys(state.Signals)
		for _, signal := range signals {
			t := state.Signals[signal]
			apply, err := reg.transition(t)
			if err != nil {
				return nil, fmt.Errorf("config: state %q, signal %q: %w", id, signal, err)
			}
			steps = append(steps, func(c *machina.StateConfig) { apply(c.OnSignal(machina.SignalID(signal))) })
		}

		plans = append(plans, statePlan{
			id: machina.StateID(id),
			configure: func(c *machina.StateConfig) {
				for _, step := range steps {
					step(c)
				}
			},
		})
	}

	return plans, nil
}

// transition resolves a TransitionDoc into a function applying it to the
// fluent builder.
func (r Registry) transition(t TransitionDoc) (func(*machina.TransitionConfig), error) {
	var ifGuard, unlessGuard machina.Guard
	var action machina.Action
	var err error

	if t.If != "" {
		if ifGuard, err = r.guard(t.If); err != nil {
			return nil, err
		}
	}
	if t.Unless != "" {
		if unlessGuard, err = r.guard(t.Unless); err != nil {
			return nil, err
		}
	}
	if t.Do != "" {
		if action, err = r.action(t.Do); err != nil {
			return nil, err
		}
	}

	return func(tc *machina.TransitionConfig) {
		if t.Internal {
			tc.Internal()
		} else {
			tc.To(machina.StateID(t.To))
		}
		if ifGuard != nil {
			tc.If(ifGuard)
		}
		if unlessGuard != nil {
			tc.Unless(unlessGuard)
		}
		if action != nil {
			tc.Do(action)
		}
	}, nil
}

func (r Registry) guard(name string) (machina.Guard, error) {
	if guard, ok := r.Guards[name]; ok {
		return guard, nil
	}
	return nil, fmt.Errorf("unknown guard %q", name)
}

func (r Registry) action(name string) (machina.Action, error) {
	if action, ok := r.Actions[name]; ok {
		return action, nil
	}
	return nil, fmt.Errorf("unknown action %q", name)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

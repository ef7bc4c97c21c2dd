// SPDX-License-Identifier: EPL-2.0

// Package cue holds the marker model shared by every container format.
//
// A Cue is a named position inside an audio stream, expressed in PCM frames
// (one sample across all channels). Containers keep their cues in Metadata,
// which does not care about insertion order but always emits cues sorted by
// location.
package cue

import (
	"cmp"
	"errors"
	"slices"
	"sync"
)

var ErrNegativeLocation = errors.New("cue location must not be negative")

// Cue is a marker at a frame offset.
type Cue struct {
	Location int64
	Label    string
}

// New returns a Cue, rejecting negative locations.
func New(location int64, label string) (Cue, error) {
	if location < 0 {
		return Cue{}, ErrNegativeLocation
	}

	return Cue{Location: location, Label: label}, nil
}

func compare(a, b Cue) int {
	if c := cmp.Compare(a.Location, b.Location); c != 0 {
		return c
	}

	return cmp.Compare(a.Label, b.Label)
}

// Sort orders cues by location, then label.
func Sort(cues []Cue) {
	slices.SortStableFunc(cues, compare)
}

// Metadata is the in-memory cue collection of one container, plus an
// optional title used by formats that carry one.
type Metadata struct {
	mtx   sync.Mutex
	title string
	cues  []Cue
}

// NewMetadata returns Metadata seeded with cues.
func NewMetadata(title string, cues ...Cue) *Metadata {
	m := &Metadata{title: title}
	m.cues = append(m.cues, cues...)

	return m
}

func (m *Metadata) Title() string {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	return m.title
}

func (m *Metadata) SetTitle(title string) {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	m.title = title
}

// Add appends a cue. Duplicates are kept; callers that care dedupe.
func (m *Metadata) Add(location int64, label string) error {
	c, err := New(location, label)
	if err != nil {
		return err
	}

	m.mtx.Lock()
	defer m.mtx.Unlock()

	m.cues = append(m.cues, c)

	return nil
}

// Len returns the number of cues.
func (m *Metadata) Len() int {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	return len(m.cues)
}

// Cues returns a sorted copy of the cue set.
func (m *Metadata) Cues() []Cue {
	m.mtx.Lock()
	out := slices.Clone(m.cues)
	m.mtx.Unlock()

	Sort(out)

	return out
}

// Replace swaps the whole cue set.
func (m *Metadata) Replace(cues []Cue) {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	m.cues = slices.Clone(cues)
}

// Merge appends every cue of other that is not already present.
func (m *Metadata) Merge(other *Metadata) {
	if other == nil || other == m {
		return
	}

	incoming := other.Cues()
	title := other.Title()

	m.mtx.Lock()
	defer m.mtx.Unlock()

	if m.title == "" {
		m.title = title
	}

	for _, c := range incoming {
		if !slices.Contains(m.cues, c) {
			m.cues = append(m.cues, c)
		}
	}
}

// Package ledger holds the ordered clips of the active session and the
// uncommitted draft range.
//
// The ledger is a mirror of the backend's copy, not a cache: after every
// successful backend mutation the session controller replaces it wholesale
// with the backend snapshot. Append, RemoveAt and ReplaceAt exist for that
// replacement path and for tests; nothing edits the ledger ahead of the
// backend.
package ledger

import (
	"fmt"
	"time"
)

// Clip is a committed, named time range. Ordinal is 1-based and contiguous.
type Clip struct {
	Ordinal   int       `json:"ordinal"`
	Start     string    `json:"start_time"`
	End       string    `json:"end_time"`
	Name      string    `json:"custom_name"`
	Path      string    `json:"path,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`

	// CreatedRaw is created_at exactly as the backend sent it. Updates echo
	// it back so the backend's record keeps its original stamp.
	CreatedRaw string `json:"-"`
}

// Ledger is the ordered clip sequence. Insertion order is the display and
// export order. It is not safe for concurrent use; the session controller
// guards it.
type Ledger struct {
	clips []Clip
}

func New() *Ledger {
	return &Ledger{}
}

// Len returns the number of committed clips.
func (l *Ledger) Len() int {
	return len(l.clips)
}

// Append assigns the next ordinal and appends.
func (l *Ledger) Append(c Clip) Clip {
	c.Ordinal = len(l.clips) + 1
	l.clips = append(l.clips, c)
	return c
}

// RemoveAt deletes the clip at ordinal and renumbers the rest from 1.
func (l *Ledger) RemoveAt(ordinal int) error {
	if err := l.check(ordinal); err != nil {
		return err
	}
	l.clips = append(l.clips[:ordinal-1], l.clips[ordinal:]...)
	l.renumber()
	return nil
}

// ReplaceAt changes the display name only.
func (l *Ledger) ReplaceAt(ordinal int, name string) error {
	if err := l.check(ordinal); err != nil {
		return err
	}
	l.clips[ordinal-1].Name = name
	return nil
}

// At returns a copy of the clip at ordinal.
func (l *Ledger) At(ordinal int) (Clip, error) {
	if err := l.check(ordinal); err != nil {
		return Clip{}, err
	}
	return l.clips[ordinal-1], nil
}

// Reset empties the ledger.
func (l *Ledger) Reset() {
	l.clips = nil
}

// Replace discards the current contents and loads clips in order,
// assigning fresh ordinals.
func (l *Ledger) Replace(clips []Clip) {
	l.clips = make([]Clip, len(clips))
	copy(l.clips, clips)
	l.renumber()
}

// Clips returns a copy of the sequence.
func (l *Ledger) Clips() []Clip {
	out := make([]Clip, len(l.clips))
	copy(out, l.clips)
	return out
}

func (l *Ledger) renumber() {
	for i := range l.clips {
		l.clips[i].Ordinal = i + 1
	}
}

func (l *Ledger) check(ordinal int) error {
	if ordinal < 1 || ordinal > len(l.clips) {
		return &OrdinalError{Ordinal: ordinal, Len: len(l.clips)}
	}
	return nil
}

// OrdinalError reports an ordinal outside 1..Len.
type OrdinalError struct {
	Ordinal int
	Len     int
}

func (e *OrdinalError) Error() string {
	return fmt.Sprintf("clip %d out of range 1..%d", e.Ordinal, e.Len)
}

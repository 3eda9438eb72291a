// SPDX-License-Identifier: MIT

// Package tuning turns raw frequency estimates into a stable display state:
// a debounced note, a smoothed needle, cents off pitch and an in-tune
// counter. A Tracker is owned by the display loop and is not safe for
// concurrent use.
package tuning

import (
	"math"
	"strconv"
	"time"

	"tuner/internal/note"
)

// Config holds the tracker's thresholds.
type Config struct {
	HitsTillNoteUpdate int     // consecutive ticks a new note must win before it is displayed
	NeedleBufferLength int     // needle angles averaged for display
	InTuneThresholdHz  float64 // |freq_diff| below this counts as in tune
	SustainedHits      int     // in-tune hit count that raises Reading.Sustained
}

// DefaultConfig returns the reference thresholds.
func DefaultConfig() Config {
	return Config{
		HitsTillNoteUpdate: 15,
		NeedleBufferLength: 30,
		InTuneThresholdHz:  0.25,
		SustainedHits:      7,
	}
}

// Reading is the display snapshot produced for one estimate.
type Reading struct {
	Frequency      float64   `json:"frequency"`        // raw estimate, Hz
	NoteNumber     int       `json:"note_number"`      // displayed (debounced) note
	NearestNumber  int       `json:"nearest_number"`   // nearest note to this estimate
	NoteName       string    `json:"note_name"`        // name of NoteNumber
	NoteNameLower  string    `json:"note_name_lower"`  // name of NoteNumber-1
	NoteNameHigher string    `json:"note_name_higher"` // name of NoteNumber+1
	Octave         int       `json:"octave"`
	NeedleAngle    float64   `json:"needle_angle"`     // smoothed, degrees
	RawNeedleAngle float64   `json:"raw_needle_angle"` // this estimate only, degrees
	Cents          float64   `json:"cents"`            // rounded to 0.1, positive when sharp
	CentsText      string    `json:"cents_text"`
	InTune         bool      `json:"in_tune"`
	Sustained      bool      `json:"sustained"` // the in-tune run just passed SustainedHits
	At             time.Time `json:"at"`
}

// Tracker holds the consumer-side note state.
type Tracker struct {
	cfg Config

	displayed int // note number currently shown
	pending   int // candidate replacing displayed
	agree     int // consecutive ticks pending has been nearest
	hits      int // consecutive in-tune ticks
	needle    *NeedleBuffer

	now func() time.Time
}

// NewTracker returns a tracker displaying A4.
func NewTracker(cfg Config) *Tracker {
	if cfg.HitsTillNoteUpdate < 1 {
		cfg.HitsTillNoteUpdate = 1
	}
	return &Tracker{
		cfg:       cfg,
		displayed: note.A4Number,
		pending:   note.A4Number,
		needle:    NewNeedleBuffer(cfg.NeedleBufferLength),
		now:       time.Now,
	}
}

// Update folds one frequency estimate into the state and returns the new
// snapshot. A frequency that cannot be mapped to a note (0 means no signal)
// returns note.ErrNoFrequency and leaves the state untouched.
func (t *Tracker) Update(freq, a4 float64) (Reading, error) {
	number, err := note.FrequencyToNumber(freq, a4)
	if err != nil {
		return Reading{}, err
	}

	nearest := int(math.Round(number))
	nearestFreq := note.NumberToFrequency(float64(nearest), a4)
	diff := nearestFreq - freq
	step := nearestFreq - note.NumberToFrequency(float64(nearest-1), a4)

	var ratio float64
	if step != 0 {
		ratio = diff / step
	}
	angle := -90 * ratio * 2

	t.debounce(nearest)

	inTune := math.Abs(diff) < t.cfg.InTuneThresholdHz
	if inTune {
		t.hits++
	} else {
		t.hits = 0
	}
	sustained := false
	if t.hits > t.cfg.SustainedHits {
		t.hits = 0
		sustained = true
	}

	t.needle.Push(angle)

	cents := roundTo(-ratio*100, 1)
	if cents == 0 {
		cents = 0 // drop the sign of -0
	}

	return Reading{
		Frequency:      freq,
		NoteNumber:     t.displayed,
		NearestNumber:  nearest,
		NoteName:       note.NumberToName(float64(t.displayed)),
		NoteNameLower:  note.NumberToName(float64(t.displayed - 1)),
		NoteNameHigher: note.NumberToName(float64(t.displayed + 1)),
		Octave:         note.NumberToOctave(float64(t.displayed)),
		NeedleAngle:    t.needle.Average(),
		RawNeedleAngle: angle,
		Cents:          cents,
		CentsText:      CentsText(cents),
		InTune:         inTune,
		Sustained:      sustained,
		At:             t.now(),
	}, nil
}

// debounce commits nearest as the displayed note once it has been the
// nearest note for HitsTillNoteUpdate consecutive ticks.
func (t *Tracker) debounce(nearest int) {
	if nearest == t.displayed {
		t.pending = t.displayed
		t.agree = 0
		return
	}

	if nearest == t.pending {
		t.agree++
	} else {
		t.pending = nearest
		t.agree = 1
	}

	if t.agree >= t.cfg.HitsTillNoteUpdate {
		t.displayed = nearest
		t.agree = 0
	}
}

// Displayed returns the note number currently shown.
func (t *Tracker) Displayed() int { return t.displayed }

// Hits returns the current in-tune run length.
func (t *Tracker) Hits() int { return t.hits }

// Reset returns the tracker to its initial state.
func (t *Tracker) Reset() {
	t.displayed = note.A4Number
	t.pending = note.A4Number
	t.agree = 0
	t.hits = 0
	t.needle.Reset()
}

// CentsText formats cents the way the display shows them: an explicit plus
// sign when sharp, one decimal, then "cents".
func CentsText(cents float64) string {
	var buf [32]byte
	b := buf[:0]
	if cents > 0 {
		b = append(b, '+')
	}
	b = strconv.AppendFloat(b, cents, 'f', 1, 64)
	b = append(b, " cents"...)
	return string(b)
}

func roundTo(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}

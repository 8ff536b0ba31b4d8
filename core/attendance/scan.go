package attendance

import "time"

// DefaultScanGapThreshold discriminates a keyboard-wedge reader burst from
// human typing: readers type digits far faster than people do.
const DefaultScanGapThreshold = 100 * time.Millisecond

// ScanToken is one completed capture from a card-reader surface. It lives only
// between the assembler and the resolver; it is never persisted.
type ScanToken struct {
	Raw     string    // buffered digits as captured
	Surface string    // which capture surface produced it
	At      time.Time // arrival time of the terminating keystroke
}

// Assembler turns a raw keystroke stream from one capture surface into
// discrete scan tokens. Each surface (dashboard quick-scan field, kiosk field,
// card-assignment field) owns its own Assembler; state is never shared across
// surfaces, so concurrent kiosks cannot clobber each other's buffers.
type Assembler struct {
	surface string
	gap     time.Duration

	buf     []byte
	lastKey time.Time
}

func NewAssembler(surface string, gapThreshold time.Duration) *Assembler {
	if gapThreshold <= 0 {
		gapThreshold = DefaultScanGapThreshold
	}
	return &Assembler{
		surface: surface,
		gap:     gapThreshold,
	}
}

func (a *Assembler) Surface() string { return a.surface }

// Key feeds one keystroke into the assembler.
//
// A digit arriving after a pause longer than the gap threshold starts a fresh
// buffer; otherwise it extends the current one. Enter emits the buffered
// digits as a token (nothing on an empty buffer). Any other key is ignored
// without touching the buffer, so a stray modifier key cannot abort an
// in-progress capture.
func (a *Assembler) Key(key string, at time.Time) (ScanToken, bool) {
	switch {
	case isDigitKey(key):
		if !a.lastKey.IsZero() && at.Sub(a.lastKey) > a.gap {
			a.buf = a.buf[:0]
		}
		a.buf = append(a.buf, key[0])
		a.lastKey = at

	case key == "Enter":
		if len(a.buf) == 0 {
			break
		}
		token := ScanToken{
			Raw:     string(a.buf),
			Surface: a.surface,
			At:      at,
		}
		a.buf = a.buf[:0]
		return token, true
	}
	return ScanToken{}, false
}

func isDigitKey(key string) bool {
	return len(key) == 1 && key[0] >= '0' && key[0] <= '9'
}

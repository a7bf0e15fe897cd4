package app

// maxHistory bounds the number of remembered rotations.
const maxHistory = 64

// History remembers the rotations applied to a session so that the preview
// can step back through earlier randomizations.
type History struct {
	entries []int
	current int // index into entries
}

// NewHistory creates a history holding only the initial rotation.
func NewHistory(rotation int) *History {
	return &History{entries: []int{rotation}}
}

// Push records rotation as the newest entry, dropping anything after the
// current position. Repeating the current rotation is a no-op.
func (h *History) Push(rotation int) {
	if h.entries[h.current] == rotation {
		return
	}
	h.entries = append(h.entries[:h.current+1], rotation)
	if len(h.entries) > maxHistory {
		h.entries = h.entries[len(h.entries)-maxHistory:]
	}
	h.current = len(h.entries) - 1
}

// Prev steps back one entry. ok is false at the oldest entry.
func (h *History) Prev() (rotation int, ok bool) {
	return h.iter(false)
}

// Next steps forward one entry. ok is false at the newest entry.
func (h *History) Next() (rotation int, ok bool) {
	return h.iter(true)
}

func (h *History) iter(next bool) (int, bool) {
	direction := 1
	if !next {
		direction = -1
	}
	pos := h.current + direction
	if pos < 0 || pos >= len(h.entries) {
		return h.entries[h.current], false
	}
	h.current = pos
	return h.entries[pos], true
}

// Package notestack keeps the held notes of a MIDI voice in priority order.
package notestack

// Depth is the default capacity of a stack.
const Depth = 10

// Mode selects the insertion order.
type Mode uint8

const (
	// PushTop puts the newest note first (last-note priority).
	PushTop Mode = iota
	// PushBottom appends the newest note (press order).
	PushBottom
	// Sort keeps notes in ascending order.
	Sort
)

// Item is one held note.
type Item struct {
	Note     uint8
	Tag      uint8 // velocity
	Released bool  // key released but note retained (hold, easy chord)
}

// Stack is a bounded note stack.
type Stack struct {
	Mode  Mode
	Hold  bool
	size  int
	items []Item
}

// New returns an empty stack with capacity size (Depth if size <= 0).
func New(mode Mode, hold bool, size int) *Stack {
	if size <= 0 {
		size = Depth
	}
	return &Stack{Mode: mode, Hold: hold, size: size, items: make([]Item, 0, size)}
}

// Len returns the number of notes in the stack, released ones included.
func (s *Stack) Len() int {
	return len(s.items)
}

// Items returns the notes in priority order. The slice must not be modified.
func (s *Stack) Items() []Item {
	return s.items
}

// Top returns the highest priority note.
func (s *Stack) Top() (Item, bool) {
	if len(s.items) == 0 {
		return Item{}, false
	}
	return s.items[0], true
}

// Clear removes every note.
func (s *Stack) Clear() {
	s.items = s.items[:0]
}

// AllReleased reports whether every note in a non-empty stack is released.
func (s *Stack) AllReleased() bool {
	if len(s.items) == 0 {
		return false
	}
	for _, it := range s.items {
		if !it.Released {
			return false
		}
	}
	return true
}

// Push adds a note. In hold mode a push after all keys were released starts
// a new chord. A note already in the stack is moved to its new position.
// When the stack is full the lowest priority note is dropped.
func (s *Stack) Push(note, tag uint8) {
	if s.Hold && s.AllReleased() {
		s.Clear()
	}
	s.remove(note)

	it := Item{Note: note, Tag: tag}
	switch s.Mode {
	case PushTop:
		s.insert(0, it)
	case Sort:
		i := 0
		for i < len(s.items) && s.items[i].Note < note {
			i++
		}
		s.insert(i, it)
	default:
		s.insert(len(s.items), it)
	}
}

func (s *Stack) insert(i int, it Item) {
	if len(s.items) == s.size {
		if i >= s.size {
			return
		}
		s.items = s.items[:s.size-1]
	}
	s.items = append(s.items, Item{})
	copy(s.items[i+1:], s.items[i:])
	s.items[i] = it
}

// Pop handles a key release. In hold mode the note is only marked released.
// It reports whether the note was in the stack.
func (s *Stack) Pop(note uint8) bool {
	if s.Hold {
		return s.Release(note)
	}
	return s.remove(note)
}

// Release marks a note as released without removing it.
func (s *Stack) Release(note uint8) bool {
	for i := range s.items {
		if s.items[i].Note == note {
			s.items[i].Released = true
			return true
		}
	}
	return false
}

// PurgeReleased removes every released note.
func (s *Stack) PurgeReleased() {
	n := 0
	for _, it := range s.items {
		if !it.Released {
			s.items[n] = it
			n++
		}
	}
	s.items = s.items[:n]
}

func (s *Stack) remove(note uint8) bool {
	for i, it := range s.items {
		if it.Note == note {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return true
		}
	}
	return false
}

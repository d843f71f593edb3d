package slideshow

// indexMachine owns the cursor over a deck of n panels.
type indexMachine struct {
	n      int
	cursor Cursor
	policy BoundaryPolicy
}

func (m *indexMachine) reset(n int) {
	m.n = max(0, n)
	m.cursor = Cursor{Current: NoPosition, Previous: NoPosition}
	if m.n > 0 {
		m.cursor.Current = 1
	}
}

// resolve maps a requested position onto the deck. Both boundary policies
// send out-of-range targets to the first panel.
func (m *indexMachine) resolve(target int) int {
	if m.n == 0 {
		return NoPosition
	}
	if target < 1 || target > m.n {
		return 1
	}
	return target
}

// commit moves the cursor to an already resolved target and returns the
// position it left.
func (m *indexMachine) commit(target int) int {
	old := m.cursor.Current
	m.cursor.Previous = old
	m.cursor.Current = target
	return old
}

func (m *indexMachine) isFirst(pos int) bool { return m.n > 0 && pos == 1 }

func (m *indexMachine) isLast(pos int) bool { return m.n > 0 && pos == m.n }

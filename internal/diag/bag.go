package diag

// Bag collects diagnostics up to an optional limit.
type Bag struct {
	items []Diagnostic
	max   int
}

// NewBag creates a bag holding at most max diagnostics; max <= 0 means unlimited.
func NewBag(max int) *Bag {
	return &Bag{max: max}
}

// Add stores d unless the limit is reached and reports whether it was kept.
func (b *Bag) Add(d Diagnostic) bool {
	if b.full() {
		return false
	}
	b.items = append(b.items, d)
	return true
}

// Report implements Reporter.
func (b *Bag) Report(d Diagnostic) { b.Add(d) }

func (b *Bag) full() bool { return b.max > 0 && len(b.items) >= b.max }

// HasErrors reports whether any diagnostic is at SevError or above.
func (b *Bag) HasErrors() bool {
	return b.any(func(d *Diagnostic) bool { return d.Severity >= SevError })
}

// HasFatal reports whether an internal-consistency failure was recorded.
func (b *Bag) HasFatal() bool {
	return b.any(func(d *Diagnostic) bool { return d.IsFatal() })
}

func (b *Bag) any(pred func(*Diagnostic) bool) bool {
	for i := range b.items {
		if pred(&b.items[i]) {
			return true
		}
	}
	return false
}

func (b *Bag) Len() int { return len(b.items) }

// Items returns the stored diagnostics in report order. Callers must not
// modify the slice.
func (b *Bag) Items() []Diagnostic { return b.items }

// Merge appends the diagnostics of other until the limit is hit.
func (b *Bag) Merge(other *Bag) {
	if other == nil {
		return
	}
	for _, d := range other.items {
		if !b.Add(d) {
			return
		}
	}
}

package ownercache

import "sync/atomic"

const (
	initialCapacity = 32
	maxCapacity     = 1 << 30
	// probeLimit bounds how far from its home slot an entry may live.
	probeLimit = 6
)

// table is the per-owner fast path: an open-addressed array of entry hints.
// Readers never lock it. Writers that hold the owner lock use plain atomic
// stores; lock-free relocation uses CAS so it never clobbers a live entry.
type table struct {
	slots []atomic.Pointer[entry]
	mask  int
	used  int // approximate occupancy, owner lock only
}

func newTable(capacity int) *table {
	return &table{
		slots: make([]atomic.Pointer[entry], capacity),
		mask:  capacity - 1,
	}
}

func (t *table) threshold() int { return len(t.slots) * 2 / 3 }

func dislocation(e *entry, pos, mask int) int {
	return (pos - e.home(mask)) & mask
}

// probeHome is the zero-synchronization hit path.
func (t *table) probeHome(d *ident, cur *version) *entry {
	e := t.slots[int(d.hash)&t.mask].Load()
	if e != nil && e.ver == cur && e.kind == kindCommitted {
		return e
	}
	return nil
}

// probeBackup scans the slots after home. A hit is moved to its home slot
// when that slot holds nothing live, so the next read is a home hit.
func (t *table) probeBackup(d *ident, cur *version) *entry {
	home := int(d.hash) & t.mask
	for i := 1; i <= probeLimit; i++ {
		pos := (home + i) & t.mask
		e := t.slots[pos].Load()
		if e == nil || e.ver != cur || e.kind != kindCommitted {
			continue
		}
		if o := t.slots[home].Load(); !o.isLive() && t.slots[home].CompareAndSwap(o, e) {
			t.slots[pos].CompareAndSwap(e, nil)
		}
		return e
	}
	return nil
}

// add mirrors e into the table. Owner lock held. It returns how many live
// entries had to be dropped for lack of room within their probe range.
//
// An entry sitting at its own home slot outranks a displaced squatter there;
// elsewhere the entry farther from home keeps the slot (Robin Hood).
func (t *table) add(e *entry) (dropped int) {
	mask := t.mask
	home := e.home(mask)
	for i := 0; i <= probeLimit; i++ {
		pos := (home + i) & mask
		if o := t.slots[pos].Load(); o.belongsTo(e.ver.d) {
			t.slots[pos].Store(nil)
			t.used--
		}
	}

	cur, pos, dist := e, home, 0
	for step := 0; step < len(t.slots); step++ {
		o := t.slots[pos].Load()
		if !o.isLive() {
			if o == nil {
				t.used++
			}
			t.slots[pos].Store(cur)
			return dropped
		}
		if od := dislocation(o, pos, mask); od < dist || (dist == 0 && od > 0) {
			t.slots[pos].Store(cur)
			cur, dist = o, od
		}
		pos = (pos + 1) & mask
		dist++
		if dist > probeLimit {
			return dropped + 1
		}
	}
	return dropped + 1
}

// clear drops every slot d occupies within its probe range.
func (t *table) clear(d *ident) {
	home := int(d.hash) & t.mask
	for i := 0; i <= probeLimit; i++ {
		pos := (home + i) & t.mask
		if t.slots[pos].Load().belongsTo(d) {
			t.slots[pos].Store(nil)
			t.used--
		}
	}
}

// sweep drops every non-live slot and recounts occupancy.
func (t *table) sweep() (swept int) {
	used := 0
	for i := range t.slots {
		e := t.slots[i].Load()
		switch {
		case e == nil:
		case !e.isLive():
			t.slots[i].Store(nil)
			swept++
		default:
			used++
		}
	}
	t.used = used
	return swept
}

// grow returns a table twice the size holding the live entries of t.
func (t *table) grow() (*table, int) {
	nt := newTable(len(t.slots) * 2)
	dropped := 0
	for i := range t.slots {
		if e := t.slots[i].Load(); e.isLive() {
			dropped += nt.add(e)
		}
	}
	return nt, dropped
}

// live counts live slots; used by tests and stats.
func (t *table) live() int {
	n := 0
	for i := range t.slots {
		if t.slots[i].Load().isLive() {
			n++
		}
	}
	return n
}

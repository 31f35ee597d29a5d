package resource

// Pool tracks one resource's ledger. Current never leaves [0, Maximum];
// the Reserved floor is held back from agents for critical ship systems.
type Pool struct {
	Type             Type `json:"resource_type"`
	Current          int  `json:"current"`
	Maximum          int  `json:"maximum"`
	RegenerationRate int  `json:"regeneration_rate"` // added per round, capped at Maximum
	Reserved         int  `json:"reserved"`
}

// Available is what agents may claim: max(0, Current-Reserved).
func (p Pool) Available() int {
	avail := p.Current - p.Reserved
	if avail < 0 {
		return 0
	}
	return avail
}

// Ledger holds one Pool per resource type. It carries no lock of its own;
// the owning arbiter serializes access.
type Ledger struct {
	pools map[Type]*Pool
}

// DefaultLedger builds the standard ship loadout.
func DefaultLedger() *Ledger {
	l := &Ledger{pools: make(map[Type]*Pool, 6)}
	for _, p := range []Pool{
		{Type: TypePower, Current: 1000, Maximum: 1000, RegenerationRate: 50, Reserved: 100},
		{Type: TypeCompute, Current: 100, Maximum: 100, RegenerationRate: 20, Reserved: 10},
		{Type: TypeCrew, Current: 150, Maximum: 150, Reserved: 20},
		{Type: TypeMaterials, Current: 500, Maximum: 500, Reserved: 50},
		{Type: TypeMedical, Current: 100, Maximum: 100, Reserved: 10},
		{Type: TypeFuel, Current: 1000, Maximum: 1000, Reserved: 200},
	} {
		pool := p
		l.pools[p.Type] = &pool
	}
	return l
}

// NewLedger builds a ledger from explicit pools, for tests and scenarios.
func NewLedger(pools ...Pool) *Ledger {
	l := &Ledger{pools: make(map[Type]*Pool, len(pools))}
	for _, p := range pools {
		pool := p
		pool.clamp()
		l.pools[p.Type] = &pool
	}
	return l
}

func (p *Pool) clamp() {
	if p.Current > p.Maximum {
		p.Current = p.Maximum
	}
	if p.Current < 0 {
		p.Current = 0
	}
}

// ApplyModifiers overrides Current for the named pools, clamped into
// [0, Maximum]. Unknown names are ignored so scenario text stays forgiving.
func (l *Ledger) ApplyModifiers(modifiers map[string]int) {
	for name, amount := range modifiers {
		t, ok := ParseType(name)
		if !ok {
			continue
		}
		p := l.pools[t]
		if p == nil {
			continue
		}
		p.Current = amount
		p.clamp()
	}
}

// Available reports the claimable quantity for one type.
func (l *Ledger) Available(t Type) int {
	p := l.pools[t]
	if p == nil {
		return 0
	}
	return p.Available()
}

// Consume deducts amount if Current covers it, bypassing the Reserved
// floor. Used for direct system consumption outside the request protocol.
func (l *Ledger) Consume(t Type, amount int) bool {
	p := l.pools[t]
	if p == nil || amount < 0 || p.Current < amount {
		return false
	}
	p.Current -= amount
	return true
}

// Add credits a pool, clamped at Maximum.
func (l *Ledger) Add(t Type, amount int) {
	p := l.pools[t]
	if p == nil || amount <= 0 {
		return
	}
	p.Current += amount
	p.clamp()
}

// Regenerate credits every pool its per-round regeneration, capped at
// Maximum. Called exactly once at the end of each round.
func (l *Ledger) Regenerate() {
	for _, p := range l.pools {
		if p.RegenerationRate <= 0 {
			continue
		}
		p.Current += p.RegenerationRate
		p.clamp()
	}
}

// deduct removes granted units after arbitration. Current never goes
// negative: arbitration grants are bounded by Available.
func (l *Ledger) deduct(t Type, amount int) {
	p := l.pools[t]
	if p == nil {
		return
	}
	p.Current -= amount
	if p.Current < 0 {
		p.Current = 0
	}
}

// Snapshot copies every pool out for inspection without exposing the
// internal mutable structures.
func (l *Ledger) Snapshot() map[Type]Pool {
	out := make(map[Type]Pool, len(l.pools))
	for t, p := range l.pools {
		out[t] = *p
	}
	return out
}

// AvailableByType copies out the agent-visible quantities.
func (l *Ledger) AvailableByType() map[Type]int {
	out := make(map[Type]int, len(l.pools))
	for t, p := range l.pools {
		out[t] = p.Available()
	}
	return out
}

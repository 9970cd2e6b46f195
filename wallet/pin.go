package wallet

import "sync"

// PinDecision is the outcome of a PIN prompt.
type PinDecision struct {
	Accepted bool
	Pin      string
}

// PinGate is a one-shot rendezvous bridging a blocking UI
// confirmation with a waiting asynchronous task. At most one prompt
// is outstanding at a time.
//
// Arming while a prompt is already outstanding abandons the earlier
// channel: its waiter will never receive and must give up via its
// own context.
type PinGate struct {
	mu   sync.Mutex
	slot chan PinDecision
}

// Arm registers a new prompt and returns the channel its decision
// will arrive on.
func (p *PinGate) Arm() <-chan PinDecision {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.slot = make(chan PinDecision, 1)
	return p.slot
}

// Armed reports whether a prompt is outstanding.
func (p *PinGate) Armed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.slot != nil
}

// Resolve delivers the decision for the outstanding prompt and
// clears the slot. Resolving with no prompt armed is a caller
// defect, not a runtime condition, so it panics.
func (p *PinGate) Resolve(d PinDecision) {
	if !p.TryResolve(d) {
		panic("wallet: PIN gate resolved with nothing armed")
	}
}

// TryResolve is Resolve for callers that cannot rule out a racing
// resolution, such as concurrent RPC requests. It reports whether a
// prompt was armed; delivery and clearing happen atomically, so at
// most one of several concurrent calls returns true.
func (p *PinGate) TryResolve(d PinDecision) bool {
	p.mu.Lock()
	slot := p.slot
	p.slot = nil
	p.mu.Unlock()
	if slot == nil {
		return false
	}
	slot <- d
	return true
}

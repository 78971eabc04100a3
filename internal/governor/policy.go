package governor

import "time"

// Policy is the throttle behavior for one route class. Exemptions live here
// as an explicit flag instead of conditionals scattered across call sites.
type Policy struct {
	Class string
	// Threshold is the request count allowed per caller key inside Window
	// before delays kick in.
	Threshold int
	Window    time.Duration
	// Penalty is added to the response delay for every request over the
	// threshold, absorbing legitimate bursts instead of hard-rejecting.
	Penalty time.Duration
	// MaxDelay caps the computed delay; overage beyond it is rejected.
	MaxDelay time.Duration
	Exempt   bool
}

// PolicyTable maps route classes to policies, with a default for classes
// not listed. Evaluated once per request.
type PolicyTable struct {
	byClass     map[string]Policy
	defaultPool Policy
}

// NewPolicyTable builds a table from explicit policies and a fallback.
func NewPolicyTable(def Policy, policies ...Policy) *PolicyTable {
	t := &PolicyTable{
		byClass:     make(map[string]Policy, len(policies)),
		defaultPool: def,
	}
	for _, p := range policies {
		t.byClass[p.Class] = p
	}
	return t
}

// Lookup resolves the policy for a route class.
func (t *PolicyTable) Lookup(class string) Policy {
	if p, ok := t.byClass[class]; ok {
		return p
	}
	p := t.defaultPool
	p.Class = class
	return p
}

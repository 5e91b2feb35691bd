// Package actor identifies who performed a lifecycle transition: a
// registered operator/user, or the engine itself acting unattended (the
// expiry sweeper, the capacity trigger's backstop).
package actor

// System is the sentinel actor id recorded for engine-initiated transitions
// (spec §3 AuditLog "actor id (nullable)" — the engine records "system"
// rather than leaving it ambiguous with a genuinely-unknown actor).
const System = "system"

// Actor identifies the party responsible for a mutation.
type Actor struct {
	ID string
}

// User builds an Actor for a registered user or operator.
func User(id string) Actor {
	return Actor{ID: id}
}

// IsSystem reports whether a is the engine acting on its own behalf.
func (a Actor) IsSystem() bool {
	return a.ID == System || a.ID == ""
}

// SystemActor is the engine's own actor identity.
var SystemActor = Actor{ID: System}

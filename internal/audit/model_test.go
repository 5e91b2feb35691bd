package audit

import "testing"

func TestActionConstants(t *testing.T) {
	actions := []Action{ActionCreated, ActionConfirmed, ActionModified, ActionCanceled, ActionCompleted, ActionNoShow}
	seen := map[Action]bool{}
	for _, a := range actions {
		if seen[a] {
			t.Fatalf("duplicate action constant: %s", a)
		}
		seen[a] = true
	}
}

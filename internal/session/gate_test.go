package session

import "testing"

var allRoles = []Role{RoleAdmin, RoleOffice, RoleWorker}

func TestGateAllRolePairs(t *testing.T) {
	for _, subtree := range allRoles {
		for _, visitor := range allRoles {
			got := Gate(Identity{SubjectID: "1", Role: visitor}, nil, subtree)
			want := GateUnauthorized
			if subtree == visitor {
				want = GateAuthorized
			}
			if got != want {
				t.Errorf("subtree %s visitor %s: got %s want %s", subtree, visitor, got, want)
			}
		}
	}
}

func TestGateWithoutCredentialAlwaysUnauthenticated(t *testing.T) {
	for _, subtree := range allRoles {
		if got := Gate(Identity{}, ErrNoCredential, allRoles...); got != GateUnauthenticated {
			t.Errorf("subtree %s: got %s", subtree, got)
		}
	}
}

func TestGateDecodeFailureFailsClosed(t *testing.T) {
	got := Gate(Identity{SubjectID: "1", Role: RoleAdmin}, ErrDecodeFailed, RoleAdmin)
	if got != GateUnauthenticated {
		t.Fatalf("expected unauthenticated, got %s", got)
	}
}

func TestGateMultipleAllowedRoles(t *testing.T) {
	id := Identity{SubjectID: "9", Role: RoleOffice}
	if Gate(id, nil, RoleAdmin, RoleOffice) != GateAuthorized {
		t.Fatal("office should pass an admin+office gate")
	}
	if Gate(id, nil) != GateUnauthorized {
		t.Fatal("empty allowed set admits nobody")
	}
}

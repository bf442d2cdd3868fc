package contracts

import "testing"

func TestProposalStatus_CanTransition(t *testing.T) {
	cases := []struct {
		from, to ProposalStatus
		want     bool
	}{
		{StatusProposed, StatusApproved, true},
		{StatusProposed, StatusRejected, true},
		{StatusProposed, StatusExecuted, false},
		{StatusApproved, StatusExecuted, true},
		{StatusApproved, StatusRejected, false},
		{StatusRejected, StatusApproved, false},
		{StatusRejected, StatusExecuted, false},
		{StatusExecuted, StatusApproved, false},
	}

	for _, c := range cases {
		if got := c.from.CanTransition(c.to); got != c.want {
			t.Errorf("CanTransition(%s -> %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestProposalStatus_Terminal(t *testing.T) {
	if StatusProposed.Terminal() {
		t.Error("proposed should not be terminal")
	}
	if StatusApproved.Terminal() {
		t.Error("approved should not be terminal")
	}
	if !StatusRejected.Terminal() {
		t.Error("rejected should be terminal")
	}
	if !StatusExecuted.Terminal() {
		t.Error("executed should be terminal")
	}
}

func TestDirection_Constants(t *testing.T) {
	if DirectionLong != "long" {
		t.Errorf("DirectionLong = %s, want long", DirectionLong)
	}
	if DirectionShort != "short" {
		t.Errorf("DirectionShort = %s, want short", DirectionShort)
	}
}

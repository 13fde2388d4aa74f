package model

import "testing"

func TestValidTransition(t *testing.T) {
	allowed := [][2]string{
		{StatusPreparing, StatusReady},
		{StatusReady, StatusDelivered},
	}
	for _, tr := range allowed {
		if !ValidTransition(tr[0], tr[1]) {
			t.Errorf("%s -> %s should be allowed", tr[0], tr[1])
		}
	}

	denied := [][2]string{
		{StatusPreparing, StatusDelivered},
		{StatusReady, StatusPreparing},
		{StatusDelivered, StatusReady},
		{StatusDelivered, StatusDelivered},
		{"unknown", StatusReady},
	}
	for _, tr := range denied {
		if ValidTransition(tr[0], tr[1]) {
			t.Errorf("%s -> %s must be denied", tr[0], tr[1])
		}
	}
}

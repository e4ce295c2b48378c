package utils

import "testing"

func TestMath_MinMax(t *testing.T) {
	if got := Min(2, 5); got != 2 {
		t.Errorf("Min expected to be 2. Got %v", got)
	}
	if got := Min(1.5, -1.5); got != -1.5 {
		t.Errorf("Min expected to be -1.5. Got %v", got)
	}
	if got := Max(2, 5); got != 5 {
		t.Errorf("Max expected to be 5. Got %v", got)
	}
	if got := Max(-3, -7); got != -3 {
		t.Errorf("Max expected to be -3. Got %v", got)
	}
}

func TestMath_Clamp(t *testing.T) {
	if got := Clamp(0.5, 1.0, 5.0); got != 1.0 {
		t.Errorf("Clamp expected to raise to the lower bound. Got %v", got)
	}
	if got := Clamp(7.0, 1.0, 5.0); got != 5.0 {
		t.Errorf("Clamp expected to cap at the upper bound. Got %v", got)
	}
	if got := Clamp(3.0, 1.0, 5.0); got != 3.0 {
		t.Errorf("Clamp expected to pass an in-range value through. Got %v", got)
	}
}

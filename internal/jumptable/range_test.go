package jumptable

import "testing"

func TestNewCodeRangeValidation(t *testing.T) {
	if _, err := NewCodeRange(0x100, 0x100); err == nil {
		t.Error("min == max should be rejected")
	}
	if _, err := NewCodeRange(0x200, 0x100); err == nil {
		t.Error("min > max should be rejected")
	}
	if _, err := NewCodeRange(0x100, 0x200); err != nil {
		t.Errorf("valid range rejected: %v", err)
	}
}

func TestContainsBoundaries(t *testing.T) {
	rng, err := NewCodeRange(0x00100000, 0x0010FFFF)
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		addr uint64
		want bool
	}{
		{0x000FFFFF, false},
		{0x00100000, true}, // min inclusive
		{0x00108000, true},
		{0x0010FFFE, true},
		{0x0010FFFF, false}, // max exclusive
		{0x00110000, false},
	}
	for _, c := range cases {
		if got := rng.Contains(c.addr); got != c.want {
			t.Errorf("Contains(0x%08X) = %v, want %v", c.addr, got, c.want)
		}
	}
}

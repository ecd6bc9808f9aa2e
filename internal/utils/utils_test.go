package utils

import "testing"

func TestAtoiDefault(t *testing.T) {
	cases := []struct {
		in   string
		def  int
		want int
	}{
		{"", 7, 7},
		{"42", 7, 42},
		{"-3", 7, -3},
		{"4.2", 7, 7},
		{"forty", 7, 7},
	}
	for _, cse := range cases {
		if got := AtoiDefault(cse.in, cse.def); got != cse.want {
			t.Fatalf("AtoiDefault(%q, %d) = %d, want %d", cse.in, cse.def, got, cse.want)
		}
	}
}

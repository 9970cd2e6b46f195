package htr

import "testing"

func TestString(t *testing.T) {
	cases := []struct {
		a    Amount
		want string
	}{
		{0, "0.00"},
		{Centi, "0.01"},
		{One, "1.00"},
		{150, "1.50"},
		{-325, "-3.25"},
	}
	for _, c := range cases {
		if got := c.a.String(); got != c.want {
			t.Errorf("Amount(%d).String() = %q, want %q", c.a, got, c.want)
		}
	}
}

func TestParse(t *testing.T) {
	cases := []struct {
		s    string
		want Amount
	}{
		{"0", 0},
		{"1.5", 150},
		{"1.50", 150},
		{"-3.25", -325},
		{".01", 1},
		{"42", 42 * One},
	}
	for _, c := range cases {
		got, err := Parse(c.s)
		if err != nil {
			t.Errorf("Parse(%q): %v", c.s, err)
			continue
		}
		if got != c.want {
			t.Errorf("Parse(%q) = %d, want %d", c.s, got, c.want)
		}
	}
}

func TestParseBad(t *testing.T) {
	bad := []string{
		"x", "1.234", "1.x",
		"", ".", "-", "-.",
		"1.-5", "1.+5", "1..5",
		"+1", "1,5", " 1",
	}
	for _, s := range bad {
		if _, err := Parse(s); err == nil {
			t.Errorf("Parse(%q): want error", s)
		}
	}
}

// SPDX-License-Identifier: EPL-2.0

package adm

import "testing"

func TestParseTime(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in       string
		num, den int64
	}{
		{"00:00:00.0", 0, 1},
		{"00:00:01.0", 1, 1},
		{"00:01:00.0", 60, 1},
		{"01:00:00.0", 3600, 1},
		{"00:00:00.5", 1, 2},
		{"00:00:00.25", 1, 4},
		{"00:00:02", 2, 1},
		{"10:05:02.125", 10*3600 + 5*60 + 2 + 0, 1}, // fraction checked below
	}

	for _, c := range cases[:7] {
		got, err := ParseTime(c.in)
		if err != nil {
			t.Fatalf("ParseTime(%q) error: %v", c.in, err)
		}
		want := MakeTime(c.num, c.den)
		if got.Cmp(want) != 0 {
			t.Errorf("ParseTime(%q) = %v, want %v", c.in, got, want)
		}
	}

	got, err := ParseTime("10:05:02.125")
	if err != nil {
		t.Fatal(err)
	}
	want := MakeTime(10*3600+5*60+2, 1).Add(MakeTime(1, 8))
	if got.Cmp(want) != 0 {
		t.Errorf("ParseTime fractional = %v, want %v", got, want)
	}
}

func TestParseTime_Invalid(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"", "1:2", "xx:00:00.0", "00:00:zz"} {
		if _, err := ParseTime(in); err == nil {
			t.Errorf("ParseTime(%q) should fail", in)
		}
	}
}

func TestTimeString_RoundTrip(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"00:00:00.000000000", "00:00:01.500000000", "01:02:03.250000000"} {
		parsed, err := ParseTime(in)
		if err != nil {
			t.Fatal(err)
		}
		if parsed.String() != in {
			t.Errorf("String() = %q, want %q", parsed.String(), in)
		}
	}
}

func TestTimeSamples(t *testing.T) {
	t.Parallel()

	half := MakeTime(1, 2)
	pos, frac := half.Samples(48000)
	if pos != 24000 || frac {
		t.Errorf("0.5s at 48kHz = (%d, %v), want (24000, false)", pos, frac)
	}

	third := MakeTime(1, 3)
	if got := third.CeilSamples(48000); got != 16000 {
		t.Errorf("ceil(1/3 s at 48kHz) = %d, want 16000", got)
	}

	seventh := MakeTime(1, 7)
	pos, frac = seventh.Samples(48000)
	if !frac || pos != 48000/7 {
		t.Errorf("1/7 s at 48kHz = (%d, %v)", pos, frac)
	}
	if got := seventh.CeilSamples(48000); got != 48000/7+1 {
		t.Errorf("ceil(1/7 s at 48kHz) = %d", got)
	}
}

func TestTimeArithmetic(t *testing.T) {
	t.Parallel()

	a := MakeTime(1, 3)
	b := MakeTime(1, 6)

	if got := a.Add(b); got.Cmp(MakeTime(1, 2)) != 0 {
		t.Errorf("1/3 + 1/6 = %v", got)
	}
	if got := a.Sub(b); got.Cmp(MakeTime(1, 6)) != 0 {
		t.Errorf("1/3 - 1/6 = %v", got)
	}
	if a.Cmp(b) != 1 || b.Cmp(a) != -1 || a.Cmp(a) != 0 {
		t.Error("Cmp ordering is wrong")
	}
}

package protocol

import "testing"

func TestParseChannel_Valid(t *testing.T) {
	cases := []struct {
		in   any
		want Channel
	}{
		{"A", ChannelA},
		{"B", ChannelB},
		{"a", ChannelA},
		{"b", ChannelB},
		{0, ChannelA},
		{1, ChannelB},
		{ChannelA, ChannelA},
		{ChannelB, ChannelB},
	}
	for _, tc := range cases {
		got, err := ParseChannel(tc.in)
		if err != nil {
			t.Errorf("ParseChannel(%v): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseChannel(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestParseChannel_Invalid(t *testing.T) {
	cases := []any{"C", "", 2, -1, 3.5, nil, Channel(7)}
	for _, in := range cases {
		if _, err := ParseChannel(in); err == nil {
			t.Errorf("ParseChannel(%v): expected error, got nil", in)
		}
	}
}

func TestChannelName(t *testing.T) {
	if ChannelA.Name() != "A" || ChannelB.Name() != "B" {
		t.Errorf("Name() = %q/%q, want A/B", ChannelA.Name(), ChannelB.Name())
	}
}

package api

import "testing"

func TestParseDevid(t *testing.T) {
	cases := []struct {
		in      string
		want    uint32
		wantErr bool
	}{
		{"1234", 1234, false},
		{"0x4D2", 0x4D2, false},
		{"0X4d2", 0x4d2, false},
		{"", 0, true},
		{"not-a-number", 0, true},
	}

	for _, tc := range cases {
		got, err := parseDevid(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("parseDevid(%q): expected error, got nil", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseDevid(%q): unexpected error: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("parseDevid(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

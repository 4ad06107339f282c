package format

import "testing"

func TestHumanizeBytes(t *testing.T) {
	const kb, mb, gb, tb = int64(1024), int64(1024 * 1024), int64(1024 * 1024 * 1024), int64(1024 * 1024 * 1024 * 1024)

	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{1, "1 B"},
		{kb - 1, "1023 B"},
		{kb, "1.0 KB"},
		{kb + kb/2, "1.5 KB"},
		{mb, "1.0 MB"},
		{50 * mb, "50.0 MB"},
		{gb, "1.0 GB"},
		{gb + gb/2, "1.5 GB"},
		{tb, "1.0 TB"},
		{1023 * tb, "1023.0 TB"},
		{1024 * tb, "1.0 PB"},
	}
	for _, tt := range tests {
		if got := HumanizeBytes(tt.in); got != tt.want {
			t.Errorf("HumanizeBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

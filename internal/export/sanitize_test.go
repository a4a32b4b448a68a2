package export

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestSanitizeName(t *testing.T) {
	cases := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"plain", "intro", 100, "intro"},
		{"allowed punctuation", "Take 2 - wide (alt), v1.5_b", 100, "Take 2 - wide (alt), v1.5_b"},
		{"unicode letters", "café süß 東京", 100, "café süß 東京"},
		{"path separators", "intro/outro\\final", 100, "intro_outro_final"},
		{"shell metacharacters", "a<b>c|d\"e*f?g:h", 100, "a_b_c_d_e_f_g_h"},
		{"control chars dropped", " A\nB\rC\tD\x00 ", 100, "ABCD"},
		{"whitespace only", "   \t ", 100, ""},
		{"truncated by runes", "ééééééé", 4, "éééé"},
		{"truncation trims trailing space", "abc defgh", 4, "abc"},
		{"no limit", "abcdefghijklmnopqrstuvwxyz", 0, "abcdefghijklmnopqrstuvwxyz"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeName(tc.in, tc.max); got != tc.want {
				t.Errorf("SanitizeName(%q, %d) = %q, want %q", tc.in, tc.max, got, tc.want)
			}
		})
	}
}

func TestValidateOutputDir(t *testing.T) {
	tmp := t.TempDir()
	file := filepath.Join(tmp, "clips.json")
	if err := os.WriteFile(file, []byte("[]"), 0o644); err != nil {
		t.Fatalf("failed to create file: %v", err)
	}

	if err := ValidateOutputDir(tmp); err != nil {
		t.Fatalf("ValidateOutputDir(%q) error = %v, want nil", tmp, err)
	}

	bad := []struct {
		dir    string
		reason string
	}{
		{"", "no folder selected"},
		{"  ", "no folder selected"},
		{filepath.Join(tmp, "missing"), "does not exist"},
		{file, "is not a directory"},
		{tmp + "/./sub", "path is not clean"},
		{"../exports", "path leaves its root"},
	}

	for _, tc := range bad {
		err := ValidateOutputDir(tc.dir)
		var fe *FolderError
		if !errors.As(err, &fe) {
			t.Errorf("ValidateOutputDir(%q) = %v, want *FolderError", tc.dir, err)
			continue
		}
		if fe.Reason != tc.reason {
			t.Errorf("ValidateOutputDir(%q) reason = %q, want %q", tc.dir, fe.Reason, tc.reason)
		}
	}
}

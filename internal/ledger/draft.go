package ledger

import "fmt"

// Draft is the uncommitted candidate clip. Start and End are filled at
// different moments from the external player; an empty string means unset.
type Draft struct {
	Start string `json:"start_time"`
	End   string `json:"end_time"`
}

// Complete reports whether both ends are set.
func (d Draft) Complete() bool {
	return d.Start != "" && d.End != ""
}

// Clear unsets both fields.
func (d *Draft) Clear() {
	d.Start = ""
	d.End = ""
}

// ClipName synthesizes basename_ordinal, suffixed with _custom when custom
// is non-empty.
func ClipName(basename string, ordinal int, custom string) string {
	if custom == "" {
		return fmt.Sprintf("%s_%d", basename, ordinal)
	}
	return fmt.Sprintf("%s_%d_%s", basename, ordinal, custom)
}

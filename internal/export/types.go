package export

// ResolvedClip is a ledger clip with its range converted to seconds.
type ResolvedClip struct {
	ClipName  string
	MediaPath string
	StartSec  int
	EndSec    int
}

// DefaultFrameRate is used when the media frame rate is unknown.
const DefaultFrameRate = 30.0

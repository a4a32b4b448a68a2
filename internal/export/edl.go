package export

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/clipmarker/clipmarker-agent/internal/ledger"
	"github.com/clipmarker/clipmarker-agent/internal/timecode"
)

// GenerateEDL renders clips as a CMX3600 edit list, laid back to back on
// the record side in ledger order.
func GenerateEDL(clips []ResolvedClip, title string, frameRate float64) string {
	isDropFrame := math.Abs(frameRate-29.97) < 0.01 || math.Abs(frameRate-59.94) < 0.01

	lines := []string{fmt.Sprintf("TITLE: %s", title)}
	if isDropFrame {
		lines = append(lines, "FCM: DROP FRAME")
	} else {
		lines = append(lines, "FCM: NON-DROP FRAME")
	}
	lines = append(lines, "")

	recordOffset := 0
	for i, clip := range clips {
		duration := clip.EndSec - clip.StartSec
		lines = append(lines,
			fmt.Sprintf("%03d  %-8s %-5s C        %s %s %s %s", i+1, "AX", "V",
				secondsToTimecode(clip.StartSec),
				secondsToTimecode(clip.EndSec),
				secondsToTimecode(recordOffset),
				secondsToTimecode(recordOffset+duration)),
			fmt.Sprintf("* FROM CLIP NAME:  %s", clip.ClipName),
		)
		if clip.MediaPath != "" {
			lines = append(lines, fmt.Sprintf("* MEDIA PATH:  %s", clip.MediaPath))
		}

		recordOffset += duration
	}

	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

// secondsToTimecode renders whole seconds as HH:MM:SS:FF. Frames are
// always zero since the ledger has one-second resolution.
func secondsToTimecode(sec int) string {
	hours := sec / 3600
	minutes := (sec % 3600) / 60
	seconds := sec % 60
	return fmt.Sprintf("%02d:%02d:%02d:%02d", hours, minutes, seconds, 0)
}

// Resolve converts ledger clips to second ranges in ledger order.
func Resolve(clips []ledger.Clip) ([]ResolvedClip, error) {
	out := make([]ResolvedClip, 0, len(clips))
	for _, c := range clips {
		start, err := timecode.Parse(c.Start)
		if err != nil {
			return nil, fmt.Errorf("clip %d start: %w", c.Ordinal, err)
		}
		end, err := timecode.Parse(c.End)
		if err != nil {
			return nil, fmt.Errorf("clip %d end: %w", c.Ordinal, err)
		}
		name := SanitizeName(c.Name, 160)
		if name == "" {
			name = fmt.Sprintf("clip_%d", c.Ordinal)
		}
		out = append(out, ResolvedClip{
			ClipName:  name,
			MediaPath: c.Path,
			StartSec:  start,
			EndSec:    end,
		})
	}
	return out, nil
}

// WriteEDL renders clips into dir/<title>.edl and returns the file path.
func WriteEDL(dir, title string, clips []ledger.Clip) (string, error) {
	if err := ValidateOutputDir(dir); err != nil {
		return "", err
	}

	resolved, err := Resolve(clips)
	if err != nil {
		return "", err
	}

	name := SanitizeName(title, 120)
	if name == "" {
		name = "clipmarker_export"
	}

	outputPath := filepath.Join(dir, name+".edl")
	edl := GenerateEDL(resolved, name, DefaultFrameRate)
	if err := os.WriteFile(outputPath, []byte(edl), 0o644); err != nil {
		return "", fmt.Errorf("write edl: %w", err)
	}
	return outputPath, nil
}

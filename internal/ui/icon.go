package ui

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"sync"
)

const iconSize = 32

var (
	iconOnce  sync.Once
	iconLight []byte
	iconDark  []byte
)

// iconBytes returns the tray icon: a record dot on a transparent square,
// with a light ring in dark mode.
func iconBytes(dark bool) []byte {
	iconOnce.Do(func() {
		iconLight = renderIcon(color.RGBA{R: 0x33, G: 0x33, B: 0x33, A: 0xff})
		iconDark = renderIcon(color.RGBA{R: 0xee, G: 0xee, B: 0xee, A: 0xff})
	})
	if dark {
		return iconDark
	}
	return iconLight
}

func renderIcon(ring color.RGBA) []byte {
	img := image.NewNRGBA(image.Rect(0, 0, iconSize, iconSize))
	dot := color.RGBA{R: 0xe0, G: 0x2d, B: 0x2d, A: 0xff}

	c := float64(iconSize-1) / 2
	for y := 0; y < iconSize; y++ {
		for x := 0; x < iconSize; x++ {
			dx, dy := float64(x)-c, float64(y)-c
			d := dx*dx + dy*dy
			switch {
			case d <= 9*9:
				img.Set(x, y, dot)
			case d <= 14*14 && d >= 12*12:
				img.Set(x, y, ring)
			}
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil
	}
	return buf.Bytes()
}

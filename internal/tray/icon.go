// Package tray puts AccessDeck in the Windows notification area.
package tray

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"strings"
)

const iconSize = 32

// BrowserURL turns a listen address into a URL a local browser can open.
func BrowserURL(addr string) string {
	host := addr
	for _, wildcard := range []string{"0.0.0.0", "[::]"} {
		host = strings.Replace(host, wildcard, "localhost", 1)
	}
	if strings.HasPrefix(host, ":") {
		host = "localhost" + host
	}
	return "http://" + host
}

// generateIcon draws a page with a check mark and wraps the PNG in an ICO
// container, which is what the Windows tray expects.
func generateIcon() []byte {
	img := image.NewNRGBA(image.Rect(0, 0, iconSize, iconSize))
	page := color.NRGBA{R: 0xf5, G: 0xf7, B: 0xfa, A: 0xff}
	edge := color.NRGBA{R: 0x1f, G: 0x4e, B: 0x9c, A: 0xff}
	check := color.NRGBA{R: 0x1a, G: 0x9e, B: 0x4b, A: 0xff}

	for y := 3; y < 29; y++ {
		for x := 7; x < 25; x++ {
			c := page
			if x == 7 || x == 24 || y == 3 || y == 28 {
				c = edge
			}
			img.SetNRGBA(x, y, c)
		}
	}
	for y := 8; y <= 12; y += 4 {
		for x := 10; x < 22; x++ {
			img.SetNRGBA(x, y, edge)
		}
	}
	// check mark: short stroke down-right, long stroke up-right
	for i := 0; i < 4; i++ {
		img.SetNRGBA(11+i, 19+i, check)
		img.SetNRGBA(11+i, 20+i, check)
	}
	for i := 0; i < 8; i++ {
		img.SetNRGBA(15+i, 22-i, check)
		img.SetNRGBA(15+i, 23-i, check)
	}

	var pngBuf bytes.Buffer
	_ = png.Encode(&pngBuf, img)
	return wrapICO(pngBuf.Bytes(), iconSize)
}

func wrapICO(pngData []byte, size int) []byte {
	var buf bytes.Buffer
	// ICONDIR
	_ = binary.Write(&buf, binary.LittleEndian, [3]uint16{0, 1, 1})
	// ICONDIRENTRY
	dim := byte(size)
	if size >= 256 {
		dim = 0
	}
	buf.Write([]byte{dim, dim, 0, 0})
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(32))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(pngData)))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(6+16))
	buf.Write(pngData)
	return buf.Bytes()
}

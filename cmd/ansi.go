package cmd

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/nfnt/resize"
)

// renderAnsiArt decodes a raster image resource and converts it to ANSI art
func renderAnsiArt(data []byte, width, height int) (string, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}
	return imageToAnsi(img, width, height), nil
}

// imageToAnsi converts an image to ANSI art. Each character cell covers a
// 2x2 pixel block: the upper pair averages into the foreground of the upper
// half block, the lower pair into its background.
func imageToAnsi(img image.Image, width, height int) string {
	resized := resize.Resize(uint(width*2), uint(height*2), img, resize.Lanczos3)
	bounds := resized.Bounds()

	pair := func(x, y int) color.Color {
		var sum colorful.Color
		for dx := 0; dx < 2; dx++ {
			var c colorful.Color // black outside the image
			if p := image.Pt(bounds.Min.X+x+dx, bounds.Min.Y+y); p.In(bounds) {
				c, _ = colorful.MakeColor(resized.At(p.X, p.Y))
			}
			sum.R, sum.G, sum.B = sum.R+c.R, sum.G+c.G, sum.B+c.B
		}
		r, g, b := colorful.Color{R: sum.R / 2, G: sum.G / 2, B: sum.B / 2}.Clamped().RGB255()
		return color.RGBA{R: r, G: g, B: b, A: 255}
	}

	var buffer strings.Builder
	for y := 0; y < height*2; y += 2 {
		for x := 0; x < width*2; x += 2 {
			buffer.WriteString(ansiColorString('▀', pair(x, y), pair(x, y+1)))
		}
		buffer.WriteString("\n")
	}

	return strings.TrimSuffix(buffer.String(), "\n")
}

// ansiColorString formats a character with 24-bit ANSI color codes
func ansiColorString(char rune, fg, bg color.Color) string {
	// RGBA() returns values in range 0-65535
	r1, g1, b1, _ := fg.RGBA()
	r2, g2, b2, _ := bg.RGBA()

	return fmt.Sprintf("\x1b[38;2;%d;%d;%dm\x1b[48;2;%d;%d;%dm%c\x1b[0m",
		r1>>8, g1>>8, b1>>8, r2>>8, g2>>8, b2>>8, char)
}

// stripAnsi removes ANSI escape sequences from a string
func stripAnsi(s string) string {
	var result strings.Builder
	inEscape := false
	for _, c := range s {
		if inEscape {
			if c == 'm' {
				inEscape = false
			}
		} else if c == '\033' {
			inEscape = true
		} else {
			result.WriteRune(c)
		}
	}
	return result.String()
}

// wrapText wraps text to a specified width
func wrapText(text string, width int) []string {
	if width < 10 {
		width = 40 // Use a sensible default if width is too small
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{""}
	}

	var result []string
	var currentLine string
	for _, word := range words {
		if len(currentLine) == 0 {
			currentLine = word
		} else if len(currentLine)+1+len(word) <= width {
			currentLine += " " + word
		} else {
			result = append(result, currentLine)
			currentLine = word
		}
	}
	if currentLine != "" {
		result = append(result, currentLine)
	}

	return result
}

package texture

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/achilleasa/lumen/asset"
	"github.com/achilleasa/lumen/types"
)

const (
	rgbeMagic      = "#?"
	rgbeFormat     = "FORMAT=32-bit_rle_rgbe"
	rgbeMaxRLEWide = 0x7fff
)

// Decode a Radiance RGBE (.hdr) image into a 3-channel floating point
// texture. Only the standard -Y +X scanline orientation is supported.
func decodeRGBE(r *bufio.Reader) (*Texture, error) {
	width, height, err := readRGBEHeader(r)
	if err != nil {
		return nil, err
	}

	tex := &Texture{
		Width:    uint32(width),
		Height:   uint32(height),
		Channels: 3,
		Radiance: make([]types.Vec3, 0, width*height),
	}

	scanline := make([]byte, 4*width)
	for y := 0; y < height; y++ {
		if err = readRGBEScanline(r, scanline, width); err != nil {
			return nil, fmt.Errorf("hdr: scanline %d: %w", y, err)
		}
		for x := 0; x < width; x++ {
			tex.Radiance = append(tex.Radiance, rgbeToFloat(scanline[4*x:4*x+4]))
		}
	}

	return tex, nil
}

func readRGBEHeader(r *bufio.Reader) (width, height int, err error) {
	line, err := r.ReadString('\n')
	if err != nil || !strings.HasPrefix(line, rgbeMagic) {
		return 0, 0, fmt.Errorf("hdr: missing %q signature", rgbeMagic)
	}

	// Header variables end with an empty line
	for {
		line, err = r.ReadString('\n')
		if err != nil {
			return 0, 0, fmt.Errorf("hdr: truncated header: %w", err)
		}
		line = strings.TrimSpace(line)
		if line == "" {
			break
		}
		if strings.HasPrefix(line, "FORMAT=") && line != rgbeFormat {
			return 0, 0, fmt.Errorf("hdr: %w: %s", asset.ErrUnsupportedAssetFormat, line)
		}
	}

	line, err = r.ReadString('\n')
	if err != nil {
		return 0, 0, fmt.Errorf("hdr: missing resolution line: %w", err)
	}
	if _, err = fmt.Sscanf(line, "-Y %d +X %d", &height, &width); err != nil {
		return 0, 0, fmt.Errorf("hdr: %w: resolution %q", asset.ErrUnsupportedAssetFormat, strings.TrimSpace(line))
	}
	if width <= 0 || height <= 0 {
		return 0, 0, fmt.Errorf("hdr: invalid image dimensions %dx%d", width, height)
	}
	return width, height, nil
}

// Read a scanline into dst as interleaved RGBE quadruplets. Scanlines are
// either stored flat or as four run-length encoded channel planes.
func readRGBEScanline(r *bufio.Reader, dst []byte, width int) error {
	if _, err := io.ReadFull(r, dst[:4]); err != nil {
		return err
	}

	if width < 8 || width > rgbeMaxRLEWide || dst[0] != 2 || dst[1] != 2 || dst[2]&0x80 != 0 {
		_, err := io.ReadFull(r, dst[4:])
		return err
	}
	if encWidth := int(dst[2])<<8 | int(dst[3]); encWidth != width {
		return fmt.Errorf("encoded width %d does not match image width %d", encWidth, width)
	}

	for channel := 0; channel < 4; channel++ {
		for x := 0; x < width; {
			count, err := r.ReadByte()
			if err != nil {
				return err
			}

			if count > 128 {
				run := int(count) - 128
				if x+run > width {
					return fmt.Errorf("run length exceeds scanline width")
				}
				val, err := r.ReadByte()
				if err != nil {
					return err
				}
				for ; run > 0; run-- {
					dst[4*x+channel] = val
					x++
				}
				continue
			}

			if count == 0 || x+int(count) > width {
				return fmt.Errorf("invalid literal run length %d", count)
			}
			for ; count > 0; count-- {
				val, err := r.ReadByte()
				if err != nil {
					return err
				}
				dst[4*x+channel] = val
				x++
			}
		}
	}
	return nil
}

func rgbeToFloat(rgbe []byte) types.Vec3 {
	if rgbe[3] == 0 {
		return types.Vec3{}
	}
	f := float32(math.Ldexp(1, int(rgbe[3])-(128+8)))
	return types.Vec3{float32(rgbe[0]) * f, float32(rgbe[1]) * f, float32(rgbe[2]) * f}
}

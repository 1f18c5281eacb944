package slides

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math/bits"
	"os"

	"golang.org/x/image/draw"
)

const hashSize = 8 // 8x8 grayscale grid -> 64-bit average hash

// averageHash computes an 8x8 average hash of the image at path, the same
// family of perceptual hash used to tell two video frames are "the same
// slide" despite minor compression/encoding noise.
func averageHash(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return 0, fmt.Errorf("decoding image: %w", err)
	}

	small := image.NewGray(image.Rect(0, 0, hashSize, hashSize))
	draw.BiLinear.Scale(small, small.Bounds(), img, img.Bounds(), draw.Over, nil)

	var sum int
	pixels := make([]uint8, 0, hashSize*hashSize)
	for y := 0; y < hashSize; y++ {
		for x := 0; x < hashSize; x++ {
			g := small.GrayAt(x, y).Y
			pixels = append(pixels, g)
			sum += int(g)
		}
	}
	avg := sum / (hashSize * hashSize)

	var hash uint64
	for i, g := range pixels {
		if int(g) >= avg {
			hash |= 1 << uint(i)
		}
	}
	return hash, nil
}

// hammingDistance counts differing bits between two hashes.
func hammingDistance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}

// dedupeByPerceptualHash drops slides whose average hash is within a small
// Hamming distance of a slide already kept, preferring the earlier
// (chronologically first) of each near-duplicate pair.
func dedupeByPerceptualHash(slides []Slide) ([]Slide, error) {
	const maxDistance = 6 // out of 64 bits; empirically "same scene"

	kept := make([]Slide, 0, len(slides))
	hashes := make([]uint64, 0, len(slides))

	for _, s := range slides {
		h, err := averageHash(s.Path)
		if err != nil {
			// An unreadable frame is dropped rather than failing the
			// whole run; ffmpeg can produce an empty file at the very
			// end of a video's duration.
			continue
		}

		duplicate := false
		for _, kh := range hashes {
			if hammingDistance(h, kh) <= maxDistance {
				duplicate = true
				break
			}
		}
		if duplicate {
			continue
		}

		kept = append(kept, s)
		hashes = append(hashes, h)
	}

	return kept, nil
}

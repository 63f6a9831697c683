// Package mixer sums render units into a caller-owned stereo buffer.
package mixer

// Buffer is a caller-owned stereo output block. Left and Right may point into
// the same interleaved slice, in which case Stride is 2.
type Buffer struct {
	Left   []float32
	Right  []float32
	Stride int
	Frames int
}

// Interleaved wraps an interleaved stereo slice (L R L R ...).
func Interleaved(buf []float32) Buffer {
	if len(buf) < 2 {
		return Buffer{Stride: 2}
	}
	return Buffer{
		Left:   buf,
		Right:  buf[1:],
		Stride: 2,
		Frames: len(buf) / 2,
	}
}

// Planar wraps two non-interleaved channel slices.
func Planar(left, right []float32) Buffer {
	n := len(left)
	if len(right) < n {
		n = len(right)
	}
	return Buffer{Left: left, Right: right, Stride: 1, Frames: n}
}

// Valid reports whether every frame index addresses both channel slices.
func (b Buffer) Valid() bool {
	if b.Stride < 1 || b.Frames < 0 {
		return false
	}
	if b.Frames == 0 {
		return true
	}
	need := (b.Frames-1)*b.Stride + 1
	return len(b.Left) >= need && len(b.Right) >= need
}

// Slice returns frames [from, to) of b.
func (b Buffer) Slice(from, to int) Buffer {
	if from < 0 {
		from = 0
	}
	if to > b.Frames {
		to = b.Frames
	}
	if to <= from {
		return Buffer{Stride: b.Stride}
	}
	off := from * b.Stride
	return Buffer{
		Left:   b.Left[off:],
		Right:  b.Right[off:],
		Stride: b.Stride,
		Frames: to - from,
	}
}

// Add sums one stereo frame into the buffer.
func (b Buffer) Add(i int, l, r float32) {
	j := i * b.Stride
	b.Left[j] += l
	b.Right[j] += r
}

// Frame returns frame i.
func (b Buffer) Frame(i int) (float32, float32) {
	j := i * b.Stride
	return b.Left[j], b.Right[j]
}

// Scale multiplies every frame by g.
func (b Buffer) Scale(g float32) {
	for i := 0; i < b.Frames; i++ {
		j := i * b.Stride
		b.Left[j] *= g
		b.Right[j] *= g
	}
}

// Clear zeroes every frame.
func (b Buffer) Clear() {
	for i := 0; i < b.Frames; i++ {
		j := i * b.Stride
		b.Left[j] = 0
		b.Right[j] = 0
	}
}

package frame

// Mirror returns the horizontal mirror image of f:
// out[x, y] = f[w-1-x, y]. Applying it twice yields the original frame.
//
// Captures are mirrored once so that saved photos match the mirrored
// live preview shown to the user.
func Mirror(f *Frame) *Frame {
	out := make([]uint8, len(f.pix))
	stride := f.width * 4
	for y := 0; y < f.height; y++ {
		row := y * stride
		for x := 0; x < f.width; x++ {
			src := row + (f.width-1-x)*4
			dst := row + x*4
			copy(out[dst:dst+4], f.pix[src:src+4])
		}
	}
	return &Frame{width: f.width, height: f.height, pix: out}
}

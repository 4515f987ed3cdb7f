package vision

// jetLUT holds the classic blue-to-red jet ramp as a 256-entry RGB table,
// matching the colormap the activation overlays have always used.
var jetLUT [256][3]uint8

func init() {
	for i := range jetLUT {
		v := float64(i) / 255
		jetLUT[i] = [3]uint8{
			rampByte(1.5 - abs(4*v-3)),
			rampByte(1.5 - abs(4*v-2)),
			rampByte(1.5 - abs(4*v-1)),
		}
	}
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

func rampByte(x float64) uint8 {
	if x < 0 {
		x = 0
	}
	if x > 1 {
		x = 1
	}
	return uint8(x*255 + 0.5)
}

// jetColor maps a normalized activation value to its ramp color.
func jetColor(v float32) (r, g, b uint8) {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	c := jetLUT[int(v*255+0.5)]
	return c[0], c[1], c[2]
}

package jtag

// bitAt reads bit i of buf, LSB of buf[0] first. Bits past the end read 0.
func bitAt(buf []byte, i int) bool {
	if i/8 >= len(buf) {
		return false
	}
	return buf[i/8]&(1<<uint(i%8)) != 0
}

// copyBits copies n bits from src starting at srcOff into dst starting at
// dstOff. dst must be zeroed where bits are written.
func copyBits(dst []byte, dstOff int, src []byte, srcOff, n int) {
	for i := 0; i < n; i++ {
		if bitAt(src, srcOff+i) {
			j := dstOff + i
			dst[j/8] |= 1 << uint(j%8)
		}
	}
}

// sliceBits returns n bits of src starting at off, realigned to bit 0.
func sliceBits(src []byte, off, n int) []byte {
	out := make([]byte, (n+7)/8)
	copyBits(out, 0, src, off, n)
	return out
}

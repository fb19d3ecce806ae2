package leveled

// Payload is a plaintext value to be encoded into the slots of a plaintext.
// The concrete type picks the slot layout.
type Payload interface {
	fill(slots []float64)
}

// Scalar is replicated in every slot.
type Scalar float64

// Vector is laid out periodically: slot j holds v[j mod P] where P is the
// smallest power of two not below len(v). Coordinates between len(v) and P
// are zero. A rotate-and-add over log2(P) steps then sums the vector into
// every slot.
type Vector []float64

// Packed places its values in the leading slots and zeroes the rest.
type Packed []float64

func (s Scalar) fill(slots []float64) {
	for i := range slots {
		slots[i] = float64(s)
	}
}

func (v Vector) fill(slots []float64) {
	period := Period(len(v))
	for i := range slots {
		j := i % period
		if j < len(v) {
			slots[i] = v[j]
		} else {
			slots[i] = 0
		}
	}
}

func (p Packed) fill(slots []float64) {
	n := copy(slots, p)
	for i := n; i < len(slots); i++ {
		slots[i] = 0
	}
}

// Period returns the slot period used for a Vector of dimension d.
func Period(d int) int {
	p := 1
	for p < d {
		p <<= 1
	}
	return p
}

// FirstPeriod extracts the d leading coordinates of a decoded Vector.
func FirstPeriod(values []float64, d int) []float64 {
	out := make([]float64, d)
	copy(out, values)
	return out
}

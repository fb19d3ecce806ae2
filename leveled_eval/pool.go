package leveled

import "sync"

// slotPool hands out []float64 buffers sized to the slot count of one
// context. Buffers are always fully overwritten before use.
type slotPool struct {
	pool sync.Pool
}

func newSlotPool(slots int) *slotPool {
	return &slotPool{
		pool: sync.Pool{
			New: func() interface{} {
				return make([]float64, slots)
			},
		},
	}
}

func (p *slotPool) get() []float64 {
	return p.pool.Get().([]float64)
}

func (p *slotPool) put(buf []float64) {
	p.pool.Put(buf)
}

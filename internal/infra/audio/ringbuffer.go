package audio

// ringBuffer keeps the most recent samples so the start of speech that
// precedes onset detection is not clipped.
type ringBuffer struct {
	buffer []int16
	head   int
	filled int
}

func newRingBuffer(size int) *ringBuffer {
	return &ringBuffer{buffer: make([]int16, size)}
}

func (r *ringBuffer) Add(samples []int16) {
	if len(r.buffer) == 0 {
		return
	}
	for _, s := range samples {
		r.buffer[r.head] = s
		r.head = (r.head + 1) % len(r.buffer)
		if r.filled < len(r.buffer) {
			r.filled++
		}
	}
}

// Read returns the buffered samples oldest first.
func (r *ringBuffer) Read() []int16 {
	samples := make([]int16, r.filled)
	start := (r.head - r.filled + len(r.buffer)) % max(len(r.buffer), 1)
	for i := 0; i < r.filled; i++ {
		samples[i] = r.buffer[(start+i)%len(r.buffer)]
	}
	return samples
}

func (r *ringBuffer) Clear() {
	for i := range r.buffer {
		r.buffer[i] = 0
	}
	r.head = 0
	r.filled = 0
}

// SPDX-License-Identifier: MIT

package telemetry

// sampleRing is a fixed-capacity ring of samples, oldest evicted first.
// Not self-locking: the collector's mutex guards all access.
type sampleRing struct {
	buf  []Sample
	head int // next write position
	n    int // populated entries
}

func newSampleRing(capacity int) *sampleRing {
	if capacity < 1 {
		capacity = 1
	}
	return &sampleRing{buf: make([]Sample, capacity)}
}

func (r *sampleRing) append(s Sample) {
	r.buf[r.head] = s
	r.head = (r.head + 1) % len(r.buf)
	if r.n < len(r.buf) {
		r.n++
	}
}

func (r *sampleRing) len() int { return r.n }

// snapshot returns the samples in chronological order.
func (r *sampleRing) snapshot() []Sample {
	out := make([]Sample, 0, r.n)
	start := r.head - r.n
	if start < 0 {
		start += len(r.buf)
	}
	for i := 0; i < r.n; i++ {
		out = append(out, r.buf[(start+i)%len(r.buf)])
	}
	return out
}

/*
NAME
  history.go

DESCRIPTION
  history.go provides the frame history rings consulted by the predictors: a
  three-slot ring for main frames and a two-slot ring for the GPS home
  position. Slots are integer indices into a backing store owned by the
  decoder, not aliased references.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package blackbox

// mainHistory is the three-slot main frame ring. One slot is the write
// target for the frame being decoded; the other two hold the previous and
// previous-previous accepted frames.
type mainHistory struct {
	ring    [3][]int32
	cur     int
	prev    int
	prev2   int
	hasPrev bool
}

func (h *mainHistory) alloc(n int) {
	for i := range h.ring {
		h.ring[i] = make([]int32, n)
	}
	h.reset()
}

func (h *mainHistory) reset() {
	for i := range h.ring {
		for j := range h.ring[i] {
			h.ring[i][j] = 0
		}
	}
	h.cur, h.prev, h.prev2 = 0, 0, 0
	h.hasPrev = false
}

// current returns the write target for the frame being decoded.
func (h *mainHistory) current() []int32 { return h.ring[h.cur] }

// previous returns the last accepted frame, or nil before the first one.
func (h *mainHistory) previous() []int32 {
	if !h.hasPrev {
		return nil
	}
	return h.ring[h.prev]
}

// previous2 returns the frame before the last accepted one. After an
// I-frame, previous and previous2 both refer to that I-frame, so no older
// P-frame history carries across an intra frame.
func (h *mainHistory) previous2() []int32 {
	if !h.hasPrev {
		return nil
	}
	return h.ring[h.prev2]
}

// advanceIntra rotates the ring after an accepted I-frame: both previous
// slots alias the just-decoded frame.
func (h *mainHistory) advanceIntra() {
	h.prev = h.cur
	h.prev2 = h.cur
	h.cur = (h.cur + 1) % 3
	h.hasPrev = true
}

// advanceInter rotates the ring after an accepted P-frame.
func (h *mainHistory) advanceInter() {
	h.prev2 = h.prev
	h.prev = h.cur
	h.cur = (h.cur + 1) % 3
	h.hasPrev = true
}

// homeHistory is the two-slot GPS home ring: slot 0 is the decode target and
// slot 1 is the published home position that home-coordinate predictors
// reference. valid is set only once an H-frame has been published.
type homeHistory struct {
	ring  [2][]int32
	valid bool
}

func (h *homeHistory) alloc(n int) {
	for i := range h.ring {
		h.ring[i] = make([]int32, n)
	}
	h.valid = false
}

func (h *homeHistory) reset() {
	for i := range h.ring {
		for j := range h.ring[i] {
			h.ring[i][j] = 0
		}
	}
	h.valid = false
}

// publish copies the decode target into the published slot.
func (h *homeHistory) publish() {
	copy(h.ring[1], h.ring[0])
	h.valid = true
}

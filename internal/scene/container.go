package scene

import "fmt"

// Container is an arena of payloads. A layer owns one; a payload lives in
// exactly one container at a time and is addressed by its slot.
type Container struct {
	name   string
	origin Transform
	slots  []*Payload
	free   []int
	live   int
}

// NewContainer creates an empty arena.
func NewContainer(name string) *Container {
	return &Container{
		name:   name,
		origin: Identity(),
	}
}

// Name returns the container name.
func (c *Container) Name() string {
	return c.name
}

// Origin is the transform every payload in the container is drawn under.
func (c *Container) Origin() Transform {
	return c.origin
}

// SetOrigin replaces the container origin.
func (c *Container) SetOrigin(t Transform) {
	c.origin = t
}

// Put stores a payload and returns its slot. Freed slots are reused.
func (c *Container) Put(p *Payload) int {
	c.live++
	if n := len(c.free); n > 0 {
		slot := c.free[n-1]
		c.free = c.free[:n-1]
		c.slots[slot] = p
		return slot
	}
	c.slots = append(c.slots, p)
	return len(c.slots) - 1
}

// Take removes and returns the payload at slot.
func (c *Container) Take(slot int) (*Payload, error) {
	p := c.At(slot)
	if p == nil {
		return nil, fmt.Errorf("container %s: empty slot %d", c.name, slot)
	}
	c.slots[slot] = nil
	c.free = append(c.free, slot)
	c.live--
	return p, nil
}

// At returns the payload at slot, or nil.
func (c *Container) At(slot int) *Payload {
	if slot < 0 || slot >= len(c.slots) {
		return nil
	}
	return c.slots[slot]
}

// Len is the number of live payloads.
func (c *Container) Len() int {
	return c.live
}

// Reset drops every payload.
func (c *Container) Reset() {
	c.slots = nil
	c.free = nil
	c.live = 0
}

// Handle addresses one payload inside one container.
type Handle struct {
	Owner *Container
	Slot  int
}

// Payload resolves the handle.
func (h Handle) Payload() *Payload {
	if h.Owner == nil {
		return nil
	}
	return h.Owner.At(h.Slot)
}

// Valid reports whether the handle points at a live payload.
func (h Handle) Valid() bool {
	return h.Payload() != nil
}

// Move takes the payload out of its current container and puts it into dst.
func Move(h Handle, dst *Container) (Handle, error) {
	if h.Owner == dst {
		return h, nil
	}
	p, err := h.Owner.Take(h.Slot)
	if err != nil {
		return h, err
	}
	return Handle{Owner: dst, Slot: dst.Put(p)}, nil
}

// Rebase expresses an absolute stage matrix as a local transform inside dst.
func Rebase(abs Matrix, dst *Container) Transform {
	return dst.Origin().Matrix().Invert().Multiply(abs).Decompose()
}

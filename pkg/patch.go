package pkg

import (
	"sort"
)

// Mark records the cursor under label and returns it. Reusing a label
// replaces its offset.
func (c *BinaryWriter) Mark(label string) uint32 {
	c.labels[label] = c.pos
	return c.pos
}

func (c *BinaryWriter) Label(label string) (uint32, bool) {
	off, ok := c.labels[label]
	return off, ok
}

// Labels returns the recorded labels in sorted order.
func (c *BinaryWriter) Labels() []string {
	labels := make([]string, 0, len(c.labels))
	for l := range c.labels {
		labels = append(labels, l)
	}
	sort.Strings(labels)

	return labels
}

// Patch writes v at the offset recorded for label and leaves the cursor
// where it was.
func Patch[T Scalar](w *BinaryWriter, label string, v T) error {
	off, ok := w.labels[label]
	if !ok {
		return errLabel(label)
	}

	pos := w.pos
	w.pos = off
	Write(w, v)
	w.pos = pos

	return nil
}

package pkg

// MaxChunkOffset is the largest offset a chunk pointer can hold.
const MaxChunkOffset = 1<<24 - 1

// EncodeChunkPointer packs tag into bits 24-31 and offset into bits 0-23.
func EncodeChunkPointer(tag byte, offset uint32) (uint32, error) {
	if offset > MaxChunkOffset {
		return 0, errChunkOffset(tag, offset)
	}

	return uint32(tag)<<24 | offset, nil
}

func DecodeChunkPointer(word uint32) (tag byte, offset uint32) {
	return byte(word >> 24), word & MaxChunkOffset
}

// WriteChunkPointer writes a packed chunk pointer as a 32-bit value. Nothing
// is written if offset does not fit in 24 bits.
func (c *BinaryWriter) WriteChunkPointer(tag byte, offset uint32) error {
	word, err := EncodeChunkPointer(tag, offset)
	if err != nil {
		return err
	}

	c.WriteUint32(word)

	return nil
}

package pkg

import (
	"errors"
	"fmt"
)

var (
	ErrChunkOffsetRange   = errors.New("chunk pointer offset does not fit in 24 bits")
	ErrPositionStackEmpty = errors.New("position stack is empty")
	ErrInvalidAlignment   = errors.New("alignment must be positive")
	ErrUnknownLabel       = errors.New("unknown label")
	ErrArtifactExists     = errors.New("artifact already exists")
	ErrUnknownArtifact    = errors.New("unknown artifact")
	ErrInvalidPath        = errors.New("path escapes output directory")
	ErrSizeLimit          = errors.New("artifact size limit exceeded")
)

func errChunkOffset(tag byte, offset uint32) error {
	return fmt.Errorf("chunk pointer tag %#02x offset %#x: %w", tag, offset, ErrChunkOffsetRange)
}

func errLabel(label string) error {
	return fmt.Errorf("label %q: %w", label, ErrUnknownLabel)
}

func errFlushing(err error, path string) error {
	return fmt.Errorf("err flushing to %s: %w", path, err)
}

func errArtifact(err error, name string) error {
	return fmt.Errorf("artifact %s: %w", name, err)
}

func errBuilding(err error, path string) error {
	return fmt.Errorf("err building %s: %w", path, err)
}

func errSizeLimit(end uint64, limit uint32) error {
	return fmt.Errorf("end position %d past %d: %w", end, limit, ErrSizeLimit)
}

package pkg

const defaultCapacity = 256

// Option configures a BinaryWriter.
type Option func(*writerOptions)

type writerOptions struct {
	capacity int
}

func defaultOptions() *writerOptions {
	return &writerOptions{
		capacity: defaultCapacity,
	}
}

// WithCapacity sets the initial buffer capacity. It is only an allocation
// hint; the buffer grows as needed.
func WithCapacity(n int) Option {
	return func(o *writerOptions) {
		if n >= 0 {
			o.capacity = n
		}
	}
}

package repository

// Default store configuration constants.
const defaultWatchBufferSize = 16

type options struct {
	watchBufferSize int
}

func defaultOptions() options {
	return options{watchBufferSize: defaultWatchBufferSize}
}

// Option applies a configuration option to a store.
type Option func(*options)

// WithWatchBufferSize bounds each change-feed subscriber's channel.
func WithWatchBufferSize(size int) Option {
	return func(o *options) {
		if size > 0 {
			o.watchBufferSize = size
		}
	}
}

package chat

// ErrorAction defines the action to take when a read or write error
// occurs on a connection.
type ErrorAction int

const (
	// Disconnect closes the connection when an error occurs.
	Disconnect ErrorAction = iota
	// Continue suppresses the error and continues processing.
	Continue
)

// options holds the configuration for a connection.
type options struct {
	codec  Codec
	logger Logger

	onMessage func(message *Message) error
	// onError is called when a read/write error occurs.
	// Returns Disconnect to close the connection, Continue to suppress
	// the error.
	onError func(error) ErrorAction
}

// Option is a function that configures connection options.
type Option func(*options)

// CustomCodecOption returns an Option that replaces the frame codec.
// The default is FrameCodec, the chat wire format.
func CustomCodecOption(codec Codec) Option {
	return func(o *options) {
		o.codec = codec
	}
}

// OnMessageOption returns an Option that sets the message handler
// callback. The callback is required and is invoked for each received
// message.
func OnMessageOption(cb func(*Message) error) Option {
	return func(o *options) {
		o.onMessage = cb
	}
}

// OnErrorOption returns an Option that sets the error callback,
// invoked when a read/write error occurs. Return Disconnect to close
// the connection, or Continue to suppress the error.
func OnErrorOption(cb func(error) ErrorAction) Option {
	return func(o *options) {
		o.onError = cb
	}
}

// LoggerOption returns an Option that sets the logger.
// If not set, the default slog logger will be used.
func LoggerOption(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// checkOptions validates and sets default values for connection options.
func checkOptions(opts *options) error {
	if opts.onMessage == nil {
		return ErrInvalidOnMessage
	}

	if opts.codec == nil {
		opts.codec = FrameCodec{}
	}

	if opts.onError == nil {
		opts.onError = func(err error) ErrorAction { return Disconnect }
	}

	if opts.logger == nil {
		opts.logger = defaultLogger()
	}

	return nil
}

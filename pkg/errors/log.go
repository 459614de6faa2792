package errors

import "github.com/rs/zerolog"

// LogHandler is a Handler that writes errors to a zerolog logger.
type LogHandler struct {
	Logger zerolog.Logger
	// Verbose enables stack traces in the output.
	Verbose bool
}

// NewLogHandler returns a LogHandler tagged with the runtime component name.
func NewLogHandler(logger zerolog.Logger, verbose bool) *LogHandler {
	return &LogHandler{
		Logger:  logger.With().Str("component", "errors").Logger(),
		Verbose: verbose,
	}
}

// HandleError logs an Error. Not-found conditions are logged as warnings
// since rendering continues past them.
func (h *LogHandler) HandleError(err *Error) {
	if err == nil {
		return
	}
	ev := h.Logger.Error()
	if err.Kind == KindNotFound {
		ev = h.Logger.Warn()
	}
	ev = ev.Str("op", err.Op).Str("kind", err.Kind.String()).Err(err.Err)
	if err.Channel != "" {
		ev = ev.Str("channel", err.Channel)
	}
	if err.Path != "" {
		ev = ev.Str("path", err.Path)
	}
	if h.Verbose && err.StackTrace != "" {
		ev = ev.Str("stack", err.StackTrace)
	}
	ev.Msg("runtime error")
}

// HandlePanic logs a PanicError.
func (h *LogHandler) HandlePanic(err *PanicError) {
	if err == nil {
		return
	}
	ev := h.Logger.Error().Str("op", err.Op).Interface("value", err.Value)
	if h.Verbose && err.StackTrace != "" {
		ev = ev.Str("stack", err.StackTrace)
	}
	ev.Msg("recovered panic")
}

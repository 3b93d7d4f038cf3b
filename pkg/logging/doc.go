// Package logging configures structured logging for the simulator.
//
// It wraps log/slog so the HTTP adapter, the protocol registries, the XML
// comparator and the socket server all log the same way.
//
//	logger := logging.New(logging.Config{
//	    Level:  logging.LevelDebug,
//	    Format: logging.FormatJSON,
//	})
//	rest := rest.New()
//	rest.SetLogger(logging.Component(logger, "rest"))
//
// Components accept a *slog.Logger through SetLogger and fall back to
// logging.Nop() when none is given.
package logging

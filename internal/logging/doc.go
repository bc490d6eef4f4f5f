// Package logging provides structured logging for the platinum client.
//
// This package wraps a global zap logger with convenience functions for the
// few events worth recording: socket exchanges with the controller, move
// attempts of the shade control loop, and raw byte dumps for protocol
// debugging.
//
// # Silent By Default
//
// The CLI writes its own human-readable output, so logging is disabled
// unless PLATINUM_LOG_LEVEL (or the --log-level flag) is set:
//
//	PLATINUM_LOG_LEVEL=debug platinum status
//
// Log lines go to stderr so they never mix with command output.
//
// # Structured Logging
//
//	logging.Info("Snapshot applied",
//	    zap.Int("rooms", 2),
//	    zap.Int("shades", 5),
//	)
//
//	logging.LogExchange(id, "192.168.1.50:522", "$dat", "upd01-", 812, 140*time.Millisecond, nil)
//
// # Thread Safety
//
// All logging functions are safe for concurrent use. Initialize and SetLogger
// are meant to be called once at startup.
package logging

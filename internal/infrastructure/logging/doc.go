// Package logging is the structured logger of the Kaleido daemon, a thin
// layer over log/slog.
//
// Entries are JSON by default or text for local runs, filtered by level,
// and always carry service=kaleidod and the build version. Each subsystem
// logs through a child tagged with its name:
//
//	log := logging.New(cfg.Logging, version)
//	supervisor.SetLogger(log.Component("node"))
//
// The matching config section:
//
//	logging:
//	  level: info    # debug, info, warn, error
//	  format: json   # json, text
//	  output: stdout # stdout, stderr
//
// Never log mnemonics, passwords, bearer tokens or the JWT secret.
// Node output lines go to the log cache, not to this logger.
package logging

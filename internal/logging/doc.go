// Package logging provides structured logging utilities for senderwatch.
//
// All components log through log/slog. This package keeps attribute names
// consistent and makes sure sender addresses never reach the logs in clear text.
//
// # Usage Patterns
//
//	logger := logging.WithComponent(logger, "threads")
//	logger.Info("mutation rolled back",
//	    logging.Thread(id),
//	    logging.Kind("trash"),
//	    logging.Err(err))
//
// Sender addresses are hashed before logging:
//
//	logger.Info("filter created", logging.Sender(address))
package logging

// Package logger provides a small factory around log/slog with json/text
// output formats and helpers for the attribute keys used across filevault
// (user_id, node_id, component, error).
//
// Services in this module accept a *slog.Logger and default to a discard
// logger when none is provided, so logging is always optional for callers.
//
// Usage:
//
//	log := logger.New(
//		logger.WithFormat(logger.FormatJSON),
//		logger.WithLevel(slog.LevelInfo),
//		logger.WithAttr(slog.String("service", "filevault")),
//	)
//	log.Info("file stored", logger.UserID(ownerID), logger.NodeID(nodeID))
package logger

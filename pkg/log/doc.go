/*
Package log provides structured logging for Sentinel using zerolog.

It wraps zerolog with component-specific child loggers and the message
context fields every pipeline worker is required to log at each ack/nak
transition: subject, stream sequence, and original event id.

# Usage

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})

	filterLog := log.WithComponent("filter")
	filterLog.Info().Msg("starting filter worker")

	msgLog := log.WithMessageContext("raw.events", 42, "e1")
	msgLog.Warn().Msg("nak: llm dependency unavailable")
*/
package log

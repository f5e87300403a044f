// Package sentinelerr defines the error taxonomy Sentinel's pipeline
// services use to decide what a worker does with a failed message: ack,
// nak, or ack-with-warning. The taxonomy is deliberately plain stdlib
// types (struct error types matched with errors.As), not exceptions-as-control-flow:
// a worker inspects the error it got back from a step and dispositions the
// message accordingly, rather than relying on a thrown type to unwind the
// handler.
package sentinelerr

import "fmt"

// ConfigError indicates a malformed or missing required configuration
// value. It is fatal at service startup; no service attempts to run with
// a ConfigError outstanding.
type ConfigError struct {
	Var    string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Var, e.Reason)
}

// BrokerUnavailable indicates the broker connection is down or a publish/
// subscribe operation failed against it. A handler that sees this naks its
// in-flight message and lets the broker's reconnect logic recover the
// connection.
type BrokerUnavailable struct {
	Op  string
	Err error
}

func (e *BrokerUnavailable) Error() string {
	return fmt.Sprintf("broker unavailable during %s: %v", e.Op, e.Err)
}

func (e *BrokerUnavailable) Unwrap() error { return e.Err }

// StoreUnavailable indicates the vector store is unreachable or returned a
// transport-level failure. Handlers nak on this error.
type StoreUnavailable struct {
	Op  string
	Err error
}

func (e *StoreUnavailable) Error() string {
	return fmt.Sprintf("vector store unavailable during %s: %v", e.Op, e.Err)
}

func (e *StoreUnavailable) Unwrap() error { return e.Err }

// DbError indicates a registry database failure. The scheduler's tick
// handler and the source API both nak/skip on this error rather than
// retrying locally.
type DbError struct {
	Op  string
	Err error
}

func (e *DbError) Error() string {
	return fmt.Sprintf("registry db error during %s: %v", e.Op, e.Err)
}

func (e *DbError) Unwrap() error { return e.Err }

// SchemaError indicates a message payload that does not decode against its
// subject's expected schema. This is never retryable: the message is
// undeliverable as received and would loop forever under nak, so handlers
// log it and ack-drop instead.
type SchemaError struct {
	Subject string
	Err     error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema error decoding %s: %v", e.Subject, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// DependencyError indicates a failure in an external collaborator, an LLM
// classifier call or a scrape request. Handlers nak on this error so the
// broker retries the message against (hopefully) a healthier dependency.
type DependencyError struct {
	Dependency string
	Err        error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("dependency error from %s: %v", e.Dependency, e.Err)
}

func (e *DependencyError) Unwrap() error { return e.Err }

// NotFound indicates a lookup that found nothing. At the HTTP API this
// becomes a 404. Inside the inspector it is not treated as a failure: a
// ranked event with no stored record is acked and skipped. The ranker never
// sees it, since Patch writes a stub record when none exists.
type NotFound struct {
	Kind string
	ID   string
}

func (e *NotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

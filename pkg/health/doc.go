/*
Package health provides dependency health checks and the readiness beacon
every Sentinel service starts.

Checker is a small interface (Check(ctx) Result, Type() CheckType)
implemented by TCPChecker and HTTPChecker. Beacon wires named Checkers
into a /health + /ready + /metrics HTTP surface: /health is a bare
liveness probe, /ready runs every registered Checker with the service's
configured readiness timeout and returns 503 if any of them fails.

A service registers one Checker per dependency it owns, e.g. the filter
worker registers a broker TCPChecker and an HTTPChecker against the LLM
provider; the registry API registers a TCPChecker against its database.
*/
package health

/*
Package broker adapts NATS JetStream to Sentinel's pipeline contract:
every stream is durable with work-queue retention, every consumer is a
durable pull consumer with explicit acks, and every handler's return
value (Ack, Nak, AckWarn) is the only thing that decides whether a
message redelivers. No service retries independently of the broker.

Disposition mapping follows the error taxonomy in pkg/sentinelerr:
BrokerUnavailable/StoreUnavailable/DbError/DependencyError -> Nak;
SchemaError -> AckWarn; everything else -> Ack.
*/
package broker

/*
Package dedup tracks which (source_id, href) pairs the connector has
already turned into a RawEvent, so restarts and redeliveries never
re-emit the same item twice.

It is a single bbolt bucket, generalizing warren's one-bucket-per-entity
storage layout to the connector's one entity: a composite-keyed seen set
instead of one bucket per domain type.
*/
package dedup

/*
Package vectorstore adapts Qdrant to Sentinel's event store. One
collection, one point per original_id keyed by PhysicalKey, cosine
distance, with payload indexes on source, original_id, is_relevant,
final_score and timestamp so the retrieval API's list/filter/rank
queries don't force a full collection scroll, plus a whitespace-tokenized
full-text index on content backing SearchByKeyword.

Writes are either a full Upsert (filter writing a newly classified
event) or a field-level Patch (ranker/inspector attaching their own
fields without re-embedding). Patch falls back to a stub write when
the target record doesn't exist yet, since nothing in the pipeline
guarantees ranker output arrives strictly after the filter's initial
write under redelivery.
*/
package vectorstore

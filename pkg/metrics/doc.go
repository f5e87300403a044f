/*
Package metrics exposes Sentinel's Prometheus instrumentation.

This package declares and registers every counter, histogram and gauge
in its init; each pipeline stage records them as messages flow through; the `/metrics` endpoint
served by each service's readiness beacon (see pkg/health) exposes them
via promhttp.

# Metric catalog

Broker: sentinel_messages_published_total{subject}, sentinel_messages_consumed_total{subject,disposition},
sentinel_redeliveries_total{subject}, sentinel_dead_lettered_total{stream}.

Scheduler: sentinel_sources_active, sentinel_polls_scheduled_total{source}.

Connector: sentinel_items_scraped_total{source}, sentinel_items_deduplicated_total{source},
sentinel_scrape_duration_seconds{source}.

Filter: sentinel_events_classified_total{is_relevant}, sentinel_classify_duration_seconds.

Ranker: sentinel_events_ranked_total, sentinel_final_score.

Inspector: sentinel_anomalies_detected_total{detector}.

Guardian: sentinel_alerts_dispatched_total{alerter,outcome}.

Vector store: sentinel_store_upserts_total{operation}, sentinel_store_operation_duration_seconds{operation}.

Retrieval/source API: sentinel_api_requests_total{route,status}, sentinel_api_request_duration_seconds{route}.

# Alerting

A sustained rise in sentinel_dead_lettered_total with no corresponding
rise in sentinel_alerts_dispatched_total means the guardian itself is
failing to notify, which should page; some DLQ traffic during a
provider outage is expected and self-healing once redelivery succeeds
upstream.
*/
package metrics

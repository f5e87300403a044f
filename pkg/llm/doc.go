/*
Package llm provides the Classifier capability the filter worker and the
inspector's llm_anomaly_detector call through. Construction fails fast on
a missing API key or an unsupported LLM_PROVIDER value; classification
failures at request time become a DependencyError so the caller naks.
*/
package llm

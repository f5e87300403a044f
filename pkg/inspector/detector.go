package inspector

import (
	"context"
	"fmt"
	"strings"

	"github.com/opus-domini/sentinel/pkg/config"
	"github.com/opus-domini/sentinel/pkg/llm"
	"github.com/opus-domini/sentinel/pkg/sentinelerr"
	"github.com/opus-domini/sentinel/pkg/types"
)

// Event is the view a Detector evaluates against: the stored payload with
// the ranker's final_score merged in, per spec.md §4.8.
type Event = types.StoredEvent

// Detector is a pure predicate over an event: true means anomalous.
type Detector interface {
	Kind() string
	Evaluate(ctx context.Context, event Event) (bool, error)
}

// BuildDetectors constructs one Detector per configured spec, in order,
// for the inspector's short-circuit evaluation loop.
func BuildDetectors(specs []config.DetectorSpec, classifier llm.Classifier) ([]Detector, error) {
	detectors := make([]Detector, 0, len(specs))
	for _, spec := range specs {
		d, err := buildDetector(spec, classifier)
		if err != nil {
			return nil, err
		}
		detectors = append(detectors, d)
	}
	return detectors, nil
}

func buildDetector(spec config.DetectorSpec, classifier llm.Classifier) (Detector, error) {
	switch spec.Kind {
	case "keyword_match":
		return newKeywordMatch(spec.Params)
	case "content_length":
		return newContentLength(spec.Params)
	case "missing_fields":
		return newMissingFields(spec.Params)
	case "llm_anomaly_detector":
		return newLLMAnomalyDetector(spec.Params, classifier)
	default:
		return nil, &sentinelerr.ConfigError{Var: "anomaly_detectors", Reason: fmt.Sprintf("unknown detector kind %q", spec.Kind)}
	}
}

// keywordMatch flags an event iff any configured keyword occurs in
// content, case-insensitively.
type keywordMatch struct {
	keywords []string
}

func newKeywordMatch(params map[string]any) (Detector, error) {
	raw, ok := params["keywords"]
	if !ok {
		return nil, &sentinelerr.ConfigError{Var: "keyword_match.keywords", Reason: "required"}
	}
	keywords, err := stringSlice(raw)
	if err != nil {
		return nil, &sentinelerr.ConfigError{Var: "keyword_match.keywords", Reason: err.Error()}
	}
	lowered := make([]string, len(keywords))
	for i, k := range keywords {
		lowered[i] = strings.ToLower(k)
	}
	return &keywordMatch{keywords: lowered}, nil
}

func (d *keywordMatch) Kind() string { return "keyword_match" }

func (d *keywordMatch) Evaluate(_ context.Context, event Event) (bool, error) {
	content := strings.ToLower(event.Content)
	for _, k := range d.keywords {
		if strings.Contains(content, k) {
			return true, nil
		}
	}
	return false, nil
}

// contentLength flags an event iff len(content) falls outside [min, max].
type contentLength struct {
	min, max int
}

func newContentLength(params map[string]any) (Detector, error) {
	min, err := intParam(params, "min_length")
	if err != nil {
		return nil, err
	}
	max, err := intParam(params, "max_length")
	if err != nil {
		return nil, err
	}
	return &contentLength{min: min, max: max}, nil
}

func (d *contentLength) Kind() string { return "content_length" }

func (d *contentLength) Evaluate(_ context.Context, event Event) (bool, error) {
	n := len(event.Content)
	return n < d.min || n > d.max, nil
}

// missingFields flags an event iff any configured field is absent/empty.
type missingFields struct {
	fields []string
}

func newMissingFields(params map[string]any) (Detector, error) {
	raw, ok := params["fields"]
	if !ok {
		return nil, &sentinelerr.ConfigError{Var: "missing_fields.fields", Reason: "required"}
	}
	fields, err := stringSlice(raw)
	if err != nil {
		return nil, &sentinelerr.ConfigError{Var: "missing_fields.fields", Reason: err.Error()}
	}
	return &missingFields{fields: fields}, nil
}

func (d *missingFields) Kind() string { return "missing_fields" }

func (d *missingFields) Evaluate(_ context.Context, event Event) (bool, error) {
	for _, f := range d.fields {
		if fieldValue(event, f) == "" {
			return true, nil
		}
	}
	return false, nil
}

func fieldValue(event Event, field string) string {
	switch field {
	case "title":
		return event.Title
	case "content":
		return event.Content
	case "timestamp":
		return event.Timestamp
	case "source":
		return event.Source
	case "original_id":
		return event.OriginalID
	default:
		return ""
	}
}

// llmAnomalyDetector flags an event iff the LLM's response to the
// configured prompt template contains "ANOMALY".
type llmAnomalyDetector struct {
	prompt     string
	classifier llm.Classifier
}

func newLLMAnomalyDetector(params map[string]any, classifier llm.Classifier) (Detector, error) {
	prompt, ok := params["prompt"].(string)
	if !ok || prompt == "" {
		return nil, &sentinelerr.ConfigError{Var: "llm_anomaly_detector.prompt", Reason: "required"}
	}
	if classifier == nil {
		return nil, &sentinelerr.ConfigError{Var: "llm_anomaly_detector", Reason: "no LLM classifier configured"}
	}
	return &llmAnomalyDetector{prompt: prompt, classifier: classifier}, nil
}

func (d *llmAnomalyDetector) Kind() string { return "llm_anomaly_detector" }

func (d *llmAnomalyDetector) Evaluate(ctx context.Context, event Event) (bool, error) {
	prompt := strings.ReplaceAll(d.prompt, "{article_content}", event.Content)
	resp, err := d.classifier.Classify(ctx, prompt)
	if err != nil {
		return false, err
	}
	return strings.Contains(strings.ToUpper(resp), "ANOMALY"), nil
}

func stringSlice(raw any) ([]string, error) {
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("expected a list of strings")
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("expected a list of strings")
		}
		out = append(out, s)
	}
	return out, nil
}

func intParam(params map[string]any, key string) (int, error) {
	raw, ok := params[key]
	if !ok {
		return 0, &sentinelerr.ConfigError{Var: "content_length." + key, Reason: "required"}
	}
	switch v := raw.(type) {
	case int:
		return v, nil
	case float64:
		return int(v), nil
	default:
		return 0, &sentinelerr.ConfigError{Var: "content_length." + key, Reason: "must be an integer"}
	}
}

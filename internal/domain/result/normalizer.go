// Package result collapses the job-result payload shapes produced by different
// backend versions into one model.CanonicalResult and indexes step outputs by
// their cache key.
package result

import (
	"io"
	"log/slog"

	"github.com/target/mmk-content-dashboard/internal/domain/jsonv"
	"github.com/target/mmk-content-dashboard/internal/domain/model"
)

const (
	keyPipelineResult = "pipeline_result"
	keyResult         = "result"
	keyFinalContent   = "final_content"
	keyInputContent   = "input_content"
	keyStepResults    = "step_results"
	keyMetadata       = "metadata"
	keyStepInfo       = "step_info"
)

// Shape names the envelope a raw payload arrived in.
type Shape string

const (
	// ShapePipelineResult is the current backend envelope: {"pipeline_result": {...}}.
	ShapePipelineResult Shape = "pipeline_result"
	// ShapeLegacyResult is the legacy envelope: {"result": {...}}.
	ShapeLegacyResult Shape = "result"
	// ShapeBare is an object with no envelope.
	ShapeBare Shape = "bare"
	// ShapeNonObject is anything that is not a JSON object.
	ShapeNonObject Shape = "non_object"
)

// DetectShape reports which envelope Unwrap would remove from raw.
func DetectShape(raw any) Shape {
	_, shape := unwrap(raw)
	return shape
}

// Unwrap removes at most one envelope from raw. pipeline_result takes
// precedence over result; objects with neither are returned as-is and
// non-objects pass through untouched. Doubly wrapped payloads are not unwrapped
// further.
func Unwrap(raw any) any {
	v, _ := unwrap(raw)
	return v
}

func unwrap(raw any) (any, Shape) {
	obj, ok := jsonv.AsObject(raw)
	if !ok {
		return raw, ShapeNonObject
	}
	if v, ok := obj.Get(keyPipelineResult); ok {
		return v, ShapePipelineResult
	}
	if v, ok := obj.Get(keyResult); ok {
		return v, ShapeLegacyResult
	}
	return obj, ShapeBare
}

// Normalizer decodes raw payloads into canonical results, logging shapes that
// indicate a backend defect. It is safe for concurrent use.
type Normalizer struct {
	logger *slog.Logger
}

// NewNormalizer creates a Normalizer. A nil logger discards boundary warnings.
func NewNormalizer(logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Normalizer{logger: logger.With("component", "result_normalizer")}
}

var defaultNormalizer = NewNormalizer(nil)

// Normalize unwraps raw and decodes it. It returns nil when the unwrapped
// value is not an object, which callers surface as "no content found".
func Normalize(raw any) *model.CanonicalResult {
	return defaultNormalizer.Normalize(raw)
}

// Normalize unwraps raw and decodes it into a CanonicalResult.
func (n *Normalizer) Normalize(raw any) *model.CanonicalResult {
	unwrapped, shape := unwrap(raw)
	obj, ok := jsonv.AsObject(unwrapped)
	if !ok {
		if shape != ShapeNonObject {
			n.logger.Warn("result envelope does not hold an object", "shape", string(shape))
		}
		return nil
	}
	if obj.Has(keyPipelineResult) || obj.Has(keyResult) {
		n.logger.Warn("result still wrapped after unwrapping once", "shape", string(shape))
	}

	res := &model.CanonicalResult{Source: obj}
	res.FinalContent, _ = obj.Get(keyFinalContent)
	res.InputContent, _ = obj.Get(keyInputContent)
	res.StepResults = n.objectField(obj, keyStepResults)
	res.Metadata = n.objectField(obj, keyMetadata)
	res.Steps = n.decodeSteps(res.Metadata)
	return res
}

// objectField returns obj[key] when it is an object and an empty object otherwise.
func (n *Normalizer) objectField(obj *jsonv.Object, key string) *jsonv.Object {
	v, ok := obj.Get(key)
	if !ok || v == nil {
		return jsonv.NewObject()
	}
	field, isObj := jsonv.AsObject(v)
	if !isObj {
		n.logger.Warn("result field is not an object", "field", key)
		return jsonv.NewObject()
	}
	return field
}

// InheritInputContent copies the outer payload's top-level input_content into
// res when res has none. Legacy backends attach the input outside the nested
// result.
func InheritInputContent(raw any, res *model.CanonicalResult) {
	if res == nil || res.HasInputContent() {
		return
	}
	outer, ok := jsonv.AsObject(raw)
	if !ok {
		return
	}
	if v, ok := outer.Get(keyInputContent); ok && v != nil {
		res.InputContent = v
	}
}

// Resolve runs the full pipeline used by the fetching services: normalize,
// inherit outer input_content, and index step outputs for jobID.
// The index is nil when no canonical result could be derived.
func (n *Normalizer) Resolve(raw any, jobID string) (*model.CanonicalResult, *jsonv.Object) {
	res := n.Normalize(raw)
	if res == nil {
		return nil, nil
	}
	InheritInputContent(raw, res)
	return res, ExtractStepIndex(res, jobID)
}

// Resolve is Normalizer.Resolve on a normalizer that discards warnings.
func Resolve(raw any, jobID string) (*model.CanonicalResult, *jsonv.Object) {
	return defaultNormalizer.Resolve(raw, jobID)
}

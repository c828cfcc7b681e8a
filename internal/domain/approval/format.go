// Package approval renders pipeline step outputs as markdown for reviewers.
//
// Rendering is a pure function of the output value and its step type. Unknown
// step types and unexpected field shapes fall through to the generic object
// formatter; nothing in this package returns an error.
package approval

import (
	"strings"

	"github.com/target/mmk-content-dashboard/internal/domain/jsonv"
)

// StepType tags the pipeline step that produced an output.
type StepType string

const (
	StepSEOKeywords       StepType = "seo_keywords"
	StepMarketingBrief    StepType = "marketing_brief"
	StepArticleGeneration StepType = "article_generation"
	StepSEOOptimization   StepType = "seo_optimization"
	StepSuggestedLinks    StepType = "suggested_links"
	StepContentFormatting StepType = "content_formatting"
)

// KnownStepTypes lists the step types the pipeline currently emits, in pipeline order.
var KnownStepTypes = []StepType{
	StepSEOKeywords,
	StepMarketingBrief,
	StepArticleGeneration,
	StepSEOOptimization,
	StepSuggestedLinks,
	StepContentFormatting,
}

// Known reports whether s is one of KnownStepTypes. Unknown types are still
// formatted, generically.
func (s StepType) Known() bool {
	for _, k := range KnownStepTypes {
		if s == k {
			return true
		}
	}
	return false
}

const (
	// NoOutput is rendered for absent outputs and for outputs with nothing displayable.
	NoOutput = "No output available"

	sectionSeparator = "\n\n---\n\n"
)

// Format renders output as markdown. A nil output yields NoOutput and a string
// output is returned unchanged. Objects render as an optional quality metrics
// block followed by the step-specific block; other values go through the
// generic list and scalar rules.
func Format(output any, stepType string) string {
	if output == nil {
		return NoOutput
	}
	if s, ok := output.(string); ok {
		return s
	}

	f := newFormatter()
	defer f.release()

	var sections []string
	switch v := jsonv.FromGo(output).(type) {
	case nil:
		return NoOutput
	case *jsonv.Object:
		sections = append(sections, metricsBlock(v))
		if StepType(stepType) == StepArticleGeneration {
			sections = append(sections, f.article(v))
		} else {
			sections = append(sections, f.object(v, 0))
		}
	case []any:
		if len(v) == 0 {
			return "None"
		}
		sections = append(sections, f.list(v, 0))
	default:
		sections = append(sections, scalar(v))
	}

	return joinSections(sections)
}

// FormatObject runs the generic object formatter on obj at the given nesting
// level, two spaces of indentation per level.
func FormatObject(obj *jsonv.Object, level int) string {
	f := newFormatter()
	defer f.release()
	return f.object(obj, level)
}

func joinSections(sections []string) string {
	kept := sections[:0]
	for _, s := range sections {
		if strings.TrimSpace(s) != "" {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		return NoOutput
	}
	return strings.Join(kept, sectionSeparator)
}

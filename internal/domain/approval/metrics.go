package approval

import (
	"strconv"
	"strings"

	"github.com/target/mmk-content-dashboard/internal/domain/jsonv"
)

type metricField struct {
	key     string
	label   string
	percent bool
}

// metricFields is the fixed set of score fields surfaced above a step's output.
var metricFields = []metricField{
	{key: "confidence_score", label: "Confidence Score", percent: true},
	{key: "quality_score", label: "Quality Score"},
	{key: "readability_score", label: "Readability Score"},
	{key: "seo_score", label: "SEO Score"},
	{key: "engagement_score", label: "Engagement Score"},
	{key: "relevance_score", label: "Relevance Score"},
}

// metricsBlock renders the numeric score fields present in obj. Fractions in
// confidence_score are shown as a percentage. Returns "" when no score is present.
func metricsBlock(obj *jsonv.Object) string {
	var lines []string
	for _, m := range metricFields {
		raw, ok := obj.Get(m.key)
		if !ok {
			continue
		}
		v, ok := jsonv.AsFloat(raw)
		if !ok {
			continue
		}
		value := strconv.FormatFloat(v, 'f', 1, 64)
		if m.percent {
			value = strconv.FormatFloat(v*100, 'f', 1, 64) + "%"
		}
		lines = append(lines, "- **"+m.label+":** "+value)
	}
	if len(lines) == 0 {
		return ""
	}
	return "### Quality Metrics\n\n" + strings.Join(lines, "\n")
}

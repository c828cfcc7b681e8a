// Package metrics emits the dashboard's standard metric families.
package metrics

import (
	"strconv"
	"time"

	obserrors "github.com/target/mmk-content-dashboard/internal/observability/errors"
	"github.com/target/mmk-content-dashboard/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultNoop    = "noop"
)

// BackendRequest captures one call to the pipeline backend.
type BackendRequest struct {
	Endpoint string
	Method   string
	Status   int
	Attempts int
	Duration time.Duration
	Err      error
}

// EmitBackendRequest emits backend.request and backend.duration.
func EmitBackendRequest(sink statsd.Sink, in BackendRequest) {
	if sink == nil {
		return
	}
	result := ResultSuccess
	if in.Err != nil {
		result = ResultError
	}
	tags := map[string]string{
		"endpoint": in.Endpoint,
		"method":   in.Method,
		"result":   result,
	}
	if in.Status > 0 {
		tags["status"] = strconv.Itoa(in.Status)
	}
	if in.Err != nil {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count("backend.request", 1, tags)
	if in.Attempts > 1 {
		sink.Count("backend.retry", int64(in.Attempts-1), CloneTags(tags))
	}
	if in.Duration > 0 {
		sink.Timing("backend.duration", in.Duration, CloneTags(tags))
	}
}

// ResultMetric captures one normalization of a job result payload.
type ResultMetric struct {
	Shape    string
	Steps    int
	Indexed  int
	Duration time.Duration
}

// EmitResultNormalized emits result.normalized tagged by envelope shape, plus
// how many step outputs were indexed.
func EmitResultNormalized(sink statsd.Sink, in ResultMetric) {
	if sink == nil {
		return
	}
	tags := map[string]string{"shape": in.Shape}
	sink.Count("result.normalized", 1, tags)
	sink.Gauge("result.steps", float64(in.Steps), CloneTags(tags))
	sink.Count("result.steps_indexed", int64(in.Indexed), CloneTags(tags))
	if in.Duration > 0 {
		sink.Timing("result.normalize_duration", in.Duration, CloneTags(tags))
	}
}

// EmitCacheLookup counts a hit or miss against the named cache.
func EmitCacheLookup(sink statsd.Sink, cache string, hit bool) {
	if sink == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	sink.Count("cache.lookup", 1, map[string]string{"cache": cache, "result": result})
}

// EmitApprovalDecision counts reviewer decisions by step type.
func EmitApprovalDecision(sink statsd.Sink, stepType, decision string, err error) {
	if sink == nil {
		return
	}
	tags := map[string]string{
		"step_type": stepType,
		"decision":  decision,
		"result":    ResultSuccess,
	}
	if err != nil {
		tags["result"] = ResultError
		tags["error_class"] = obserrors.Classify(err)
	}
	sink.Count("approval.decision", 1, tags)
}

// SnapshotMetric captures one job list refresh by the watcher.
type SnapshotMetric struct {
	Result   string
	Jobs     int
	Active   int
	Duration time.Duration
	Err      error
}

// EmitSnapshotRefresh emits jobwatch.refresh and the job gauges.
func EmitSnapshotRefresh(sink statsd.Sink, in SnapshotMetric) {
	if sink == nil {
		return
	}
	tags := map[string]string{"result": in.Result}
	if in.Err != nil && in.Result == ResultError {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}
	sink.Count("jobwatch.refresh", 1, tags)
	if in.Result == ResultSuccess {
		sink.Gauge("jobs.total", float64(in.Jobs), nil)
		sink.Gauge("jobs.active", float64(in.Active), nil)
	}
	if in.Duration > 0 {
		sink.Timing("jobwatch.duration", in.Duration, CloneTags(tags))
	}
}

// CloneTags creates a shallow copy of a tag map.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

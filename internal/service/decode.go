package service

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"

	jmespath "github.com/jmespath-community/go-jmespath"
	"github.com/mitchellh/mapstructure"
	"github.com/target/mmk-content-dashboard/internal/domain/jsonv"
	"github.com/target/mmk-content-dashboard/internal/domain/model"
	apperrors "github.com/target/mmk-content-dashboard/internal/errors"
)

// Backend list endpoints have returned bare arrays and several envelopes.
// The first expression that yields an array wins.
var (
	jobListPaths      = []string{"jobs", "data.jobs", "data", "items", "results", "@"}
	subjobListPaths   = []string{"subjobs", "data.subjobs", "jobs", "data", "items", "results", "@"}
	approvalListPaths = []string{"approvals", "data.approvals", "data", "items", "results", "@"}
)

// extractList returns the array found by the first matching expression.
// Matching runs on the plain Go form; the returned items are taken from the
// ordered tree so object key order is preserved.
func extractList(raw any, paths []string, what string) ([]any, error) {
	data := jsonv.ToGo(raw)
	for _, expr := range paths {
		v, err := jmespath.Search(expr, data)
		if err != nil {
			return nil, fmt.Errorf("evaluate %q: %w", expr, err)
		}
		if _, ok := v.([]any); !ok {
			continue
		}
		if items, ok := jsonv.AsArray(orderedPath(raw, expr)); ok {
			return items, nil
		}
	}
	return nil, apperrors.Upstreamf("%s response has no recognizable list", what)
}

// orderedPath walks a dotted field expression over jsonv values.
func orderedPath(raw any, expr string) any {
	if expr == "@" {
		return raw
	}
	cur := raw
	for _, field := range strings.Split(expr, ".") {
		obj, ok := jsonv.AsObject(cur)
		if !ok {
			return nil
		}
		cur, _ = obj.Get(field)
	}
	return cur
}

// jobItem is the tolerant wire form of a job list entry or job status.
type jobItem struct {
	ID          string     `mapstructure:"id"`
	JobID       string     `mapstructure:"job_id"`
	Status      string     `mapstructure:"status"`
	ContentID   string     `mapstructure:"content_id"`
	Title       string     `mapstructure:"title"`
	CurrentStep string     `mapstructure:"current_step"`
	Progress    *float64   `mapstructure:"progress"`
	Error       string     `mapstructure:"error"`
	CreatedAt   time.Time  `mapstructure:"created_at"`
	UpdatedAt   *time.Time `mapstructure:"updated_at"`
}

// decodeJobSummary decodes one job entry. Entries without an id are rejected;
// unknown statuses are kept lower-cased so newer backends still list.
func decodeJobSummary(item any) (model.JobSummary, error) {
	in, ok := jsonv.ToGo(item).(map[string]any)
	if !ok {
		return model.JobSummary{}, fmt.Errorf("job entry is %T, not an object", item)
	}
	var raw jobItem
	if err := decodeLoose(in, &raw); err != nil {
		return model.JobSummary{}, err
	}

	id := firstNonEmpty(raw.ID, raw.JobID)
	if id == "" {
		return model.JobSummary{}, fmt.Errorf("job entry has no id")
	}
	status, err := model.ParseJobStatus(raw.Status)
	if err != nil {
		status = model.JobStatus(strings.ToLower(strings.TrimSpace(raw.Status)))
	}

	return model.JobSummary{
		ID:          id,
		Status:      status,
		ContentID:   raw.ContentID,
		Title:       raw.Title,
		CurrentStep: raw.CurrentStep,
		Progress:    normalizeProgress(raw.Progress),
		Error:       raw.Error,
		CreatedAt:   raw.CreatedAt,
		UpdatedAt:   raw.UpdatedAt,
	}, nil
}

// normalizeProgress accepts fractions and percentages and clamps to 0..1.
func normalizeProgress(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	if v > 1 {
		v /= 100
	}
	v = min(max(v, 0), 1)
	return &v
}

type subjobItem struct {
	ID       string `mapstructure:"id"`
	SubjobID string `mapstructure:"subjob_id"`
	JobID    string `mapstructure:"job_id"`
	StepName string `mapstructure:"step_name"`
	Step     string `mapstructure:"step"`
	Status   string `mapstructure:"status"`
}

func decodeSubjobRef(item any) (model.SubjobRef, error) {
	in, ok := jsonv.ToGo(item).(map[string]any)
	if !ok {
		if s, isStr := item.(string); isStr && s != "" {
			return model.SubjobRef{ID: s}, nil
		}
		return model.SubjobRef{}, fmt.Errorf("sub-job entry is %T, not an object", item)
	}
	var raw subjobItem
	if err := decodeLoose(in, &raw); err != nil {
		return model.SubjobRef{}, err
	}
	id := firstNonEmpty(raw.SubjobID, raw.ID, raw.JobID)
	if id == "" {
		return model.SubjobRef{}, fmt.Errorf("sub-job entry has no id")
	}
	status, _ := model.ParseJobStatus(raw.Status)
	return model.SubjobRef{ID: id, StepName: firstNonEmpty(raw.StepName, raw.Step), Status: status}, nil
}

type approvalItem struct {
	JobID     string     `mapstructure:"job_id"`
	StepName  string     `mapstructure:"step_name"`
	Step      string     `mapstructure:"step"`
	StepType  string     `mapstructure:"step_type"`
	Status    string     `mapstructure:"status"`
	Comment   string     `mapstructure:"comment"`
	Reviewer  string     `mapstructure:"reviewer"`
	CreatedAt time.Time  `mapstructure:"created_at"`
	DecidedAt *time.Time `mapstructure:"decided_at"`
}

// decodeApproval decodes one approval. The output is taken from the ordered
// object so field order survives into the formatter.
func decodeApproval(item any, jobID string) (model.Approval, error) {
	obj, ok := jsonv.AsObject(item)
	if !ok {
		return model.Approval{}, fmt.Errorf("approval entry is %T, not an object", item)
	}
	var raw approvalItem
	in, _ := jsonv.ToGo(obj).(map[string]any)
	delete(in, "output")
	if err := decodeLoose(in, &raw); err != nil {
		return model.Approval{}, err
	}

	step := firstNonEmpty(raw.StepName, raw.Step)
	if step == "" {
		return model.Approval{}, fmt.Errorf("approval entry has no step name")
	}
	status := model.ApprovalStatus(strings.ToLower(strings.TrimSpace(raw.Status)))
	if !status.Valid() {
		status = model.ApprovalStatusPending
	}
	output, _ := obj.Get("output")

	return model.Approval{
		JobID:     firstNonEmpty(raw.JobID, jobID),
		StepName:  step,
		StepType:  firstNonEmpty(raw.StepType, step),
		Status:    status,
		Output:    output,
		Comment:   raw.Comment,
		Reviewer:  raw.Reviewer,
		CreatedAt: raw.CreatedAt,
		DecidedAt: raw.DecidedAt,
	}, nil
}

// unwrapEnvelope returns raw[key] when raw is an object holding an object
// under key, and raw otherwise.
func unwrapEnvelope(raw any, key string) any {
	obj, ok := jsonv.AsObject(raw)
	if !ok {
		return raw
	}
	if inner, ok := obj.Get(key); ok {
		if innerObj, isObj := jsonv.AsObject(inner); isObj {
			return innerObj
		}
	}
	return raw
}

// stringField returns the first non-empty string found at the given keys.
func stringField(raw any, keys ...string) string {
	obj, ok := jsonv.AsObject(raw)
	if !ok {
		return ""
	}
	for _, k := range keys {
		v, _ := obj.Get(k)
		switch t := v.(type) {
		case string:
			if t != "" {
				return t
			}
		case json.Number:
			return t.String()
		}
	}
	return ""
}

func decodeLoose(in map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			numberHook,
			timeHook,
		),
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(in)
}

// numberHook turns json.Number into float64 before weak typing applies.
func numberHook(from reflect.Type, _ reflect.Type, data any) (any, error) {
	if from != reflect.TypeOf(json.Number("")) {
		return data, nil
	}
	f, err := data.(json.Number).Float64()
	if err != nil {
		return nil, fmt.Errorf("parse number %q: %w", data, err)
	}
	return f, nil
}

var timeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02 15:04:05"}

// timeHook parses timestamps as RFC3339, naive ISO-8601 (UTC) or epoch
// seconds. Empty or unparseable values decode as the zero time.
func timeHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != reflect.TypeOf(time.Time{}) {
		return data, nil
	}
	switch from.Kind() {
	case reflect.String:
		s := strings.TrimSpace(data.(string))
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), nil
			}
		}
		return time.Time{}, nil
	case reflect.Float64:
		sec := data.(float64)
		return time.Unix(int64(sec), 0).UTC(), nil
	default:
		return data, nil
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

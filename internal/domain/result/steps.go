package result

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/target/mmk-content-dashboard/internal/domain/jsonv"
	"github.com/target/mmk-content-dashboard/internal/domain/model"
)

// stepDescriptor mirrors one metadata.step_info entry. Every field is optional.
type stepDescriptor struct {
	StepNumber    *int     `mapstructure:"step_number"`
	StepName      *string  `mapstructure:"step_name"`
	ExecutionTime *float64 `mapstructure:"execution_time"`
	TokensUsed    *int     `mapstructure:"tokens_used"`
	Status        *string  `mapstructure:"status"`
	ErrorMessage  *string  `mapstructure:"error_message"`
}

// decodeSteps reads metadata.step_info. A missing or non-array value yields no steps.
func (n *Normalizer) decodeSteps(metadata *jsonv.Object) []model.StepInfo {
	raw, ok := metadata.Get(keyStepInfo)
	if !ok || raw == nil {
		return []model.StepInfo{}
	}
	entries, ok := jsonv.AsArray(raw)
	if !ok {
		n.logger.Warn("metadata.step_info is not an array", "type", fmt.Sprintf("%T", raw))
		return []model.StepInfo{}
	}

	steps := make([]model.StepInfo, 0, len(entries))
	for idx, entry := range entries {
		steps = append(steps, n.decodeStep(idx, entry))
	}
	return steps
}

// decodeStep resolves one descriptor. Missing names default to "step_{idx}" and
// missing or negative numbers to idx. A mistyped field is dropped on its own;
// the remaining fields still apply.
func (n *Normalizer) decodeStep(idx int, entry any) model.StepInfo {
	fallback := model.StepInfo{StepNumber: idx, StepName: syntheticStepName(idx)}

	obj, ok := jsonv.AsObject(entry)
	if !ok {
		n.logger.Warn("step_info entry is not an object", "index", idx)
		return fallback
	}

	var d stepDescriptor
	if err := decodeDescriptor(obj.Map(), &d); err != nil {
		d = stepDescriptor{}
		for _, field := range decodeDescriptorFields(obj.Map(), &d) {
			n.logger.Warn("dropping mistyped step_info field", "index", idx, "field", field)
		}
	}

	info := fallback
	if d.StepNumber != nil && *d.StepNumber >= 0 {
		info.StepNumber = *d.StepNumber
	}
	if d.StepName != nil && *d.StepName != "" {
		info.StepName = *d.StepName
	}
	info.ExecutionTime = d.ExecutionTime
	info.TokensUsed = d.TokensUsed
	info.ErrorMessage = d.ErrorMessage
	if d.Status != nil {
		status := model.StepStatus(strings.ToLower(strings.TrimSpace(*d.Status)))
		if status.Valid() {
			info.Status = status
		} else {
			n.logger.Debug("unknown step status", "index", idx, "status", *d.Status)
		}
	}
	return info
}

func syntheticStepName(idx int) string {
	return fmt.Sprintf("step_%d", idx)
}

func decodeDescriptor(in map[string]any, out *stepDescriptor) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: jsonNumberHook,
		Result:     out,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(in)
}

// decodeDescriptorFields decodes each descriptor key separately into out and
// returns the keys that failed.
func decodeDescriptorFields(in map[string]any, out *stepDescriptor) []string {
	var dropped []string
	for _, key := range descriptorKeys {
		v, ok := in[key]
		if !ok {
			continue
		}
		var one stepDescriptor
		if err := decodeDescriptor(map[string]any{key: v}, &one); err != nil {
			dropped = append(dropped, key)
			continue
		}
		mergeDescriptor(out, &one)
	}
	return dropped
}

var descriptorKeys = []string{ //nolint:gochecknoglobals // fixed field list
	"step_number", "step_name", "execution_time", "tokens_used", "status", "error_message",
}

func mergeDescriptor(dst, src *stepDescriptor) {
	if src.StepNumber != nil {
		dst.StepNumber = src.StepNumber
	}
	if src.StepName != nil {
		dst.StepName = src.StepName
	}
	if src.ExecutionTime != nil {
		dst.ExecutionTime = src.ExecutionTime
	}
	if src.TokensUsed != nil {
		dst.TokensUsed = src.TokensUsed
	}
	if src.Status != nil {
		dst.Status = src.Status
	}
	if src.ErrorMessage != nil {
		dst.ErrorMessage = src.ErrorMessage
	}
}

// jsonNumberHook turns json.Number into float64 so integral fields accept
// values such as 2.0 and non-numeric targets reject numbers.
func jsonNumberHook(from reflect.Type, _ reflect.Type, data any) (any, error) {
	if from != reflect.TypeOf(json.Number("")) {
		return data, nil
	}
	f, err := data.(json.Number).Float64()
	if err != nil {
		return nil, fmt.Errorf("parse number %q: %w", data, err)
	}
	return f, nil
}

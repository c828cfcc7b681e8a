package result

import (
	"fmt"

	"github.com/target/mmk-content-dashboard/internal/domain/jsonv"
	"github.com/target/mmk-content-dashboard/internal/domain/model"
)

// CacheKey builds the synthetic key a step output is cached under.
func CacheKey(jobID string, stepNumber int) string {
	return fmt.Sprintf("%s_step_%d.json", jobID, stepNumber)
}

// ExtractStepIndex maps CacheKey(jobID, step.StepNumber) to the step's output
// for every step whose name has an entry in res.StepResults. Steps without a
// recorded output are skipped. Keys are emitted in step order; a later step
// with a colliding key overwrites the earlier output.
func ExtractStepIndex(res *model.CanonicalResult, jobID string) *jsonv.Object {
	index := jsonv.NewObject()
	if res == nil {
		return index
	}
	for _, step := range res.Steps {
		output, ok := res.StepOutput(step.StepName)
		if !ok {
			continue
		}
		index.Set(CacheKey(jobID, step.StepNumber), output)
	}
	return index
}

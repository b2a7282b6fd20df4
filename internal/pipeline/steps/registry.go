// Package steps defines the matching pipeline's step graph and validates
// recorded run progress against it when persistence is enabled.
package steps

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	dbpkg "github.com/jonathan/epd-matcher/internal/db"
)

// Definition describes one pipeline step and its prerequisites.
type Definition struct {
	Name      string
	DependsOn []string
}

// Registry holds all step definitions. The matching pipeline is linear, so
// every step depends on exactly the one before it.
var Registry = map[string]Definition{
	dbpkg.StepExtractContext: {
		Name: dbpkg.StepExtractContext,
	},
	dbpkg.StepParseDesignation: {
		Name:      dbpkg.StepParseDesignation,
		DependsOn: []string{dbpkg.StepExtractContext},
	},
	dbpkg.StepFilterCandidates: {
		Name:      dbpkg.StepFilterCandidates,
		DependsOn: []string{dbpkg.StepParseDesignation},
	},
	dbpkg.StepMatchEpds: {
		Name:      dbpkg.StepMatchEpds,
		DependsOn: []string{dbpkg.StepFilterCandidates},
	},
	dbpkg.StepValidateConfidence: {
		Name:      dbpkg.StepValidateConfidence,
		DependsOn: []string{dbpkg.StepMatchEpds},
	},
}

// Order returns the step names in execution order.
func Order() []string {
	return []string{
		dbpkg.StepExtractContext,
		dbpkg.StepParseDesignation,
		dbpkg.StepFilterCandidates,
		dbpkg.StepMatchEpds,
		dbpkg.StepValidateConfidence,
	}
}

// DependencyError reports which prerequisites of a step are not completed.
type DependencyError struct {
	Step    string
	Missing []string
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("step %s is missing dependencies: %v", e.Step, e.Missing)
}

// ValidateDependencies checks that every prerequisite of the given step is
// recorded as completed for the run.
func ValidateDependencies(ctx context.Context, store *dbpkg.DB, runID uuid.UUID, stepName string) error {
	def, ok := Registry[stepName]
	if !ok {
		return fmt.Errorf("unknown step: %s", stepName)
	}

	var missing []string
	for _, dep := range def.DependsOn {
		recorded, err := store.GetStep(ctx, runID, dep)
		if err != nil {
			return fmt.Errorf("failed to check dependency %s: %w", dep, err)
		}
		if recorded == nil || recorded.Status != dbpkg.StepStatusCompleted {
			missing = append(missing, dep)
		}
	}

	if len(missing) > 0 {
		return &DependencyError{Step: stepName, Missing: missing}
	}
	return nil
}

package service

import (
	"context"

	"go.uber.org/zap"
)

type prerequisiteGraph interface {
	PrerequisiteEdges(ctx context.Context, courseID string) (map[string][]string, error)
}

// PrerequisiteResult is the verdict of a prerequisite check. A non-nil Cycle
// means the prerequisite graph itself is corrupt; Valid and Missing are
// meaningless in that case and the caller must surface an integrity fault
// instead of a policy failure.
type PrerequisiteResult struct {
	Valid   bool     `json:"valid"`
	Missing []string `json:"missing"`
	Cycle   []string `json:"cycle,omitempty"`
}

// PrerequisiteService validates course prerequisites against a student's
// completed-course set.
type PrerequisiteService struct {
	courses prerequisiteGraph
	// transitive requires the full prerequisite closure to be completed
	// rather than only direct prerequisites. Off by default: direct-only is
	// the baseline contract.
	transitive bool
	logger     *zap.Logger
}

// NewPrerequisiteService constructs PrerequisiteService.
func NewPrerequisiteService(courses prerequisiteGraph, transitive bool, logger *zap.Logger) *PrerequisiteService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PrerequisiteService{courses: courses, transitive: transitive, logger: logger}
}

// Check validates the prerequisites of courseID against the completed set.
// The traversal walks the whole reachable graph to detect cycles even when
// only direct prerequisites gate the verdict.
func (s *PrerequisiteService) Check(ctx context.Context, courseID string, completed map[string]bool) (*PrerequisiteResult, error) {
	edges, err := s.courses.PrerequisiteEdges(ctx, courseID)
	if err != nil {
		return nil, err
	}

	if cycle := findCycle(edges, courseID); cycle != nil {
		s.logger.Error("prerequisite graph contains a cycle",
			zap.String("course_id", courseID),
			zap.Strings("cycle", cycle))
		return &PrerequisiteResult{Cycle: cycle}, nil
	}

	result := &PrerequisiteResult{Missing: []string{}}
	if s.transitive {
		result.Missing = missingTransitive(edges, courseID, completed)
	} else {
		for _, prereq := range edges[courseID] {
			if !completed[prereq] {
				result.Missing = append(result.Missing, prereq)
			}
		}
	}
	result.Valid = len(result.Missing) == 0
	return result, nil
}

// findCycle runs a depth-first traversal from root and returns the first
// cycle encountered as the list of course ids forming the loop, or nil.
func findCycle(edges map[string][]string, root string) []string {
	visited := make(map[string]bool)
	onStack := make(map[string]bool)
	var stack []string
	var cycle []string

	var visit func(node string) bool
	visit = func(node string) bool {
		visited[node] = true
		onStack[node] = true
		stack = append(stack, node)

		for _, next := range edges[node] {
			if onStack[next] {
				for i, id := range stack {
					if id == next {
						cycle = append([]string{}, stack[i:]...)
						break
					}
				}
				return true
			}
			if !visited[next] && visit(next) {
				return true
			}
		}

		onStack[node] = false
		stack = stack[:len(stack)-1]
		return false
	}

	if visit(root) {
		return cycle
	}
	return nil
}

// missingTransitive collects every course reachable from root that the
// student has not completed. The root itself is excluded.
func missingTransitive(edges map[string][]string, root string, completed map[string]bool) []string {
	missing := []string{}
	seen := map[string]bool{root: true}
	pending := append([]string{}, edges[root]...)

	for len(pending) > 0 {
		id := pending[0]
		pending = pending[1:]
		if seen[id] {
			continue
		}
		seen[id] = true
		if !completed[id] {
			missing = append(missing, id)
		}
		pending = append(pending, edges[id]...)
	}
	return missing
}

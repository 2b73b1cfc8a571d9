package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/shaiso/Sentinel/internal/domain"
)

func noop(context.Context, *RunContext) (domain.PhaseResult, error) {
	return domain.PhaseResult{}, nil
}

func phaseNames(plan *Plan) []string {
	out := make([]string, 0, len(plan.Order))
	for _, p := range plan.Order {
		out = append(out, p.Name)
	}
	return out
}

func TestBuildPlan_DeclaredOrder(t *testing.T) {
	plan, err := BuildPlan([]Phase{
		{Name: "seo-audit", Run: noop},
		{Name: "performance", Run: noop},
		{Name: "api-health", Run: noop},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := phaseNames(plan)
	want := []string{"seo-audit", "performance", "api-health"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestBuildPlan_DependencyReorders(t *testing.T) {
	// indexing объявлена раньше, но зависит от seo-audit
	plan, err := BuildPlan([]Phase{
		{Name: "indexing", DependsOn: []string{"seo-audit"}, Run: noop},
		{Name: "performance", Run: noop},
		{Name: "seo-audit", Run: noop},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := phaseNames(plan)
	want := []string{"performance", "seo-audit", "indexing"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}

	deps := plan.Dependents("seo-audit")
	if len(deps) != 1 || deps[0] != "indexing" {
		t.Errorf("expected indexing to depend on seo-audit, got %v", deps)
	}
}

func TestBuildPlan_Diamond(t *testing.T) {
	// A → B → D
	// A → C → D
	plan, err := BuildPlan([]Phase{
		{Name: "A", Run: noop},
		{Name: "B", DependsOn: []string{"A"}, Run: noop},
		{Name: "C", DependsOn: []string{"A"}, Run: noop},
		{Name: "D", DependsOn: []string{"B", "C", "B"}, Run: noop},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.Size() != 4 {
		t.Errorf("expected 4 phases, got %d", plan.Size())
	}
	if plan.nodes["D"].inDegree != 2 {
		t.Errorf("duplicate dependency must count once, got inDegree %d", plan.nodes["D"].inDegree)
	}
	if got := phaseNames(plan); got[0] != "A" || got[3] != "D" {
		t.Errorf("unexpected order %v", got)
	}
}

func TestBuildPlan_Errors(t *testing.T) {
	tests := []struct {
		name   string
		phases []Phase
		want   error
	}{
		{"empty", nil, ErrNoPhases},
		{"empty name", []Phase{{Run: noop}}, ErrEmptyPhaseName},
		{"nil body", []Phase{{Name: "a"}}, ErrNilPhase},
		{"duplicate", []Phase{{Name: "a", Run: noop}, {Name: "a", Run: noop}}, ErrDuplicatePhase},
		{"unknown dep", []Phase{{Name: "a", DependsOn: []string{"x"}, Run: noop}}, ErrUnknownDependency},
		{"self dep", []Phase{{Name: "a", DependsOn: []string{"a"}, Run: noop}}, ErrSelfDependency},
		{"cycle", []Phase{
			{Name: "a", DependsOn: []string{"c"}, Run: noop},
			{Name: "b", DependsOn: []string{"a"}, Run: noop},
			{Name: "c", DependsOn: []string{"b"}, Run: noop},
		}, ErrCyclicDependency},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildPlan(tt.phases)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestValidationError_Message(t *testing.T) {
	_, err := BuildPlan([]Phase{{Name: "indexing", DependsOn: []string{"seo"}, Run: noop}})

	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if ve.Phase != "indexing" || ve.Field != "depends_on" {
		t.Errorf("unexpected context: %+v", ve)
	}
	if ve.Error() != "phase indexing: depends on unknown phase: seo" {
		t.Errorf("unexpected message: %s", ve.Error())
	}
}

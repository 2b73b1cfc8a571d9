package orchestrator

import (
	"fmt"
)

// node — узел графа фаз.
type node struct {
	// phase — определение фазы.
	phase *Phase

	// index — позиция фазы в объявлении (для стабильного порядка).
	index int

	// inDegree — количество входящих рёбер (зависимостей).
	inDegree int

	// dependsOn — узлы, от которых зависит этот узел.
	dependsOn []*node

	// dependents — узлы, которые зависят от этого узла.
	dependents []*node
}

// Plan — порядок выполнения фаз с учётом зависимостей.
type Plan struct {
	nodes map[string]*node

	// Order — фазы в порядке выполнения.
	// Независимые фазы идут в порядке объявления.
	Order []*Phase
}

// BuildPlan строит план выполнения фаз.
//
// Возвращает ValidationError при пустом списке, пустом или повторяющемся
// имени, зависимости от неизвестной фазы или от самой себя,
// и ErrCyclicDependency при цикле.
func BuildPlan(phases []Phase) (*Plan, error) {
	if len(phases) == 0 {
		return nil, ErrNoPhases
	}

	plan := &Plan{
		nodes: make(map[string]*node, len(phases)),
	}

	// Первый проход: создаём все узлы
	for i := range phases {
		phase := &phases[i]

		if phase.Name == "" {
			return nil, NewValidationError("", "name", fmt.Sprintf("phase #%d has empty name", i), ErrEmptyPhaseName)
		}
		if phase.Run == nil {
			return nil, NewValidationError(phase.Name, "run", "phase has no body", ErrNilPhase)
		}
		if _, exists := plan.nodes[phase.Name]; exists {
			return nil, NewValidationError(phase.Name, "name", "duplicate phase name", ErrDuplicatePhase)
		}

		plan.nodes[phase.Name] = &node{phase: phase, index: i}
	}

	// Второй проход: связываем узлы по зависимостям
	for i := range phases {
		phase := &phases[i]
		n := plan.nodes[phase.Name]

		for _, dep := range phase.DependsOn {
			if dep == phase.Name {
				return nil, NewValidationError(phase.Name, "depends_on", "phase depends on itself", ErrSelfDependency)
			}
			depNode, exists := plan.nodes[dep]
			if !exists {
				return nil, NewValidationError(phase.Name, "depends_on",
					fmt.Sprintf("depends on unknown phase: %s", dep), ErrUnknownDependency)
			}
			plan.addEdge(depNode, n)
		}
	}

	order, err := plan.topologicalSort()
	if err != nil {
		return nil, err
	}
	plan.Order = order

	return plan, nil
}

// addEdge добавляет ребро между узлами.
// Дубликаты игнорируются, чтобы не учитывать inDegree дважды.
func (p *Plan) addEdge(from, to *node) {
	for _, dep := range to.dependsOn {
		if dep == from {
			return
		}
	}
	from.dependents = append(from.dependents, to)
	to.dependsOn = append(to.dependsOn, from)
	to.inDegree++
}

// topologicalSort выполняет топологическую сортировку (алгоритм Кана).
//
// Из готовых узлов всегда выбирается объявленный раньше, поэтому
// без зависимостей порядок совпадает с объявлением.
func (p *Plan) topologicalSort() ([]*Phase, error) {
	inDegree := make(map[*node]int, len(p.nodes))
	ready := make([]*node, 0)
	for _, n := range p.nodes {
		inDegree[n] = n.inDegree
		if n.inDegree == 0 {
			ready = append(ready, n)
		}
	}

	order := make([]*Phase, 0, len(p.nodes))

	for len(ready) > 0 {
		// Берём узел с наименьшим index
		best := 0
		for i := range ready {
			if ready[i].index < ready[best].index {
				best = i
			}
		}
		n := ready[best]
		ready = append(ready[:best], ready[best+1:]...)
		order = append(order, n.phase)

		for _, dependent := range n.dependents {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				ready = append(ready, dependent)
			}
		}
	}

	// Если не все узлы обработаны — есть цикл
	if len(order) != len(p.nodes) {
		return nil, ErrCyclicDependency
	}

	return order, nil
}

// Dependents возвращает имена фаз, напрямую зависящих от name.
func (p *Plan) Dependents(name string) []string {
	n, ok := p.nodes[name]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(n.dependents))
	for _, d := range n.dependents {
		out = append(out, d.phase.Name)
	}
	return out
}

// Size возвращает количество фаз в плане.
func (p *Plan) Size() int {
	return len(p.nodes)
}

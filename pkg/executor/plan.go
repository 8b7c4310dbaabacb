package executor

import (
	"container/heap"
	"slices"

	"github.com/aretw0/pubflow/pkg/domain"
)

// Graph is the read-only view of a registry needed for planning.
type Graph interface {
	Get(name string) (*domain.Task, bool)
	Names() []string
}

// Plan is the scheduled subset of a graph in execution order.
type Plan struct {
	// Order lists the scheduled tasks in deterministic topological order.
	Order []string
	Tasks map[string]*domain.Task

	// hard lists each task's scheduled dependsOn predecessors.
	hard map[string][]string
	// preds lists every scheduled predecessor: hard, soft and finalizer owners.
	preds map[string][]string
	succs map[string][]string
	// owners maps tasks scheduled only as finalizers to the tasks they finalize.
	owners map[string][]string
}

// NewPlan schedules requested and everything it transitively needs.
// It fails with an UnknownTaskError for a name that does not resolve
// and a CyclicDependencyError if the scheduled tasks cannot be ordered.
func NewPlan(g Graph, requested []string) (*Plan, error) {
	p := &Plan{
		Tasks:  make(map[string]*domain.Task),
		hard:   make(map[string][]string),
		preds:  make(map[string][]string),
		succs:  make(map[string][]string),
		owners: make(map[string][]string),
	}

	// Tasks reached through dependsOn or requested directly always run;
	// tasks reached only through finalizedBy depend on their owners.
	direct := make(map[string]bool)
	finalizerOf := make(map[string][]string)

	type visit struct {
		name, referrer, relation string
	}
	queue := make([]visit, 0, len(requested))
	for _, name := range requested {
		queue = append(queue, visit{name: name})
	}
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]

		task, ok := g.Get(v.name)
		if !ok {
			return nil, &domain.UnknownTaskError{Name: v.name, Referrer: v.referrer, Relation: v.relation}
		}
		if v.relation == domain.RelationFinalizedBy {
			finalizerOf[v.name] = appendUnique(finalizerOf[v.name], v.referrer)
		} else {
			direct[v.name] = true
		}
		if _, seen := p.Tasks[v.name]; seen {
			continue
		}
		p.Tasks[v.name] = task

		for _, dep := range task.DependsOn {
			queue = append(queue, visit{dep, v.name, domain.RelationDependsOn})
		}
		for _, fin := range task.FinalizedBy {
			queue = append(queue, visit{fin, v.name, domain.RelationFinalizedBy})
		}
	}

	for name, owners := range finalizerOf {
		if !direct[name] {
			p.owners[name] = owners
		}
	}

	for _, name := range sortedNames(p.Tasks) {
		task := p.Tasks[name]
		for _, dep := range task.DependsOn {
			p.hard[name] = appendUnique(p.hard[name], dep)
			p.addEdge(dep, name)
		}
		for _, other := range task.MustRunAfter {
			if _, scheduled := p.Tasks[other]; scheduled {
				p.addEdge(other, name)
			}
		}
		for _, fin := range task.FinalizedBy {
			p.addEdge(name, fin)
		}
	}

	order := p.topoOrder()
	if len(order) != len(p.Tasks) {
		return nil, &domain.CyclicDependencyError{Cycle: p.findCycle()}
	}
	p.Order = order
	return p, nil
}

// ValidateGraph checks that the whole graph can be ordered.
func ValidateGraph(g Graph) error {
	_, err := NewPlan(g, g.Names())
	return err
}

func (p *Plan) addEdge(from, to string) {
	if slices.Contains(p.succs[from], to) {
		return
	}
	p.succs[from] = append(p.succs[from], to)
	p.preds[to] = append(p.preds[to], from)
}

// Len returns the number of scheduled tasks.
func (p *Plan) Len() int { return len(p.Tasks) }

// Has reports whether name is scheduled.
func (p *Plan) Has(name string) bool {
	_, ok := p.Tasks[name]
	return ok
}

func (p *Plan) indegrees() map[string]int {
	indeg := make(map[string]int, len(p.Tasks))
	for name := range p.Tasks {
		indeg[name] = len(p.preds[name])
	}
	return indeg
}

// topoOrder returns a deterministic topological ordering.
// The ready queue is a min-heap by task name.
func (p *Plan) topoOrder() []string {
	indeg := p.indegrees()

	ready := &nameHeap{}
	for name, d := range indeg {
		if d == 0 {
			heap.Push(ready, name)
		}
	}

	out := make([]string, 0, len(indeg))
	for ready.Len() > 0 {
		n := heap.Pop(ready).(string)
		out = append(out, n)
		for _, m := range p.succs[n] {
			indeg[m]--
			if indeg[m] == 0 {
				heap.Push(ready, m)
			}
		}
	}
	return out
}

// findCycle performs a deterministic DFS along predecessor edges and returns
// one cycle as a path whose first and last elements are equal. Each element
// must run after the next one.
func (p *Plan) findCycle() []string {
	const (
		white = iota
		gray
		black
	)
	color := make(map[string]int, len(p.Tasks))
	parent := make(map[string]string, len(p.Tasks))

	var cycle []string
	var dfs func(u string) bool
	dfs = func(u string) bool {
		color[u] = gray
		next := slices.Clone(p.preds[u])
		slices.Sort(next)
		for _, v := range next {
			switch color[v] {
			case white:
				parent[v] = u
				if dfs(v) {
					return true
				}
			case gray:
				// Back-edge u -> v: the cycle is v ... u -> v.
				path := []string{u}
				for cur := u; cur != v; {
					cur = parent[cur]
					path = append(path, cur)
				}
				slices.Reverse(path)
				cycle = append(path, v)
				return true
			}
		}
		color[u] = black
		return false
	}

	for _, name := range sortedNames(p.Tasks) {
		if color[name] == white && dfs(name) {
			break
		}
	}
	return cycle
}

func sortedNames(m map[string]*domain.Task) []string {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

func appendUnique(dst []string, v string) []string {
	if slices.Contains(dst, v) {
		return dst
	}
	return append(dst, v)
}

type nameHeap []string

func (h nameHeap) Len() int           { return len(h) }
func (h nameHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h nameHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *nameHeap) Push(x any)        { *h = append(*h, x.(string)) }
func (h *nameHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

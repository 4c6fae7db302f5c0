package plan

import "sort"

// CycleError reports that ComputeLevels could not find a topological
// order: Ops is the set of ops with residual in-degree (i.e. every op
// that participates in, or is blocked behind, a cycle).
type CycleError struct {
	Ops []OpId
}

func (e *CycleError) Error() string {
	return "cycle detected among ops: " + formatOpIds(e.Ops)
}

func formatOpIds(ids []OpId) string {
	out := "["
	for i, id := range ids {
		if i > 0 {
			out += ", "
		}
		out += itoa(uint64(id))
	}
	return out + "]"
}

func itoa(v uint64) string {
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}

// ComputeLevels assigns every op in the plan to exactly one topological
// level via Kahn's algorithm: level 0 holds every op with no unresolved
// dependency, level 1 holds ops whose dependencies are entirely within
// level 0, and so on. Ops within a level are sorted by OpId so the result
// is deterministic across runs. Returns a *CycleError if any op has a
// dependency that never reaches in-degree zero.
func ComputeLevels(p *Plan) ([][]OpId, error) {
	inDegree := make(map[OpId]int, len(p.Ops))
	dependents := make(map[OpId][]OpId, len(p.Ops))

	for _, op := range p.Ops {
		if _, ok := inDegree[op.Id]; !ok {
			inDegree[op.Id] = 0
		}
		for _, dep := range op.Inputs {
			inDegree[op.Id]++
			dependents[dep] = append(dependents[dep], op.Id)
		}
	}

	var levels [][]OpId
	remaining := len(p.Ops)

	frontier := make([]OpId, 0)
	for _, op := range p.Ops {
		if inDegree[op.Id] == 0 {
			frontier = append(frontier, op.Id)
		}
	}

	for len(frontier) > 0 {
		sort.Slice(frontier, func(i, j int) bool { return frontier[i] < frontier[j] })
		levels = append(levels, frontier)
		remaining -= len(frontier)

		var next []OpId
		for _, id := range frontier {
			for _, dep := range dependents[id] {
				inDegree[dep]--
				if inDegree[dep] == 0 {
					next = append(next, dep)
				}
			}
		}
		frontier = next
	}

	if remaining > 0 {
		var stuck []OpId
		for _, op := range p.Ops {
			if inDegree[op.Id] > 0 {
				stuck = append(stuck, op.Id)
			}
		}
		sort.Slice(stuck, func(i, j int) bool { return stuck[i] < stuck[j] })
		return nil, &CycleError{Ops: stuck}
	}

	return levels, nil
}

package cfg

// findLoops computes dominators by iterative data flow (the standard
// worklist fixed point: Dom(entry) = {entry}, Dom(n) = {n} ∪ ⋂ Dom(preds(n))
// until no set changes) and derives natural loops from back edges, per
// spec.md §4.3.
func findLoops(g *Graph) []Loop {
	if len(g.Blocks) == 0 {
		return nil
	}

	preds := make([][]BlockID, len(g.Blocks))
	for _, b := range g.Blocks {
		for _, e := range b.Edges {
			if e.To == ExitBlock {
				continue
			}
			preds[e.To] = append(preds[e.To], b.ID)
		}
	}

	all := make(map[BlockID]bool, len(g.Blocks))
	for _, b := range g.Blocks {
		all[b.ID] = true
	}

	dom := make([]map[BlockID]bool, len(g.Blocks))
	entryID := g.Blocks[0].ID
	for _, b := range g.Blocks {
		if b.ID == entryID {
			dom[b.ID] = map[BlockID]bool{entryID: true}
		} else {
			dom[b.ID] = cloneSet(all)
		}
	}

	changed := true
	for changed {
		changed = false
		for _, b := range g.Blocks {
			if b.ID == entryID {
				continue
			}
			ps := preds[b.ID]
			if len(ps) == 0 {
				continue
			}
			newSet := cloneSet(dom[ps[0]])
			for _, p := range ps[1:] {
				intersect(newSet, dom[p])
			}
			newSet[b.ID] = true
			if !setsEqual(newSet, dom[b.ID]) {
				dom[b.ID] = newSet
				changed = true
			}
		}
	}

	var loops []Loop
	for _, b := range g.Blocks {
		for _, e := range b.Edges {
			if e.To == ExitBlock {
				continue
			}
			if dom[b.ID][e.To] {
				// Back edge b.ID -> e.To, since e.To dominates b.ID.
				loops = append(loops, naturalLoop(g, preds, e.To, Edge{To: e.To, Kind: e.Kind}, b.ID))
			}
		}
	}
	return loops
}

// naturalLoop computes the natural loop of back edge tail->header: the set
// of blocks that can reach tail without passing through header, plus
// header itself.
func naturalLoop(g *Graph, preds [][]BlockID, header BlockID, backEdge Edge, tail BlockID) Loop {
	body := map[BlockID]bool{header: true}
	if tail != header {
		body[tail] = true
	}
	stack := []BlockID{tail}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, p := range preds[n] {
			if !body[p] {
				body[p] = true
				stack = append(stack, p)
			}
		}
	}

	exits := map[BlockID]bool{}
	for id := range body {
		for _, e := range g.Blocks[id].Edges {
			if e.To != ExitBlock && !body[e.To] {
				exits[e.To] = true
			}
		}
	}

	return Loop{
		Header:    header,
		BackEdges: []Edge{{To: header, Kind: backEdge.Kind}},
		Body:      body,
		Exits:     exits,
	}
}

func cloneSet(s map[BlockID]bool) map[BlockID]bool {
	out := make(map[BlockID]bool, len(s))
	for k := range s {
		out[k] = true
	}
	return out
}

func intersect(a, b map[BlockID]bool) {
	for k := range a {
		if !b[k] {
			delete(a, k)
		}
	}
}

func setsEqual(a, b map[BlockID]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

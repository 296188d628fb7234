package mapping

import (
	"sort"

	"github.com/rflorenc/nexus-migration-workbench/internal/models"
)

// FindRoleCycles returns, sorted, the ids of every role that can reach
// itself through child-role references (self-references included).
// References to unknown roles are ignored.
func FindRoleCycles(roles []models.LegacyRole) []string {
	edges := make(map[string][]string, len(roles))
	for _, r := range roles {
		edges[r.ID] = append(edges[r.ID], r.ChildRoleIDs...)
	}

	// Tarjan's strongly connected components.
	var (
		index   = map[string]int{}
		low     = map[string]int{}
		onStack = map[string]bool{}
		stack   []string
		next    int
		cyclic  []string
	)
	var visit func(v string)
	visit = func(v string) {
		index[v] = next
		low[v] = next
		next++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range edges[v] {
			if _, known := edges[w]; !known {
				continue
			}
			if _, seen := index[w]; !seen {
				visit(w)
				low[v] = min(low[v], low[w])
			} else if onStack[w] {
				low[v] = min(low[v], index[w])
			}
		}

		if low[v] != index[v] {
			return
		}
		var comp []string
		for {
			w := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[w] = false
			comp = append(comp, w)
			if w == v {
				break
			}
		}
		if len(comp) > 1 || selfLoop(v, edges[v]) {
			cyclic = append(cyclic, comp...)
		}
	}

	ids := make([]string, 0, len(edges))
	for id := range edges {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if _, seen := index[id]; !seen {
			visit(id)
		}
	}
	sort.Strings(cyclic)
	return cyclic
}

func selfLoop(v string, children []string) bool {
	for _, c := range children {
		if c == v {
			return true
		}
	}
	return false
}

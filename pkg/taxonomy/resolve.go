package taxonomy

import "sort"

// ResolveResult is the outcome of a term lookup: numeric terms match by
// id; string terms match normalized name equality (exact) or substring
// (partial).
type ResolveResult struct {
	Exact   []int
	Partial []int
}

// Resolve looks term up in the index. Numeric terms match
// directly by id (exact only, no partial matches are meaningful for an
// id lookup). String terms normalize and match against every name
// variant on every node.
func (idx *Index) Resolve(term string) ResolveResult {
	if id, ok := isNumeric(term); ok {
		if _, found := idx.Node(id); found {
			return ResolveResult{Exact: []int{id}}
		}
		return ResolveResult{}
	}

	needle := normalize(term)

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var res ResolveResult
	if ids, ok := idx.namesToIDs[needle]; ok {
		res.Exact = append(res.Exact, ids...)
	}

	seenExact := make(map[int]bool, len(res.Exact))
	for _, id := range res.Exact {
		seenExact[id] = true
	}

	if needle != "" {
		for key, ids := range idx.namesToIDs {
			if key == needle {
				continue
			}
			if containsSubstring(key, needle) {
				for _, id := range ids {
					if !seenExact[id] {
						res.Partial = append(res.Partial, id)
					}
				}
			}
		}
	}

	res.Exact = dedupSorted(res.Exact)
	res.Partial = dedupSorted(res.Partial)
	return res
}

// Unambiguous applies the term tie-break policy: one exact match wins; if
// exact is empty and partial has exactly one match, that wins; otherwise
// the result is ambiguous (both lists returned for the caller to report).
func (r ResolveResult) Unambiguous() (id int, ok bool) {
	if len(r.Exact) == 1 {
		return r.Exact[0], true
	}
	if len(r.Exact) == 0 && len(r.Partial) == 1 {
		return r.Partial[0], true
	}
	return 0, false
}

// Empty reports whether neither list has any match.
func (r ResolveResult) Empty() bool {
	return len(r.Exact) == 0 && len(r.Partial) == 0
}

func containsSubstring(haystack, needle string) bool {
	if len(needle) == 0 {
		return true
	}
	if len(needle) > len(haystack) {
		return false
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}

func dedupSorted(ids []int) []int {
	if len(ids) == 0 {
		return ids
	}
	sort.Ints(ids)
	out := ids[:1]
	for _, id := range ids[1:] {
		if id != out[len(out)-1] {
			out = append(out, id)
		}
	}
	return out
}

// Names returns every {kind, text} name on id, in the order stored.
func (idx *Index) Names(id int) []Name {
	n, ok := idx.Node(id)
	if !ok {
		return nil
	}
	return n.Names
}

// DisplayName returns the first scientific name, else the first common
// name, else the first name of any kind, else the empty string, used by
// the `lineage` pretty renderer.
func (idx *Index) DisplayName(id int) string {
	n, ok := idx.Node(id)
	if !ok {
		return ""
	}
	for _, name := range n.Names {
		if name.Kind == NameScientific {
			return name.Text
		}
	}
	for _, name := range n.Names {
		if name.Kind == NameCommon {
			return name.Text
		}
	}
	if len(n.Names) > 0 {
		return n.Names[0].Text
	}
	return ""
}

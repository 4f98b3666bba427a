package rbac

import (
	"sort"

	"masthead/internal/auth/models"
)

// WildcardAction grants every action on a resource.
const WildcardAction = "*"

// Evaluator answers permission questions for authenticated principals.
// Evaluation is pure: all inputs ride on the principal, so checks are cheap
// and never touch a store.
type Evaluator struct{}

func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// Has reports whether the principal may perform action on resource.
// Wildcard roles short-circuit; otherwise an explicit grant or a
// resource-level wildcard grant is required.
func (e *Evaluator) Has(p *models.Principal, resource, action string) bool {
	if p == nil {
		return false
	}
	if p.Wildcard {
		return true
	}
	for _, g := range p.Grants {
		if g.Resource != resource {
			continue
		}
		if g.Action == action || g.Action == WildcardAction {
			return true
		}
	}
	return false
}

// Merge combines permission sets deterministically: duplicates collapse, a
// resource wildcard absorbs that resource's specific grants, and the result
// is sorted by resource then action.
func Merge(sets ...[]models.Permission) []models.Permission {
	wildcards := make(map[string]bool)
	seen := make(map[models.Permission]bool)

	for _, set := range sets {
		for _, p := range set {
			if p.Action == WildcardAction {
				wildcards[p.Resource] = true
			}
			seen[p] = true
		}
	}

	merged := make([]models.Permission, 0, len(seen))
	for p := range seen {
		if wildcards[p.Resource] && p.Action != WildcardAction {
			continue
		}
		merged = append(merged, p)
	}

	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Resource != merged[j].Resource {
			return merged[i].Resource < merged[j].Resource
		}
		return merged[i].Action < merged[j].Action
	})
	return merged
}

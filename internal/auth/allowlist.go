package auth

import "strings"

// Allowlist is an immutable set of subjects permitted to use the service.
// An empty allowlist admits nobody.
type Allowlist struct {
	subjects map[string]struct{}
}

// NewAllowlist builds an allowlist. Blank entries are ignored and
// surrounding whitespace is trimmed.
func NewAllowlist(subjects []string) *Allowlist {
	set := make(map[string]struct{}, len(subjects))
	for _, s := range subjects {
		if s = strings.TrimSpace(s); s != "" {
			set[s] = struct{}{}
		}
	}
	return &Allowlist{subjects: set}
}

// Allows reports whether subject is a member.
func (a *Allowlist) Allows(subject string) bool {
	if a == nil || subject == "" {
		return false
	}
	_, ok := a.subjects[subject]
	return ok
}

// Len returns the number of subjects.
func (a *Allowlist) Len() int {
	if a == nil {
		return 0
	}
	return len(a.subjects)
}

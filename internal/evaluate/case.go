package evaluate

import (
	"fmt"
	"strings"
)

// Kind selects how a dataset lays out its targets and how locations are
// compared.
type Kind string

const (
	// Synthetic cases are single demo apps; locations are bare scope paths.
	Synthetic Kind = "synthetic"
	// Realworld cases are CVE snapshots; locations are "<file>:<scope>".
	Realworld Kind = "realworld"
)

// ParseKind accepts "synthetic" or "realworld".
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(s)); k {
	case Synthetic, Realworld:
		return k, nil
	}
	return "", fmt.Errorf("unknown dataset kind %q (want synthetic or realworld)", s)
}

const (
	VariantVul = "vul"
	VariantFix = "fix"
)

// Case is one evaluation unit, named after its report file:
// <case id>_<vul|fix>.
type Case struct {
	FullName string `json:"full_name"`
	ID       string `json:"case_id"`
	// Hint is the leading token of the id: the CWE of a synthetic case or
	// the CVE of a real-world one.
	Hint    string `json:"hint"`
	Variant string `json:"variant"`
	// Expect is true when the tool should flag the case.
	Expect bool `json:"expect"`
}

// ParseCase splits a report stem such as "CWE-89_DS-1_vul" into its parts.
// The last three characters decide the variant.
func ParseCase(fullName string) (Case, error) {
	if len(fullName) < 5 || fullName[len(fullName)-4] != '_' {
		return Case{}, fmt.Errorf("report name %q does not follow <case>_<vul|fix>", fullName)
	}

	variant := fullName[len(fullName)-3:]
	if variant != VariantVul && variant != VariantFix {
		return Case{}, fmt.Errorf("report name %q: unknown variant %q", fullName, variant)
	}

	id := fullName[:len(fullName)-4]
	hint := id
	if i := strings.Index(id, "_"); i >= 0 {
		hint = id[:i]
	}

	return Case{
		FullName: fullName,
		ID:       id,
		Hint:     hint,
		Variant:  variant,
		Expect:   variant == VariantVul,
	}, nil
}

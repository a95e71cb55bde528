package remediation

// Counts summarises a reconciliation. Confirmed counts every fix in the
// merged list, including fixes only the re-check reported, so it can exceed
// Estimated. ConfirmedEstimates + Unconfirmed always equals Estimated.
type Counts struct {
	Estimated          int `json:"estimated"`
	Confirmed          int `json:"confirmed"`
	ConfirmedEstimates int `json:"confirmedEstimates"`
	Remaining          int `json:"remaining"`
	Resolved           int `json:"resolved"`
	Unconfirmed        int `json:"unconfirmed"`
}

// Reconciliation merges the fixes estimated from the first analysis with
// what a re-check of the remediated file reports.
type Reconciliation struct {
	Original          Report  `json:"original"`
	Recheck           *Report `json:"recheck,omitempty"`
	Fixed             []Issue `json:"fixed"`
	Flagged           []Issue `json:"flagged"`
	Counts            Counts  `json:"counts"`
	Summary           Summary `json:"summary"`
	Authoritative     bool    `json:"authoritative"`
	DocumentProtected bool    `json:"documentProtected"`
}

// Reconcile is pure. With a nil recheck the estimate is reported as is and
// nothing counts as confirmed.
func Reconcile(original Report, recheck *Report) Reconciliation {
	estimated, origFlagged := Split(Flatten(original.Remediation))

	rec := Reconciliation{
		Original:          original,
		Recheck:           recheck,
		DocumentProtected: original.DocumentProtected,
	}

	if recheck == nil {
		rec.Fixed = nonNil(estimated)
		rec.Flagged = nonNil(origFlagged)
		rec.Summary = NormalizeSummary(original)
		rec.Counts = Counts{
			Estimated:   len(estimated),
			Remaining:   len(origFlagged),
			Unconfirmed: len(estimated),
		}
		return rec
	}

	recheckFixed, recheckFlagged := Split(Flatten(recheck.Remediation))
	still := newFlagIndex(recheckFlagged)

	var fixed []Issue
	seen := make(map[string]bool)
	confirmedEstimates := 0
	for _, is := range estimated {
		if still.matches(is) {
			continue
		}
		confirmedEstimates++
		if k := is.key(); !seen[k] {
			seen[k] = true
			fixed = append(fixed, is)
		}
	}
	for _, is := range recheckFixed {
		if k := is.key(); !seen[k] {
			seen[k] = true
			fixed = append(fixed, is)
		}
	}

	resolved := 0
	for _, is := range origFlagged {
		if !still.matches(is) {
			resolved++
		}
	}

	rec.Fixed = nonNil(fixed)
	rec.Flagged = nonNil(recheckFlagged)
	rec.Summary = NormalizeSummary(*recheck)
	rec.Authoritative = true
	rec.DocumentProtected = original.DocumentProtected || recheck.DocumentProtected
	rec.Counts = Counts{
		Estimated:          len(estimated),
		Confirmed:          len(fixed),
		ConfirmedEstimates: confirmedEstimates,
		Remaining:          len(recheckFlagged),
		Resolved:           resolved,
		Unconfirmed:        max(len(estimated)-confirmedEstimates, 0),
	}
	return rec
}

// flagIndex answers "is this issue still flagged": by category when the
// issue has one, by message otherwise.
type flagIndex struct {
	categories map[string]bool
	messages   map[string]bool
}

func newFlagIndex(flagged []Issue) flagIndex {
	idx := flagIndex{categories: map[string]bool{}, messages: map[string]bool{}}
	for _, is := range flagged {
		if c := normalizeCategory(is.Category); c != "" {
			idx.categories[c] = true
		}
		idx.messages[normalizeMessage(is.Message)] = true
	}
	return idx
}

func (f flagIndex) matches(is Issue) bool {
	if c := normalizeCategory(is.Category); c != "" {
		return f.categories[c]
	}
	return f.messages[normalizeMessage(is.Message)]
}

func nonNil(issues []Issue) []Issue {
	if issues == nil {
		return []Issue{}
	}
	return issues
}

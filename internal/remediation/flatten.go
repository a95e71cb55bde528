package remediation

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"
)

type IssueType string

const (
	IssueFixed   IssueType = "fixed"
	IssueFlagged IssueType = "flagged"
)

// Issue is one display row derived from the remediation object.
type Issue struct {
	Type     IssueType `json:"type"`
	Category string    `json:"category,omitempty"`
	Message  string    `json:"message"`
}

func (i Issue) key() string {
	return string(i.Type) + "\x00" + normalizeCategory(i.Category) + "\x00" + normalizeMessage(i.Message)
}

var listKeys = map[string]IssueType{
	"fixes":         IssueFixed,
	"fixed":         IssueFixed,
	"fixedissues":   IssueFixed,
	"flagged":       IssueFlagged,
	"issues":        IssueFlagged,
	"flaggedissues": IssueFlagged,
	"warnings":      IssueFlagged,
}

var bookkeepingKeys = map[string]bool{
	"documentprotected": true,
	"downloadid":        true,
	"filename":          true,
}

// Flatten walks the remediation object in sorted key order and returns the
// fixed and flagged issues it describes, without duplicates.
func Flatten(remediation map[string]interface{}) []Issue {
	keys := make([]string, 0, len(remediation))
	for k := range remediation {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []Issue
	seen := make(map[string]bool)
	add := func(is Issue) {
		is.Message = strings.TrimSpace(is.Message)
		if is.Message == "" {
			return
		}
		k := is.key()
		if seen[k] {
			return
		}
		seen[k] = true
		out = append(out, is)
	}

	for _, key := range keys {
		lower := strings.ToLower(key)
		if bookkeepingKeys[lower] {
			continue
		}
		if typ, ok := listKeys[lower]; ok {
			flattenValue(typ, "", remediation[key], add)
			continue
		}
		typ, rest, ok := splitSuffix(key)
		if !ok {
			continue
		}
		flattenValue(typ, humanize(rest), remediation[key], add)
	}
	return out
}

// Split separates issues by type, keeping order.
func Split(issues []Issue) (fixed, flagged []Issue) {
	for _, is := range issues {
		if is.Type == IssueFixed {
			fixed = append(fixed, is)
		} else {
			flagged = append(flagged, is)
		}
	}
	return fixed, flagged
}

func splitSuffix(key string) (IssueType, string, bool) {
	lower := strings.ToLower(key)
	for _, s := range []struct {
		suffix string
		typ    IssueType
	}{{"fixed", IssueFixed}, {"flagged", IssueFlagged}} {
		if strings.HasSuffix(lower, s.suffix) && len(key) > len(s.suffix) {
			rest := strings.TrimRight(key[:len(key)-len(s.suffix)], "_- ")
			if rest == "" {
				return "", "", false
			}
			return s.typ, rest, true
		}
	}
	return "", "", false
}

func flattenValue(typ IssueType, category string, v interface{}, add func(Issue)) {
	switch val := v.(type) {
	case bool:
		if val {
			add(Issue{Type: typ, Category: category, Message: boolMessage(typ, category)})
		}
	case float64:
		if val > 0 && !math.IsInf(val, 0) {
			add(Issue{Type: typ, Category: category, Message: countMessage(typ, category, val)})
		}
	case string:
		add(Issue{Type: typ, Category: category, Message: val})
	case []interface{}:
		for _, item := range val {
			switch it := item.(type) {
			case string:
				add(Issue{Type: typ, Category: category, Message: it})
			case map[string]interface{}:
				cat := firstString(it, "category", "rule")
				if cat == "" {
					cat = category
				}
				add(Issue{Type: typ, Category: cat, Message: firstString(it, "message", "description", "details", "rule")})
			}
		}
	}
}

func boolMessage(typ IssueType, category string) string {
	if category == "" {
		category = "Issues"
	}
	if typ == IssueFixed {
		return category + " fixed"
	}
	return category + " needs review"
}

func countMessage(typ IssueType, category string, n float64) string {
	label := strings.ToLower(category)
	if label == "" {
		label = "issues"
	}
	count := fmt.Sprintf("%g", n)
	if n == math.Trunc(n) {
		count = fmt.Sprintf("%d", int64(n))
	}
	return fmt.Sprintf("%s × %s %s", count, label, typ)
}

func firstString(m map[string]interface{}, fields ...string) string {
	for _, f := range fields {
		if s, ok := m[f].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// humanize turns "altText", "alt_text" or "AltText" into "Alt text".
func humanize(key string) string {
	var words []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			words = append(words, strings.ToLower(string(cur)))
			cur = cur[:0]
		}
	}
	runes := []rune(key)
	for i, r := range runes {
		switch {
		case r == '_' || r == '-' || r == ' ' || r == '.':
			flush()
		case unicode.IsUpper(r):
			// keep acronyms such as "PDFTags" together until the next word starts
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			prevLower := i > 0 && (unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1]))
			if prevLower || (nextLower && len(cur) > 0) {
				flush()
			}
			cur = append(cur, r)
		default:
			cur = append(cur, r)
		}
	}
	flush()
	if len(words) == 0 {
		return ""
	}
	s := strings.Join(words, " ")
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

func normalizeMessage(s string) string {
	s = strings.ToLower(strings.Join(strings.Fields(s), " "))
	return strings.TrimRight(s, ".!;: ")
}

func normalizeCategory(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

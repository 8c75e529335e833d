package refs

import (
	"context"
	"fmt"

	"github.com/marmos91/refstore/internal/refs/refserr"
)

// ForEachRef walks backend in lexicographic order starting at prefix,
// trimming trim leading bytes before invoking fn. A non-nil error from
// fn stops iteration and is returned as-is.
func ForEachRef(ctx context.Context, backend Backend, prefix string, trim int, flags ResolveFlags, fn func(RefEntry) error) error {
	return backend.DoForEachRef(ctx, prefix, trim, flags, fn)
}

// dwimRules is the fixed, ordered rule list consulted by DwimRef and
// ShortenUnambiguousRef.
var dwimRules = []string{
	"%s",
	"refs/%s",
	"refs/tags/%s",
	"refs/heads/%s",
	"refs/remotes/%s",
	"refs/remotes/%s/HEAD",
}

// DwimRef resolves an abbreviated ref name short by trying the fixed
// rule list in order, returning the first rule that resolves. If
// warnAmbiguous is set, it keeps scanning remaining rules and returns a
// non-empty ambiguity warning alongside the first match.
func DwimRef(ctx context.Context, backend Backend, short string, warnAmbiguous bool) (name string, warning string, err error) {
	var matched string
	var others []string

	for _, rule := range dwimRules {
		candidate := fmt.Sprintf(rule, short)
		if _, rerr := backend.ReadRawRef(ctx, candidate); rerr == nil {
			if matched == "" {
				matched = candidate
				if !warnAmbiguous {
					return matched, "", nil
				}
				continue
			}
			others = append(others, candidate)
		}
	}

	if matched == "" {
		return "", "", refserr.NewNotFoundError(short)
	}
	if len(others) > 0 {
		warning = fmt.Sprintf("refname %q is ambiguous: also matches %v", short, others)
	}
	return matched, warning, nil
}

// ShortenUnambiguousRef is DwimRef's inverse: it returns the shortest
// form among the dwim rules that still resolves uniquely to name. In
// strict mode every other rule is checked for a collision; otherwise
// only the rules listed before the matching one are checked.
func ShortenUnambiguousRef(ctx context.Context, backend Backend, name string, strict bool) (string, error) {
	for i := len(dwimRules) - 1; i >= 0; i-- {
		rule := dwimRules[i]
		short := trimRulePrefix(rule, name)
		if short == "" {
			continue
		}
		if fmt.Sprintf(rule, short) != name {
			continue
		}

		checkUpto := len(dwimRules)
		if !strict {
			checkUpto = i
		}

		ambiguous := false
		for j := 0; j < checkUpto; j++ {
			if j == i {
				continue
			}
			probe := fmt.Sprintf(dwimRules[j], short)
			if _, rerr := backend.ReadRawRef(ctx, probe); rerr == nil {
				ambiguous = true
				break
			}
		}
		if !ambiguous {
			return short, nil
		}
	}

	return name, nil
}

// trimRulePrefix extracts the %s portion of name for a given dwim rule
// template, or "" if name does not match the rule's fixed prefix/suffix.
func trimRulePrefix(rule, name string) string {
	switch rule {
	case "%s":
		return name
	case "refs/%s":
		return trimAffix(name, "refs/", "")
	case "refs/tags/%s":
		return trimAffix(name, "refs/tags/", "")
	case "refs/heads/%s":
		return trimAffix(name, "refs/heads/", "")
	case "refs/remotes/%s":
		return trimAffix(name, "refs/remotes/", "")
	case "refs/remotes/%s/HEAD":
		return trimAffix(name, "refs/remotes/", "/HEAD")
	default:
		return ""
	}
}

func trimAffix(name, prefix, suffix string) string {
	if len(name) <= len(prefix)+len(suffix) {
		return ""
	}
	if name[:len(prefix)] != prefix {
		return ""
	}
	if suffix != "" && name[len(name)-len(suffix):] != suffix {
		return ""
	}
	return name[len(prefix) : len(name)-len(suffix)]
}

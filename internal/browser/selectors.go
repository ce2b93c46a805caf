package browser

import (
	"fmt"
	"strings"
)

// Selector discriminators accepted on selector-taking operations.
const (
	ByCSS             = "css"
	ByXPath           = "xpath"
	ByID              = "id"
	ByName            = "name"
	ByTag             = "tag"
	ByClass           = "class"
	ByLinkText        = "link_text"
	ByPartialLinkText = "partial_link_text"
)

// selectorFor maps a by discriminator and raw selector onto playwright
// selector syntax. Unknown discriminators are treated as css.
func selectorFor(by, selector string) string {
	switch by {
	case ByCSS, "":
		return selector
	case ByXPath:
		return "xpath=" + selector
	case ByID:
		return "#" + selector
	case ByName:
		return fmt.Sprintf(`[name="%s"]`, selector)
	case ByTag:
		return selector
	case ByClass:
		classes := strings.Fields(selector)
		if len(classes) == 0 {
			return selector
		}

		return "." + strings.Join(classes, ".")
	case ByLinkText:
		return fmt.Sprintf(`text="%s"`, selector)
	case ByPartialLinkText:
		return "text=" + selector
	default:
		return selector
	}
}

// alternativeSelectors returns selector variants worth trying when the
// primary selector matches nothing. Best-effort; an empty slice is fine.
func alternativeSelectors(by, selector string) []string {
	var alts []string

	switch {
	case by == ByID, by == ByCSS && strings.HasPrefix(selector, "#"):
		v := strings.TrimPrefix(selector, "#")
		alts = append(alts,
			fmt.Sprintf(`[name="%s"]`, v),
			fmt.Sprintf(`[data-testid="%s"]`, v),
			fmt.Sprintf(`[aria-label="%s"]`, v),
		)
	case by == ByName:
		alts = append(alts,
			"#"+selector,
			fmt.Sprintf(`[placeholder*="%s"]`, selector),
			fmt.Sprintf(`[aria-label*="%s"]`, selector),
		)
	case by == ByClass:
		for _, class := range strings.Fields(selector) {
			alts = append(alts, fmt.Sprintf(`[class*="%s"]`, class))
		}
	case by == ByLinkText, by == ByPartialLinkText:
		alts = append(alts,
			fmt.Sprintf(`a:has-text("%s")`, selector),
			fmt.Sprintf(`button:has-text("%s")`, selector),
			fmt.Sprintf(`[role="button"]:has-text("%s")`, selector),
		)
	}

	return alts
}

// selectorTokens extracts searchable words out of a selector for the
// text-content scan, longest first, capped at three.
func selectorTokens(selector string) []string {
	split := func(r rune) bool {
		switch r {
		case '#', '.', '_', '-', '[', ']', '=', '"', '\'', '>', ':', ' ', '(', ')', '*':
			return true
		default:
			return false
		}
	}

	seen := make(map[string]bool)
	var tokens []string

	for _, tok := range strings.FieldsFunc(selector, split) {
		if len(tok) < 3 || seen[tok] {
			continue
		}

		seen[tok] = true
		tokens = append(tokens, tok)

		if len(tokens) == 3 {
			break
		}
	}

	return tokens
}

// textCandidateSelector matches clickable elements whose text contains the
// token.
func textCandidateSelector(token string) string {
	return fmt.Sprintf(`a:has-text("%s"), button:has-text("%s"), [role="button"]:has-text("%s")`, token, token, token)
}

// isPlainCSS reports whether a resolved selector can be fed to
// document.querySelector inside injected scripts.
func isPlainCSS(resolved string) bool {
	return !strings.HasPrefix(resolved, "xpath=") && !strings.HasPrefix(resolved, "text=")
}

func escapeSelector(selector string) string {
	return strings.ReplaceAll(selector, "'", "\\'")
}

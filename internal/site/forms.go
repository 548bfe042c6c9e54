package site

import (
	"fmt"
	"regexp"
	"strings"
)

// The contest site serves Gravity Forms markup. The fields we need are flat
// attribute lookups on <form> and <input> tags, so a pair of regular
// expressions stands in for a full HTML parser.

var (
	inputTagPattern = regexp.MustCompile(`(?is)<input\b[^>]*>`)
	attrPattern     = regexp.MustCompile(`(?is)([a-zA-Z0-9_.:-]+)\s*=\s*("([^"]*)"|'([^']*)')`)
	noncePattern    = regexp.MustCompile(`gameAjax\s*=\s*\{\s*ajaxurl:\s*'[^']*',\s*nonce:\s*'([a-zA-Z0-9]+)'`)
)

// findForm returns the markup of the form with the given id, from its opening
// tag through </form>.
func findForm(html, id string) (string, error) {
	openPattern, err := regexp.Compile(`(?is)<form\b[^>]*\bid\s*=\s*["']?` + regexp.QuoteMeta(id) + `["'\s>]`)
	if err != nil {
		return "", fmt.Errorf("bad form id %q: %w", id, err)
	}

	loc := openPattern.FindStringIndex(html)
	if loc == nil {
		return "", fmt.Errorf("form %q not found", id)
	}

	rest := html[loc[0]:]
	end := strings.Index(strings.ToLower(rest), "</form>")
	if end < 0 {
		return rest, nil
	}
	return rest[:end], nil
}

// tagAttrs extracts the attribute map of a single tag.
func tagAttrs(tag string) map[string]string {
	attrs := make(map[string]string)
	for _, m := range attrPattern.FindAllStringSubmatch(tag, -1) {
		value := m[3]
		if value == "" {
			value = m[4]
		}
		attrs[strings.ToLower(m[1])] = value
	}
	return attrs
}

// hiddenInputs collects the name/value pairs of every hidden input in a form.
// Gravity Forms hides its page-tracking and anti-spam state in these, and the
// site rejects submissions that omit them.
func hiddenInputs(form string) map[string]string {
	hidden := make(map[string]string)
	for _, tag := range inputTagPattern.FindAllString(form, -1) {
		attrs := tagAttrs(tag)
		if !strings.EqualFold(attrs["type"], "hidden") {
			continue
		}
		name := attrs["name"]
		if name == "" {
			continue
		}
		hidden[name] = attrs["value"]
	}
	return hidden
}

// inputValue returns the value attribute of the named input, or empty if the
// input is absent.
func inputValue(form, name string) string {
	for _, tag := range inputTagPattern.FindAllString(form, -1) {
		attrs := tagAttrs(tag)
		if attrs["name"] == name {
			return attrs["value"]
		}
	}
	return ""
}

// extractGameNonce pulls the gameAjax nonce out of a room page.
func extractGameNonce(html string) (string, bool) {
	m := noncePattern.FindStringSubmatch(html)
	if m == nil {
		return "", false
	}
	return m[1], true
}

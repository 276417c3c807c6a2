package capability

import (
	"strconv"
	"strings"
)

// Parsed is the outcome of scanning a plan step for a capability token.
type Parsed struct {
	// Name is the matched capability name, empty when Found is false.
	Name string
	// Arg is the extracted argument text for the capability.
	Arg string
	// Found reports whether any registered capability token was present.
	Found bool
}

// ParseStep scans a free-text plan step for a parenthesized capability
// token such as "(web_search)". names are the registered capability names,
// checked in order; the first match wins.
//
// The argument is the text after the token, trimmed of whitespace and any
// colon separator. When that is empty the text before the token is used
// instead, with the step's own ordinal prefix ("1." for the first step)
// removed. ordinal is 1-based.
func ParseStep(step string, ordinal int, names []string) Parsed {
	for _, name := range names {
		token := "(" + name + ")"
		before, after, ok := strings.Cut(step, token)
		if !ok {
			continue
		}

		arg := trimSeparators(after)
		if arg == "" {
			prefix := ordinalPrefix(ordinal)
			arg = strings.TrimSpace(strings.ReplaceAll(strings.TrimSpace(before), prefix, ""))
		}
		return Parsed{Name: name, Arg: arg, Found: true}
	}
	return Parsed{}
}

// trimSeparators removes surrounding whitespace and a colon separator,
// so "(web_search): latest machine model" yields "latest machine model".
func trimSeparators(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, ":")
	return strings.TrimSpace(s)
}

func ordinalPrefix(ordinal int) string {
	return strconv.Itoa(ordinal) + "."
}

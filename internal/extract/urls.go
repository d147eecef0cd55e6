package extract

import (
	"mvdan.cc/xurls/v2"
)

var urlMatcher = xurls.Strict()

// URLs returns every distinct URL found in the text, preserving first-seen
// order so scan output is deterministic for a given body.
func URLs(text string) []string {
	matches := urlMatcher.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(matches))
	urls := make([]string, 0, len(matches))
	for _, match := range matches {
		if _, ok := seen[match]; ok {
			continue
		}
		seen[match] = struct{}{}
		urls = append(urls, match)
	}
	return urls
}

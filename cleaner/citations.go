package cleaner

import (
	"fmt"
	"regexp"
)

// maxReferences caps the link list under a summary.
const maxReferences = 20

// inlineLinkRe matches markdown inline links: [text](url)
var inlineLinkRe = regexp.MustCompile(`\[([^\]]*)\]\(([^)\s]+)\)`)

// ConvertToCitations rewrites inline links as numbered references and returns
// the rewritten body and the reference lines. Repeated URLs share a number;
// links past maxReferences keep their text and drop the target.
//
//	"[Login](https://site/login)" → "[Login][1]", ["[1]: https://site/login"]
func ConvertToCitations(markdown string) (string, []string) {
	numbers := make(map[string]int)
	var refs []string

	body := inlineLinkRe.ReplaceAllStringFunc(markdown, func(match string) string {
		parts := inlineLinkRe.FindStringSubmatch(match)
		text, target := parts[1], parts[2]

		n, ok := numbers[target]
		if !ok {
			if len(refs) >= maxReferences {
				return text
			}
			n = len(refs) + 1
			numbers[target] = n
			refs = append(refs, fmt.Sprintf("[%d]: %s", n, target))
		}
		return fmt.Sprintf("[%s][%d]", text, n)
	})
	return body, refs
}

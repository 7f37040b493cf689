package extract

import (
	"regexp"
	"strings"

	"SubredditOfTheDay/internal/domain"
)

var targetPrefix = regexp.MustCompile(`(?i)^/?r/`)

// Title returns the display title. Comments are scanned in creation order and
// the last tagged one wins.
//
// A submission title counts only when it carries [full], like a comment. This
// is stricter than taking any title containing "r/": an announcement such as
// "r/x will be live on June 5th" must not become the display title.
func Title(sub domain.Submission) (string, bool) {
	var (
		title string
		found bool
	)

	if t, ok := fullTitle(unescape(sub.Title)); ok {
		title, found = t, true
	}

	for _, comment := range chronological(sub.Comments) {
		body := unescape(comment.Body)

		if idx := indexFold(body, markerTitle); idx >= 0 {
			if t := strings.TrimSpace(body[idx+len(markerTitle):]); t != "" {
				title, found = t, true
			}
			continue
		}
		if t, ok := fullTitle(body); ok {
			title, found = t, true
		}
	}

	return title, found
}

func fullTitle(text string) (string, bool) {
	if !containsFold(text, markerFull) {
		return "", false
	}
	idx := indexFold(text, "r/")
	if idx < 0 {
		return "", false
	}
	title := strings.TrimSpace(text[idx:])
	return title, title != ""
}

// Target returns the community name referenced by a submission title.
func Target(title string) (string, bool) {
	tokens := strings.Fields(unescape(title))

	for _, token := range tokens {
		loc := targetPrefix.FindStringIndex(token)
		if loc == nil {
			continue
		}
		if name := cleanTarget(token[loc[1]:]); name != "" {
			return name, true
		}
	}

	if len(tokens) == 1 {
		if name := cleanTarget(tokens[0]); name != "" {
			return name, true
		}
	}
	return "", false
}

func cleanTarget(name string) string {
	return strings.TrimSuffix(strings.TrimSpace(name), ":")
}

package domain

import "time"

// Comment is a top-level reply on a submission.
type Comment struct {
	ID        string
	Body      string
	Author    string
	CreatedAt time.Time
}

// Submission is a post as returned by the content platform.
type Submission struct {
	ID          string
	Title       string
	Body        string
	Preview     string // rendered plain text of Body, may be empty
	Author      string
	Tag         string
	Removed     bool
	CreatedAt   time.Time
	Permalink   string
	NumComments int
	Comments    []Comment
}

// URL returns the absolute link to the submission.
func (s Submission) URL() string {
	if s.Permalink == "" {
		return ""
	}
	return "https://reddit.com" + s.Permalink
}

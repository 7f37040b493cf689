package reddit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"SubredditOfTheDay/internal/domain"
	"SubredditOfTheDay/internal/ports"
)

type listing struct {
	Data struct {
		Children []thing `json:"children"`
	} `json:"data"`
}

type thing struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

type linkData struct {
	ID                string  `json:"id"`
	Title             string  `json:"title"`
	Selftext          string  `json:"selftext"`
	SelftextHTML      *string `json:"selftext_html"`
	Author            string  `json:"author"`
	LinkFlairText     *string `json:"link_flair_text"`
	RemovedByCategory *string `json:"removed_by_category"`
	Removed           bool    `json:"removed"`
	CreatedUTC        float64 `json:"created_utc"`
	Permalink         string  `json:"permalink"`
	NumComments       int     `json:"num_comments"`
}

type commentData struct {
	ID         string  `json:"id"`
	Body       string  `json:"body"`
	BodyHTML   string  `json:"body_html"`
	Author     string  `json:"author"`
	CreatedUTC float64 `json:"created_utc"`
}

type submitResponse struct {
	JSON struct {
		Errors [][]any `json:"errors"`
		Data   struct {
			ID   string `json:"id"`
			Name string `json:"name"`
			URL  string `json:"url"`
		} `json:"data"`
	} `json:"json"`
}

// Recent lists the newest submissions of a venue with their top-level comments.
// A submission whose comment thread is gone is reported as removed.
func (c *Client) Recent(ctx context.Context, venue string, limit int) ([]domain.Submission, error) {
	subs, err := c.Listing(ctx, venue, limit)
	if err != nil {
		return nil, err
	}

	for i := range subs {
		if subs[i].NumComments == 0 || subs[i].Removed {
			continue
		}
		comments, err := c.comments(ctx, subs[i].ID)
		if errors.Is(err, ports.ErrNotFound) {
			subs[i].Removed = true
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("comments of %s: %w", subs[i].ID, err)
		}
		subs[i].Comments = comments
	}
	return subs, nil
}

// Listing lists the newest submissions of a venue without fetching comments.
func (c *Client) Listing(ctx context.Context, venue string, limit int) ([]domain.Submission, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("raw_json", "1")

	var page listing
	if err := c.getJSON(ctx, "/r/"+url.PathEscape(venue)+"/new", query, &page); err != nil {
		return nil, fmt.Errorf("list %s: %w", venue, err)
	}
	return toSubmissions(page)
}

// Submission fetches one submission by identifier.
func (c *Client) Submission(ctx context.Context, id string) (domain.Submission, error) {
	query := url.Values{}
	query.Set("raw_json", "1")

	var page listing
	if err := c.getJSON(ctx, "/by_id/"+fullname(id), query, &page); err != nil {
		return domain.Submission{}, err
	}
	subs, err := toSubmissions(page)
	if err != nil {
		return domain.Submission{}, err
	}
	if len(subs) == 0 {
		return domain.Submission{}, fmt.Errorf("%w: submission %s", ports.ErrNotFound, id)
	}
	return subs[0], nil
}

// SubmitText creates a self post.
func (c *Client) SubmitText(ctx context.Context, venue, title, body string) (domain.Submission, error) {
	form := url.Values{}
	form.Set("kind", "self")
	form.Set("text", body)
	return c.submit(ctx, venue, title, form)
}

// SubmitLink creates a link post.
func (c *Client) SubmitLink(ctx context.Context, venue, title, link string) (domain.Submission, error) {
	form := url.Values{}
	form.Set("kind", "link")
	form.Set("url", link)
	form.Set("resubmit", "true")
	return c.submit(ctx, venue, title, form)
}

func (c *Client) submit(ctx context.Context, venue, title string, form url.Values) (domain.Submission, error) {
	form.Set("api_type", "json")
	form.Set("sr", venue)
	form.Set("title", title)

	var resp submitResponse
	if err := c.postForm(ctx, "/api/submit", form, &resp); err != nil {
		return domain.Submission{}, fmt.Errorf("submit to %s: %w", venue, err)
	}
	if err := apiErrors(resp.JSON.Errors); err != nil {
		return domain.Submission{}, fmt.Errorf("submit to %s: %w", venue, err)
	}

	sub := domain.Submission{ID: resp.JSON.Data.ID, Title: title}
	if u, err := url.Parse(resp.JSON.Data.URL); err == nil {
		sub.Permalink = u.Path
	}
	return sub, nil
}

// EditBody replaces the text of a self post.
func (c *Client) EditBody(ctx context.Context, id, body string) error {
	form := url.Values{}
	form.Set("api_type", "json")
	form.Set("thing_id", fullname(id))
	form.Set("text", body)

	var resp submitResponse
	if err := c.postForm(ctx, "/api/editusertext", form, &resp); err != nil {
		return fmt.Errorf("edit %s: %w", id, err)
	}
	return apiErrors(resp.JSON.Errors)
}

func (c *Client) comments(ctx context.Context, id string) ([]domain.Comment, error) {
	query := url.Values{}
	query.Set("sort", "old")
	query.Set("depth", "1")
	query.Set("raw_json", "1")

	var pages []listing
	if err := c.getJSON(ctx, "/comments/"+strings.TrimPrefix(id, "t3_"), query, &pages); err != nil {
		return nil, err
	}
	if len(pages) < 2 {
		return nil, nil
	}

	var comments []domain.Comment
	for _, child := range pages[1].Data.Children {
		if child.Kind != "t1" {
			continue
		}
		var data commentData
		if err := json.Unmarshal(child.Data, &data); err != nil {
			return nil, fmt.Errorf("decode comment: %w", err)
		}
		body := data.Body
		if body == "" && data.BodyHTML != "" {
			body = plainText(data.BodyHTML)
		}
		comments = append(comments, domain.Comment{
			ID:        data.ID,
			Body:      body,
			Author:    data.Author,
			CreatedAt: fromUnix(data.CreatedUTC),
		})
	}

	sort.SliceStable(comments, func(i, j int) bool {
		return comments[i].CreatedAt.Before(comments[j].CreatedAt)
	})
	return comments, nil
}

func toSubmissions(page listing) ([]domain.Submission, error) {
	subs := make([]domain.Submission, 0, len(page.Data.Children))
	for _, child := range page.Data.Children {
		if child.Kind != "t3" {
			continue
		}
		var data linkData
		if err := json.Unmarshal(child.Data, &data); err != nil {
			return nil, fmt.Errorf("decode submission: %w", err)
		}

		sub := domain.Submission{
			ID:          data.ID,
			Title:       data.Title,
			Body:        data.Selftext,
			Author:      data.Author,
			CreatedAt:   fromUnix(data.CreatedUTC),
			Permalink:   data.Permalink,
			NumComments: data.NumComments,
			Removed:     removed(data),
		}
		if data.LinkFlairText != nil {
			sub.Tag = strings.TrimSpace(*data.LinkFlairText)
		}
		if data.SelftextHTML != nil {
			sub.Preview = plainText(*data.SelftextHTML)
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

func removed(data linkData) bool {
	if data.Removed || (data.RemovedByCategory != nil && *data.RemovedByCategory != "") {
		return true
	}
	return data.Author == "[deleted]" && (data.Selftext == "[deleted]" || data.Selftext == "[removed]")
}

func apiErrors(errs [][]any) error {
	if len(errs) == 0 {
		return nil
	}
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		fields := make([]string, 0, len(e))
		for _, f := range e {
			fields = append(fields, fmt.Sprint(f))
		}
		parts = append(parts, strings.Join(fields, ": "))
	}
	return fmt.Errorf("reddit rejected request: %s", strings.Join(parts, "; "))
}

func fullname(id string) string {
	if strings.HasPrefix(id, "t3_") {
		return id
	}
	return "t3_" + id
}

func fromUnix(ts float64) time.Time {
	sec, frac := math.Modf(ts)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC()
}

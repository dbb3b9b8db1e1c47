package api

import (
	"encoding/json"
	"errors"

	"github.com/tidwall/gjson"

	"github.com/Alexander-D-Karpov/redditmusic/pkg/types"
)

var errMalformedListing = errors.New("malformed listing")

// ParsePage reads a Reddit Listing. Children that are not posts are skipped
// and missing fields default to zero values.
func ParsePage(body []byte) (*types.Page, error) {
	if !gjson.ValidBytes(body) {
		return nil, errMalformedListing
	}

	root := gjson.ParseBytes(body)
	if root.Get("kind").String() != "Listing" && !root.Get("data.children").IsArray() {
		return nil, errMalformedListing
	}

	page := &types.Page{Items: []types.RawPost{}}
	for _, child := range root.Get("data.children").Array() {
		if kind := child.Get("kind"); kind.Exists() && kind.String() != "t3" {
			continue
		}
		data := child.Get("data")
		if !data.IsObject() {
			continue
		}
		page.Items = append(page.Items, parsePost(data))
	}

	if after := root.Get("data.after").String(); after != "" {
		page.After = &after
	}
	return page, nil
}

func parsePost(d gjson.Result) types.RawPost {
	post := types.RawPost{
		ID:           d.Get("id").String(),
		Name:         d.Get("name").String(),
		Title:        d.Get("title").String(),
		Author:       d.Get("author").String(),
		URL:          d.Get("url").String(),
		Domain:       d.Get("domain").String(),
		Thumbnail:    d.Get("thumbnail").String(),
		Score:        int(d.Get("score").Int()),
		Ups:          int(d.Get("ups").Int()),
		Downs:        int(d.Get("downs").Int()),
		CreatedUTC:   d.Get("created_utc").Float(),
		NumComments:  int(d.Get("num_comments").Int()),
		Subreddit:    d.Get("subreddit").String(),
		Permalink:    d.Get("permalink").String(),
		IsSelf:       d.Get("is_self").Bool(),
		Selftext:     d.Get("selftext").String(),
		SelftextHTML: d.Get("selftext_html").String(),
	}

	if image := d.Get("preview.images.0"); image.Exists() {
		preview := &types.Preview{SourceURL: image.Get("source.url").String()}
		for _, r := range image.Get("resolutions").Array() {
			if u := r.Get("url").String(); u != "" {
				preview.ResolutionURLs = append(preview.ResolutionURLs, u)
			}
		}
		post.Preview = preview
	}

	if m := d.Get("media"); m.IsObject() {
		post.Media = json.RawMessage(m.Raw)
	}
	return post
}

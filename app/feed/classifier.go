package feed

import (
	"log/slog"
	"net/url"
	"regexp"
	"strings"
)

var xkcdComicPathRe = regexp.MustCompile(`^/\d+/?$`)

// ClassifyURL maps a URL to the content type that decides how the item's
// payload is later fetched and rendered. Total: unparseable or unrecognized
// URLs fall back to Article. Interval is never URL-derived.
func ClassifyURL(raw string) ContentType {
	u, err := url.Parse(raw)
	if err != nil {
		slog.Warn("Failed to parse URL for classification, defaulting to article", "url", raw, "error", err)
		return ContentTypeArticle
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")

	switch {
	case isYouTubeVideo(host, u):
		return ContentTypeYouTube
	case host == "xkcd.com" && xkcdComicPathRe.MatchString(u.Path):
		return ContentTypeXkcd
	case host == "twitter.com" || host == "x.com":
		return ContentTypeTweet
	}

	return ContentTypeArticle
}

func isYouTubeVideo(host string, u *url.URL) bool {
	switch host {
	case "youtube.com", "m.youtube.com":
		if u.Path == "/watch" && u.Query().Get("v") != "" {
			return true
		}
		return strings.HasPrefix(u.Path, "/shorts/") && len(u.Path) > len("/shorts/")
	case "youtu.be":
		return len(strings.Trim(u.Path, "/")) > 0
	}
	return false
}

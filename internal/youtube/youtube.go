// Package youtube classifies and repairs the video links admins paste into the video form.
package youtube

import (
	"net/url"
	"regexp"
	"strings"
)

type Kind string

const (
	KindVideo    Kind = "video"
	KindPlaylist Kind = "playlist"
	KindChannel  Kind = "channel"
)

// Link is the normalized form of a video link. A Link that is not Usable should be rendered as
// a disabled placeholder.
type Link struct {
	URL         string `json:"url"`
	ContentType Kind   `json:"contentType"`
	YouTubeID   string `json:"youtubeId,omitempty"`
	PlaylistID  string `json:"playlistId,omitempty"`
	ChannelID   string `json:"channelId,omitempty"`
	Usable      bool   `json:"usable"`
}

var (
	idPattern       = `([A-Za-z0-9_-]+)`
	shortLinkRegex  = regexp.MustCompile(`youtu\.be/` + idPattern)
	watchParamRegex = regexp.MustCompile(`[?&]v=` + idPattern)
	embedRegex      = regexp.MustCompile(`/(?:embed|shorts|live)/` + idPattern)
	listParamRegex  = regexp.MustCompile(`[?&]list=` + idPattern)
	channelRegex    = regexp.MustCompile(`/(?:channel|c|user)/([^/?#]+)`)

	hostMarkers = []string{"youtube.com", "youtu.be"}
	badMarkers  = []string{"localhost", "undefined"}

	// Matches a scheme saved with too few slashes, as in "http:/youtube.com".
	brokenSchemeRegex = regexp.MustCompile(`(?i)^(https?):/?([^/])`)
	portRegex         = regexp.MustCompile(`^[0-9]+$`)
)

// Normalize classifies raw and repairs links broken by earlier bad saves. Normalize is
// idempotent: Normalize(Normalize(s).URL) == Normalize(s).
func Normalize(raw string) Link {
	return normalize(raw, true)
}

func normalize(raw string, rebuild bool) Link {
	s := strings.TrimSpace(raw)
	if s == "" || strings.ContainsAny(s, " \t\r\n") {
		return unusable()
	}
	s = brokenSchemeRegex.ReplaceAllString(s, "$1://$2")

	damaged := containsAny(s, badMarkers)
	if strings.HasPrefix(s, "//") {
		s = "https:" + s
	} else if strings.HasPrefix(s, "/") || damaged {
		if recovered, ok := recoverFromHost(s); ok {
			s = recovered
			damaged = !isYouTubeHost(s)
		}
	}
	if !strings.Contains(s, "://") && !strings.HasPrefix(s, "/") {
		s = "https://" + s
	}

	link := classify(s)
	if !damaged && isStrictURL(s) {
		link.URL = s
		link.Usable = true
		return link
	}

	if !rebuild {
		return unusable()
	}

	// The string cannot be used as-is; rebuild a canonical URL from whatever id we found.
	switch {
	case link.ContentType == KindPlaylist && link.PlaylistID != "":
		return normalize("https://www.youtube.com/playlist?list="+link.PlaylistID, false)
	case link.ContentType == KindVideo && link.YouTubeID != "":
		return normalize("https://www.youtube.com/watch?v="+link.YouTubeID, false)
	case link.ContentType == KindChannel && link.ChannelID != "":
		return normalize("https://www.youtube.com/channel/"+link.ChannelID, false)
	}
	return unusable()
}

// ExtractID returns the id used as a video item's videoId: the video id for videos, the
// playlist id for playlists and the channel name for channels. It returns "" when none is found.
func ExtractID(raw string) string {
	link := Normalize(raw)
	switch link.ContentType {
	case KindPlaylist:
		return link.PlaylistID
	case KindChannel:
		return link.ChannelID
	}
	return link.YouTubeID
}

// Thumbnail returns the medium-quality thumbnail URL for a video id.
func Thumbnail(videoID string) string {
	return "https://img.youtube.com/vi/" + videoID + "/mqdefault.jpg"
}

// Helpers

func classify(s string) Link {
	path := s
	if u, err := url.Parse(s); err == nil {
		path = u.Path
	} else if i := strings.IndexAny(s, "?#"); i >= 0 {
		path = s[:i]
	}

	link := Link{ContentType: KindVideo}
	if m := listParamRegex.FindStringSubmatch(s); m != nil {
		link.PlaylistID = m[1]
	}
	if m := firstMatch(s, shortLinkRegex, watchParamRegex, embedRegex); m != "" {
		link.YouTubeID = m
	}

	switch {
	case link.PlaylistID != "" || strings.Contains(path, "/playlist"):
		link.ContentType = KindPlaylist
	case channelRegex.MatchString(path):
		link.ContentType = KindChannel
		link.ChannelID = channelRegex.FindStringSubmatch(path)[1]
		link.YouTubeID = ""
	}
	return link
}

// recoverFromHost rebuilds an absolute URL starting at the first YouTube host name in s.
func recoverFromHost(s string) (string, bool) {
	best := -1
	for _, marker := range hostMarkers {
		if i := strings.Index(s, marker); i >= 0 && (best < 0 || i < best) {
			best = i
		}
	}
	if best < 0 {
		return s, false
	}
	// Keep a leading "www." or "m." that belongs to the host.
	start := best
	for _, sub := range []string{"www.", "m."} {
		if best >= len(sub) && s[best-len(sub):best] == sub {
			start = best - len(sub)
			break
		}
	}
	return "https://" + s[start:], true
}

func isYouTubeHost(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	host := strings.TrimPrefix(strings.TrimPrefix(u.Hostname(), "www."), "m.")
	return host == "youtube.com" || host == "youtu.be"
}

func isStrictURL(s string) bool {
	u, err := url.ParseRequestURI(s)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	if u.Hostname() == "" || strings.HasSuffix(u.Host, ":") {
		return false
	}
	if port := u.Port(); port != "" && !portRegex.MatchString(port) {
		return false
	}
	return true
}

func firstMatch(s string, patterns ...*regexp.Regexp) string {
	for _, p := range patterns {
		if m := p.FindStringSubmatch(s); m != nil {
			return m[1]
		}
	}
	return ""
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func unusable() Link {
	return Link{ContentType: KindVideo}
}

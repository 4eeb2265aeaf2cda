package youtube

import (
	"reflect"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Link
	}{
		{
			name: "short link",
			in:   "https://youtu.be/dQw4w9WgXcQ",
			want: Link{URL: "https://youtu.be/dQw4w9WgXcQ", ContentType: KindVideo, YouTubeID: "dQw4w9WgXcQ", Usable: true},
		},
		{
			name: "watch link",
			in:   "https://www.youtube.com/watch?v=abc123&t=42",
			want: Link{URL: "https://www.youtube.com/watch?v=abc123&t=42", ContentType: KindVideo, YouTubeID: "abc123", Usable: true},
		},
		{
			name: "playlist",
			in:   "https://www.youtube.com/playlist?list=PLabc",
			want: Link{URL: "https://www.youtube.com/playlist?list=PLabc", ContentType: KindPlaylist, PlaylistID: "PLabc", Usable: true},
		},
		{
			name: "video inside a playlist",
			in:   "https://www.youtube.com/watch?v=abc123&list=PL123",
			want: Link{URL: "https://www.youtube.com/watch?v=abc123&list=PL123", ContentType: KindPlaylist, YouTubeID: "abc123", PlaylistID: "PL123", Usable: true},
		},
		{
			name: "channel",
			in:   "https://www.youtube.com/channel/UC123",
			want: Link{URL: "https://www.youtube.com/channel/UC123", ContentType: KindChannel, ChannelID: "UC123", Usable: true},
		},
		{
			name: "custom channel",
			in:   "https://www.youtube.com/c/NPTEL",
			want: Link{URL: "https://www.youtube.com/c/NPTEL", ContentType: KindChannel, ChannelID: "NPTEL", Usable: true},
		},
		{
			name: "malformed relative path",
			in:   "/youtube.com/watch?v=abc123",
			want: Link{URL: "https://youtube.com/watch?v=abc123", ContentType: KindVideo, YouTubeID: "abc123", Usable: true},
		},
		{
			name: "missing scheme",
			in:   "www.youtube.com/watch?v=abc123",
			want: Link{URL: "https://www.youtube.com/watch?v=abc123", ContentType: KindVideo, YouTubeID: "abc123", Usable: true},
		},
		{
			name: "saved against localhost",
			in:   "http://localhost:5500/www.youtube.com/watch?v=abc123",
			want: Link{URL: "https://www.youtube.com/watch?v=abc123", ContentType: KindVideo, YouTubeID: "abc123", Usable: true},
		},
		{
			name: "saved with undefined prefix",
			in:   "undefinedyoutu.be/xyz789",
			want: Link{URL: "https://youtu.be/xyz789", ContentType: KindVideo, YouTubeID: "xyz789", Usable: true},
		},
		{
			name: "damaged with id only",
			in:   "http://localhost:3000/watch?v=abc123",
			want: Link{URL: "https://www.youtube.com/watch?v=abc123", ContentType: KindVideo, YouTubeID: "abc123", Usable: true},
		},
		{
			name: "scheme with one slash",
			in:   "http:/youtube.com/watch?v=abc123",
			want: Link{URL: "http://youtube.com/watch?v=abc123", ContentType: KindVideo, YouTubeID: "abc123", Usable: true},
		},
		{
			name: "secure scheme with one slash",
			in:   "https:/www.youtube.com/watch?v=abc123",
			want: Link{URL: "https://www.youtube.com/watch?v=abc123", ContentType: KindVideo, YouTubeID: "abc123", Usable: true},
		},
		{
			name: "host with empty port",
			in:   "https://www.youtube.com:/watch?v=abc123",
			want: Link{URL: "https://www.youtube.com/watch?v=abc123", ContentType: KindVideo, YouTubeID: "abc123", Usable: true},
		},
		{
			name: "host with non-numeric port",
			in:   "https://www.youtube.com:8o/watch?v=abc123",
			want: Link{URL: "https://www.youtube.com/watch?v=abc123", ContentType: KindVideo, YouTubeID: "abc123", Usable: true},
		},
		{
			name: "whitespace inside the link",
			in:   "https://www.youtube.com/watch?v=a b",
			want: Link{ContentType: KindVideo},
		},
		{
			name: "unrecoverable",
			in:   "http://localhost:3000/notes",
			want: Link{ContentType: KindVideo},
		},
		{
			name: "empty",
			in:   "   ",
			want: Link{ContentType: KindVideo},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Normalize(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	inputs := []string{
		"https://youtu.be/abc123",
		"/youtube.com/watch?v=abc123",
		"https://www.youtube.com/playlist?list=PL123",
		"www.youtube.com/watch?v=abc123",
		"//youtube.com/embed/abc123",
		"http://localhost:3000/watch?v=abc123",
		"https://www.youtube.com/user/someone",
		"https://youtube.com/watch?v=abc123&ref=undefined",
		"http://localhost:3000/notes",
		"not a url at all",
		"http:/youtube.com/watch?v=abc123",
		"https://www.youtube.com:/watch?v=abc123",
	}

	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once.URL)
		if once.Usable && !reflect.DeepEqual(once, twice) {
			t.Errorf("Normalize is not idempotent for %q: %+v then %+v", in, once, twice)
		}
		if !once.Usable && twice.Usable {
			t.Errorf("unusable link %q became usable after renormalizing: %+v", in, twice)
		}
	}
}

func TestExtractID(t *testing.T) {
	cases := map[string]string{
		"https://youtu.be/dQw4w9WgXcQ":                "dQw4w9WgXcQ",
		"https://www.youtube.com/watch?v=abc123":      "abc123",
		"https://www.youtube.com/playlist?list=PLabc": "PLabc",
		"https://www.youtube.com/channel/UC123":       "UC123",
		"https://drive.google.com/file/d/1":           "",
	}
	for in, want := range cases {
		if got := ExtractID(in); got != want {
			t.Errorf("ExtractID(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestThumbnail(t *testing.T) {
	want := "https://img.youtube.com/vi/abc123/mqdefault.jpg"
	if got := Thumbnail("abc123"); got != want {
		t.Errorf("Thumbnail() = %q, want %q", got, want)
	}
}

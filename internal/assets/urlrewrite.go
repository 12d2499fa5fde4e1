package assets

import (
	"net/url"
	"strings"
)

const driveImageBase = "https://lh3.googleusercontent.com/d/"

// DirectURL rewrites Google Drive viewer links into a URL an <img> tag can
// load directly. Anything it does not recognise is returned unchanged. It is
// a pure string transform.
func DirectURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if id := driveFileID(raw); id != "" {
		return driveImageBase + id
	}
	return raw
}

func driveFileID(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Host)
	if host != "drive.google.com" && host != "docs.google.com" {
		return ""
	}

	// /file/d/<id>/view, /file/d/<id>/preview, /file/d/<id>
	if rest, ok := strings.CutPrefix(u.Path, "/file/d/"); ok {
		id, _, _ := strings.Cut(rest, "/")
		return id
	}

	switch strings.TrimSuffix(u.Path, "/") {
	case "/open", "/uc", "/thumbnail":
		return u.Query().Get("id")
	}
	return ""
}

// remoteURL picks what to show for a remote reference: its stored URL, or a
// direct Drive URL built from the file id when no URL was recorded.
func remoteURL(id, stored string) string {
	if stored != "" {
		return DirectURL(stored)
	}
	if id != "" {
		return driveImageBase + id
	}
	return ""
}

package platform

import "strings"

// Browser names accepted by yt-dlp --cookies-from-browser.
const (
	BrowserChrome  = "chrome"
	BrowserEdge    = "edge"
	BrowserFirefox = "firefox"
	BrowserSafari  = "safari"
)

// SupportedBrowsers lists the browsers whose cookie stores make sense on p.
func (p Platform) SupportedBrowsers() []string {
	switch p.OS {
	case OSDarwin:
		return []string{BrowserSafari, BrowserChrome, BrowserFirefox}
	case OSWindows:
		return []string{BrowserChrome, BrowserEdge, BrowserFirefox}
	default:
		return []string{BrowserChrome, BrowserFirefox}
	}
}

// SupportsBrowser reports whether name is a usable browser cookie source on p.
func (p Platform) SupportsBrowser(name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, b := range p.SupportedBrowsers() {
		if b == name {
			return true
		}
	}
	return false
}

// DefaultCookieSource returns the browser preselected on p.
func (p Platform) DefaultCookieSource() string {
	switch p.OS {
	case OSDarwin:
		return BrowserSafari
	case OSWindows:
		return BrowserChrome
	default:
		return BrowserFirefox
	}
}

// IsBrowser reports whether name is any browser cookie source, regardless of OS.
func IsBrowser(name string) bool {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case BrowserChrome, BrowserEdge, BrowserFirefox, BrowserSafari:
		return true
	default:
		return false
	}
}

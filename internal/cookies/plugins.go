package cookies

import (
	"fmt"
	"sort"
	"strings"
)

// Browser extensions that help users feed the re engine.
const (
	// PluginCookieExporter exports a Netscape cookies.txt file.
	PluginCookieExporter = "cookie_editor"
	// PluginCatCatch captures m3u8 playlist URLs from a page.
	PluginCatCatch = "cat_catch"
)

type pluginURLs struct {
	global  string
	cn      string
	firefox string
}

var plugins = map[string]pluginURLs{
	PluginCookieExporter: {
		global:  "https://chromewebstore.google.com/detail/get-cookiestxt-locally/cclelndahbckbenkjhflpdbgdldlbecc",
		cn:      "https://www.crx4chrome.com/crx/32289/",
		firefox: "https://addons.mozilla.org/firefox/addon/cookies-txt/",
	},
	PluginCatCatch: {
		global:  "https://chromewebstore.google.com/detail/cat-catch/jfedfbgedapdagkghmgibemcoggfppbb",
		cn:      "https://www.crx4chrome.com/crx/164024/",
		firefox: "https://addons.mozilla.org/firefox/addon/cat-catch/",
	},
}

// PluginNames lists the known plugin identifiers.
func PluginNames() []string {
	names := make([]string, 0, len(plugins))
	for name := range plugins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PluginURL returns the install page for plugin in the given browser and
// region ("global" or "cn"). Chromium browsers share the Chrome Web Store
// listing. Safari has no listing and returns an error.
func PluginURL(name, browser, region string) (string, error) {
	name = canonicalPlugin(name)
	urls, ok := plugins[name]
	if !ok {
		return "", fmt.Errorf("unknown plugin %q (known: %s)", name, strings.Join(PluginNames(), ", "))
	}
	switch strings.ToLower(strings.TrimSpace(browser)) {
	case "firefox":
		return urls.firefox, nil
	case "safari":
		return "", fmt.Errorf("plugin %q is not available for safari", name)
	}
	if strings.EqualFold(strings.TrimSpace(region), "cn") {
		return urls.cn, nil
	}
	return urls.global, nil
}

func canonicalPlugin(name string) string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "cookie_editor", "cookies_txt", "cookies", "cookie":
		return PluginCookieExporter
	case "cat_catch", "catcatch", "m3u8":
		return PluginCatCatch
	default:
		return strings.ToLower(strings.TrimSpace(name))
	}
}

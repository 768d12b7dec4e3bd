package cookies

import (
	"bufio"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
)

// DefaultMaxHeaderLen caps the Cookie header; servers reject much longer ones.
const DefaultMaxHeaderLen = 6000

const httpOnlyPrefix = "#HttpOnly_"

// Cookie is one line of a Netscape cookies.txt file.
type Cookie struct {
	Domain   string
	HTTPOnly bool
	Path     string
	Secure   bool
	Expires  string
	Name     string
	Value    string
}

// Parse reads Netscape-format cookies from r. Comment lines and lines with
// fewer than seven tab-separated fields are skipped.
func Parse(r io.Reader) ([]Cookie, error) {
	var cookies []Cookie
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		httpOnly := false
		if strings.HasPrefix(line, httpOnlyPrefix) {
			line = strings.TrimPrefix(line, httpOnlyPrefix)
			httpOnly = true
		} else if strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 7 {
			continue
		}
		cookies = append(cookies, Cookie{
			Domain:   fields[0],
			HTTPOnly: httpOnly,
			Path:     fields[2],
			Secure:   strings.EqualFold(fields[3], "TRUE"),
			Expires:  fields[4],
			Name:     fields[5],
			Value:    fields[6],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read cookies: %w", err)
	}
	return cookies, nil
}

// ParseNetscape reads the cookies.txt file at path.
func ParseNetscape(path string) ([]Cookie, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open cookie file: %w", err)
	}
	defer file.Close()
	return Parse(file)
}

// Matches reports whether the cookie applies to host. Either the domain
// (leading dot trimmed) is host or a parent of it, or host is a parent of the
// domain (host "example.com", domain "www.example.com"). Comparisons respect
// label boundaries so "notexample.com" never matches "example.com".
func (c Cookie) Matches(host string) bool {
	host = strings.ToLower(host)
	domain := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(c.Domain)), ".")
	if domain == "" || host == "" {
		return false
	}
	return host == domain ||
		strings.HasSuffix(host, "."+domain) ||
		strings.HasSuffix(domain, "."+host)
}

// HostOf extracts the lowercase hostname from a URL, or "" when it has none.
func HostOf(targetURL string) string {
	parsed, err := url.Parse(strings.TrimSpace(targetURL))
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Hostname())
}

// Header joins the cookies matching host into "name=value; name2=value2",
// truncated to maxLen bytes. maxLen <= 0 selects DefaultMaxHeaderLen.
func Header(cookies []Cookie, host string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = DefaultMaxHeaderLen
	}
	parts := make([]string, 0, len(cookies))
	for _, c := range cookies {
		if c.Matches(host) {
			parts = append(parts, c.Name+"="+c.Value)
		}
	}
	header := strings.Join(parts, "; ")
	if len(header) > maxLen {
		header = header[:maxLen]
	}
	return header
}

// HeaderFor builds the Cookie header for targetURL from the file at path.
// Any failure yields an empty string.
func HeaderFor(path, targetURL string, maxLen int) string {
	host := HostOf(targetURL)
	if host == "" || strings.TrimSpace(path) == "" {
		return ""
	}
	cookies, err := ParseNetscape(path)
	if err != nil {
		return ""
	}
	return Header(cookies, host, maxLen)
}

// Package cookies reads Netscape cookies.txt exports and turns them into the
// Cookie header N_m3u8DL-RE needs, since that engine cannot read browser
// cookie stores directly.
//
// Header building never fails loudly: a missing file, an unparsable URL, or a
// host without matching cookies all yield an empty header so the download
// proceeds as a guest.
package cookies

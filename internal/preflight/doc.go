// Package preflight provides readiness checks for the binaries and paths a
// download depends on.
//
// These checks run in two contexts:
//   - "univdl download" calls RunAll before launching the engine. If any
//     check fails, the job is refused with services.ErrConfiguration instead
//     of letting yt-dlp or N_m3u8DL-RE fail halfway through.
//   - "univdl status" renders every Result, warnings included.
//
// Checks never block on the network; tool presence is decided from the
// filesystem alone.
package preflight

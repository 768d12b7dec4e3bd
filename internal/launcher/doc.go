// Package launcher builds engine command lines and runs one external
// download process per job.
//
// BuildCommand turns a Request into the exact argument vector for yt-dlp
// (optionally driving aria2c) or N_m3u8DL-RE. Runner spawns the process with
// bin/ first on PATH, merges stdout and stderr into a single line stream, and
// scans it for progress and error markers. Launcher ties both together with a
// per-job log file and a history record.
package launcher

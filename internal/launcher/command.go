package launcher

import (
	"strconv"
	"strings"

	"github.com/alessio/shellescape"

	"univdl/internal/config"
	"univdl/internal/cookies"
	"univdl/internal/deps"
	"univdl/internal/services"
)

const cookieHeaderPrefix = "Cookie: "

// Command is a fully resolved engine invocation.
type Command struct {
	Engine Engine
	Binary string
	Args   []string
	// BinDir is prepended to PATH in the child environment.
	BinDir string
	// Warnings collects downgrades applied while building, such as dropping
	// browser cookies for N_m3u8DL-RE.
	Warnings []string
	// Request is the normalized request the command was built from.
	Request Request
}

// Argv returns the binary followed by its arguments.
func (c *Command) Argv() []string {
	if c == nil {
		return nil
	}
	return append([]string{c.Binary}, c.Args...)
}

// String renders the command as a shell-quoted line. Cookie header values
// are masked.
func (c *Command) String() string {
	argv := c.Argv()
	for i, arg := range argv {
		if strings.HasPrefix(arg, cookieHeaderPrefix) {
			argv[i] = cookieHeaderPrefix + "<redacted>"
		}
	}
	return shellescape.QuoteCommand(argv)
}

// BuildOption customizes BuildCommand.
type BuildOption func(*buildOptions)

type buildOptions struct {
	matcher *cookies.Matcher
}

// WithCookieMatcher reuses a cookie header cache across builds.
func WithCookieMatcher(m *cookies.Matcher) BuildOption {
	return func(o *buildOptions) {
		o.matcher = m
	}
}

// BuildCommand validates req and returns the engine command line for it.
func BuildCommand(req Request, layout deps.Layout, opts ...BuildOption) (*Command, error) {
	options := buildOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	normalized, warnings, err := req.normalize()
	if err != nil {
		return nil, err
	}

	var cmd *Command
	switch normalized.Engine {
	case EngineRE:
		cmd, err = buildRE(normalized, layout, options)
	default:
		cmd = buildYtDlp(normalized, layout)
	}
	if err != nil {
		return nil, err
	}
	cmd.Engine = normalized.Engine
	cmd.BinDir = layout.BinDir
	cmd.Request = normalized
	cmd.Warnings = append(warnings, cmd.Warnings...)
	return cmd, nil
}

func buildYtDlp(req Request, layout deps.Layout) *Command {
	binary, _, ok := layout.Resolve(deps.ToolYtDlp)
	if !ok {
		// Left to the runner, which reports a missing executable.
		binary = layout.Platform.ExecutableName(deps.ToolYtDlp.Binary())
	}

	args := []string{
		"-P", req.DownloadDir,
		"--merge-output-format", req.MergeOutputFormat,
		"--retries", strconv.Itoa(req.Retries),
		"-f", req.Format,
	}

	if req.Engine == EngineAria2 {
		connections := min(req.Threads, aria2MaxConnections)
		args = append(args,
			"--downloader", deps.ToolAria2.Binary(),
			"--downloader-args", "aria2c:-x "+strconv.Itoa(connections)+" -k "+req.Aria2MinSplit,
		)
	}

	switch req.CookieSource {
	case config.CookieSourceNone:
	case config.CookieSourceFile:
		args = append(args, "--cookies", req.CookieFile)
	default:
		args = append(args, "--cookies-from-browser", req.CookieSource)
	}

	if ffmpeg, _, ok := layout.Resolve(deps.ToolFFmpeg); ok {
		args = append(args, "--ffmpeg-location", ffmpeg)
	}

	args = append(args, req.URL)
	return &Command{Binary: binary, Args: args}
}

func buildRE(req Request, layout deps.Layout, options buildOptions) (*Command, error) {
	binary, _, ok := layout.Resolve(deps.ToolRE)
	if !ok {
		return nil, services.Wrap(services.ErrNotFound, "launcher", "build command",
			"N_m3u8DL-RE not found in "+layout.BinDir+"; run `univdl deps install`", nil)
	}

	args := []string{
		req.URL,
		"--save-dir", req.DownloadDir,
		"--thread-count", strconv.Itoa(req.Threads),
		"--auto-select",
		"--no-log",
	}

	cmd := &Command{Binary: binary}
	if req.CookieSource == config.CookieSourceFile {
		var header string
		if options.matcher != nil {
			header = options.matcher.HeaderFor(req.CookieFile, req.URL)
		} else {
			header = cookies.HeaderFor(req.CookieFile, req.URL, cookies.DefaultMaxHeaderLen)
		}
		if header != "" {
			args = append(args, "--header", cookieHeaderPrefix+header)
		} else {
			cmd.Warnings = append(cmd.Warnings, "no cookies in "+req.CookieFile+" match "+cookies.HostOf(req.URL)+"; continuing as guest")
		}
	}

	if ffmpeg, _, ok := layout.Resolve(deps.ToolFFmpeg); ok {
		args = append(args, "--ffmpeg-binary-path", ffmpeg)
	}

	cmd.Args = args
	return cmd, nil
}

package config

import "univdl/internal/platform"

const (
	defaultDataDir           = "~/.local/share/univdl"
	defaultBinDir            = defaultDataDir + "/bin"
	defaultLogDir            = defaultDataDir + "/logs"
	defaultStateDir          = defaultDataDir + "/state"
	defaultDownloadDir       = "~/Downloads"
	defaultEngine            = EngineNative
	defaultThreads           = 8
	minThreads               = 1
	maxThreads               = 64
	defaultRetries           = 10
	defaultMergeOutputFormat = "mp4"
	defaultFormat            = "bv+ba/b"
	defaultAria2MinSplit     = "1M"
	defaultRegion            = RegionAuto
	defaultMirrorPrefix      = "https://ghproxy.net/"
	defaultInstallTimeout    = 600
	defaultInstallRetries    = 3
	defaultUserAgent         = "Mozilla/5.0 (univdl installer)"
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultLogRetentionDays  = 30
	defaultLang              = LangAuto
)

// Engine names as stored in configuration.
const (
	EngineNative = "native"
	EngineAria2  = "aria2"
	EngineRE     = "re"
)

// Cookie sources that are not browsers.
const (
	CookieSourceNone = "none"
	CookieSourceFile = "file"
)

// LangAuto picks the message language from the locale environment.
const LangAuto = "auto"

// Installer regions.
const (
	RegionAuto   = "auto"
	RegionGlobal = "global"
	RegionCN     = "cn"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:      defaultLogDir,
			StateDir:    defaultStateDir,
			DownloadDir: defaultDownloadDir,
		},
		Download: Download{
			Engine:            defaultEngine,
			Threads:           defaultThreads,
			CookieSource:      platform.Current().DefaultCookieSource(),
			Retries:           defaultRetries,
			MergeOutputFormat: defaultMergeOutputFormat,
			Format:            defaultFormat,
			Aria2MinSplit:     defaultAria2MinSplit,
			CheckOutput:       true,
		},
		Installer: Installer{
			Region:         defaultRegion,
			MirrorPrefix:   defaultMirrorPrefix,
			TimeoutSeconds: defaultInstallTimeout,
			Retries:        defaultInstallRetries,
			UserAgent:      defaultUserAgent,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
		Lang: defaultLang,
	}
}

package config

// DefaultPort matches the port the service has always listened on
const DefaultPort = 4000

const (
	// DefaultUserAgent identifies metadata API calls
	DefaultUserAgent = "BookBridge/1.0 (+https://github.com/mrlokans/bookbridge)"

	// DefaultDownloadUserAgent is a browser-like agent; some file mirrors refuse other clients
	DefaultDownloadUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
)

// DefaultEnabledSources is the default fan-out merge order
var DefaultEnabledSources = []string{"gutendex", "openlibrary", "archive", "googlebooks"}

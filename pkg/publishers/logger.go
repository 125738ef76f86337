package publishers

import "github.com/samvad-hq/samvad-http-facade/pkg/httpclient"

// Logger is the logging surface shared with the HTTP facade.
type Logger = httpclient.Logger

func ensureLogger(log Logger) Logger {
	if log == nil {
		return httpclient.NopLogger{}
	}
	return log
}

package httpclient

import "context"

// Client abstracts the facade so callers can inject mocks or different transports.
type Client interface {
	Get(ctx context.Context, url string, headers map[string]string, params Params) (*Response, error)
	Post(ctx context.Context, url string, params Params, headers map[string]string) (*Response, error)
}

// Logger defines the logging surface the facade relies on.
type Logger interface {
	InfoObj(msg, key string, obj interface{})
	DebugObj(msg, key string, obj interface{})
	WarnObj(msg, key string, obj interface{})
	ErrorObj(msg, key string, obj interface{})
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) InfoObj(string, string, interface{})  {}
func (NopLogger) DebugObj(string, string, interface{}) {}
func (NopLogger) WarnObj(string, string, interface{})  {}
func (NopLogger) ErrorObj(string, string, interface{}) {}

func ensureLogger(log Logger) Logger {
	if log == nil {
		return NopLogger{}
	}
	return log
}

package colorist

import "runtime"

// Context carries the process-wide services that every core call threads
// through explicitly: the default luminance assumed for profiles that
// leave theirs unspecified, the worker count for parallel dispatch, the
// log sinks, and the switch permitting the built-in colour-math engine.
//
// There is no package-level singleton; construct one with [NewContext]
// and pass it to every call.
type Context struct {
	// DefaultLuminance is assumed, in nits, when a profile does not
	// specify its own luminance.
	DefaultLuminance float64

	// Jobs is the default worker count for parallel pixel dispatch.
	Jobs int

	// CCMMAllowed permits the built-in colour-math engine. When false,
	// every Transform delegates to the external CMM, whether or not the
	// profiles involved are representable in closed form.
	CCMMAllowed bool

	// Verbose gates diagnostic logging through Log.
	Verbose bool

	// Log receives section-tagged diagnostics while Verbose is set. May
	// be nil.
	Log func(section, format string, args ...any)

	// LogError is the single error side channel. May be nil.
	LogError func(format string, args ...any)
}

const defaultLuminance = 80

// NewContext returns a Context with the package defaults: 80-nit default
// luminance, one worker per CPU, built-in engine allowed, no logging.
func NewContext() *Context {
	return &Context{
		DefaultLuminance: defaultLuminance,
		Jobs:             runtime.NumCPU(),
		CCMMAllowed:      true,
	}
}

func (c *Context) defaultLum() float64 {
	if c.DefaultLuminance > 0 {
		return c.DefaultLuminance
	}
	return defaultLuminance
}

// jobs resolves a requested worker count against the context default,
// never returning less than one.
func (c *Context) jobs(requested int) int {
	if requested > 0 {
		return requested
	}
	if c.Jobs > 0 {
		return c.Jobs
	}
	return 1
}

func (c *Context) logf(section, format string, args ...any) {
	if c.Verbose && c.Log != nil {
		c.Log(section, format, args...)
	}
}

func (c *Context) logError(format string, args ...any) {
	if c.LogError != nil {
		c.LogError(format, args...)
	}
}

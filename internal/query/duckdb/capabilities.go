package duckdb

const (
	CapabilityHTTPFS   = "httpfs"
	CapabilityIceberg  = "iceberg"
	CapabilityS3Config = "s3_config"
)

type State string

const (
	StateUninitialized State = "uninitialized"
	StateReady         State = "ready"
	StateDegraded      State = "degraded"
)

// CapabilityResult records the outcome of one optional startup step. A step
// that was not attempted is Skipped and not Loaded.
type CapabilityResult struct {
	Name    string
	Loaded  bool
	Skipped bool
	Err     error
}

func (r CapabilityResult) ErrorMessage() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

type Capabilities struct {
	Results []CapabilityResult
}

func (c Capabilities) Get(name string) (CapabilityResult, bool) {
	for _, result := range c.Results {
		if result.Name == name {
			return result, true
		}
	}
	return CapabilityResult{}, false
}

func (c Capabilities) Loaded(name string) bool {
	result, ok := c.Get(name)
	return ok && result.Loaded
}

// RemoteStorage reports whether s3:// paths can be read at all. Credentials
// may still be missing if the s3_config step failed.
func (c Capabilities) RemoteStorage() bool {
	return c.Loaded(CapabilityHTTPFS)
}

func (c Capabilities) TableFormat() bool {
	return c.Loaded(CapabilityIceberg)
}

package capture

// Config holds capture settings shared by every device.
type Config struct {
	// Frames larger than this are downscaled before sampling.
	MaxWidth  int `json:"max_width"`
	MaxHeight int `json:"max_height"`

	// DeviceID selects the local camera.
	DeviceID int `json:"device_id"`
}

// DefaultConfig keeps frames at or below 1280x720.
func DefaultConfig() Config {
	return Config{
		MaxWidth:  1280,
		MaxHeight: 720,
	}
}

// Option configures a device.
type Option func(*Config)

// WithMaxSize bounds frame dimensions. Zero disables resizing.
func WithMaxSize(w, h int) Option {
	return func(c *Config) {
		c.MaxWidth = w
		c.MaxHeight = h
	}
}

// WithDeviceID selects a local camera by index.
func WithDeviceID(id int) Option {
	return func(c *Config) { c.DeviceID = id }
}

// Apply applies options.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

package server

import "time"

type Config struct {
	Listen string `mapstructure:"listen,omitempty" yaml:"listen,omitempty"`
	// DataDir holds the files managed through the admin endpoints.
	DataDir   string `mapstructure:"data_dir,omitempty" yaml:"data_dir,omitempty"`
	PublicDir string `mapstructure:"public_dir,omitempty" yaml:"public_dir,omitempty"`
	// UploadLimit caps the size of an uploaded file in bytes.
	UploadLimit     int64         `mapstructure:"upload_limit,omitempty" yaml:"upload_limit,omitempty"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout,omitempty" yaml:"shutdown_timeout,omitempty"`
}

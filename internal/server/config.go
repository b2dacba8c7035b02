package server

import (
	"time"

	"github.com/Brownie44l1/tinyserver/internal/cgi"
	"github.com/Brownie44l1/tinyserver/internal/request"
	"github.com/Brownie44l1/tinyserver/internal/resource"
)

// Config holds everything the server can be tuned with.
type Config struct {
	Addr string

	// Content layout
	Root            string
	DefaultDocument string
	DynamicMarker   string

	// Request limits
	MaxLineSize    int
	MaxHeaderLines int
	MaxBodySize    int64

	// MaxConns caps concurrently served connections; 0 means no cap.
	MaxConns int

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CGITimeout   time.Duration
}

// DefaultConfig returns the settings used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		Addr:            ":8080",
		Root:            resource.DefaultRoot,
		DefaultDocument: resource.DefaultDocument,
		DynamicMarker:   resource.DefaultMarker,
		MaxLineSize:     request.DefaultMaxLineSize,
		MaxHeaderLines:  request.DefaultMaxHeaderLines,
		MaxBodySize:     request.DefaultMaxBodySize,
		MaxConns:        1024,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		CGITimeout:      cgi.DefaultTimeout,
	}
}

func (c Config) requestOptions() request.Options {
	return request.Options{
		MaxLineSize:    c.MaxLineSize,
		MaxHeaderLines: c.MaxHeaderLines,
		MaxBodySize:    c.MaxBodySize,
	}
}

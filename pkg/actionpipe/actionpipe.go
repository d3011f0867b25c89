// Package actionpipe provides the public API for embedding the action host.
// This is the stable API for external consumers.
package actionpipe

import (
	"github.com/tjfontaine/actionpipe/internal/runtime"
)

// Runtime is one running action host.
// See internal/runtime.Runtime for full documentation.
type Runtime = runtime.Runtime

// Option is a functional option for configuring a Runtime.
type Option = runtime.Option

// Application contributes controllers and their routes.
type Application = runtime.Application

// New creates a new Runtime with the given options.
// Example:
//
//	rt, err := actionpipe.New(
//	    actionpipe.WithFileConfig("config.yaml"),
//	    actionpipe.WithApplication(app),
//	)
var New = runtime.New

// Configuration options
var (
	WithFileConfig = runtime.WithFileConfig
	WithConfig     = runtime.WithConfig

	WithApplication = runtime.WithApplication

	// Advanced options
	WithStore          = runtime.WithStore
	WithRegistry       = runtime.WithRegistry
	WithTracerProvider = runtime.WithTracerProvider
	WithHTTPClient     = runtime.WithHTTPClient
	WithLogger         = runtime.WithLogger
)

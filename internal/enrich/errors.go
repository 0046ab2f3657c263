// Package enrich applies a synthetic treatment to a subset of products in an
// observation table. It draws a seeded treatment group, runs a named effect
// function over every observation, and returns the factual table together
// with optional Y0/Y1 potential outcomes.
package enrich

import "github.com/rotisserie/eris"

var (
	// ErrConfig reports a bad treatment definition: a missing function
	// name, an invalid parameter, or an unknown detail backend. It is raised
	// before any row is processed.
	ErrConfig = eris.New("enrich: invalid treatment configuration")

	// ErrNotRegistered reports an effect name the registry does not know.
	ErrNotRegistered = eris.New("enrich: effect not registered")

	// ErrInvalidEffect reports an effect rejected at registration time.
	ErrInvalidEffect = eris.New("enrich: invalid effect")

	// ErrInput reports an observation or product table the engine cannot read.
	ErrInput = eris.New("enrich: invalid input table")
)

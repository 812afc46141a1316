// Package domain holds the set cleaner's configuration and ports
package domain

import "time"

// Config configures one cleanup pass
type Config struct {
	Host      string `flag:"host" validate:"required"`
	Port      int    `flag:"port" validate:"min=1,max=65535"`
	Namespace string `flag:"namespace" validate:"required"`

	// Prefix is matched against set names after sanitizing to [A-Za-z0-9_]
	Prefix string `flag:"setprefix" validate:"required"`

	// Before truncates only records last updated before this instant; zero means now
	Before time.Time `flag:"before"`

	DryRun bool `flag:"dry-run"`
}

// SetInfo is one set of a namespace as reported by the cluster
type SetInfo struct {
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
	Objects   int64  `json:"objects"`
}

// Result is the outcome of a pass
type Result struct {
	Prefix  string   `json:"prefix"`
	Total   int      `json:"total"`
	Matched []string `json:"matched"`
	Deleted []string `json:"deleted"`
	Failed  []string `json:"failed,omitempty"`
}

package models

// Channel identifies a live channel and where it lives on the portal.
// Values are produced by the channel registry and never mutated.
type Channel struct {
	// Name is the canonical channel key, e.g. "ary-news".
	Name string `json:"name" yaml:"name"`

	// SitePath is the site-relative slug, e.g. "ary-news".
	SitePath string `json:"site_path" yaml:"site_path"`
}

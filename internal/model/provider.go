package model

import (
	"fmt"
	"strings"
)

// Provider identifies the calendar service a connection pulls events from.
// The zero value is not a valid provider; use ParseProvider.
type Provider struct {
	name string

	// writesLinks reports whether reconciled records get a
	// CalendarEventLink row for push-back features.
	writesLinks bool
}

var (
	ProviderGoogle  = Provider{name: "google", writesLinks: true}
	ProviderOutlook = Provider{name: "outlook", writesLinks: true}
	ProviderApple   = Provider{name: "apple", writesLinks: false}
)

// Providers lists every supported provider.
var Providers = []Provider{ProviderGoogle, ProviderOutlook, ProviderApple}

// ParseProvider maps a stored or user-supplied provider name to a Provider.
func ParseProvider(s string) (Provider, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for _, p := range Providers {
		if p.name == name {
			return p, nil
		}
	}
	return Provider{}, fmt.Errorf("unknown calendar provider %q", s)
}

// String returns the provider's canonical name.
func (p Provider) String() string { return p.name }

// IsZero reports whether p was never set.
func (p Provider) IsZero() bool { return p.name == "" }

// WritesLinks reports whether the provider supports pushing changes back
// upstream, which is what CalendarEventLink rows exist for.
func (p Provider) WritesLinks() bool { return p.writesLinks }

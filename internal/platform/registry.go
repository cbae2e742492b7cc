package platform

import (
	"sort"
	"strings"

	"ArticleRelay/internal/domain"
	"ArticleRelay/internal/ports"
)

// Entry bundles a platform profile with the adapters that serve it.
// Generator writes the copy; Client posts it and may be nil when the
// platform is generate-only.
type Entry struct {
	Profile   domain.Platform
	Generator ports.TextGenerator
	Client    ports.PlatformClient
}

// Registry keeps a mapping from platform names to their entries.
// Lookups are case-insensitive; insertion order is preserved for listing.
type Registry struct {
	entries map[string]Entry
	order   []string
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: map[string]Entry{}}
}

// Register adds or replaces a platform entry.
func (r *Registry) Register(entry Entry) {
	if r.entries == nil {
		r.entries = map[string]Entry{}
	}
	key := normalize(entry.Profile.Name)
	if _, exists := r.entries[key]; !exists {
		r.order = append(r.order, key)
	}
	r.entries[key] = entry
}

// Resolve returns the entry for name or an UnsupportedPlatform error.
func (r *Registry) Resolve(name string) (Entry, error) {
	if entry, ok := r.entries[normalize(name)]; ok {
		return entry, nil
	}
	return Entry{}, domain.Errorf(domain.KindUnsupportedPlatform, "resolve platform", "platform %q is not configured", name).ForPlatform(name)
}

// Names lists registered platforms in registration order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.order))
	for _, key := range r.order {
		names = append(names, r.entries[key].Profile.Name)
	}
	return names
}

// Publishable lists platforms that have a client attached, sorted by name.
func (r *Registry) Publishable() []string {
	var names []string
	for _, entry := range r.entries {
		if entry.Client != nil {
			names = append(names, entry.Profile.Name)
		}
	}
	sort.Strings(names)
	return names
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

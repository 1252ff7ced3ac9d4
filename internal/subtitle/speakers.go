package subtitle

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// SpeakerProfile identifies a voice detected by diarization or named by the
// user. Segments reference profiles by ID; the reference is never an ownership
// edge, so deleting a profile leaves referencing segments intact.
type SpeakerProfile struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Color      string `json:"color,omitempty"`
	IsStandard bool   `json:"isStandard"`
}

// SpeakerRegistry tracks speaker profiles for one run.
type SpeakerRegistry struct {
	mu       sync.Mutex
	profiles map[string]*SpeakerProfile
}

// NewSpeakerRegistry returns an empty registry.
func NewSpeakerRegistry() *SpeakerRegistry {
	return &SpeakerRegistry{profiles: make(map[string]*SpeakerProfile)}
}

// Ensure returns the profile for a diarization label, creating a standard
// profile on first sight. The label doubles as the profile ID so repeated
// diarization passes resolve to the same identity.
func (r *SpeakerRegistry) Ensure(label string) *SpeakerProfile {
	label = strings.TrimSpace(label)
	if label == "" {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if profile, ok := r.profiles[label]; ok {
		return profile
	}
	profile := &SpeakerProfile{ID: label, Name: label, IsStandard: true}
	r.profiles[label] = profile
	return profile
}

// Get returns the profile with the given ID, if present.
func (r *SpeakerRegistry) Get(id string) (*SpeakerProfile, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	profile, ok := r.profiles[id]
	return profile, ok
}

// Rename updates a profile's display name and refreshes the cached Speaker
// string on every segment that references it. IDs never change.
func (r *SpeakerRegistry) Rename(id, name string, segments []Segment) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("speaker name must not be empty")
	}
	r.mu.Lock()
	profile, ok := r.profiles[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("speaker profile %q not found", id)
	}
	profile.Name = name
	profile.IsStandard = false
	r.mu.Unlock()

	for i := range segments {
		if segments[i].SpeakerID == id {
			segments[i].Speaker = name
		}
	}
	return nil
}

// Profiles returns a stable snapshot ordered by ID.
func (r *SpeakerRegistry) Profiles() []SpeakerProfile {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]SpeakerProfile, 0, len(r.profiles))
	for _, profile := range r.profiles {
		out = append(out, *profile)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

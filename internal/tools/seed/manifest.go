package seed

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/louisbranch/skillswap/internal/services/marketplace/swap"
)

//go:embed manifests/*.json
var manifestFS embed.FS

// DefaultManifestName is the embedded manifest used when no path is given.
const DefaultManifestName = "demo"

// Manifest defines a declarative seed graph.
type Manifest struct {
	Name     string             `json:"name"`
	Users    []ManifestUser     `json:"users"`
	Swaps    []ManifestSwap     `json:"swaps"`
	Feedback []ManifestFeedback `json:"feedback"`
}

// ManifestUser defines one account and its profile card.
type ManifestUser struct {
	Key      string          `json:"key"`
	Email    string          `json:"email"`
	Name     string          `json:"name"`
	Password string          `json:"password,omitempty"`
	Admin    bool            `json:"admin,omitempty"`
	Profile  ManifestProfile `json:"profile"`
}

// ManifestProfile defines the editable profile fields.
type ManifestProfile struct {
	Location      string   `json:"location,omitempty"`
	Bio           string   `json:"bio,omitempty"`
	Availability  []string `json:"availability,omitempty"`
	Public        bool     `json:"public"`
	SkillsOffered []string `json:"skills_offered,omitempty"`
	SkillsWanted  []string `json:"skills_wanted,omitempty"`
}

// ManifestSwap defines one swap and the status it should end in.
type ManifestSwap struct {
	Key          string `json:"key"`
	Requester    string `json:"requester"`
	Recipient    string `json:"recipient"`
	OfferedSkill string `json:"offered_skill"`
	WantedSkill  string `json:"wanted_skill"`
	Message      string `json:"message,omitempty"`
	Status       string `json:"status,omitempty"`
}

// ManifestFeedback defines one rating left on a completed swap.
type ManifestFeedback struct {
	Swap    string `json:"swap"`
	From    string `json:"from"`
	Rating  int    `json:"rating"`
	Comment string `json:"comment,omitempty"`
}

// LoadManifest reads a manifest from path, or the embedded demo manifest when
// path is empty.
func LoadManifest(path string) (Manifest, error) {
	var (
		data []byte
		err  error
	)
	if path = strings.TrimSpace(path); path == "" {
		data, err = manifestFS.ReadFile("manifests/" + DefaultManifestName + ".json")
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}
	return ParseManifest(data)
}

// ParseManifest decodes and validates manifest JSON.
func ParseManifest(data []byte) (Manifest, error) {
	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return Manifest{}, fmt.Errorf("decode manifest: %w", err)
	}
	if err := manifest.Validate(); err != nil {
		return Manifest{}, err
	}
	return manifest, nil
}

// Validate checks keys are unique and every reference resolves.
func (m Manifest) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("manifest name is required")
	}
	users := make(map[string]struct{}, len(m.Users))
	for _, u := range m.Users {
		if u.Key == "" {
			return fmt.Errorf("user %q: key is required", u.Email)
		}
		if _, ok := users[u.Key]; ok {
			return fmt.Errorf("user %q: duplicate key", u.Key)
		}
		users[u.Key] = struct{}{}
	}

	swaps := make(map[string]ManifestSwap, len(m.Swaps))
	for _, s := range m.Swaps {
		if s.Key == "" {
			return fmt.Errorf("swap between %q and %q: key is required", s.Requester, s.Recipient)
		}
		if _, ok := swaps[s.Key]; ok {
			return fmt.Errorf("swap %q: duplicate key", s.Key)
		}
		if _, ok := users[s.Requester]; !ok {
			return fmt.Errorf("swap %q: unknown requester %q", s.Key, s.Requester)
		}
		if _, ok := users[s.Recipient]; !ok {
			return fmt.Errorf("swap %q: unknown recipient %q", s.Key, s.Recipient)
		}
		if _, err := statusPath(s.Status); err != nil {
			return fmt.Errorf("swap %q: %w", s.Key, err)
		}
		swaps[s.Key] = s
	}

	for _, f := range m.Feedback {
		s, ok := swaps[f.Swap]
		if !ok {
			return fmt.Errorf("feedback: unknown swap %q", f.Swap)
		}
		if f.From != s.Requester && f.From != s.Recipient {
			return fmt.Errorf("feedback on %q: %q is not a party", f.Swap, f.From)
		}
		if swap.Status(strings.ToLower(strings.TrimSpace(s.Status))) != swap.StatusCompleted {
			return fmt.Errorf("feedback on %q: swap must be completed", f.Swap)
		}
	}
	return nil
}

// statusPath lists the transitions that take a pending swap to target.
func statusPath(target string) ([]swap.Status, error) {
	if strings.TrimSpace(target) == "" {
		return nil, nil
	}
	status, err := swap.ParseStatus(target)
	if err != nil {
		return nil, err
	}
	switch status {
	case swap.StatusPending:
		return nil, nil
	case swap.StatusCompleted:
		return []swap.Status{swap.StatusAccepted, swap.StatusCompleted}, nil
	default:
		return []swap.Status{status}, nil
	}
}

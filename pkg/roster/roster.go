// Package roster reads the character manifest: which scenes exist and which
// characters each one holds.
package roster

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Roster struct {
	Version int     `yaml:"version"`
	Scenes  []Scene `yaml:"scenes"`
}

type Scene struct {
	Name        string      `yaml:"name"`
	DisplayName string      `yaml:"display_name"`
	Characters  []Character `yaml:"characters"`
}

type Character struct {
	BrainName string `yaml:"brain_name"`
	GivenName string `yaml:"given_name"`
	Language  string `yaml:"language"`
}

func Load(path string) (*Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading roster: %w", err)
	}
	r, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("loading roster: %w", err)
	}
	return r, nil
}

func Parse(data []byte) (*Roster, error) {
	var r Roster
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	if err := validate(&r); err != nil {
		return nil, err
	}
	return &r, nil
}

func validate(r *Roster) error {
	if r.Version != 1 {
		return fmt.Errorf("unsupported version: %d", r.Version)
	}
	if len(r.Scenes) == 0 {
		return fmt.Errorf("at least one scene is required")
	}
	seen := make(map[string]struct{})
	for i, scene := range r.Scenes {
		if strings.TrimSpace(scene.Name) == "" {
			return fmt.Errorf("scene %d name is required", i)
		}
		if _, dup := seen[scene.Name]; dup {
			return fmt.Errorf("duplicate scene name: %s", scene.Name)
		}
		seen[scene.Name] = struct{}{}
		for j, c := range scene.Characters {
			if strings.TrimSpace(c.BrainName) == "" {
				return fmt.Errorf("scene %s character %d brain_name is required", scene.Name, j)
			}
		}
	}
	return nil
}

// Scene returns the scene with the given name.
func (r *Roster) Scene(name string) (Scene, bool) {
	if r == nil {
		return Scene{}, false
	}
	for _, s := range r.Scenes {
		if s.Name == name {
			return s, true
		}
	}
	return Scene{}, false
}

// SceneFor returns the first scene holding brainName.
func (r *Roster) SceneFor(brainName string) (Scene, bool) {
	if r == nil {
		return Scene{}, false
	}
	for _, s := range r.Scenes {
		for _, c := range s.Characters {
			if c.BrainName == brainName {
				return s, true
			}
		}
	}
	return Scene{}, false
}

// Holds reports whether the scene lists every one of brainNames.
func (s Scene) Holds(brainNames ...string) bool {
	for _, name := range brainNames {
		found := false
		for _, c := range s.Characters {
			if c.BrainName == name {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Characters returns the brain names of a scene, in manifest order.
func (r *Roster) Characters(sceneName string) []string {
	s, ok := r.Scene(sceneName)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(s.Characters))
	for _, c := range s.Characters {
		out = append(out, c.BrainName)
	}
	return out
}

// Find looks a character up by brain name, or case-insensitively by given
// name.
func (r *Roster) Find(name string) (Character, bool) {
	if r == nil {
		return Character{}, false
	}
	name = strings.TrimSpace(name)
	for _, s := range r.Scenes {
		for _, c := range s.Characters {
			if c.BrainName == name || (c.GivenName != "" && strings.EqualFold(c.GivenName, name)) {
				return c, true
			}
		}
	}
	return Character{}, false
}

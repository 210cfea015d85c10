package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/diogo/chatstream/internal/models"
)

// DefaultPersonaName is the built-in persona used when none is chosen
const DefaultPersonaName = "default"

const (
	maxPersonaName        = 50
	maxPersonaDescription = 200
	maxSystemPrompt       = 32 * 1024
)

var (
	ErrPersonaNotFound = errors.New("persona not found")
	ErrPersonaExists   = errors.New("persona already exists")
	ErrBuiltinPersona  = errors.New("built-in personas cannot be deleted")
	ErrBlankPrompt     = errors.New("system prompt must not be blank")
)

// Persona is a named system prompt. The prompt becomes the fixed first
// message of every conversation started with the persona.
type Persona struct {
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	SystemPrompt string `json:"system_prompt"`
}

var builtinPersonas = []Persona{
	{
		Name:         DefaultPersonaName,
		Description:  "Personal assistant",
		SystemPrompt: models.DefaultSystemPrompt,
	},
	{
		Name:        "scheduler",
		Description: "Guards a busy calendar",
		SystemPrompt: `You help people reach your principal and find time with them.
Always confirm the time zone and the exact date and time of a proposal.
Offer a reminder when someone is given future work. Keep replies short.`,
	},
	{
		Name:        "coder",
		Description: "Answers programming questions with code",
		SystemPrompt: `You answer programming questions.
Lead with a small runnable example, then at most a few lines of explanation.
Point out anything destructive before showing it.`,
	},
	{
		Name:        "writer",
		Description: "Drafts and edits prose",
		SystemPrompt: `You help draft and edit text.
Keep the author's voice, suggest concrete rewrites rather than general advice
and offer alternatives when asked.`,
	},
}

// BuiltinPersonas returns a copy of the personas shipped with chatstream
func BuiltinPersonas() []Persona {
	return append([]Persona(nil), builtinPersonas...)
}

func builtin(name string) (Persona, bool) {
	for _, p := range builtinPersonas {
		if p.Name == name {
			return p, true
		}
	}
	return Persona{}, false
}

// personaFile is the on-disk layout. Only user personas are stored; a user
// persona with a built-in name overrides it.
type personaFile struct {
	Personas []Persona `json:"personas"`
	Default  string    `json:"default_persona,omitempty"`
}

// PersonaSet is the built-in personas overlaid with the user's own
type PersonaSet struct {
	path  string
	user  []Persona
	deflt string
}

// GetPersonasPath returns the path to the personas file
func GetPersonasPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "personas.json"), nil
}

// LoadPersonas reads the user's personas. A missing file yields the built-ins.
func LoadPersonas() (*PersonaSet, error) {
	path, err := GetPersonasPath()
	if err != nil {
		return nil, err
	}
	return loadPersonaSet(path)
}

func loadPersonaSet(path string) (*PersonaSet, error) {
	set := &PersonaSet{path: path}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return set, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read personas: %w", err)
	}

	var file personaFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse personas: %w", err)
	}
	for _, p := range file.Personas {
		if err := ValidatePersona(p); err != nil {
			return nil, fmt.Errorf("%s: persona %q: %w", path, p.Name, err)
		}
	}
	set.user = file.Personas
	set.deflt = file.Default
	return set, nil
}

// Save writes the user personas and the default choice
func (s *PersonaSet) Save() error {
	if _, err := EnsureConfigDir(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(personaFile{Personas: s.user, Default: s.deflt}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal personas: %w", err)
	}
	// prompts are user data
	return os.WriteFile(s.path, data, 0o600)
}

func (s *PersonaSet) userIndex(name string) int {
	for i, p := range s.user {
		if p.Name == name {
			return i
		}
	}
	return -1
}

// Get returns the named persona, user personas first
func (s *PersonaSet) Get(name string) (Persona, error) {
	if i := s.userIndex(name); i >= 0 {
		return s.user[i], nil
	}
	if p, ok := builtin(name); ok {
		return p, nil
	}
	return Persona{}, fmt.Errorf("%w: %q", ErrPersonaNotFound, name)
}

// All returns the built-ins (with user overrides applied) followed by the
// user personas sorted by name.
func (s *PersonaSet) All() []Persona {
	out := make([]Persona, 0, len(builtinPersonas)+len(s.user))
	for _, b := range builtinPersonas {
		p, _ := s.Get(b.Name)
		out = append(out, p)
	}
	var extra []Persona
	for _, p := range s.user {
		if _, ok := builtin(p.Name); !ok {
			extra = append(extra, p)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i].Name < extra[j].Name })
	return append(out, extra...)
}

// Names returns the persona names in All order
func (s *PersonaSet) Names() []string {
	all := s.All()
	names := make([]string, len(all))
	for i, p := range all {
		names[i] = p.Name
	}
	return names
}

// DefaultName returns the persona used when the config names none
func (s *PersonaSet) DefaultName() string {
	if s.deflt == "" {
		return DefaultPersonaName
	}
	return s.deflt
}

// IsBuiltin reports whether name ships with chatstream
func (s *PersonaSet) IsBuiltin(name string) bool {
	_, ok := builtin(name)
	return ok
}

// Add stores a new persona. Use Update to change an existing one.
func (s *PersonaSet) Add(p Persona) error {
	if err := ValidatePersona(p); err != nil {
		return err
	}
	if _, err := s.Get(p.Name); err == nil {
		return fmt.Errorf("%w: %q", ErrPersonaExists, p.Name)
	}
	s.user = append(s.user, p)
	return nil
}

// Update replaces an existing persona. Updating a built-in stores an override.
func (s *PersonaSet) Update(p Persona) error {
	if err := ValidatePersona(p); err != nil {
		return err
	}
	if i := s.userIndex(p.Name); i >= 0 {
		s.user[i] = p
		return nil
	}
	if !s.IsBuiltin(p.Name) {
		return fmt.Errorf("%w: %q", ErrPersonaNotFound, p.Name)
	}
	s.user = append(s.user, p)
	return nil
}

// Remove deletes a user persona. Removing an override restores the built-in;
// built-ins themselves cannot be removed. The default falls back to
// DefaultPersonaName when its persona disappears.
func (s *PersonaSet) Remove(name string) error {
	i := s.userIndex(name)
	if i < 0 {
		if s.IsBuiltin(name) {
			return fmt.Errorf("%w: %q", ErrBuiltinPersona, name)
		}
		return fmt.Errorf("%w: %q", ErrPersonaNotFound, name)
	}
	s.user = append(s.user[:i], s.user[i+1:]...)
	if s.deflt == name && !s.IsBuiltin(name) {
		s.deflt = ""
	}
	return nil
}

// SetDefault makes name the default persona
func (s *PersonaSet) SetDefault(name string) error {
	if _, err := s.Get(name); err != nil {
		return err
	}
	if name == DefaultPersonaName {
		name = ""
	}
	s.deflt = name
	return nil
}

// ValidatePersona checks a persona before it is stored
func ValidatePersona(p Persona) error {
	var errs []error
	switch {
	case p.Name == "":
		errs = append(errs, errors.New("name is required"))
	case len(p.Name) > maxPersonaName:
		errs = append(errs, fmt.Errorf("name longer than %d characters", maxPersonaName))
	case !validPersonaName(p.Name):
		errs = append(errs, errors.New("name may only contain letters, digits, '_' and '-'"))
	}
	if len(p.Description) > maxPersonaDescription {
		errs = append(errs, fmt.Errorf("description longer than %d characters", maxPersonaDescription))
	}
	if strings.TrimSpace(p.SystemPrompt) == "" {
		errs = append(errs, ErrBlankPrompt)
	} else if len(p.SystemPrompt) > maxSystemPrompt {
		errs = append(errs, fmt.Errorf("system prompt longer than %d bytes", maxSystemPrompt))
	}
	return errors.Join(errs...)
}

func validPersonaName(name string) bool {
	for _, c := range name {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_', c == '-':
		default:
			return false
		}
	}
	return true
}

// The helpers below load, change and save personas.json in one step.

// GetPersona returns the named persona
func GetPersona(name string) (Persona, error) {
	set, err := LoadPersonas()
	if err != nil {
		return Persona{}, err
	}
	return set.Get(name)
}

// GetDefaultPersona returns the persona used when the config names none
func GetDefaultPersona() (Persona, error) {
	set, err := LoadPersonas()
	if err != nil {
		return Persona{}, err
	}
	return set.Get(set.DefaultName())
}

// ListPersonaNames returns every persona name
func ListPersonaNames() ([]string, error) {
	set, err := LoadPersonas()
	if err != nil {
		return nil, err
	}
	return set.Names(), nil
}

// AddPersona stores a new persona
func AddPersona(p Persona) error {
	return modifyPersonas(func(s *PersonaSet) error { return s.Add(p) })
}

// UpdatePersona replaces an existing persona
func UpdatePersona(p Persona) error {
	return modifyPersonas(func(s *PersonaSet) error { return s.Update(p) })
}

// DeletePersona removes a user persona
func DeletePersona(name string) error {
	return modifyPersonas(func(s *PersonaSet) error { return s.Remove(name) })
}

// SetDefaultPersona makes name the default persona
func SetDefaultPersona(name string) error {
	return modifyPersonas(func(s *PersonaSet) error { return s.SetDefault(name) })
}

func modifyPersonas(change func(*PersonaSet) error) error {
	set, err := LoadPersonas()
	if err != nil {
		return err
	}
	if err := change(set); err != nil {
		return err
	}
	return set.Save()
}

// ResolveSystemPrompt returns the fixed system instruction for a new session.
// An explicit system_prompt wins, then the configured persona, then the
// default persona.
func ResolveSystemPrompt(cfg Config) (string, error) {
	if strings.TrimSpace(cfg.SystemPrompt) != "" {
		return cfg.SystemPrompt, nil
	}

	set, err := LoadPersonas()
	if err != nil {
		return "", err
	}
	name := cfg.Persona
	if name == "" {
		name = set.DefaultName()
	}
	p, err := set.Get(name)
	if err != nil {
		return "", err
	}
	return p.SystemPrompt, nil
}

package tasks

import (
	"bytes"
	"encoding/json"
	"maps"
	"strings"

	"github.com/phillip-england/locsetup/internal/locations"
)

const LocationKey = "location"

type DisplayListItem = locations.DisplayListItem

// Subtask is one unit of import work. Body is the backend payload; Display restates it
// for people, in insertion order.
type Subtask struct {
	Title   string            `json:"title"`
	Body    map[string]any    `json:"body"`
	Display []DisplayListItem `json:"display"`
}

type ImageKind int

const (
	PrimaryLogo ImageKind = iota
	PrimaryThumbnail
	SecondaryLogo
	SecondaryThumbnail
)

var ImageKinds = []ImageKind{PrimaryLogo, PrimaryThumbnail, SecondaryLogo, SecondaryThumbnail}

func (k ImageKind) Label() string {
	switch k {
	case PrimaryLogo:
		return "Primary Logo"
	case PrimaryThumbnail:
		return "Primary Thumbnail"
	case SecondaryLogo:
		return "Secondary Logo"
	case SecondaryThumbnail:
		return "Secondary Thumbnail"
	default:
		return ""
	}
}

func (k ImageKind) AltHeader() string {
	return k.Label() + " Alt-Text"
}

func (k ImageKind) Key() string {
	return LocationKey + strings.Join(strings.Fields(k.Label()), "")
}

func (k ImageKind) Title() string {
	return "Location " + k.Label()
}

type FeatureSubtask struct {
	Feature Feature
	Subtask Subtask
}

// Task holds every subtask derived from one CSV row.
type Task struct {
	Location           Subtask
	PrimaryLogo        *Subtask
	PrimaryThumbnail   *Subtask
	SecondaryLogo      *Subtask
	SecondaryThumbnail *Subtask
	Setup              []FeatureSubtask
}

type Entry struct {
	Key     string
	Subtask Subtask
}

func (t *Task) image(kind ImageKind) **Subtask {
	switch kind {
	case PrimaryLogo:
		return &t.PrimaryLogo
	case PrimaryThumbnail:
		return &t.PrimaryThumbnail
	case SecondaryLogo:
		return &t.SecondaryLogo
	default:
		return &t.SecondaryThumbnail
	}
}

func (t Task) Image(kind ImageKind) (Subtask, bool) {
	s := *t.image(kind)
	if s == nil {
		return Subtask{}, false
	}
	return *s, true
}

// Name is the location name the task was built for.
func (t Task) Name() string {
	name, _ := t.Location.Body["name"].(string)
	return name
}

// Entries lists the subtasks under their keys: location first, then images, then
// feature setups.
func (t Task) Entries() []Entry {
	out := []Entry{{Key: LocationKey, Subtask: t.Location}}
	for _, kind := range ImageKinds {
		if s, ok := t.Image(kind); ok {
			out = append(out, Entry{Key: kind.Key(), Subtask: s})
		}
	}
	for _, fs := range t.Setup {
		out = append(out, Entry{Key: fs.Feature.Key(), Subtask: fs.Subtask})
	}
	return out
}

func (t Task) Keys() []string {
	entries := t.Entries()
	keys := make([]string, len(entries))
	for i, e := range entries {
		keys[i] = e.Key
	}
	return keys
}

func (t Task) Get(key string) (Subtask, bool) {
	for _, e := range t.Entries() {
		if e.Key == key {
			return e.Subtask, true
		}
	}
	return Subtask{}, false
}

// WithFeatures returns a copy of t whose setup subtasks match set exactly.
func (t Task) WithFeatures(set FeatureSet) Task {
	enabled := set.Enabled()
	t.Setup = make([]FeatureSubtask, 0, len(enabled))
	for _, f := range enabled {
		t.Setup = append(t.Setup, FeatureSubtask{Feature: f, Subtask: featureSubtask(f)})
	}
	return t
}

func (t Task) clone() Task {
	out := Task{Location: t.Location.clone()}
	for _, kind := range ImageKinds {
		if s, ok := t.Image(kind); ok {
			c := s.clone()
			*out.image(kind) = &c
		}
	}
	out.Setup = make([]FeatureSubtask, len(t.Setup))
	for i, fs := range t.Setup {
		out.Setup[i] = FeatureSubtask{Feature: fs.Feature, Subtask: fs.Subtask.clone()}
	}
	return out
}

func (s Subtask) clone() Subtask {
	return Subtask{
		Title:   s.Title,
		Body:    maps.Clone(s.Body),
		Display: append([]DisplayListItem{}, s.Display...),
	}
}

// MarshalJSON writes the task as an object keyed by subtask key, in Entries order.
func (t Task) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range t.Entries() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Key)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(e.Subtask)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func featureSubtask(f Feature) Subtask {
	return Subtask{
		Title:   "Setup " + f.Label(),
		Body:    map[string]any{},
		Display: []DisplayListItem{},
	}
}

package tasks

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownFeature = errors.New("unknown feature")

type Feature uint8

const (
	FeaturePosts Feature = 1 << iota
	FeatureResources
	FeatureMessages
	FeatureForms
)

// Features lists every feature in the order their setup subtasks appear.
var Features = []Feature{FeaturePosts, FeatureResources, FeatureMessages, FeatureForms}

func (f Feature) Label() string {
	switch f {
	case FeaturePosts:
		return "Posts"
	case FeatureResources:
		return "Resources"
	case FeatureMessages:
		return "Messages"
	case FeatureForms:
		return "Forms"
	default:
		return ""
	}
}

func (f Feature) String() string {
	return f.Label()
}

// Key is the subtask key used for the feature's setup subtask.
func (f Feature) Key() string {
	return "setup" + f.Label()
}

func (f Feature) Slug() string {
	return strings.ToLower(f.Label())
}

func ParseFeature(raw string) (Feature, error) {
	trimmed := strings.TrimSpace(raw)
	for _, f := range Features {
		if strings.EqualFold(trimmed, f.Label()) || strings.EqualFold(trimmed, f.Key()) {
			return f, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownFeature, raw)
}

// FeatureSet is the set of enabled features. The zero value has every feature off.
type FeatureSet uint8

func NewFeatureSet(features ...Feature) FeatureSet {
	var s FeatureSet
	for _, f := range features {
		s = s.With(f)
	}
	return s
}

func (s FeatureSet) Has(f Feature) bool {
	return s&FeatureSet(f) != 0
}

func (s FeatureSet) With(f Feature) FeatureSet {
	return s | FeatureSet(f)
}

func (s FeatureSet) Without(f Feature) FeatureSet {
	return s &^ FeatureSet(f)
}

func (s FeatureSet) Toggle(f Feature) FeatureSet {
	return s ^ FeatureSet(f)
}

// Enabled returns the active features in canonical order.
func (s FeatureSet) Enabled() []Feature {
	out := make([]Feature, 0, len(Features))
	for _, f := range Features {
		if s.Has(f) {
			out = append(out, f)
		}
	}
	return out
}

func (s FeatureSet) Labels() []string {
	enabled := s.Enabled()
	labels := make([]string, len(enabled))
	for i, f := range enabled {
		labels[i] = f.Label()
	}
	return labels
}

func (s FeatureSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Labels())
}

// Package instrument holds the fixed MBI-HSS item map: which survey items
// belong to which subscale, the tier bounds of each subscale and the item
// prompts. The definition is embedded at build time, schema-checked with CUE
// and partition-checked once when it is loaded.
package instrument

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/dotcommander/mbiscore/internal/cue"
	"gopkg.in/yaml.v3"
)

//go:embed mbi_hss.yaml
var definition []byte

// Shape of every response vector.
const (
	ItemCount = 22
	MinValue  = 0
	MaxValue  = 6
)

// Subscale identifies one of the three measured dimensions
type Subscale string

const (
	EmotionalExhaustion    Subscale = "EE"
	Depersonalization      Subscale = "DP"
	PersonalAccomplishment Subscale = "PA"
)

// Subscales lists the subscales in reporting order
var Subscales = []Subscale{EmotionalExhaustion, Depersonalization, PersonalAccomplishment}

// Name returns the long English name of the subscale
func (s Subscale) Name() string {
	switch s {
	case EmotionalExhaustion:
		return "Emotional Exhaustion"
	case Depersonalization:
		return "Depersonalization"
	case PersonalAccomplishment:
		return "Personal Accomplishment"
	default:
		return string(s)
	}
}

// Bounds are the two tier boundaries of a subscale.
// score <= Low is the low tier, Low < score <= High moderate, score > High high.
type Bounds struct {
	Low  int `yaml:"low" json:"low"`
	High int `yaml:"high" json:"high"`
}

// Definition describes one subscale of the instrument
type Definition struct {
	Key    Subscale `yaml:"key" json:"key"`
	Name   string   `yaml:"name" json:"name"`
	Items  []int    `yaml:"items" json:"items"`
	Bounds Bounds   `yaml:"bounds" json:"bounds"`
}

// Scale is the closed response range of every item
type Scale struct {
	Min    int      `yaml:"min" json:"min"`
	Max    int      `yaml:"max" json:"max"`
	Labels []string `yaml:"labels" json:"labels,omitempty"`
}

type file struct {
	Name      string       `yaml:"name"`
	Version   string       `yaml:"version"`
	Items     int          `yaml:"items"`
	Scale     Scale        `yaml:"scale"`
	Subscales []Definition `yaml:"subscales"`
	Prompts   []string     `yaml:"prompts"`
}

// Instrument is the immutable, validated item map.
// Construct it with Load or Default and share it by pointer.
type Instrument struct {
	name        string
	version     string
	scale       Scale
	prompts     []string
	definitions []Definition
	bySubscale  map[Subscale]int
}

var defaultInstrument = sync.OnceValues(func() (*Instrument, error) {
	return Load(definition)
})

// Default returns the embedded MBI-HSS definition, loading it on first use
func Default() (*Instrument, error) {
	return defaultInstrument()
}

// MustDefault is like Default but panics on a configuration error
func MustDefault() *Instrument {
	in, err := Default()
	if err != nil {
		panic(err)
	}
	return in
}

// Load decodes, schema-checks and partition-checks an instrument definition
func Load(data []byte) (*Instrument, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, ConfigErrorf("instrument definition is not valid YAML: %v", err)
	}
	if raw == nil {
		return nil, ConfigErrorf("instrument definition is empty")
	}

	validator := cue.NewValidator()
	if err := validator.LoadSchemas(); err != nil {
		return nil, ConfigErrorf("%v", err)
	}
	violations, err := validator.ValidateInstrument(raw)
	if err != nil {
		return nil, ConfigErrorf("%v", err)
	}
	if len(violations) > 0 {
		details := make([]string, 0, len(violations))
		for _, violation := range violations {
			details = append(details, violation.String())
		}
		return nil, &ConfigurationError{Reason: "instrument definition violates schema", Details: details}
	}

	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, ConfigErrorf("instrument definition could not be decoded: %v", err)
	}
	if f.Items != ItemCount || f.Scale.Min != MinValue || f.Scale.Max != MaxValue {
		return nil, ConfigErrorf("instrument must have %d items scored %d..%d", ItemCount, MinValue, MaxValue)
	}
	if err := checkPartition(f.Subscales); err != nil {
		return nil, err
	}

	in := &Instrument{
		name:       f.Name,
		version:    f.Version,
		scale:      f.Scale,
		prompts:    f.Prompts,
		bySubscale: make(map[Subscale]int, len(Subscales)),
	}
	for _, s := range Subscales {
		for _, def := range f.Subscales {
			if def.Key == s {
				def.Items = sortedCopy(def.Items)
				in.bySubscale[s] = len(in.definitions)
				in.definitions = append(in.definitions, def)
			}
		}
	}
	return in, nil
}

// checkPartition verifies the subscale item sets cover 1..ItemCount exactly
// once, with one definition per subscale.
func checkPartition(defs []Definition) error {
	var problems []string

	seenSubscale := make(map[Subscale]bool, len(defs))
	owner := make(map[int]Subscale, ItemCount)
	for _, def := range defs {
		if seenSubscale[def.Key] {
			problems = append(problems, fmt.Sprintf("subscale %s defined more than once", def.Key))
		}
		seenSubscale[def.Key] = true

		for _, item := range def.Items {
			if item < 1 || item > ItemCount {
				problems = append(problems, fmt.Sprintf("%s item %d outside 1..%d", def.Key, item, ItemCount))
				continue
			}
			if prev, ok := owner[item]; ok {
				problems = append(problems, fmt.Sprintf("item %d assigned to both %s and %s", item, prev, def.Key))
				continue
			}
			owner[item] = def.Key
		}
	}
	for _, s := range Subscales {
		if !seenSubscale[s] {
			problems = append(problems, fmt.Sprintf("subscale %s missing", s))
		}
	}
	for item := 1; item <= ItemCount; item++ {
		if _, ok := owner[item]; !ok {
			problems = append(problems, fmt.Sprintf("item %d not assigned to any subscale", item))
		}
	}

	if len(problems) > 0 {
		return &ConfigurationError{Reason: "item map does not partition the survey items", Details: problems}
	}
	return nil
}

// Name returns the instrument name, e.g. "MBI-HSS"
func (in *Instrument) Name() string { return in.name }

// Version returns the definition version
func (in *Instrument) Version() string { return in.version }

// Scale returns the response scale
func (in *Instrument) Scale() Scale { return in.scale }

// Definitions returns the subscale definitions in reporting order
func (in *Instrument) Definitions() []Definition {
	out := make([]Definition, len(in.definitions))
	for i, def := range in.definitions {
		def.Items = sortedCopy(def.Items)
		out[i] = def
	}
	return out
}

// Items returns the 1-based item positions of a subscale
func (in *Instrument) Items(s Subscale) []int {
	idx, ok := in.bySubscale[s]
	if !ok {
		return nil
	}
	return sortedCopy(in.definitions[idx].Items)
}

// Bounds returns the tier boundaries of a subscale
func (in *Instrument) Bounds(s Subscale) Bounds {
	idx, ok := in.bySubscale[s]
	if !ok {
		return Bounds{}
	}
	return in.definitions[idx].Bounds
}

// MaxScore is the highest possible score of a subscale
func (in *Instrument) MaxScore(s Subscale) int {
	return len(in.Items(s)) * in.scale.Max
}

// Prompt returns the text of a 1-based item, or "" when out of range
func (in *Instrument) Prompt(item int) string {
	if item < 1 || item > len(in.prompts) {
		return ""
	}
	return in.prompts[item-1]
}

// String renders the item map on one line per subscale
func (in *Instrument) String() string {
	var b strings.Builder
	for _, def := range in.definitions {
		fmt.Fprintf(&b, "%s %v bounds(%d,%d)\n", def.Key, def.Items, def.Bounds.Low, def.Bounds.High)
	}
	return b.String()
}

func sortedCopy(items []int) []int {
	out := append([]int(nil), items...)
	sort.Ints(out)
	return out
}

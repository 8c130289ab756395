package features

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed vocabulary.yaml
var vocabularyYAML []byte

// OtherSector is the bucket for categories no sector keyword matches.
const OtherSector = "other"

// Sector is a broad business sector recognized by keyword.
type Sector struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// Vocabulary maps raw categories onto the fixed sector set. It never grows
// at runtime: unseen categories fall into OtherSector.
type Vocabulary struct {
	Version     string             `yaml:"version"`
	Sectors     []Sector           `yaml:"sectors"`
	Frequencies map[string]float64 `yaml:"frequencies"`
}

// ParseVocabulary decodes a vocabulary descriptor.
func ParseVocabulary(data []byte) (*Vocabulary, error) {
	var v Vocabulary
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("features: parse vocabulary: %w", err)
	}
	if v.Version == "" {
		return nil, fmt.Errorf("features: vocabulary has no version")
	}
	if len(v.Sectors) == 0 {
		return nil, fmt.Errorf("features: vocabulary has no sectors")
	}
	seen := make(map[string]bool, len(v.Sectors))
	for _, s := range v.Sectors {
		if s.Name == "" || s.Name == OtherSector || seen[s.Name] {
			return nil, fmt.Errorf("features: invalid or duplicate sector %q", s.Name)
		}
		seen[s.Name] = true
	}
	return &v, nil
}

// DefaultVocabulary returns the vocabulary compiled into the binary.
func DefaultVocabulary() *Vocabulary {
	v, err := ParseVocabulary(vocabularyYAML)
	if err != nil {
		panic(err)
	}
	return v
}

// SectorNames lists the sectors in schema order, OtherSector last.
func (v *Vocabulary) SectorNames() []string {
	names := make([]string, 0, len(v.Sectors)+1)
	for _, s := range v.Sectors {
		names = append(names, s.Name)
	}
	return append(names, OtherSector)
}

// SectorOf returns the sector of a raw category. The first sector with a
// matching keyword wins.
func (v *Vocabulary) SectorOf(category string) string {
	c := strings.ToLower(strings.TrimSpace(category))
	if c == "" {
		return OtherSector
	}
	for _, s := range v.Sectors {
		for _, kw := range s.Keywords {
			if strings.Contains(c, kw) {
				return s.Name
			}
		}
	}
	return OtherSector
}

// Frequency returns the training frequency of a raw category, 0 if unseen.
func (v *Vocabulary) Frequency(category string) float64 {
	return v.Frequencies[strings.ToLower(strings.TrimSpace(category))]
}

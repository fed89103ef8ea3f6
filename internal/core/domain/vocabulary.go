package domain

// Vocabulary is a closed, ordered allow-list of tags. It is immutable after construction
// and safe for concurrent reads.
type Vocabulary struct {
	tags  []string
	index map[string]struct{}
}

var defaultTags = []string{
	"agriculture",
	"education",
	"STEM",
	"sustainability",
	"small business",
	"energy",
	"technology",
	"water",
	"soil",
	"conservation",
	"youth",
	"rural",
	"infrastructure",
	"climate",
	"dairy",
	"livestock",
	"equipment",
	"research",
	"training",
	"grant-writing",
}

var defaultVocabulary = NewVocabulary(defaultTags...)

// DefaultVocabulary returns the process-wide tag vocabulary.
func DefaultVocabulary() *Vocabulary {
	return defaultVocabulary
}

// NewVocabulary keeps the first occurrence of each tag in the given order.
func NewVocabulary(tags ...string) *Vocabulary {
	v := &Vocabulary{
		tags:  make([]string, 0, len(tags)),
		index: make(map[string]struct{}, len(tags)),
	}
	for _, tag := range tags {
		if _, seen := v.index[tag]; seen {
			continue
		}
		v.index[tag] = struct{}{}
		v.tags = append(v.tags, tag)
	}
	return v
}

// Tags returns a copy of the canonical ordering.
func (v *Vocabulary) Tags() []string {
	out := make([]string, len(v.tags))
	copy(out, v.tags)
	return out
}

// Contains matches exactly; "Dairy" is not "dairy".
func (v *Vocabulary) Contains(tag string) bool {
	_, ok := v.index[tag]
	return ok
}

func (v *Vocabulary) Len() int {
	return len(v.tags)
}

// Filter keeps members of the vocabulary in input order. Duplicates pass through.
func (v *Vocabulary) Filter(candidates []string) []string {
	out := make([]string, 0, len(candidates))
	for _, tag := range candidates {
		if v.Contains(tag) {
			out = append(out, tag)
		}
	}
	return out
}

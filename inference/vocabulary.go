package inference

import (
	"bufio"
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"
)

const (
	// Unlabeled marks a vocabulary slot with no category. It doubles as the label for class ids
	// outside the vocabulary.
	Unlabeled = "???"
	// MinVocabularySize is the smallest vocabulary the detector can be paired with.
	MinVocabularySize = 80
	// DefaultLabelOffset maps model class ids onto the bundled label map, whose first line is a
	// background placeholder.
	DefaultLabelOffset = 1
)

//go:embed labelmap.txt
var defaultLabelMap []byte

// Vocabulary is the fixed, ordered list of category names indexed by class id.
type Vocabulary struct {
	labels []string
	offset int
}

// DefaultVocabulary returns the bundled COCO label map.
func DefaultVocabulary() *Vocabulary {
	v, err := ParseVocabulary(bytes.NewReader(defaultLabelMap), DefaultLabelOffset)
	if err != nil {
		panic(fmt.Sprintf("bundled label map is invalid: %v", err))
	}
	return v
}

// LoadVocabulary reads a label file with one category per line.
//
// Arguments:
//   - path: The label file.
//   - offset: Added to every class id before indexing the labels.
//
// Returns:
//   - *Vocabulary: The parsed vocabulary.
//   - error: An error if the file cannot be read or holds fewer than MinVocabularySize entries.
func LoadVocabulary(path string, offset int) (*Vocabulary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening label file: %w", err)
	}
	defer f.Close()

	return ParseVocabulary(f, offset)
}

// ParseVocabulary reads labels from r. Entries are trimmed; trailing blank lines are ignored,
// blank lines elsewhere are kept as unlabeled slots.
func ParseVocabulary(r io.Reader, offset int) (*Vocabulary, error) {
	var labels []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		labels = append(labels, strings.TrimSpace(scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading labels: %w", err)
	}

	for len(labels) > 0 && labels[len(labels)-1] == "" {
		labels = labels[:len(labels)-1]
	}
	if len(labels) < MinVocabularySize {
		return nil, fmt.Errorf("vocabulary has %d entries, need at least %d", len(labels), MinVocabularySize)
	}

	return &Vocabulary{labels: labels, offset: offset}, nil
}

// NewVocabulary builds a vocabulary from labels without enforcing a minimum size.
func NewVocabulary(labels []string, offset int) *Vocabulary {
	return &Vocabulary{labels: append([]string(nil), labels...), offset: offset}
}

// Len returns the number of entries, labeled or not.
func (v *Vocabulary) Len() int {
	return len(v.labels)
}

// Label resolves a class id. Ids outside the vocabulary resolve to Unlabeled.
func (v *Vocabulary) Label(classID int) string {
	i := classID + v.offset
	if i < 0 || i >= len(v.labels) {
		return Unlabeled
	}
	return v.labels[i]
}

// Lookup resolves a class id and reports whether it names a real category.
func (v *Vocabulary) Lookup(classID int) (string, bool) {
	label := v.Label(classID)
	if label == "" || label == Unlabeled {
		return Unlabeled, false
	}
	return label, true
}

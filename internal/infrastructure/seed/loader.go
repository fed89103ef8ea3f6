// Package seed reads grant catalogues from YAML or JSON files.
package seed

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/grant-tagger/internal/core/domain"
)

//go:embed grants.yaml
var sampleCatalogue []byte

// Sample returns the bundled catalogue of state agriculture grants.
func Sample() ([]domain.Grant, error) {
	return Parse(bytes.NewReader(sampleCatalogue))
}

func LoadFile(path string) ([]domain.Grant, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()

	grants, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	return grants, nil
}

// Parse accepts either a top-level list of grants or a mapping with a "grants" key.
// JSON input works too since it is valid YAML.
func Parse(r io.Reader) ([]domain.Grant, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return []domain.Grant{}, nil
		}
		return nil, domain.WrapError(domain.ErrInvalidInput, "decode seed", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return []domain.Grant{}, nil
	}

	root := doc.Content[0]
	var grants []domain.Grant
	switch root.Kind {
	case yaml.SequenceNode:
		if err := root.Decode(&grants); err != nil {
			return nil, domain.WrapError(domain.ErrInvalidInput, "decode seed list", err)
		}
	case yaml.MappingNode:
		var wrapper struct {
			Grants []domain.Grant `yaml:"grants"`
		}
		if err := root.Decode(&wrapper); err != nil {
			return nil, domain.WrapError(domain.ErrInvalidInput, "decode seed mapping", err)
		}
		grants = wrapper.Grants
	default:
		return nil, domain.WrapError(domain.ErrInvalidInput, "decode seed", fmt.Errorf("unexpected yaml node kind %d", root.Kind))
	}

	for i := range grants {
		grants[i].ID = ""
		grants[i].Tags = nil
	}
	if grants == nil {
		grants = []domain.Grant{}
	}
	return grants, nil
}

// Package catalog supplies the read-only front/rear spec matrix that
// combinations are built from.
package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"unicode"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"tirecore/pkg/domain"
)

// Catalog is the startup configuration of available matrix specs.
type Catalog struct {
	Front []domain.MatrixSpec `json:"front" yaml:"front"`
	Rear  []domain.MatrixSpec `json:"rear" yaml:"rear"`
}

// Default returns the built-in November round matrix.
func Default() Catalog {
	return Catalog{
		Front: []domain.MatrixSpec{
			{Code: "FR-A", ShortCode: "A", Label: "Front A (Baseline)", Manufacturer: "금호 울산", Curing: "170°C / 12min", Carving: "Mold 7421", Buffing: "0.3mm"},
			{Code: "FR-B", ShortCode: "B", Label: "Front B (고하중)", Manufacturer: "금호 곡성", Curing: "168°C / 11min", Carving: "Mold 7452", Buffing: "0.5mm"},
			{Code: "FR-C", ShortCode: "C", Label: "Front C (스노우)", Manufacturer: "금호 광주", Curing: "165°C / 10min", Carving: "Mold 7511", Buffing: "0.2mm"},
			{Code: "FR-D", ShortCode: "D", Label: "Front D (EV)", Manufacturer: "금호 평택", Curing: "172°C / 13min", Carving: "Mold 7602", Buffing: "0.4mm"},
		},
		Rear: []domain.MatrixSpec{
			{Code: "RR-a", ShortCode: "a", Label: "Rear a (Baseline)", Manufacturer: "금호 울산", Curing: "170°C / 12min", Carving: "Mold 8431", Buffing: "0.3mm"},
			{Code: "RR-b", ShortCode: "b", Label: "Rear b (고하중)", Manufacturer: "금호 곡성", Curing: "169°C / 11min", Carving: "Mold 8462", Buffing: "0.6mm"},
			{Code: "RR-c", ShortCode: "c", Label: "Rear c (스노우)", Manufacturer: "금호 광주", Curing: "166°C / 10min", Carving: "Mold 8514", Buffing: "0.2mm"},
			{Code: "RR-d", ShortCode: "d", Label: "Rear d (EV)", Manufacturer: "금호 평택", Curing: "172°C / 13min", Carving: "Mold 8622", Buffing: "0.4mm"},
		},
	}
}

// Load reads a YAML catalog file. An empty path returns Default().
func Load(path string) (Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(bytes.NewReader(raw))
}

// Parse decodes and validates a YAML catalog document. Unknown keys are rejected.
func Parse(r io.Reader) (Catalog, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var c Catalog
	if err := dec.Decode(&c); err != nil {
		if errors.Is(err, io.EOF) {
			return Catalog{}, errors.New("decode catalog: empty document")
		}
		return Catalog{}, fmt.Errorf("decode catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Catalog{}, err
	}
	return c, nil
}

// Validate enforces unique codes and single-character short codes that are
// uppercase on the front and lowercase on the rear.
func (c Catalog) Validate() error {
	if len(c.Front) == 0 || len(c.Rear) == 0 {
		return errors.New("catalog needs at least one front and one rear spec")
	}
	seen := make(map[string]struct{}, len(c.Front)+len(c.Rear))
	check := func(side string, spec domain.MatrixSpec, caseOK func(rune) bool) error {
		if spec.Code == "" {
			return fmt.Errorf("%s spec with empty code", side)
		}
		if _, dup := seen[spec.Code]; dup {
			return fmt.Errorf("duplicate spec code %s", spec.Code)
		}
		seen[spec.Code] = struct{}{}
		r, size := utf8.DecodeRuneInString(spec.ShortCode)
		if size == 0 || size != len(spec.ShortCode) {
			return fmt.Errorf("%s spec %s: short code %q must be one character", side, spec.Code, spec.ShortCode)
		}
		if !caseOK(r) {
			return fmt.Errorf("%s spec %s: short code %q has the wrong case", side, spec.Code, spec.ShortCode)
		}
		return nil
	}
	for _, spec := range c.Front {
		if err := check("front", spec, unicode.IsUpper); err != nil {
			return err
		}
	}
	for _, spec := range c.Rear {
		if err := check("rear", spec, unicode.IsLower); err != nil {
			return err
		}
	}
	return nil
}

// FrontSpec resolves a front spec by code.
func (c Catalog) FrontSpec(code string) (domain.MatrixSpec, bool) {
	return find(c.Front, code)
}

// RearSpec resolves a rear spec by code.
func (c Catalog) RearSpec(code string) (domain.MatrixSpec, bool) {
	return find(c.Rear, code)
}

// Pair resolves both codes, failing with domain.ErrUnknownSpecCode naming the
// first code that is absent.
func (c Catalog) Pair(frontCode, rearCode string) (domain.MatrixSpec, domain.MatrixSpec, error) {
	front, ok := c.FrontSpec(frontCode)
	if !ok {
		return domain.MatrixSpec{}, domain.MatrixSpec{}, fmt.Errorf("%w: front %q", domain.ErrUnknownSpecCode, frontCode)
	}
	rear, ok := c.RearSpec(rearCode)
	if !ok {
		return domain.MatrixSpec{}, domain.MatrixSpec{}, fmt.Errorf("%w: rear %q", domain.ErrUnknownSpecCode, rearCode)
	}
	return front, rear, nil
}

func find(specs []domain.MatrixSpec, code string) (domain.MatrixSpec, bool) {
	for _, spec := range specs {
		if spec.Code == code {
			return spec, true
		}
	}
	return domain.MatrixSpec{}, false
}

package tree

import (
	"bytes"
	"encoding/gob"
	"fmt"
)

// snapshot is the gob wire form of a Classifier. The golearn tree is
// rebuilt from Root on decode.
type snapshot struct {
	MaxDepth  int
	Criterion Criterion

	Classes     []int
	NFeatures   int
	Importances []float64
	Root        *node
}

// MarshalBinary implements encoding.BinaryMarshaler using gob.
func (t *Classifier) MarshalBinary() ([]byte, error) {
	if t.root == nil {
		return nil, ErrNotFitted
	}
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(snapshot{
		MaxDepth:    t.MaxDepth,
		Criterion:   t.Criterion,
		Classes:     t.classes,
		NFeatures:   t.nFeatures,
		Importances: t.importances,
		Root:        t.root,
	})
	if err != nil {
		return nil, fmt.Errorf("error in gob Encode: %w", err)
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler using gob.
func (t *Classifier) UnmarshalBinary(data []byte) error {
	var s snapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return fmt.Errorf("error in gob Decode: %w", err)
	}
	if s.Root == nil {
		return ErrNotFitted
	}
	if _, err := ParseCriterion(string(s.Criterion)); err != nil {
		return err
	}
	t.MaxDepth = s.MaxDepth
	t.Criterion = s.Criterion
	t.classes = s.Classes
	t.nFeatures = s.NFeatures
	t.importances = s.Importances
	t.root = s.Root
	t.cart = nil
	if s.Root.Split {
		cart, err := restore(s.Criterion, s.MaxDepth, s.Classes, s.Root)
		if err != nil {
			return err
		}
		t.cart = cart
	}
	return nil
}

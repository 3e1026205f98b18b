package artifact

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/danthegoodman1/credittree/tree"
	"github.com/klauspost/compress/zstd"
)

var (
	zstdEncoder, _ = zstd.NewWriter(nil)
	zstdDecoder, _ = zstd.NewReader(nil)
)

// modelEnvelope stamps a serialised tree with the training run it came from.
type modelEnvelope struct {
	Version   string
	Criterion tree.Criterion
	Tree      []byte
}

func compress(b []byte) []byte {
	return zstdEncoder.EncodeAll(b, make([]byte, 0, len(b)/2))
}

func decompress(b []byte) ([]byte, error) {
	out, err := zstdDecoder.DecodeAll(b, nil)
	if err != nil {
		return nil, fmt.Errorf("error in zstd DecodeAll: %w", err)
	}
	return out, nil
}

func encodeModel(version string, c tree.Criterion, clf *tree.Classifier) ([]byte, error) {
	tb, err := clf.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("error in MarshalBinary: %w", err)
	}
	var buf bytes.Buffer
	if err = gob.NewEncoder(&buf).Encode(modelEnvelope{Version: version, Criterion: c, Tree: tb}); err != nil {
		return nil, fmt.Errorf("error in gob Encode: %w", err)
	}
	return compress(buf.Bytes()), nil
}

func decodeModel(b []byte) (modelEnvelope, *tree.Classifier, error) {
	var env modelEnvelope
	raw, err := decompress(b)
	if err != nil {
		return env, nil, err
	}
	if err = gob.NewDecoder(bytes.NewReader(raw)).Decode(&env); err != nil {
		return env, nil, fmt.Errorf("error in gob Decode: %w", err)
	}
	clf := &tree.Classifier{}
	if err = clf.UnmarshalBinary(env.Tree); err != nil {
		return env, nil, fmt.Errorf("error in UnmarshalBinary: %w", err)
	}
	return env, clf, nil
}

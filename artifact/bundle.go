package artifact

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/danthegoodman1/credittree/encoder"
	"github.com/danthegoodman1/credittree/tree"
	"github.com/danthegoodman1/credittree/utils"
	"github.com/rs/zerolog"
)

const (
	// FormatVersion is bumped when the stored layout changes. Loaders accept
	// any version within the same major.
	FormatVersion    = "1.0.0"
	formatConstraint = "^1"

	ManifestName = "manifest.json"
	RegistryName = "registry.json.zst"

	loadRetries = 3
)

var (
	// ErrVersionMismatch means artifacts from different training runs were
	// found together. Category codes could have drifted, so this is fatal.
	ErrVersionMismatch    = errors.New("artifact version mismatch")
	ErrIncompatibleFormat = errors.New("incompatible artifact format")
	ErrIncompleteBundle   = errors.New("bundle is incomplete")
)

type (
	Metrics struct {
		Accuracy  float64
		Precision float64
		Recall    float64
		F1        float64
		TestRows  int
	}

	Manifest struct {
		FormatVersion string
		// Version stamps every artifact of one training run.
		Version   string
		CreatedAt time.Time
		Target    string
		Features  []string
		// Numeric is the subset of Features the models saw as numbers.
		Numeric  []string
		Criteria []tree.Criterion
		Metrics  map[tree.Criterion]Metrics
	}

	Bundle struct {
		Manifest Manifest
		Registry *encoder.Registry
		Models   map[tree.Criterion]*tree.Classifier
	}

	// Loaded is what serving gets back from Load. Registry is nil when it
	// could not be found; RegistryErr then says why.
	Loaded struct {
		Manifest    Manifest
		Registry    *encoder.Registry
		RegistryErr error
		Models      map[tree.Criterion]*tree.Classifier
	}
)

func ModelName(c tree.Criterion) string {
	return "tree_" + string(c) + ".bin.zst"
}

// Save writes the models, then the registry, then the manifest. A manifest
// therefore only exists once everything it names has been written.
func Save(ctx context.Context, store Store, b *Bundle) error {
	logger := zerolog.Ctx(ctx)
	m := b.Manifest
	if m.Version == "" || b.Registry == nil || len(b.Models) == 0 {
		return ErrIncompleteBundle
	}
	if b.Registry.Version != m.Version {
		return fmt.Errorf("%w: registry %q, manifest %q", ErrVersionMismatch, b.Registry.Version, m.Version)
	}
	if m.FormatVersion == "" {
		m.FormatVersion = FormatVersion
	}

	for _, c := range m.Criteria {
		clf, ok := b.Models[c]
		if !ok {
			return fmt.Errorf("%w: no model for criterion %s", ErrIncompleteBundle, c)
		}
		mb, err := encodeModel(m.Version, c, clf)
		if err != nil {
			return fmt.Errorf("error encoding %s model: %w", c, err)
		}
		if err = store.Put(ctx, ModelName(c), mb); err != nil {
			return fmt.Errorf("error in store.Put for %s model: %w", c, err)
		}
	}

	rb, err := json.Marshal(b.Registry)
	if err != nil {
		return fmt.Errorf("error in json.Marshal of registry: %w", err)
	}
	if err = store.Put(ctx, RegistryName, compress(rb)); err != nil {
		return fmt.Errorf("error in store.Put for registry: %w", err)
	}

	mb, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("error in json.Marshal of manifest: %w", err)
	}
	if err = store.Put(ctx, ManifestName, mb); err != nil {
		return fmt.Errorf("error in store.Put for manifest: %w", err)
	}

	logger.Info().Str("version", m.Version).Int("models", len(m.Criteria)).Msg("saved artifacts")
	return nil
}

// Load reads a saved bundle. The manifest and every model are required and
// must share one version. A missing registry is tolerated and reported on
// Loaded so serving can fall back; a registry from another run is not.
func Load(ctx context.Context, store Store) (*Loaded, error) {
	logger := zerolog.Ctx(ctx)

	mb, err := get(ctx, store, ManifestName)
	if err != nil {
		return nil, fmt.Errorf("error loading manifest: %w", err)
	}
	var m Manifest
	if err = json.Unmarshal(mb, &m); err != nil {
		return nil, fmt.Errorf("error in json.Unmarshal of manifest: %w", err)
	}
	if err = checkFormat(m.FormatVersion); err != nil {
		return nil, err
	}
	if len(m.Criteria) == 0 || m.Version == "" {
		return nil, fmt.Errorf("%w: manifest lists no models", ErrIncompleteBundle)
	}

	l := &Loaded{Manifest: m, Models: map[tree.Criterion]*tree.Classifier{}}
	for _, c := range m.Criteria {
		b, err := get(ctx, store, ModelName(c))
		if err != nil {
			return nil, fmt.Errorf("error loading %s model: %w", c, err)
		}
		env, clf, err := decodeModel(b)
		if err != nil {
			return nil, fmt.Errorf("error decoding %s model: %w", c, err)
		}
		if env.Version != m.Version || env.Criterion != c {
			return nil, fmt.Errorf("%w: %s model is %s/%s, manifest is %s", ErrVersionMismatch, c, env.Criterion, env.Version, m.Version)
		}
		if clf.NFeatures() != len(m.Features) {
			return nil, fmt.Errorf("%w: %s model expects %d features, manifest lists %d", ErrVersionMismatch, c, clf.NFeatures(), len(m.Features))
		}
		l.Models[c] = clf
	}

	reg, err := loadRegistry(ctx, store)
	switch {
	case errors.Is(err, ErrNotFound):
		l.RegistryErr = err
		logger.Warn().Err(err).Str("version", m.Version).Msg("encoder registry not found, serving will fit fallback encoders per request")
	case err != nil:
		return nil, err
	default:
		if reg.Version != m.Version {
			return nil, fmt.Errorf("%w: registry %q, manifest %q", ErrVersionMismatch, reg.Version, m.Version)
		}
		if !slices.Equal(reg.Features, m.Features) || reg.Target != m.Target {
			return nil, fmt.Errorf("%w: registry feature layout differs from manifest", ErrVersionMismatch)
		}
		l.Registry = reg
	}

	logger.Info().Str("version", m.Version).Bool("registry", l.Registry != nil).Msg("loaded artifacts")
	return l, nil
}

// Schema is the feature layout every loaded model expects.
func (l *Loaded) Schema() encoder.Schema {
	return encoder.Schema{
		Features: append([]string(nil), l.Manifest.Features...),
		Target:   l.Manifest.Target,
		Numeric:  slices.Clone(l.Manifest.Numeric),
	}
}

func loadRegistry(ctx context.Context, store Store) (*encoder.Registry, error) {
	b, err := get(ctx, store, RegistryName)
	if err != nil {
		return nil, err
	}
	raw, err := decompress(b)
	if err != nil {
		return nil, fmt.Errorf("error decompressing registry: %w", err)
	}
	var reg encoder.Registry
	if err = json.Unmarshal(raw, &reg); err != nil {
		return nil, fmt.Errorf("error in json.Unmarshal of registry: %w", err)
	}
	if err = reg.Validate(); err != nil {
		return nil, err
	}
	return &reg, nil
}

func get(ctx context.Context, store Store, name string) (b []byte, err error) {
	err = utils.Retry(ctx, loadRetries, func() error {
		b, err = store.Get(ctx, name)
		return err
	})
	return
}

func checkFormat(v string) error {
	sv, err := semver.NewVersion(v)
	if err != nil {
		return fmt.Errorf("%w: %q: %s", ErrIncompatibleFormat, v, err.Error())
	}
	c, err := semver.NewConstraint(formatConstraint)
	if err != nil {
		return fmt.Errorf("error in semver.NewConstraint: %w", err)
	}
	if !c.Check(sv) {
		return fmt.Errorf("%w: %s does not satisfy %s", ErrIncompatibleFormat, v, formatConstraint)
	}
	return nil
}

package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// ManifestName is the manifest filename inside the data directory.
const ManifestName = "manifest.yaml"

// ArtifactRecord captures the state of one artifact after the stage that
// produced it succeeded.
type ArtifactRecord struct {
	SHA256    string    `yaml:"sha256"`
	Size      int64     `yaml:"size"`
	Stage     string    `yaml:"stage"`
	UpdatedAt time.Time `yaml:"updated_at"`
}

// Manifest records per-artifact content hashes so staleness survives mtime
// games (re-downloads that produce identical bytes, restored backups).
type Manifest struct {
	Artifacts map[string]ArtifactRecord `yaml:"artifacts"`
}

// LoadManifest reads the manifest at path. A missing file yields an empty
// manifest, not an error.
func LoadManifest(path string) (*Manifest, error) {
	m := &Manifest{Artifacts: make(map[string]ArtifactRecord)}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return m, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: read manifest")
	}
	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, eris.Wrap(err, "pipeline: parse manifest")
	}
	if m.Artifacts == nil {
		m.Artifacts = make(map[string]ArtifactRecord)
	}
	return m, nil
}

// Save writes the manifest atomically.
func (m *Manifest) Save(path string) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return eris.Wrap(err, "pipeline: marshal manifest")
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return eris.Wrap(err, "pipeline: create temp manifest")
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name()) // no-op once renamed
	}()

	if _, err := tmp.Write(data); err != nil {
		return eris.Wrap(err, "pipeline: write manifest")
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrap(err, "pipeline: close manifest")
	}
	return eris.Wrap(os.Rename(tmp.Name(), path), "pipeline: finalize manifest")
}

// Record hashes each existing output of a stage into the manifest. Keys are
// the artifact basenames.
func (m *Manifest) Record(stage string, outputs []string) error {
	now := time.Now().UTC()
	for _, out := range outputs {
		info, err := os.Stat(out)
		if err != nil {
			return eris.Wrapf(err, "pipeline: stat artifact %s", out)
		}
		sum, err := hashFile(out)
		if err != nil {
			return err
		}
		m.Artifacts[filepath.Base(out)] = ArtifactRecord{
			SHA256:    sum,
			Size:      info.Size(),
			Stage:     stage,
			UpdatedAt: now,
		}
	}
	return nil
}

// Changed reports whether the artifact's current content differs from the
// recorded hash. Unrecorded artifacts count as unchanged; mtime comparison
// governs files the pipeline has never produced.
func (m *Manifest) Changed(path string) (bool, error) {
	rec, ok := m.Artifacts[filepath.Base(path)]
	if !ok {
		return false, nil
	}
	sum, err := hashFile(path)
	if err != nil {
		return false, err
	}
	return sum != rec.SHA256, nil
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", eris.Wrapf(err, "pipeline: open artifact %s", path)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", eris.Wrapf(err, "pipeline: hash artifact %s", path)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

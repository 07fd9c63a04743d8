package regression

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/khulafarming/yieldcast/internal/codec"
	"github.com/khulafarming/yieldcast/internal/common"
	"github.com/khulafarming/yieldcast/internal/forest"
	"github.com/khulafarming/yieldcast/internal/model"
)

// FormatVersion is written into every artifact envelope.
const FormatVersion = 1

// Artifact file names within the model directory.
const (
	ModelFile        = "farming_model.json"
	ScalerFile       = "scaler.json"
	EncodersFile     = "label_encoders.json"
	TargetScalerFile = "target_scaler.json"
)

// Artifact kinds recorded in envelopes.
const (
	kindModel        = "forest"
	kindScaler       = "input_scaler"
	kindEncoders     = "label_encoders"
	kindTargetScaler = "target_scaler"
)

var artifactFiles = []struct {
	name string
	kind string
}{
	{ModelFile, kindModel},
	{ScalerFile, kindScaler},
	{EncodersFile, kindEncoders},
	{TargetScalerFile, kindTargetScaler},
}

// ArtifactMismatchError reports a persisted artifact set that is partial,
// corrupt or mixes files from different training runs.
type ArtifactMismatchError struct {
	Err    error
	Dir    string
	File   string
	Reason string
}

func (e *ArtifactMismatchError) Error() string {
	msg := fmt.Sprintf("artifact set %s: %s", e.Dir, e.Reason)
	if e.File != "" {
		msg = fmt.Sprintf("artifact set %s: %s: %s", e.Dir, e.File, e.Reason)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ArtifactMismatchError) Unwrap() []error {
	if e.Err != nil {
		return []error{common.ErrArtifactMismatch, e.Err}
	}
	return []error{common.ErrArtifactMismatch}
}

type envelope struct {
	CreatedAt     time.Time       `json:"created_at"`
	SetID         string          `json:"set_id"`
	Kind          string          `json:"kind"`
	Payload       json.RawMessage `json:"payload"`
	FormatVersion int             `json:"format_version"`
}

type modelPayload struct {
	Forest  *forest.Forest `json:"forest"`
	Source  string         `json:"source,omitempty"`
	Samples int            `json:"samples"`
	Score   float64        `json:"score"`
}

// writeArtifacts persists m into dir. The four files are staged, renamed
// into a directory named after the set id, and dir is then repointed at it
// by renaming a fresh symlink over it. Readers resolve dir once, so they see
// either the previous set or the new one. The previous set is kept until the
// next save so a reader that resolved it just before the swap can finish.
func writeArtifacts(dir string, m *Model) error {
	parent, base := filepath.Dir(dir), filepath.Base(dir)
	if err := os.MkdirAll(parent, 0o750); err != nil {
		return fmt.Errorf("failed to create model directory: %w", err)
	}

	staging, err := os.MkdirTemp(parent, ".staging-"+base+"-")
	if err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(staging) }()

	payloads := map[string]any{
		kindModel: modelPayload{
			Forest:  m.Forest,
			Source:  m.Source,
			Samples: m.Samples,
			Score:   m.Score,
		},
		kindScaler:       m.Codec.Inputs,
		kindEncoders:     m.Codec.Encoders,
		kindTargetScaler: m.Codec.Targets,
	}

	for _, f := range artifactFiles {
		raw, err := json.Marshal(payloads[f.kind])
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", f.name, err)
		}
		data, err := json.Marshal(envelope{
			FormatVersion: FormatVersion,
			SetID:         m.SetID.String(),
			Kind:          f.kind,
			CreatedAt:     m.TrainedAt,
			Payload:       raw,
		})
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", f.name, err)
		}
		if err := os.WriteFile(filepath.Join(staging, f.name), data, 0o600); err != nil {
			return fmt.Errorf("failed to write %s: %w", f.name, err)
		}
	}

	target := versionDir(dir, m.SetID)
	if err := os.RemoveAll(target); err != nil {
		return fmt.Errorf("failed to clear earlier copy of set %s: %w", m.SetID, err)
	}
	if err := os.Rename(staging, target); err != nil {
		return fmt.Errorf("failed to install artifact set: %w", err)
	}

	previous, _ := os.Readlink(dir)
	if err := swapLink(dir, filepath.Base(target)); err != nil {
		_ = os.RemoveAll(target)
		return err
	}

	pruneVersions(dir, filepath.Base(target), filepath.Base(previous))
	return nil
}

// versionDir names the directory holding one artifact set next to dir.
func versionDir(dir string, id uuid.UUID) string {
	return filepath.Join(filepath.Dir(dir), "."+filepath.Base(dir)+"-"+id.String())
}

// swapLink points dir at target, a name relative to dir's parent. A plain
// directory left by an older layout is moved aside first and removed once
// the link is in place.
func swapLink(dir, target string) error {
	link := fmt.Sprintf("%s.link-%d", dir, time.Now().UnixNano())
	if err := os.Symlink(target, link); err != nil {
		return fmt.Errorf("failed to link artifact set: %w", err)
	}

	var legacy string
	if info, err := os.Lstat(dir); err == nil && info.Mode()&os.ModeSymlink == 0 {
		legacy = fmt.Sprintf("%s.old-%d", dir, time.Now().UnixNano())
		if err := os.Rename(dir, legacy); err != nil {
			_ = os.Remove(link)
			return fmt.Errorf("failed to move previous artifact set aside: %w", err)
		}
	}

	if err := os.Rename(link, dir); err != nil {
		_ = os.Remove(link)
		if legacy != "" {
			_ = os.Rename(legacy, dir)
		}
		return fmt.Errorf("failed to install artifact set: %w", err)
	}

	if legacy != "" {
		_ = os.RemoveAll(legacy)
	}
	return nil
}

// pruneVersions removes set directories of dir other than keep.
func pruneVersions(dir string, keep ...string) {
	prefix := "." + filepath.Base(dir) + "-"
	entries, err := os.ReadDir(filepath.Dir(dir))
	if err != nil {
		return
	}
	for _, e := range entries {
		name := e.Name()
		id, ok := strings.CutPrefix(name, prefix)
		if !ok || !e.IsDir() || slices.Contains(keep, name) {
			continue
		}
		if _, err := uuid.Parse(id); err != nil {
			continue
		}
		_ = os.RemoveAll(filepath.Join(filepath.Dir(dir), name))
	}
}

// readArtifacts loads a complete artifact set from dir. A directory holding
// none of the files yields an error wrapping common.ErrNotFound.
func readArtifacts(dir string) (*Model, error) {
	resolved, err := filepath.EvalSymlinks(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("no artifact set in %s: %w", dir, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", dir, err)
	}

	envelopes := make(map[string]envelope, len(artifactFiles))
	var missing []string

	for _, f := range artifactFiles {
		data, err := os.ReadFile(filepath.Join(resolved, f.name)) // #nosec G304 - fixed names under configured dir
		if errors.Is(err, fs.ErrNotExist) {
			missing = append(missing, f.name)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", f.name, err)
		}

		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, &ArtifactMismatchError{Dir: dir, File: f.name, Reason: "corrupt envelope", Err: err}
		}
		if env.Kind != f.kind {
			return nil, &ArtifactMismatchError{Dir: dir, File: f.name, Reason: fmt.Sprintf("holds %q, want %q", env.Kind, f.kind)}
		}
		if env.FormatVersion != FormatVersion {
			return nil, &ArtifactMismatchError{Dir: dir, File: f.name, Reason: fmt.Sprintf("format version %d, want %d", env.FormatVersion, FormatVersion)}
		}
		envelopes[f.kind] = env
	}

	switch len(missing) {
	case 0:
	case len(artifactFiles):
		return nil, fmt.Errorf("no artifact set in %s: %w", dir, common.ErrNotFound)
	default:
		return nil, &ArtifactMismatchError{Dir: dir, Reason: fmt.Sprintf("missing %v", missing)}
	}

	setID := envelopes[kindModel].SetID
	for _, f := range artifactFiles {
		if envelopes[f.kind].SetID != setID {
			return nil, &ArtifactMismatchError{Dir: dir, File: f.name, Reason: "belongs to a different training run"}
		}
	}
	id, err := uuid.Parse(setID)
	if err != nil {
		return nil, &ArtifactMismatchError{Dir: dir, File: ModelFile, Reason: "invalid set id", Err: err}
	}

	var (
		mp  modelPayload
		cdc codec.Codec
	)
	decode := []struct {
		kind string
		file string
		dst  any
	}{
		{kindModel, ModelFile, &mp},
		{kindScaler, ScalerFile, &cdc.Inputs},
		{kindEncoders, EncodersFile, &cdc.Encoders},
		{kindTargetScaler, TargetScalerFile, &cdc.Targets},
	}
	for _, d := range decode {
		if err := json.Unmarshal(envelopes[d.kind].Payload, d.dst); err != nil {
			return nil, &ArtifactMismatchError{Dir: dir, File: d.file, Reason: "corrupt payload", Err: err}
		}
	}

	if err := cdc.Validate(); err != nil {
		return nil, &ArtifactMismatchError{Dir: dir, Reason: "invalid codec", Err: err}
	}
	if err := mp.Forest.Validate(); err != nil {
		return nil, &ArtifactMismatchError{Dir: dir, File: ModelFile, Reason: "invalid forest", Err: err}
	}
	if mp.Forest.Features != model.FeatureCount || mp.Forest.Outputs != model.TargetCount {
		return nil, &ArtifactMismatchError{
			Dir:    dir,
			File:   ModelFile,
			Reason: fmt.Sprintf("forest shape %dx%d, want %dx%d", mp.Forest.Features, mp.Forest.Outputs, model.FeatureCount, model.TargetCount),
		}
	}

	return &Model{
		SetID:     id,
		Codec:     &cdc,
		Forest:    mp.Forest,
		TrainedAt: envelopes[kindModel].CreatedAt,
		Source:    mp.Source,
		Samples:   mp.Samples,
		Score:     mp.Score,
	}, nil
}

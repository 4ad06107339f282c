// Package pathmap computes mirrored output paths for input files.
package pathmap

import (
	"fmt"
	"path/filepath"
	"strings"

	"hevcpress/internal/model"
	"hevcpress/internal/util"
)

// OutputExt is the container extension every output file is normalized to.
const OutputExt = ".mp4"

// Mapper resolves output targets under a fixed (inputRoot, outputRoot)
// pair. Resolution is pure; only EnsureParentDirs touches the filesystem.
type Mapper struct {
	inputRoot  string
	outputRoot string
}

// New returns a Mapper for inputRoot. An empty outputRoot defaults to a
// sibling of inputRoot named "<basename>_encoded".
func New(inputRoot, outputRoot string) Mapper {
	inputRoot = filepath.Clean(inputRoot)
	if outputRoot == "" {
		outputRoot = filepath.Join(filepath.Dir(inputRoot), filepath.Base(inputRoot)+"_encoded")
	}
	return Mapper{
		inputRoot:  inputRoot,
		outputRoot: filepath.Clean(outputRoot),
	}
}

// OutputRoot returns the resolved output root directory.
func (m Mapper) OutputRoot() string {
	return m.outputRoot
}

// Resolve maps an input file to its mirrored output target: same relative
// subdirectory nesting under the output root, extension normalized to the
// output container.
func (m Mapper) Resolve(in model.InputFile) (model.OutputTarget, error) {
	rel, err := filepath.Rel(m.inputRoot, in.Path)
	if err != nil {
		return model.OutputTarget{}, fmt.Errorf("resolve %s: %w", in.Path, err)
	}
	if strings.HasPrefix(rel, "..") {
		return model.OutputTarget{}, fmt.Errorf("%s is outside input root %s", in.Path, m.inputRoot)
	}
	rel = strings.TrimSuffix(rel, filepath.Ext(rel)) + OutputExt
	return model.OutputTarget{Path: filepath.Join(m.outputRoot, rel)}, nil
}

// EnsureParentDirs creates all missing ancestor directories of the target.
// It is idempotent; concurrent calls for targets in the same directory are
// safe.
func (m Mapper) EnsureParentDirs(target model.OutputTarget) error {
	return util.EnsureDir(filepath.Dir(target.Path))
}

package batch

import (
	"fmt"
	"os"

	"hevcpress/internal/model"
	"hevcpress/internal/pathmap"
	"hevcpress/internal/scan"
)

// PlanEntry describes what Run would do for one discovered file.
type PlanEntry struct {
	Source model.InputFile
	Dest   model.OutputTarget
	Mode   model.EncodeMode
	Skip   bool // destination already up to date

	// CollidesWith names an earlier input that resolved to the same
	// destination. Run records such entries as failures instead of
	// encoding them.
	CollidesWith string
}

// Plan enumerates the batch without touching the output tree or running
// any subprocess.
func (s *Service) Plan() ([]PlanEntry, error) {
	files, err := scan.Scan(s.opts.InputPath)
	if err != nil {
		return nil, err
	}

	mapper := pathmap.New(s.opts.InputPath, s.opts.OutputPath)
	entries := make([]PlanEntry, 0, len(files))
	claimedBy := make(map[string]string, len(files))
	for _, in := range files {
		target, err := mapper.Resolve(in)
		if err != nil {
			return nil, fmt.Errorf("plan %s: %w", in.Path, err)
		}
		entry := PlanEntry{
			Source: in,
			Dest:   target,
			Mode:   s.opts.Mode(),
		}
		if first, ok := claimedBy[target.Path]; ok {
			entry.CollidesWith = first
		} else {
			claimedBy[target.Path] = in.Path
			if fi, err := os.Stat(target.Path); err == nil && !fi.ModTime().Before(in.ModTime) {
				entry.Skip = true
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

package index

import (
	"sort"

	"github.com/quantmind-br/repodiagrams-go/internal/domain"
	"github.com/quantmind-br/repodiagrams-go/internal/utils"
)

// Add merges rec into ix. Classes declared again under a name already in the
// index replace the earlier record; the overwrite is logged and counted.
func Add(ix *domain.CodeIndex, rec *domain.FileRecord, logger *utils.Logger) {
	ix.Files[rec.Path] = rec

	for _, c := range rec.Classes {
		full := c.FullName()
		if prev, ok := ix.Classes[full]; ok {
			ix.Duplicates++
			if logger != nil {
				logger.Warn().
					Str("class", full).
					Str("previous", prev.File).
					Str("file", rec.Path).
					Msg("Duplicate class name, keeping the later declaration")
			}
		}

		cr := &domain.ClassRecord{ClassInfo: c}
		for _, call := range rec.CallGraph {
			if call.CallerClass == c.Name {
				cr.Calls = append(cr.Calls, call)
			}
		}
		ix.Classes[full] = cr
	}
}

// Rebuild re-derives the class map from the file records in sorted path
// order, as Build does
func Rebuild(ix *domain.CodeIndex, logger *utils.Logger) {
	files := ix.Files
	ix.Files = make(map[string]*domain.FileRecord, len(files))
	ix.Classes = make(map[string]*domain.ClassRecord)
	ix.Duplicates = 0

	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		rec := files[p]
		rec.Path = p
		Add(ix, rec, logger)
	}
}

package knowledge

import (
	"fmt"
	"io/fs"
	"path"
	"strings"
)

var loadableExt = map[string]bool{".md": true, ".markdown": true, ".txt": true}

// LoadDir reads every markdown and text file below root in fsys. The
// document source is the slash separated path relative to fsys, the title the
// first markdown heading or the file name.
func LoadDir(fsys fs.FS, root string) ([]Document, error) {
	var docs []Document

	err := fs.WalkDir(fsys, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() || !loadableExt[strings.ToLower(path.Ext(p))] {
			return nil
		}

		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("read %s: %w", p, err)
		}

		docs = append(docs, Document{
			ID:       p,
			Source:   p,
			Title:    titleOf(string(data), p),
			Text:     string(data),
			Metadata: map[string]string{"ext": strings.TrimPrefix(path.Ext(p), ".")},
		})

		return nil
	})
	if err != nil {
		return nil, err
	}

	return docs, nil
}

func titleOf(text, p string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "# "))
		}
	}
	return strings.TrimSuffix(path.Base(p), path.Ext(p))
}

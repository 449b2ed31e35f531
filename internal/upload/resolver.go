package upload

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/YassinSultan/CoreSystem-Backend/internal/apierr"
	"github.com/YassinSultan/CoreSystem-Backend/internal/metrics"
	"github.com/YassinSultan/CoreSystem-Backend/internal/storage"
)

// DefaultMaxFileSize caps single uploads at 1000 MiB.
const DefaultMaxFileSize = 1000 << 20

var allowedExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".gif":  {},
	".pdf":  {},
	".docx": {},
	".xlsx": {},
	".mp4":  {},
	".dwg":  {},
}

// indexedSuffix matches the positional multipart naming convention
// "field[0][file]" used by array-item uploads.
var indexedSuffix = regexp.MustCompile(`^(.+)\[(\d+)\]\[file\]$`)

// Part is one decoded multipart file part. LogicalField and Position, when
// set from a manifest, override the positional field-name convention.
type Part struct {
	FieldName    string
	OriginalName string
	Data         []byte
	LogicalField string
	Position     int
}

// StoredFile is one persisted upload, position-aware for array fields.
type StoredFile struct {
	Index    int
	FileName string
	FileURL  string
}

// Group is the resolved set of uploads for one logical field.
type Group struct {
	Field string
	Files []StoredFile
}

// Resolver validates multipart parts and persists them through a Storage,
// keyed by the logical field each part belongs to.
type Resolver struct {
	store   storage.Storage
	maxSize int64
}

func NewResolver(store storage.Storage, maxSize int64) *Resolver {
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	return &Resolver{store: store, maxSize: maxSize}
}

// Resolve validates every part, groups them by logical field, and stores
// them under <category>/<recordID>/<field>. Sibling parts of a group are
// written concurrently; the returned order follows the positional index
// (or arrival order for plain field names). Validation runs before any
// write, so a rejected part never leaves partial files behind.
func (r *Resolver) Resolve(ctx context.Context, parts []Part, category, recordID string) ([]Group, error) {
	if len(parts) == 0 {
		return nil, nil
	}

	type pending struct {
		index int
		part  Part
	}
	grouped := make(map[string][]pending)
	order := make([]string, 0, 4)

	for _, p := range parts {
		ext := strings.ToLower(filepath.Ext(p.OriginalName))
		if _, ok := allowedExtensions[ext]; !ok {
			metrics.IncUploadFailure()
			return nil, apierr.UnsupportedFileType(p.OriginalName)
		}
		if int64(len(p.Data)) > r.maxSize {
			metrics.IncUploadFailure()
			return nil, apierr.FileTooLarge(p.OriginalName)
		}

		field, idx := splitFieldName(p.FieldName)
		if p.LogicalField != "" {
			field, idx = p.LogicalField, p.Position
		}
		if _, seen := grouped[field]; !seen {
			order = append(order, field)
		}
		if idx < 0 {
			idx = len(grouped[field])
		}
		grouped[field] = append(grouped[field], pending{index: idx, part: p})
	}

	groups := make([]Group, 0, len(order))
	for _, field := range order {
		members := grouped[field]
		stored := make([]StoredFile, len(members))

		var wg sync.WaitGroup
		errs := make([]error, len(members))
		for i, m := range members {
			wg.Add(1)
			go func(i int, m pending) {
				defer wg.Done()
				url, err := r.store.Store(ctx, m.part.Data, m.part.OriginalName, category, recordID, field)
				if err != nil {
					metrics.IncUploadFailure()
					errs[i] = apierr.Storage(fmt.Errorf("store %s: %w", m.part.OriginalName, err))
					return
				}
				metrics.AddUploadBytes(len(m.part.Data))
				stored[i] = StoredFile{Index: m.index, FileName: m.part.OriginalName, FileURL: url}
			}(i, m)
		}
		wg.Wait()
		for _, err := range errs {
			if err != nil {
				return nil, err
			}
		}

		sort.SliceStable(stored, func(a, b int) bool { return stored[a].Index < stored[b].Index })
		groups = append(groups, Group{Field: field, Files: stored})
	}
	return groups, nil
}

// splitFieldName strips the positional "[i][file]" suffix when present and
// reports the declared index, or -1 for a plain field name.
func splitFieldName(name string) (field string, index int) {
	m := indexedSuffix.FindStringSubmatch(name)
	if m == nil {
		return name, -1
	}
	i, err := strconv.Atoi(m[2])
	if err != nil {
		return name, -1
	}
	return m[1], i
}

package bulkimport

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/subtrack-hq/subtrack/internal/refnum"
)

// chunkSize bounds how many rows share one transaction.
const chunkSize = 100

// Outcome reports the fate of one data row. Row is 1-based over the data
// rows, headers excluded.
type Outcome struct {
	Row       int    `json:"row"`
	Imported  bool   `json:"imported"`
	Reference string `json:"reference,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Summary aggregates a whole run.
type Summary struct {
	Total    int       `json:"total"`
	Imported int       `json:"imported"`
	Failed   int       `json:"failed"`
	Outcomes []Outcome `json:"outcomes"`
}

// Importer persists validated rows.
type Importer struct {
	db    *gorm.DB
	nowFn func() time.Time
}

// NewImporter constructs an Importer. nowFn defaults to time.Now.
func NewImporter(db *gorm.DB, nowFn func() time.Time) *Importer {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Importer{db: db, nowFn: nowFn}
}

// Import writes the valid rows in chunks of 100, one transaction per chunk.
// Invalid rows are reported but never block valid ones, and a failed chunk
// does not undo chunks already committed.
func (imp *Importer) Import(ctx context.Context, results []RowResult) Summary {
	summary := Summary{Total: len(results), Outcomes: make([]Outcome, len(results))}

	valid := make([]int, 0, len(results))
	for i, result := range results {
		if result.Valid {
			valid = append(valid, i)
			continue
		}
		summary.Outcomes[i] = Outcome{Row: i + 1, Error: joinFieldErrors(result.Errors)}
		summary.Failed++
	}

	for start := 0; start < len(valid); start += chunkSize {
		end := start + chunkSize
		if end > len(valid) {
			end = len(valid)
		}
		chunk := valid[start:end]

		errTx := imp.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			now := imp.nowFn().UTC()
			for _, idx := range chunk {
				ref, errRef := refnum.Allocate(tx, refnum.EntitySubscription, now)
				if errRef != nil {
					return errRef
				}
				sub := *results[idx].Data
				sub.ReferenceNumber = ref
				sub.CreatedAt = now
				sub.UpdatedAt = now
				if errCreate := tx.Create(&sub).Error; errCreate != nil {
					return fmt.Errorf("row %d: %w", idx+1, errCreate)
				}
				summary.Outcomes[idx] = Outcome{Row: idx + 1, Imported: true, Reference: ref}
			}
			return nil
		})
		if errTx != nil {
			for _, idx := range chunk {
				summary.Outcomes[idx] = Outcome{Row: idx + 1, Error: errTx.Error()}
			}
			summary.Failed += len(chunk)
			continue
		}
		summary.Imported += len(chunk)
	}
	return summary
}

func joinFieldErrors(fields map[string]string) string {
	parts := make([]string, 0, len(fields))
	for field, msg := range fields {
		parts = append(parts, field+": "+msg)
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}

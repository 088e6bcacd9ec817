package handlers

import (
	"encoding/csv"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/subtrack-hq/subtrack/internal/bulkimport"
)

// Import size ceilings. Oversized uploads are a capacity error.
const (
	maxImportBodyBytes = 5 << 20
	maxImportRows      = 5000
)

// ImportHandler manages the CSV bulk-import endpoints.
type ImportHandler struct {
	db       *gorm.DB             // Database handle for lookup tables.
	importer *bulkimport.Importer // Chunked row importer.
}

// NewImportHandler constructs an import handler.
func NewImportHandler(db *gorm.DB, importer *bulkimport.Importer) *ImportHandler {
	return &ImportHandler{db: db, importer: importer}
}

// Analyze parses the uploaded CSV and returns the detected column mapping
// plus per-row validation results, without writing anything.
func (h *ImportHandler) Analyze(c *gin.Context) {
	headers, rows, ok := h.readCSV(c)
	if !ok {
		return
	}
	mapping := bulkimport.AutoDetectMapping(headers)

	lookups, errLookups := bulkimport.LoadLookups(h.db.WithContext(c.Request.Context()))
	if errLookups != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load lookups failed"})
		return
	}

	now := time.Now().UTC()
	valid := 0
	results := make([]gin.H, 0, len(rows))
	for i, row := range rows {
		result := bulkimport.ValidateRow(row, mapping, lookups, now)
		if result.Valid {
			valid++
		}
		results = append(results, gin.H{
			"row":    i + 1,
			"valid":  result.Valid,
			"errors": result.Errors,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"headers": headers,
		"mapping": mapping,
		"total":   len(rows),
		"valid":   valid,
		"rows":    results,
	})
}

// Import parses, validates, and persists the uploaded CSV.
func (h *ImportHandler) Import(c *gin.Context) {
	headers, rows, ok := h.readCSV(c)
	if !ok {
		return
	}
	mapping := bulkimport.AutoDetectMapping(headers)

	lookups, errLookups := bulkimport.LoadLookups(h.db.WithContext(c.Request.Context()))
	if errLookups != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load lookups failed"})
		return
	}

	now := time.Now().UTC()
	results := make([]bulkimport.RowResult, len(rows))
	for i, row := range rows {
		results[i] = bulkimport.ValidateRow(row, mapping, lookups, now)
	}

	summary := h.importer.Import(c.Request.Context(), results)
	c.JSON(http.StatusOK, gin.H{
		"total":    summary.Total,
		"imported": summary.Imported,
		"failed":   summary.Failed,
		"outcomes": summary.Outcomes,
	})
}

// readCSV reads the request body as CSV with a header row. Writes the error
// response itself on failure.
func (h *ImportHandler) readCSV(c *gin.Context) ([]string, [][]string, bool) {
	reader := csv.NewReader(io.LimitReader(c.Request.Body, maxImportBodyBytes))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	headers, errHeader := reader.Read()
	if errHeader != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid csv: missing header row"})
		return nil, nil, false
	}

	var rows [][]string
	for {
		row, errRead := reader.Read()
		if errors.Is(errRead, io.EOF) {
			break
		}
		if errRead != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid csv"})
			return nil, nil, false
		}
		rows = append(rows, row)
		if len(rows) > maxImportRows {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "too many rows"})
			return nil, nil, false
		}
	}
	if len(rows) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "csv has no data rows"})
		return nil, nil, false
	}
	return headers, rows, true
}

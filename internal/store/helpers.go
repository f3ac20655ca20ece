package store

import (
	"database/sql"
	"fmt"

	"github.com/BTreeMap/PromptCanvas/internal/models"
)

// nilIfEmpty returns nil if s is empty, otherwise returns s.
// Used for nullable database columns.
func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// scanReceipts reads every receipt row. The caller closes rows.
func scanReceipts(rows *sql.Rows) ([]models.Receipt, error) {
	receipts := []models.Receipt{}
	for rows.Next() {
		var r models.Receipt
		var status string
		var errText sql.NullString
		if err := rows.Scan(&r.ArtifactID, &r.Prompt, &r.Source, &status, &errText, &r.Time); err != nil {
			return nil, fmt.Errorf("failed to scan receipt row: %w", err)
		}
		r.Status = models.ReceiptStatus(status)
		r.Error = errText.String
		receipts = append(receipts, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate receipt rows: %w", err)
	}
	return receipts, nil
}

// Package parser reads the auction list workbook into raw row records.
package parser

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sheriffsale/auctionmap/internal/model"
)

// Column names as they appear in the upstream auction list export.
const (
	ColAuctionID  = "Auction ID"
	ColStatus     = "Status"
	ColMinBid     = "Minimum Bid"
	ColOpenDate   = "Bidding Open Date/Time"
	ColAttorney   = "Attorney"
	ColBookWrit   = "Book/Writ"
	ColOPA        = "OPA"
	ColAddress    = "Address"
	ColDebtAmount = "Debt Amount" // optional; debts default to 0 when absent
)

var requiredColumns = []string{
	ColAuctionID, ColStatus, ColMinBid, ColOpenDate,
	ColAttorney, ColBookWrit, ColOPA, ColAddress,
}

// Options configures the workbook reader.
type Options struct {
	// HeaderRow is the 1-based row holding the column names. The upstream
	// export puts two banner rows above it, so the default is row 3.
	HeaderRow int
}

// ReadAuctionList reads the first sheet of the workbook at path and returns
// one RawRecord per data row. A missing required column is a fatal error;
// nothing else about a row aborts the read.
func ReadAuctionList(path string, opts Options) ([]model.RawRecord, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "parser: open workbook")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("parser: workbook has no sheets")
	}
	sheet := f.Sheets[0]

	headerRow := opts.HeaderRow
	if headerRow <= 0 {
		headerRow = 3
	}
	if headerRow > len(sheet.Rows) {
		return nil, eris.Errorf("parser: header row %d beyond sheet (%d rows)", headerRow, len(sheet.Rows))
	}

	cols, err := mapColumns(sheet.Rows[headerRow-1])
	if err != nil {
		return nil, err
	}

	debtIdx, hasDebt := cols[ColDebtAmount]
	if !hasDebt {
		zap.L().Warn("parser: debt amount column not found, defaulting all debts to 0")
	}

	var records []model.RawRecord
	for _, row := range sheet.Rows[headerRow:] {
		cells := rowToStrings(row)
		if emptyRow(cells) {
			continue
		}

		rec := model.RawRecord{
			AuctionID:  strings.TrimSpace(cellAt(cells, cols[ColAuctionID])),
			Status:     cellAt(cells, cols[ColStatus]),
			MinBid:     cellAt(cells, cols[ColMinBid]),
			OpenDate:   cellAt(cells, cols[ColOpenDate]),
			Attorney:   cellAt(cells, cols[ColAttorney]),
			DebtAmount: "0",
			BookWrit:   cellAt(cells, cols[ColBookWrit]),
			OPA:        cellAt(cells, cols[ColOPA]),
			Address:    cellAt(cells, cols[ColAddress]),
		}
		if hasDebt {
			if v := cellAt(cells, debtIdx); v != "" {
				rec.DebtAmount = v
			}
		}
		records = append(records, rec)
	}

	zap.L().Info("parser: auction list loaded",
		zap.String("path", path),
		zap.Int("rows", len(records)),
	)
	return records, nil
}

// mapColumns indexes the header row by column name and verifies every
// required column is present.
func mapColumns(row *xlsx.Row) (map[string]int, error) {
	cols := make(map[string]int, len(row.Cells))
	for i, cell := range row.Cells {
		name := strings.TrimSpace(cell.String())
		if name == "" {
			continue
		}
		if _, dup := cols[name]; !dup {
			cols[name] = i
		}
	}

	var missing []string
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, eris.Errorf("parser: missing required columns: %s", strings.Join(missing, ", "))
	}
	return cols, nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}

func cellAt(cells []string, i int) string {
	if i < 0 || i >= len(cells) {
		return ""
	}
	return cells[i]
}

func emptyRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// Package export renders the enriched record set into the downstream
// artifacts: a spreadsheet, a GeoJSON feature collection, and an
// interactive HTML map.
package export

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sheriffsale/auctionmap/internal/model"
)

// xlsxHeader is the enriched sheet's column order.
var xlsxHeader = []string{
	"Auction ID", "Status", "Minimum Bid", "Open Date",
	"Attorney", "Debt Amount", "Book/Writ", "OPA", "Address",
	"Neighborhood", "Lat", "Lng", "Phila Link", "Bid4Assets Link", "Google Street View",
}

// WriteXLSX writes every record, resolved or not, to a workbook at path.
func WriteXLSX(path string, records []model.ResolvedRecord) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Auctions")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	hr := sheet.AddRow()
	for _, name := range xlsxHeader {
		hr.AddCell().SetString(name)
	}

	for _, r := range records {
		row := sheet.AddRow()
		row.AddCell().SetString(r.AuctionID)
		row.AddCell().SetString(r.Status)
		row.AddCell().SetString(r.MinBid)
		row.AddCell().SetString(r.OpenDate)
		row.AddCell().SetString(r.Attorney)
		row.AddCell().SetString(r.DebtAmount)
		row.AddCell().SetString(r.BookWrit)
		row.AddCell().SetString(r.OPA)
		row.AddCell().SetString(r.Address)
		row.AddCell().SetString(r.Neighborhood)
		latCell, lngCell := row.AddCell(), row.AddCell()
		if r.HasCoords() {
			latCell.SetFloat(*r.Lat)
			lngCell.SetFloat(*r.Lng)
		}
		row.AddCell().SetString(r.PropertyLink)
		row.AddCell().SetString(r.AuctionLink)
		row.AddCell().SetString(r.StreetViewLink)
	}

	if err := f.Save(path); err != nil {
		return eris.Wrap(err, "export: save workbook")
	}
	zap.L().Info("export: workbook written", zap.String("path", path), zap.Int("records", len(records)))
	return nil
}

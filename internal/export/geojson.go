package export

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/sheriffsale/auctionmap/internal/model"
)

// WriteGeoJSON writes one Point feature per resolved record to path.
// Records without coordinates carry nothing to place and are excluded.
func WriteGeoJSON(path string, records []model.ResolvedRecord) error {
	fc := &geojson.FeatureCollection{}
	for i := range records {
		r := &records[i]
		if !r.HasCoords() {
			continue
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			Geometry:   geom.NewPointFlat(geom.XY, []float64{*r.Lng, *r.Lat}),
			Properties: featureProperties(r),
		})
	}

	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return eris.Wrap(err, "export: marshal feature collection")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrap(err, "export: write geojson")
	}

	zap.L().Info("export: geojson written",
		zap.String("path", path),
		zap.Int("features", len(fc.Features)),
	)
	return nil
}

// featureProperties carries every record field into the feature, matching
// the spreadsheet's content.
func featureProperties(r *model.ResolvedRecord) map[string]interface{} {
	return map[string]interface{}{
		"auction_id":       r.AuctionID,
		"status":           r.Status,
		"min_bid":          r.MinBid,
		"open_date":        r.OpenDate,
		"attorney":         r.Attorney,
		"debt_amount":      r.DebtAmount,
		"book_writ":        r.BookWrit,
		"opa":              r.OPA,
		"address":          r.Address,
		"neighborhood":     r.Neighborhood,
		"lat":              *r.Lat,
		"lng":              *r.Lng,
		"property_link":    r.PropertyLink,
		"auction_link":     r.AuctionLink,
		"street_view_link": r.StreetViewLink,
	}
}

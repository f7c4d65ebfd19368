// Package model defines the record types flowing through the auction pipeline.
package model

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// UnknownNeighborhood is the sentinel label for records whose reverse
// geocode failed or was never attempted.
const UnknownNeighborhood = "Unknown"

// RawRecord is one row of the auction list export, read once and never
// mutated. The Address, OPA, and BookWrit fields may encode multiple
// co-listed properties joined by "&".
type RawRecord struct {
	AuctionID  string
	Status     string
	MinBid     string
	OpenDate   string
	Attorney   string
	DebtAmount string
	BookWrit   string
	OPA        string
	Address    string
}

// AddressUnit is one decomposed address from a RawRecord. OPA and BookWrit
// are empty when the row had fewer account/book values than addresses.
type AddressUnit struct {
	Address  string
	OPA      string
	BookWrit string
}

// ResolvedRecord is an AddressUnit plus resolution outputs and the original
// row's fields carried through. Lat and Lng are both set or both nil.
type ResolvedRecord struct {
	AuctionID  string   `json:"auction_id"`
	Status     string   `json:"status"`
	MinBid     string   `json:"min_bid"`
	OpenDate   string   `json:"open_date"`
	Attorney   string   `json:"attorney"`
	DebtAmount string   `json:"debt_amount"`
	BookWrit   string   `json:"book_writ"`
	OPA        string   `json:"opa"`
	Address    string   `json:"address"`
	Lat        *float64 `json:"lat"`
	Lng        *float64 `json:"lng"`

	Neighborhood string `json:"neighborhood"`

	PropertyLink   string `json:"property_link"`
	AuctionLink    string `json:"auction_link"`
	StreetViewLink string `json:"street_view_link"`
}

// HasCoords reports whether the record resolved to a coordinate.
func (r *ResolvedRecord) HasCoords() bool {
	return r.Lat != nil && r.Lng != nil
}

// Cluster is a non-empty ordered group of records, each within the
// clustering threshold of the cluster's seed (its first member).
type Cluster []ResolvedRecord

// Centroid returns the mean coordinate of the cluster's members.
func (c Cluster) Centroid() (lat, lng float64) {
	for _, r := range c {
		lat += *r.Lat
		lng += *r.Lng
	}
	n := float64(len(c))
	return lat / n, lng / n
}

// NewResolvedRecord builds the enriched record for one address unit,
// deriving the external links from identifiers alone.
func NewResolvedRecord(raw RawRecord, unit AddressUnit) ResolvedRecord {
	r := ResolvedRecord{
		AuctionID:    raw.AuctionID,
		Status:       raw.Status,
		MinBid:       raw.MinBid,
		OpenDate:     raw.OpenDate,
		Attorney:     raw.Attorney,
		DebtAmount:   raw.DebtAmount,
		BookWrit:     unit.BookWrit,
		OPA:          unit.OPA,
		Address:      unit.Address,
		Neighborhood: UnknownNeighborhood,
	}
	if unit.OPA != "" {
		r.PropertyLink = "https://property.phila.gov/?p=" + url.QueryEscape(unit.OPA)
	}
	if raw.AuctionID != "" {
		r.AuctionLink = "https://www.bid4assets.com/auction/index/" + url.PathEscape(raw.AuctionID)
	}
	if unit.Address != "" {
		r.StreetViewLink = "https://www.google.com/maps?q=" + url.QueryEscape(unit.Address) + "&layer=c"
	}
	return r
}

// SplitAmpersand splits "A & B & C" into trimmed parts. Empty input yields nil.
func SplitAmpersand(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, "&")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}

// ExpandUnits decomposes a row's multi-address fields into per-address
// units. The three "&"-split lists are zipped positionally; shorter lists
// are padded with empty values, and positions without an address are
// dropped (an OPA or book with no address has nothing to resolve).
func ExpandUnits(raw RawRecord) []AddressUnit {
	addrs := SplitAmpersand(raw.Address)
	opas := SplitAmpersand(raw.OPA)
	books := SplitAmpersand(raw.BookWrit)

	n := len(addrs)
	if len(opas) > n {
		n = len(opas)
	}
	if len(books) > n {
		n = len(books)
	}

	at := func(list []string, i int) string {
		if i < len(list) {
			return list[i]
		}
		return ""
	}

	var units []AddressUnit
	for i := 0; i < n; i++ {
		addr := at(addrs, i)
		if addr == "" {
			continue
		}
		units = append(units, AddressUnit{
			Address:  addr,
			OPA:      at(opas, i),
			BookWrit: at(books, i),
		})
	}
	return units
}

// FormatCurrency renders a monetary cell value as "$1,234.56", or "N/A"
// when the value is not numeric.
func FormatCurrency(value string) string {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return "N/A"
	}
	return "$" + groupThousands(fmt.Sprintf("%.2f", v))
}

// groupThousands inserts comma separators into a formatted decimal string.
func groupThousands(s string) string {
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	intPart, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	for i, d := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(d)
	}
	out := b.String()
	if frac != "" {
		out += "." + frac
	}
	if neg {
		out = "-" + out
	}
	return out
}

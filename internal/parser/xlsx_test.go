package parser

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

// writeWorkbook saves a workbook whose third row is the header, matching
// the upstream export layout.
func writeWorkbook(t *testing.T, header []string, dataRows [][]string) string {
	t.Helper()

	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Auctions")
	require.NoError(t, err)

	// Two banner rows above the header.
	sheet.AddRow().AddCell().SetString("Sheriff Sale")
	sheet.AddRow()

	hr := sheet.AddRow()
	for _, name := range header {
		hr.AddCell().SetString(name)
	}
	for _, data := range dataRows {
		row := sheet.AddRow()
		for _, v := range data {
			row.AddCell().SetString(v)
		}
	}

	path := filepath.Join(t.TempDir(), "auctions.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

var fullHeader = []string{
	ColAuctionID, ColStatus, ColMinBid, ColOpenDate,
	ColAttorney, ColDebtAmount, ColBookWrit, ColOPA, ColAddress,
}

func TestReadAuctionList_HappyPath(t *testing.T) {
	path := writeWorkbook(t, fullHeader, [][]string{
		{"2335411", "Active", "1500", "2026-09-02 09:00", "Smith LLC", "42000.50", "2401-100", "881052600", "123 Main St"},
		{"2335412", "Postponed", "900", "2026-09-02 09:00", "Jones PC", "", "2401-101 & 2401-102", "100 & 200", "1 A St & 2 B St"},
	})

	records, err := ReadAuctionList(path, Options{})
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "2335411", records[0].AuctionID)
	assert.Equal(t, "Active", records[0].Status)
	assert.Equal(t, "42000.50", records[0].DebtAmount)
	assert.Equal(t, "123 Main St", records[0].Address)

	assert.Equal(t, "0", records[1].DebtAmount, "empty debt cell defaults to 0")
	assert.Equal(t, "1 A St & 2 B St", records[1].Address, "multi-address field passes through raw")
}

func TestReadAuctionList_MissingRequiredColumnIsFatal(t *testing.T) {
	header := []string{ColAuctionID, ColStatus, ColMinBid, ColOpenDate, ColAttorney, ColBookWrit, ColOPA}
	path := writeWorkbook(t, header, nil)

	_, err := ReadAuctionList(path, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Address")
}

func TestReadAuctionList_MissingDebtColumnDefaultsToZero(t *testing.T) {
	header := []string{
		ColAuctionID, ColStatus, ColMinBid, ColOpenDate,
		ColAttorney, ColBookWrit, ColOPA, ColAddress,
	}
	path := writeWorkbook(t, header, [][]string{
		{"1", "Active", "100", "2026-09-02", "Smith", "2401-1", "555", "9 Z St"},
	})

	records, err := ReadAuctionList(path, Options{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "0", records[0].DebtAmount)
}

func TestReadAuctionList_SkipsEmptyRows(t *testing.T) {
	path := writeWorkbook(t, fullHeader, [][]string{
		{"1", "Active", "100", "d", "a", "0", "b", "o", "9 Z St"},
		{"", "", "", "", "", "", "", "", ""},
		{"2", "Sold", "200", "d", "a", "0", "b", "o", "8 Y St"},
	})

	records, err := ReadAuctionList(path, Options{})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "2", records[1].AuctionID)
}

func TestReadAuctionList_ShortRowsPadWithEmpty(t *testing.T) {
	path := writeWorkbook(t, fullHeader, [][]string{
		{"1", "Active", "100"},
	})

	records, err := ReadAuctionList(path, Options{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Empty(t, records[0].Address)
}

func TestReadAuctionList_MissingFile(t *testing.T) {
	_, err := ReadAuctionList(filepath.Join(t.TempDir(), "nope.xlsx"), Options{})
	assert.Error(t, err)
}

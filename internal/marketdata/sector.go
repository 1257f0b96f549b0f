package marketdata

import (
	"strconv"
	"strings"

	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/model"
)

type sicRange struct {
	from, to int
	sector   string
}

// sicSectors maps SEC Standard Industrial Classification ranges to divisions.
var sicSectors = []sicRange{
	{1000, 1499, "Mining"},
	{1500, 1799, "Construction"},
	{2000, 3999, "Manufacturing"},
	{4000, 4999, "Transportation & Public Utilities"},
	{5000, 5199, "Wholesale Trade"},
	{5200, 5999, "Retail Trade"},
	{6000, 6799, "Finance, Insurance, Real Estate"},
	{7000, 8999, "Services"},
	{9100, 9729, "Public Administration"},
}

// SectorFromSIC returns the sector for a SIC code, or model.DefaultSector
// when the code is empty, malformed or unclassified.
func SectorFromSIC(code string) string {
	sic, err := strconv.Atoi(strings.TrimSpace(code))
	if err != nil {
		return model.DefaultSector
	}
	for _, r := range sicSectors {
		if sic >= r.from && sic <= r.to {
			return r.sector
		}
	}
	return model.DefaultSector
}

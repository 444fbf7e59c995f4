package catalog

import (
	_ "embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
)

//go:embed companies.csv
var embeddedCSV string

// LoadStatic reads the reference entity list from a CSV file with the columns
// name,nse_code,bse_code,sector,market_cap. When the file does not exist the
// embedded default list is used instead.
func LoadStatic(path string) ([]Entity, error) {
	if path != "" {
		f, err := os.Open(path)
		if err == nil {
			defer f.Close()
			entities, err := parseCSV(f)
			if err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
			return entities, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
	}
	return parseCSV(strings.NewReader(embeddedCSV))
}

func parseCSV(r io.Reader) ([]Entity, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	var entities []Entity
	header := true
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if header {
			header = false
			if len(record) > 0 && strings.EqualFold(strings.TrimSpace(record[0]), "name") {
				continue
			}
		}
		if len(record) < 4 {
			return nil, fmt.Errorf("row %v: expected at least 4 columns", record)
		}
		e := Entity{
			Name:    strings.TrimSpace(record[0]),
			NSECode: strings.ToUpper(strings.TrimSpace(record[1])),
			BSECode: strings.TrimSpace(record[2]),
			Sector:  strings.TrimSpace(record[3]),
		}
		if len(record) > 4 && strings.TrimSpace(record[4]) != "" {
			cap, err := strconv.ParseFloat(strings.TrimSpace(record[4]), 64)
			if err != nil {
				return nil, fmt.Errorf("row for %s: market cap: %w", e.Name, err)
			}
			e.MarketCap = cap
		}
		if e.Name == "" || (e.NSECode == "" && e.BSECode == "") {
			continue
		}
		entities = append(entities, e)
	}
	return entities, nil
}

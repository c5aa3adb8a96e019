package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"grocery-recommender/internal/pkg/common"

	"go.uber.org/zap"
)

// LoadDir 從目錄載入每間商店的 <store>.csv
func LoadDir(dir string, stores []string) (*Set, error) {
	catalogs := make([]*Catalog, 0, len(stores))
	for _, store := range stores {
		path := filepath.Join(dir, store+".csv")
		c, err := LoadFile(store, path)
		if err != nil {
			return nil, err
		}
		catalogs = append(catalogs, c)
	}

	set := NewSet(stores, catalogs...)
	if err := set.EnsureLoaded(); err != nil {
		return nil, err
	}

	common.LogInfo("商店價格資料已載入",
		zap.String("dir", dir),
		zap.Any("records", set.Sizes()),
	)
	return set, nil
}

// LoadFile 載入單一商店的 CSV 檔
func LoadFile(store, path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &LoadError{Store: store, Path: path, Err: ErrEmptyOrMissing}
		}
		return nil, &LoadError{Store: store, Path: path, Err: err}
	}
	defer f.Close()

	c, err := Load(store, f)
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			le.Path = path
			return nil, le
		}
		return nil, &LoadError{Store: store, Path: path, Err: err}
	}
	return c, nil
}

// Load 從 CSV 讀取資料集，表頭需包含 name 與 price 欄位
func Load(store string, r io.Reader) (*Catalog, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, &LoadError{Store: store, Err: ErrEmptyOrMissing}
	}
	if err != nil {
		return nil, &LoadError{Store: store, Err: fmt.Errorf("read header: %w", err)}
	}

	nameCol, priceCol := -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))) {
		case "name":
			nameCol = i
		case "price":
			priceCol = i
		}
	}
	if nameCol < 0 || priceCol < 0 {
		return nil, &LoadError{Store: store, Err: fmt.Errorf("header must contain name and price columns, got %v", header)}
	}

	var records []Record
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &LoadError{Store: store, Err: fmt.Errorf("read row %d: %w", len(records)+2, err)}
		}

		rec := Record{}
		if nameCol < len(row) {
			rec.Name = strings.TrimSpace(row[nameCol])
		}
		if priceCol < len(row) {
			if p, ok := common.ParsePrice(row[priceCol]); ok {
				rec.Price = &p
			}
		}
		records = append(records, rec)
	}

	if len(records) == 0 {
		return nil, &LoadError{Store: store, Err: ErrEmptyOrMissing}
	}
	return New(store, records), nil
}

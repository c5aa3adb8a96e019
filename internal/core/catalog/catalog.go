package catalog

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyOrMissing 資料集不存在或為空
var ErrEmptyOrMissing = errors.New("catalog empty or missing")

// LoadError 資料集載入錯誤
type LoadError struct {
	Store string
	Path  string
	Err   error
}

func (e *LoadError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("catalog %s (%s): %v", e.Store, e.Path, e.Err)
	}
	return fmt.Sprintf("catalog %s: %v", e.Store, e.Err)
}

// Unwrap 取得原始錯誤
func (e *LoadError) Unwrap() error {
	return e.Err
}

// Record 資料集中的一筆商品
type Record struct {
	Name  string
	Price *float64
}

// Catalog 單一商店的價格資料集，載入後不可變
type Catalog struct {
	store   string
	records []Record
}

// New 建立資料集，會複製傳入的紀錄
func New(store string, records []Record) *Catalog {
	cp := make([]Record, len(records))
	copy(cp, records)
	return &Catalog{store: store, records: cp}
}

// Len 紀錄數
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.records)
}

// Lookup 以不分大小寫的完全比對找出第一筆同名商品的價格
func (c *Catalog) Lookup(name string) *float64 {
	if c == nil {
		return nil
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	for _, r := range c.records {
		if strings.EqualFold(r.Name, name) {
			if r.Price == nil {
				return nil
			}
			p := *r.Price
			return &p
		}
	}
	return nil
}

// Set 依固定商店順序組成的資料集合
type Set struct {
	stores   []string
	catalogs map[string]*Catalog
}

// NewSet 建立資料集合，stores 決定標準商店順序
func NewSet(stores []string, catalogs ...*Catalog) *Set {
	s := &Set{
		stores:   append([]string(nil), stores...),
		catalogs: make(map[string]*Catalog, len(catalogs)),
	}
	for _, c := range catalogs {
		if c != nil {
			s.catalogs[c.store] = c
		}
	}
	return s
}

// Stores 標準商店順序
func (s *Set) Stores() []string {
	return append([]string(nil), s.stores...)
}

// Lookup 查詢單一商店的價格
func (s *Set) Lookup(store, name string) *float64 {
	return s.catalogs[store].Lookup(name)
}

// EnsureLoaded 確認每間商店的資料集都已載入且非空
func (s *Set) EnsureLoaded() error {
	if s == nil || len(s.stores) == 0 {
		return &LoadError{Store: "*", Err: ErrEmptyOrMissing}
	}
	for _, store := range s.stores {
		if s.catalogs[store].Len() == 0 {
			return &LoadError{Store: store, Err: ErrEmptyOrMissing}
		}
	}
	return nil
}

// Sizes 每間商店的紀錄數
func (s *Set) Sizes() map[string]int {
	sizes := make(map[string]int, len(s.stores))
	for _, store := range s.stores {
		sizes[store] = s.catalogs[store].Len()
	}
	return sizes
}

package storage

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"tradingpost/internal/market"
)

// Persister is the durable collaborator of the inventory store. Save
// receives the complete inventory and replaces whatever was stored before.
type Persister interface {
	Load(ctx context.Context) (map[market.Product]int64, error)
	Save(ctx context.Context, inventory map[market.Product]int64) error
}

// FilePersister stores the inventory as text, one PRODUCT,QUANTITY line per
// product. The file is rewritten in full on every save.
type FilePersister struct {
	path string
}

// NewFilePersister creates a persister for path.
func NewFilePersister(path string) *FilePersister {
	return &FilePersister{path: path}
}

// Path returns the inventory file location.
func (p *FilePersister) Path() string {
	return p.path
}

// Load reads the inventory file. A missing file is an empty inventory.
func (p *FilePersister) Load(ctx context.Context) (map[market.Product]int64, error) {
	f, err := os.Open(p.path)
	if os.IsNotExist(err) {
		return make(map[market.Product]int64), nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodeInventory(f)
}

// Save writes to a temporary file in the same directory and renames it over
// the inventory file.
func (p *FilePersister) Save(ctx context.Context, inventory map[market.Product]int64) error {
	dir := filepath.Dir(p.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(p.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	w := bufio.NewWriter(tmp)
	if err := EncodeInventory(w, inventory); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to flush inventory: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close inventory: %w", err)
	}
	if err := os.Rename(tmpName, p.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", p.path, err)
	}
	return nil
}

// EncodeInventory writes PRODUCT,QUANTITY lines in catalogue order.
// Products never stocked are written with quantity 0.
func EncodeInventory(w io.Writer, inventory map[market.Product]int64) error {
	for _, product := range market.Products() {
		if _, err := fmt.Fprintf(w, "%s,%d\n", product, inventory[product]); err != nil {
			return fmt.Errorf("failed to write %s: %w", product, err)
		}
	}
	return nil
}

// DecodeInventory parses PRODUCT,QUANTITY lines. Blank lines are skipped.
func DecodeInventory(r io.Reader) (map[market.Product]int64, error) {
	inventory := make(map[market.Product]int64)
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.SplitN(line, ",", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("line %d: invalid format %q (expected PRODUCT,QUANTITY)", lineNo, line)
		}
		product, err := market.ParseProduct(parts[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		qty, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid quantity: %w", lineNo, err)
		}
		if qty < 0 {
			return nil, fmt.Errorf("line %d: negative quantity %d", lineNo, qty)
		}
		inventory[product] = qty
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return inventory, nil
}

// MemoryPersister keeps the last saved inventory in memory.
type MemoryPersister struct {
	mu    sync.Mutex
	saved map[market.Product]int64
	saves int
}

// NewMemoryPersister creates an empty in-memory persister.
func NewMemoryPersister() *MemoryPersister {
	return &MemoryPersister{saved: make(map[market.Product]int64)}
}

// Load returns a copy of the last saved inventory.
func (p *MemoryPersister) Load(ctx context.Context) (map[market.Product]int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return cloneInventory(p.saved)
}

// Save keeps a copy of inventory.
func (p *MemoryPersister) Save(ctx context.Context, inventory map[market.Product]int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	saved, err := cloneInventory(inventory)
	if err != nil {
		return err
	}
	p.saved = saved
	p.saves++
	return nil
}

// Saves returns how many times Save was called.
func (p *MemoryPersister) Saves() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.saves
}

package storage

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"tradingpost/internal/market"
)

func TestEncodeInventory(t *testing.T) {
	var buf bytes.Buffer
	err := EncodeInventory(&buf, map[market.Product]int64{market.Boars: 3, market.Fish: 1})
	if err != nil {
		t.Fatalf("EncodeInventory: %v", err)
	}

	want := "FISH,1\nSALT,0\nBOARS,3\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestDecodeInventory(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    map[market.Product]int64
		wantErr bool
	}{
		{
			name:  "all products",
			input: "FISH,1\nSALT,0\nBOARS,3\n",
			want:  map[market.Product]int64{market.Fish: 1, market.Salt: 0, market.Boars: 3},
		},
		{
			name:  "blank lines and lower case",
			input: "\nboars, 2\n\n",
			want:  map[market.Product]int64{market.Boars: 2},
		},
		{name: "empty", input: "", want: map[market.Product]int64{}},
		{name: "missing comma", input: "BOARS 3\n", wantErr: true},
		{name: "unknown product", input: "GOLD,3\n", wantErr: true},
		{name: "bad quantity", input: "BOARS,three\n", wantErr: true},
		{name: "negative quantity", input: "BOARS,-1\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeInventory(strings.NewReader(tt.input))
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodeInventory() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("%s = %d, want %d", k, got[k], v)
				}
			}
		})
	}
}

func TestFilePersister_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "warehouse_inventory.txt")
	p := NewFilePersister(path)

	inv, err := p.Load(ctx)
	if err != nil {
		t.Fatalf("Load of missing file: %v", err)
	}
	if len(inv) != 0 {
		t.Errorf("Expected empty inventory, got %v", inv)
	}

	if err := p.Save(ctx, map[market.Product]int64{market.Salt: 5}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := p.Save(ctx, map[market.Product]int64{market.Salt: 2, market.Boars: 1}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(raw) != "FISH,0\nSALT,2\nBOARS,1\n" {
		t.Errorf("File should be rewritten in full, got %q", string(raw))
	}

	inv, err = p.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if inv[market.Salt] != 2 || inv[market.Boars] != 1 {
		t.Errorf("Unexpected inventory %v", inv)
	}

	// No temp files left behind
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("Expected only the inventory file, found %d entries", len(entries))
	}
}

func TestFilePersister_StoreWritesThrough(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "inv.txt")
	store, err := Open(ctx, NewFilePersister(path), true)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	store.Sell(ctx, req(1, 0, market.Boars, 3))
	store.Buy(ctx, req(1, 1, market.Boars, 1))

	reopened, err := Open(ctx, NewFilePersister(path), false)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if qty, _ := reopened.Lookup(ctx, market.Boars); qty != 2 {
		t.Errorf("Expected 2 BOARS after reopen, got %d", qty)
	}
}

func TestFilePersister_UnwritableDirectory(t *testing.T) {
	p := NewFilePersister(filepath.Join(t.TempDir(), "missing", "inv.txt"))
	if err := p.Save(context.Background(), map[market.Product]int64{}); err == nil {
		t.Error("Expected error when directory does not exist")
	}
}

func TestMongoDocumentConversion(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	doc := toDocument(map[market.Product]int64{market.Fish: 4}, now)
	if doc.ID != inventoryDocumentID || doc.Products["FISH"] != 4 || !doc.UpdatedAt.Equal(now) {
		t.Errorf("Unexpected document %+v", doc)
	}

	inv, err := fromDocument(doc)
	if err != nil {
		t.Fatalf("fromDocument: %v", err)
	}
	if inv[market.Fish] != 4 {
		t.Errorf("Expected 4 FISH, got %d", inv[market.Fish])
	}

	if _, err := fromDocument(inventoryDocument{Products: map[string]int64{"GOLD": 1}}); err == nil {
		t.Error("Expected error for unknown product")
	}
}

func TestMongoPersister(t *testing.T) {
	uri := os.Getenv("TRADINGPOST_MONGO_URI")
	if uri == "" {
		t.Skip("TRADINGPOST_MONGO_URI not set, skipping MongoDB test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	p, err := NewMongoPersister(ctx, uri, "tradingpost_test", "inventory")
	if err != nil {
		t.Fatalf("NewMongoPersister: %v", err)
	}
	defer p.Close(ctx)

	store, err := Open(ctx, p, true)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	store.Sell(ctx, req(1, 0, market.Salt, 6))

	inv, err := p.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if inv[market.Salt] != 6 {
		t.Errorf("Expected 6 SALT, got %d", inv[market.Salt])
	}
}

package walletdb

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/veilwallet/core/pkg/types"
)

func sampleBlock(height uint32) types.CompactBlock {
	return types.CompactBlock{
		Height: height,
		Fragments: []types.StateFragment{
			{NoteCommitment: []byte{1, 2, 3}, EphemeralKey: []byte{4, 5, 6}, EncryptedNote: []byte{7, 8}},
		},
		Nullifiers: [][]byte{{9, 10}},
	}
}

func TestBoltCachePutGetRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	cache, err := OpenBolt(path)
	if err != nil {
		t.Fatalf("OpenBolt: %v", err)
	}
	defer cache.Close()

	ctx := context.Background()
	block := sampleBlock(12)

	if err := cache.PutBlock(ctx, block); err != nil {
		t.Fatalf("PutBlock: %v", err)
	}

	got, err := cache.GetBlock(ctx, 12)
	if err != nil {
		t.Fatalf("GetBlock: %v", err)
	}
	if got.Height != block.Height {
		t.Fatalf("Height = %d, want %d", got.Height, block.Height)
	}
	if len(got.Fragments) != len(block.Fragments) {
		t.Fatalf("len(Fragments) = %d, want %d", len(got.Fragments), len(block.Fragments))
	}
}

func TestBoltCacheGetMissingReturnsNotFound(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	cache, err := OpenBolt(path)
	if err != nil {
		t.Fatalf("OpenBolt: %v", err)
	}
	defer cache.Close()

	if _, err := cache.GetBlock(context.Background(), 999); err != ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

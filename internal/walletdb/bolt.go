package walletdb

import (
	"context"

	bolt "go.etcd.io/bbolt"

	"github.com/veilwallet/core/pkg/types"
)

var blocksBucket = []byte("compact_blocks")

// BoltCache is an embedded, single-file cache backed by bbolt.
type BoltCache struct {
	db *bolt.DB
}

// OpenBolt opens (creating if necessary) a bbolt-backed cache at path.
func OpenBolt(path string) (*BoltCache, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(blocksBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &BoltCache{db: db}, nil
}

// PutBlock implements Cache.
func (c *BoltCache) PutBlock(_ context.Context, block types.CompactBlock) error {
	data, err := encodeBlock(block)
	if err != nil {
		return err
	}
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(blocksBucket).Put(heightKey(block.Height), data)
	})
}

// GetBlock implements Cache.
func (c *BoltCache) GetBlock(_ context.Context, height uint32) (types.CompactBlock, error) {
	var block types.CompactBlock
	err := c.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(blocksBucket).Get(heightKey(height))
		if data == nil {
			return ErrNotFound
		}
		decoded, err := decodeBlock(data)
		if err != nil {
			return err
		}
		block = decoded
		return nil
	})
	return block, err
}

// Close implements Cache.
func (c *BoltCache) Close() error { return c.db.Close() }

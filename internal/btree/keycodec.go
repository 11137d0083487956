// Package btree implements the B+Tree node views (LeafNode/InternalNode
// logical wrappers over pinned pages) and the tree-level search, range
// scan, insert-with-split and delete algorithms that make each table's
// file a clustered index on its primary key.
package btree

import (
	"encoding/binary"

	"github.com/lawnboyy/armdb/internal/record"
)

// pkColumnDefs returns table's primary-key columns, in key order, as a
// standalone column list suitable for Serialize/Deserialize. Separator
// keys stored in internal nodes reuse the row serializer rather than a
// bespoke codec.
func pkColumnDefs(table *record.TableDefinition) []record.ColumnDefinition {
	ordinals := table.PrimaryKeyOrdinals()
	cols := make([]record.ColumnDefinition, len(ordinals))
	for i, ord := range ordinals {
		cols[i] = table.Columns[ord]
		cols[i].Ordinal = i
	}
	return cols
}

func encodeSeparatorKey(pkCols []record.ColumnDefinition, key record.Key) ([]byte, error) {
	return record.Serialize(pkCols, record.Record{Values: key.Values}, nil)
}

func decodeSeparatorKey(pkCols []record.ColumnDefinition, data []byte) (record.Key, error) {
	rec, err := record.Deserialize(pkCols, data)
	if err != nil {
		return record.Key{}, err
	}
	return record.Key{Values: rec.Values}, nil
}

const childIndexWidth = 4

func putChildIndex(dst []byte, v int32) {
	binary.LittleEndian.PutUint32(dst, uint32(v))
}

func getChildIndex(src []byte) int32 {
	return int32(binary.LittleEndian.Uint32(src))
}

// splitInternalPayload splits a stored internal-node slot's bytes into
// its separator-key portion and its trailing child-index portion.
func splitInternalPayload(raw []byte) (keyBytes []byte, child int32) {
	n := len(raw)
	return raw[:n-childIndexWidth], getChildIndex(raw[n-childIndexWidth:])
}

func buildInternalPayload(keyBytes []byte, child int32) []byte {
	out := make([]byte, len(keyBytes)+childIndexWidth)
	copy(out, keyBytes)
	putChildIndex(out[len(keyBytes):], child)
	return out
}

// Command armdb is a short demo that boots a storage engine in a
// scratch directory, creates a database and a table, inserts a handful
// of rows, and scans them back — the façade-level equivalent of the
// teacher's main.go, which drove a single anonymous B+Tree directly.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/lawnboyy/armdb/internal/record"
	"github.com/lawnboyy/armdb/storage"
)

func main() {
	dataDir := flag.String("data-dir", "", "data directory (defaults to a temp directory)")
	pretty := flag.Bool("pretty", false, "also print the id of every inserted row (scanned rows are always printed)")
	flag.Parse()

	if err := run(*dataDir, *pretty); err != nil {
		fmt.Fprintln(os.Stderr, "armdb:", err)
		os.Exit(1)
	}
}

func run(dataDir string, pretty bool) error {
	if dataDir == "" {
		dir, err := os.MkdirTemp("", "armdb-demo-")
		if err != nil {
			return err
		}
		defer os.RemoveAll(dir)
		dataDir = dir
	}

	ctx := context.Background()
	cfg := storage.DefaultConfig(dataDir)
	engine, err := storage.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer engine.Close(ctx)

	dbID, err := engine.CreateDatabase(ctx, "demo")
	if err != nil {
		return err
	}

	table := &record.TableDefinition{
		Name: "widgets",
		Columns: []record.ColumnDefinition{
			{Name: "id", Type: record.DataTypeInfo{Primitive: record.Int32}, Ordinal: 0},
			{Name: "label", Type: record.DataTypeInfo{Primitive: record.String, MaxLength: 64}, Ordinal: 1},
		},
		Constraints: []record.TableConstraint{
			{Name: "pk", Kind: record.PrimaryKey, ColumnNames: []string{"id"}},
		},
	}
	if _, err := engine.CreateTable(ctx, dbID, table); err != nil {
		return err
	}

	for i := int32(1); i <= 9; i++ {
		row := record.NewRecord(record.NewInt32(i), record.NewString(fmt.Sprintf("widget-%d", i)))
		if err := engine.InsertRow(ctx, dbID, "widgets", row); err != nil {
			return err
		}
		if pretty {
			fmt.Printf("inserted id=%d\n", i)
		}
	}

	cur, err := engine.Scan(ctx, dbID, "widgets", nil, nil, false, false)
	if err != nil {
		return err
	}
	defer cur.Close()
	for {
		row, ok, err := cur.Next(ctx)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		fmt.Printf("%d: %s\n", row.Values[0].Int32(), row.Values[1].Str())
	}
	return nil
}

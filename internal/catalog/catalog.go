package catalog

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/armon/go-radix"

	"github.com/lawnboyy/armdb/internal/btree"
	"github.com/lawnboyy/armdb/internal/buffer"
	"github.com/lawnboyy/armdb/internal/dberr"
	"github.com/lawnboyy/armdb/internal/disk"
	"github.com/lawnboyy/armdb/internal/fsx"
	"github.com/lawnboyy/armdb/internal/page"
	"github.com/lawnboyy/armdb/internal/record"
)

// Catalog is the bootstrapped system catalog plus the in-memory caches
// (radix-tree name indexes, reconstructed TableDefinitions, and B+Tree
// handles) the storage engine façade consults to resolve names to
// table ids before touching a B+Tree.
//
// Case-insensitive name lookup is served by github.com/armon/go-radix,
// keyed by strings.ToLower(name): a radix tree gives the same O(key
// length) lookup a map would, plus ordered iteration, which a future
// "list tables like 'x%'" style operation can reuse for free.
type Catalog struct {
	pool *buffer.Pool
	dm   *disk.Manager

	sysDatabases   *btree.Tree
	sysTables      *btree.Tree
	sysColumns     *btree.Tree
	sysConstraints *btree.Tree

	mu          sync.Mutex
	databaseIDs *radix.Tree // lowercased db name -> int32
	tableIDs    *radix.Tree // lowercased "dbID/tablename" -> int32
	tables      map[int32]*record.TableDefinition
	trees       map[int32]*btree.Tree
	nextDBID    int32
	nextTableID int32
}

// New constructs a Catalog. Call Bootstrap before using it.
func New(pool *buffer.Pool, dm *disk.Manager) *Catalog {
	return &Catalog{
		pool:        pool,
		dm:          dm,
		databaseIDs: radix.New(),
		tableIDs:    radix.New(),
		tables:      make(map[int32]*record.TableDefinition),
		trees:       make(map[int32]*btree.Tree),
	}
}

func tableKey(databaseID int32, name string) string {
	return fmt.Sprintf("%d/%s", databaseID, strings.ToLower(name))
}

// Bootstrap ensures the four system tables exist on disk (creating and
// initializing an empty leaf page 0 the first time) and loads their
// current contents into the in-memory caches.
//
// On the very first boot (sys_tables' file does not yet exist) and only
// if bootstrapFS/bootstrapDir are non-empty, the four system-table
// schemas are loaded from external JSON files (spec.md §4.7, §6)
// instead of the built-in defaults in schema.go, and then self-described
// as rows in sys_tables/sys_columns/sys_constraints, the same way
// CreateTable records a user table's schema. Every subsequent boot reads
// the catalog tables themselves (the JSON files are not consulted
// again), and a zero-value bootstrapDir always uses the built-in
// defaults (the common case for tests and for deployments that don't
// customize the system catalog's own shape).
func (c *Catalog) Bootstrap(ctx context.Context, bootstrapFS fsx.FileSystem, bootstrapDir string) error {
	sysIDs := []int32{sysDatabasesTableID, sysTablesTableID, sysColumnsTableID, sysConstraintsTableID}
	firstBoot := !c.dm.TableFileExists(sysTablesTableID)

	sysDefs := []*record.TableDefinition{
		sysDatabasesTable(), sysTablesTable(), sysColumnsTable(), sysConstraintsTable(),
	}
	if firstBoot && bootstrapDir != "" && bootstrapFS != nil {
		loaded, err := loadBootstrapSchemas(bootstrapFS, bootstrapDir)
		if err != nil {
			return err
		}
		sysDefs = loaded
	}

	for i, id := range sysIDs {
		if err := c.ensurePage0(ctx, id); err != nil {
			return err
		}
		c.tables[id] = sysDefs[i]
	}
	c.sysDatabases = btree.NewTree(c.pool, sysDatabasesTableID, sysDefs[0])
	c.sysTables = btree.NewTree(c.pool, sysTablesTableID, sysDefs[1])
	c.sysColumns = btree.NewTree(c.pool, sysColumnsTableID, sysDefs[2])
	c.sysConstraints = btree.NewTree(c.pool, sysConstraintsTableID, sysDefs[3])

	c.nextDBID = 1
	c.nextTableID = firstUserTableID

	if firstBoot {
		for i, id := range sysIDs {
			if err := c.selfDescribe(ctx, id, sysDefs[i]); err != nil {
				return err
			}
		}
	}

	dbRows, err := scanAll(ctx, c.sysDatabases)
	if err != nil {
		return err
	}
	for _, r := range dbRows {
		id := r.Values[0].Int32()
		name := r.Values[1].Str()
		c.databaseIDs.Insert(strings.ToLower(name), id)
		if id >= c.nextDBID {
			c.nextDBID = id + 1
		}
	}

	tableRows, err := scanAll(ctx, c.sysTables)
	if err != nil {
		return err
	}
	for _, r := range tableRows {
		tableID := r.Values[0].Int32()
		databaseID := r.Values[1].Int32()
		name := r.Values[2].Str()
		c.tableIDs.Insert(tableKey(databaseID, name), tableID)
		if tableID >= c.nextTableID {
			c.nextTableID = tableID + 1
		}
	}

	columnRows, err := scanAll(ctx, c.sysColumns)
	if err != nil {
		return err
	}
	columnsByTable := make(map[int32][]record.ColumnDefinition)
	for _, r := range columnRows {
		tableID := r.Values[0].Int32()
		columnsByTable[tableID] = append(columnsByTable[tableID], columnFromRow(r))
	}

	constraintRows, err := scanAll(ctx, c.sysConstraints)
	if err != nil {
		return err
	}
	constraintsByTable := make(map[int32][]record.TableConstraint)
	for _, r := range constraintRows {
		tableID := r.Values[0].Int32()
		constraintsByTable[tableID] = append(constraintsByTable[tableID], constraintFromRow(r))
	}

	for _, r := range tableRows {
		tableID := r.Values[0].Int32()
		def := &record.TableDefinition{
			Name:        r.Values[2].Str(),
			Columns:     columnsByTable[tableID],
			Constraints: constraintsByTable[tableID],
		}
		c.tables[tableID] = def
		c.trees[tableID] = btree.NewTree(c.pool, tableID, def)
	}
	return nil
}

// systemDatabaseID is the sentinel databaseID under which the four
// system tables themselves are recorded in sys_tables, distinct from
// any user database id (which start at 1, see nextDBID).
const systemDatabaseID int32 = 0

// selfDescribe records tableID's own schema into sys_tables/sys_columns/
// sys_constraints, the same way CreateTable records a user table's
// schema (spec.md §1: "A system catalog ... is bootstrapped into
// ordinary tables managed by this same engine"). Called once per system
// table, only on the very first boot.
func (c *Catalog) selfDescribe(ctx context.Context, tableID int32, def *record.TableDefinition) error {
	if err := c.sysTables.Insert(ctx, tableRow(tableID, systemDatabaseID, def.Name)); err != nil {
		return err
	}
	for _, col := range def.Columns {
		if err := c.sysColumns.Insert(ctx, columnRow(tableID, col)); err != nil {
			return err
		}
	}
	for i, con := range def.Constraints {
		if err := c.sysConstraints.Insert(ctx, constraintRow(tableID, i, con)); err != nil {
			return err
		}
	}
	return nil
}

func (c *Catalog) ensurePage0(ctx context.Context, tableID int32) error {
	length, err := c.dm.FileLength(tableID)
	if err != nil {
		return err
	}
	if length > 0 {
		return nil
	}
	f, err := c.pool.NewPage(ctx, tableID)
	if err != nil {
		return err
	}
	page.Initialize(f.Page(), page.Leaf)
	c.pool.Unpin(f.ID(), true)
	return nil
}

func scanAll(ctx context.Context, t *btree.Tree) ([]record.Record, error) {
	cur, err := t.Scan(ctx, nil, nil, false, false)
	if err != nil {
		return nil, err
	}
	var out []record.Record
	for {
		r, ok, err := cur.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, r)
	}
}

// CreateDatabase allocates the next database id and records it in
// sys_databases.
func (c *Catalog) CreateDatabase(ctx context.Context, name string) (int32, error) {
	c.mu.Lock()
	if _, ok := c.databaseIDs.Get(strings.ToLower(name)); ok {
		c.mu.Unlock()
		return 0, dberr.Validation("database %q already exists", name)
	}
	id := c.nextDBID
	c.nextDBID++
	c.mu.Unlock()

	if err := c.sysDatabases.Insert(ctx, databaseRow(id, name)); err != nil {
		return 0, err
	}
	c.mu.Lock()
	c.databaseIDs.Insert(strings.ToLower(name), id)
	c.mu.Unlock()
	return id, nil
}

// CreateTable allocates a table id, initializes its file's page 0 as an
// empty leaf, and records its definition across sys_tables, sys_columns
// and sys_constraints.
func (c *Catalog) CreateTable(ctx context.Context, databaseID int32, def *record.TableDefinition) (int32, error) {
	c.mu.Lock()
	if _, ok := c.tableIDs.Get(tableKey(databaseID, def.Name)); ok {
		c.mu.Unlock()
		return 0, dberr.Validation("table %q already exists", def.Name)
	}
	tableID := c.nextTableID
	c.nextTableID++
	c.mu.Unlock()

	if err := c.ensurePage0(ctx, tableID); err != nil {
		return 0, err
	}
	if err := c.sysTables.Insert(ctx, tableRow(tableID, databaseID, def.Name)); err != nil {
		return 0, err
	}
	for _, col := range def.Columns {
		if err := c.sysColumns.Insert(ctx, columnRow(tableID, col)); err != nil {
			return 0, err
		}
	}
	for i, con := range def.Constraints {
		if err := c.sysConstraints.Insert(ctx, constraintRow(tableID, i, con)); err != nil {
			return 0, err
		}
	}

	c.mu.Lock()
	c.tableIDs.Insert(tableKey(databaseID, def.Name), tableID)
	c.tables[tableID] = def
	c.trees[tableID] = btree.NewTree(c.pool, tableID, def)
	c.mu.Unlock()
	return tableID, nil
}

// DatabaseIDByName resolves a database name case-insensitively.
func (c *Catalog) DatabaseIDByName(name string) (int32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.databaseIDs.Get(strings.ToLower(name))
	if !ok {
		return 0, false
	}
	return v.(int32), true
}

// TableIDByName resolves a table name within a database, case-insensitively.
func (c *Catalog) TableIDByName(databaseID int32, name string) (int32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.tableIDs.Get(tableKey(databaseID, name))
	if !ok {
		return 0, false
	}
	return v.(int32), true
}

// TableDefinition returns the cached schema for tableID.
func (c *Catalog) TableDefinition(tableID int32) (*record.TableDefinition, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	def, ok := c.tables[tableID]
	return def, ok
}

// Tree returns the B+Tree handle for tableID.
func (c *Catalog) Tree(tableID int32) (*btree.Tree, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.trees[tableID]
	return t, ok
}

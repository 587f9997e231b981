package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"cix/internal/symbols"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// chunkSize bounds the number of bind variables per IN list.
const chunkSize = 400

const symbolColumns = `id, name, type, qualified_name, file_path, line_start, line_end,
	domain, layer, category, content, metadata, language, sources`

// SymbolRepository provides access to the symbols table
type SymbolRepository struct {
	db *DB
}

// NewSymbolRepository creates a new symbol repository
func NewSymbolRepository(db *DB) *SymbolRepository {
	return &SymbolRepository{db: db}
}

// UpsertTx inserts or updates symbols by id and returns how many rows
// actually changed. Rewriting an identical record counts as no change.
func (r *SymbolRepository) UpsertTx(ctx context.Context, tx *sql.Tx, syms []symbols.Symbol) (int, error) {
	if len(syms) == 0 {
		return 0, nil
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO symbols (`+symbolColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			type = excluded.type,
			qualified_name = excluded.qualified_name,
			file_path = excluded.file_path,
			line_start = excluded.line_start,
			line_end = excluded.line_end,
			domain = excluded.domain,
			layer = excluded.layer,
			category = excluded.category,
			content = excluded.content,
			metadata = excluded.metadata,
			language = excluded.language,
			sources = excluded.sources
		WHERE name IS NOT excluded.name
			OR type IS NOT excluded.type
			OR qualified_name IS NOT excluded.qualified_name
			OR file_path IS NOT excluded.file_path
			OR line_start IS NOT excluded.line_start
			OR line_end IS NOT excluded.line_end
			OR domain IS NOT excluded.domain
			OR layer IS NOT excluded.layer
			OR category IS NOT excluded.category
			OR content IS NOT excluded.content
			OR metadata IS NOT excluded.metadata
			OR language IS NOT excluded.language
			OR sources IS NOT excluded.sources
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare symbol upsert: %w", err)
	}
	defer stmt.Close()

	changed := 0
	for i := range syms {
		args, err := symbolArgs(&syms[i])
		if err != nil {
			return changed, err
		}
		res, err := stmt.ExecContext(ctx, args...)
		if err != nil {
			return changed, fmt.Errorf("failed to upsert symbol %s: %w", syms[i].ID, err)
		}
		n, _ := res.RowsAffected()
		changed += int(n)
	}
	return changed, nil
}

// DeleteTx removes symbols and every edge whose source or target is one of
// them. Returns the number of symbols removed.
func (r *SymbolRepository) DeleteTx(ctx context.Context, tx *sql.Tx, ids []string) (int, error) {
	deleted := 0
	err := forChunks(ids, func(chunk []string) error {
		in, args := inList(chunk)
		for _, table := range EdgeTables {
			q := fmt.Sprintf("DELETE FROM %s WHERE source_id IN (%s) OR target_id IN (%s)", table, in, in)
			if _, err := tx.ExecContext(ctx, q, append(args, args...)...); err != nil {
				return fmt.Errorf("failed to delete edges of removed symbols: %w", err)
			}
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM symbols WHERE id IN ("+in+")", args...)
		if err != nil {
			return fmt.Errorf("failed to delete symbols: %w", err)
		}
		n, _ := res.RowsAffected()
		deleted += int(n)
		return nil
	})
	return deleted, err
}

// IDsForFile returns the ids of every symbol stored for path.
func (r *SymbolRepository) IDsForFile(ctx context.Context, q querier, path string) ([]string, error) {
	if q == nil {
		q = r.db.conn
	}
	rows, err := q.QueryContext(ctx, "SELECT id FROM symbols WHERE file_path = ? ORDER BY id", path)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Get retrieves a symbol by id. Returns nil, nil when absent.
func (r *SymbolRepository) Get(ctx context.Context, id string) (*symbols.Symbol, error) {
	row := r.db.conn.QueryRowContext(ctx, "SELECT "+symbolColumns+" FROM symbols WHERE id = ?", id)
	s, err := scanSymbol(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, classify(fmt.Errorf("failed to get symbol: %w", err))
	}
	return s, nil
}

// GetMany loads the symbols with the given ids, keyed by id. Missing ids
// are simply absent from the map.
func (r *SymbolRepository) GetMany(ctx context.Context, ids []string) (map[string]*symbols.Symbol, error) {
	out := make(map[string]*symbols.Symbol, len(ids))
	err := forChunks(ids, func(chunk []string) error {
		in, args := inList(chunk)
		found, err := r.query(ctx, "SELECT "+symbolColumns+" FROM symbols WHERE id IN ("+in+")", args...)
		if err != nil {
			return err
		}
		for i := range found {
			out[found[i].ID] = &found[i]
		}
		return nil
	})
	return out, err
}

// SymbolFilter narrows List.
type SymbolFilter struct {
	Types    []symbols.SymbolType
	Layer    symbols.Layer
	Domain   symbols.Domain
	Category string
	FilePath string
	// ExcludeFiles hides the File bookkeeping symbols.
	ExcludeFiles bool
	Limit        int
	Offset       int
}

func (f SymbolFilter) where() (string, []any) {
	var (
		conds []string
		args  []any
	)
	if len(f.Types) > 0 {
		ph := make([]string, len(f.Types))
		for i, t := range f.Types {
			ph[i] = "?"
			args = append(args, string(t))
		}
		conds = append(conds, "type IN ("+strings.Join(ph, ", ")+")")
	}
	if f.Layer != "" {
		conds = append(conds, "layer = ?")
		args = append(args, string(f.Layer))
	}
	if f.Domain != "" {
		conds = append(conds, "domain = ?")
		args = append(args, string(f.Domain))
	}
	if f.Category != "" {
		conds = append(conds, "category = ?")
		args = append(args, f.Category)
	}
	if f.FilePath != "" {
		conds = append(conds, "file_path = ?")
		args = append(args, f.FilePath)
	}
	if f.ExcludeFiles {
		conds = append(conds, "type != ?")
		args = append(args, string(symbols.TypeFile))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// List returns one page of symbols matching f, ordered by file and line,
// and the total number of matches.
func (r *SymbolRepository) List(ctx context.Context, f SymbolFilter) ([]symbols.Symbol, int, error) {
	where, args := f.where()

	var total int
	if err := r.db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM symbols"+where, args...).Scan(&total); err != nil {
		return nil, 0, classify(fmt.Errorf("failed to count symbols: %w", err))
	}

	limit := f.Limit
	if limit <= 0 {
		limit = -1
	}
	q := "SELECT " + symbolColumns + " FROM symbols" + where +
		" ORDER BY file_path, line_start, id LIMIT ? OFFSET ?"
	syms, err := r.query(ctx, q, append(args, limit, f.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	return syms, total, nil
}

// ByName returns symbols whose name equals name exactly.
func (r *SymbolRepository) ByName(ctx context.Context, name string, limit int) ([]symbols.Symbol, error) {
	return r.query(ctx, "SELECT "+symbolColumns+" FROM symbols WHERE name = ? ORDER BY id LIMIT ?", name, limitOrAll(limit))
}

// ByPrefix returns symbols whose name starts with prefix, excluding exact matches.
func (r *SymbolRepository) ByPrefix(ctx context.Context, prefix string, limit int) ([]symbols.Symbol, error) {
	return r.query(ctx, "SELECT "+symbolColumns+` FROM symbols
		WHERE name LIKE ? ESCAPE '\' AND name != ?
		ORDER BY length(name), id LIMIT ?`,
		escapeLike(prefix)+"%", prefix, limitOrAll(limit))
}

// ByQualified returns symbols whose qualified name contains q, excluding
// those whose name equals q.
func (r *SymbolRepository) ByQualified(ctx context.Context, q string, limit int) ([]symbols.Symbol, error) {
	return r.query(ctx, "SELECT "+symbolColumns+` FROM symbols
		WHERE qualified_name LIKE ? ESCAPE '\' AND name != ?
		ORDER BY qualified_name != ?, length(qualified_name), id LIMIT ?`,
		"%"+escapeLike(q)+"%", q, q, limitOrAll(limit))
}

// Resolve returns non-File symbols whose name or qualified name equals name.
func (r *SymbolRepository) Resolve(ctx context.Context, name string, limit int) ([]symbols.Symbol, error) {
	return r.query(ctx, "SELECT "+symbolColumns+` FROM symbols
		WHERE (name = ? OR qualified_name = ?) AND type != ?
		ORDER BY id LIMIT ?`,
		name, name, string(symbols.TypeFile), limitOrAll(limit))
}

// ForEach visits every symbol in id order.
func (r *SymbolRepository) ForEach(ctx context.Context, fn func(*symbols.Symbol) error) error {
	rows, err := r.db.conn.QueryContext(ctx, "SELECT "+symbolColumns+" FROM symbols ORDER BY id")
	if err != nil {
		return classify(err)
	}
	defer rows.Close()
	for rows.Next() {
		s, err := scanSymbol(rows)
		if err != nil {
			return err
		}
		if err := fn(s); err != nil {
			return err
		}
	}
	return rows.Err()
}

// SymbolCounts aggregates the symbols table. File symbols are counted only
// in FileSymbols.
type SymbolCounts struct {
	Total       int
	FileSymbols int
	ByDomain    map[symbols.Domain]int
	ByType      map[symbols.SymbolType]int
	ByLayer     map[symbols.Layer]int
	Files       int
}

// Counts aggregates symbol totals by domain, type and layer.
func (r *SymbolRepository) Counts(ctx context.Context) (*SymbolCounts, error) {
	c := &SymbolCounts{
		ByDomain: make(map[symbols.Domain]int),
		ByType:   make(map[symbols.SymbolType]int),
		ByLayer:  make(map[symbols.Layer]int),
	}
	rows, err := r.db.conn.QueryContext(ctx,
		"SELECT type, domain, layer, COUNT(*) FROM symbols GROUP BY type, domain, layer")
	if err != nil {
		return nil, classify(fmt.Errorf("failed to count symbols: %w", err))
	}
	defer rows.Close()

	for rows.Next() {
		var (
			typ, domain, layer string
			n                  int
		)
		if err := rows.Scan(&typ, &domain, &layer, &n); err != nil {
			return nil, err
		}
		if symbols.SymbolType(typ) == symbols.TypeFile {
			c.FileSymbols += n
			continue
		}
		c.Total += n
		c.ByType[symbols.SymbolType(typ)] += n
		c.ByDomain[symbols.Domain(domain)] += n
		c.ByLayer[symbols.Layer(layer)] += n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.db.conn.QueryRowContext(ctx, "SELECT COUNT(DISTINCT file_path) FROM symbols").Scan(&c.Files); err != nil {
		return nil, classify(err)
	}
	return c, nil
}

// CategoryCount is the number of symbols in a category with a per-layer breakdown.
type CategoryCount struct {
	Category string                `json:"category"`
	Count    int                   `json:"count"`
	Layers   map[symbols.Layer]int `json:"layers"`
}

// Categories counts non-File symbols per category, largest first.
func (r *SymbolRepository) Categories(ctx context.Context) ([]CategoryCount, error) {
	rows, err := r.db.conn.QueryContext(ctx, `
		SELECT category, layer, COUNT(*) FROM symbols
		WHERE type != ?
		GROUP BY category, layer
	`, string(symbols.TypeFile))
	if err != nil {
		return nil, classify(fmt.Errorf("failed to count categories: %w", err))
	}
	defer rows.Close()

	byName := make(map[string]*CategoryCount)
	var order []string
	for rows.Next() {
		var (
			category, layer string
			n               int
		)
		if err := rows.Scan(&category, &layer, &n); err != nil {
			return nil, err
		}
		cc, ok := byName[category]
		if !ok {
			cc = &CategoryCount{Category: category, Layers: make(map[symbols.Layer]int)}
			byName[category] = cc
			order = append(order, category)
		}
		cc.Count += n
		cc.Layers[symbols.Layer(layer)] += n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]CategoryCount, 0, len(order))
	for _, name := range order {
		out = append(out, *byName[name])
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Category < out[j].Category
	})
	return out, nil
}

func (r *SymbolRepository) query(ctx context.Context, q string, args ...any) ([]symbols.Symbol, error) {
	rows, err := r.db.conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, classify(fmt.Errorf("symbol query failed: %w", err))
	}
	defer rows.Close()

	var out []symbols.Symbol
	for rows.Next() {
		s, err := scanSymbol(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSymbol(row rowScanner) (*symbols.Symbol, error) {
	var (
		s                   symbols.Symbol
		typ, domain, layer  string
		lineStart, lineEnd  sql.NullInt64
		content             sql.NullString
		metadata, sourceRaw sql.NullString
	)
	err := row.Scan(&s.ID, &s.Name, &typ, &s.QualifiedName, &s.FilePath, &lineStart, &lineEnd,
		&domain, &layer, &s.Category, &content, &metadata, &s.Language, &sourceRaw)
	if err != nil {
		return nil, err
	}
	s.Type = symbols.SymbolType(typ)
	s.Domain = symbols.Domain(domain)
	s.Layer = symbols.Layer(layer)
	if lineStart.Valid {
		s.LineStart = symbols.Ptr(int(lineStart.Int64))
	}
	if lineEnd.Valid {
		s.LineEnd = symbols.Ptr(int(lineEnd.Int64))
	}
	if content.Valid {
		s.Content = symbols.Ptr(content.String)
	}
	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &s.Metadata); err != nil {
			return nil, fmt.Errorf("corrupt metadata for %s: %w", s.ID, err)
		}
	}
	if sourceRaw.Valid && sourceRaw.String != "" {
		if err := json.Unmarshal([]byte(sourceRaw.String), &s.Sources); err != nil {
			return nil, fmt.Errorf("corrupt sources for %s: %w", s.ID, err)
		}
	}
	return &s, nil
}

func symbolArgs(s *symbols.Symbol) ([]any, error) {
	var metadata, sources any
	if len(s.Metadata) > 0 {
		b, err := json.Marshal(s.Metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to encode metadata for %s: %w", s.ID, err)
		}
		metadata = string(b)
	}
	if len(s.Sources) > 0 {
		b, err := json.Marshal(s.Sources)
		if err != nil {
			return nil, fmt.Errorf("failed to encode sources for %s: %w", s.ID, err)
		}
		sources = string(b)
	}
	return []any{
		s.ID, s.Name, string(s.Type), s.QualifiedName, s.FilePath,
		intPtr(s.LineStart), intPtr(s.LineEnd),
		string(s.Domain), string(s.Layer), s.Category,
		stringPtr(s.Content), metadata, s.Language, sources,
	}, nil
}

// StoredEdge is an edge together with the file that owns it.
type StoredEdge struct {
	symbols.Edge
	OwnerFile string `json:"owner_file"`
}

// EdgeRepository provides access to the partitioned edge tables
type EdgeRepository struct {
	db *DB
}

// NewEdgeRepository creates a new edge repository
func NewEdgeRepository(db *DB) *EdgeRepository {
	return &EdgeRepository{db: db}
}

// EdgeWrite reports what ReplaceFileTx did.
type EdgeWrite struct {
	Written int
	Removed int
	// MappingChanged is set when the file's MapsTo edges differ from before.
	MappingChanged bool
}

// ReplaceFileTx swaps every edge owned by file for edges.
func (r *EdgeRepository) ReplaceFileTx(ctx context.Context, tx *sql.Tx, file string, edges []symbols.Edge) (*EdgeWrite, error) {
	before, err := mappingKeys(ctx, tx, "owner_file = ?", file)
	if err != nil {
		return nil, err
	}

	w := &EdgeWrite{}
	for _, table := range EdgeTables {
		res, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE owner_file = ?", file)
		if err != nil {
			return nil, fmt.Errorf("failed to clear edges of %s: %w", file, err)
		}
		n, _ := res.RowsAffected()
		w.Removed += int(n)
	}

	n, err := insertEdges(ctx, tx, file, edges)
	if err != nil {
		return nil, err
	}
	w.Written = n

	after := make(map[string]bool)
	for _, e := range edges {
		if e.RefType == symbols.RefMapsTo {
			after[e.Key()] = true
		}
	}
	w.MappingChanged = !sameKeys(before, after)
	return w, nil
}

// InsertTx adds edges owned by file, ignoring duplicates.
func (r *EdgeRepository) InsertTx(ctx context.Context, tx *sql.Tx, file string, edges []symbols.Edge) (int, error) {
	return insertEdges(ctx, tx, file, edges)
}

func insertEdges(ctx context.Context, tx *sql.Tx, file string, edges []symbols.Edge) (int, error) {
	stmts := make(map[string]*sql.Stmt)
	defer func() {
		for _, s := range stmts {
			s.Close()
		}
	}()

	written := 0
	for _, e := range edges {
		table := edgeTable(e.RefType.Partition())
		stmt, ok := stmts[table]
		if !ok {
			var err error
			stmt, err = tx.PrepareContext(ctx, `
				INSERT OR IGNORE INTO `+table+`
					(source_id, target_id, target_name, ref_type, confidence, owner_file, line)
				VALUES (?, ?, ?, ?, ?, ?, ?)
			`)
			if err != nil {
				return written, fmt.Errorf("failed to prepare edge insert: %w", err)
			}
			stmts[table] = stmt
		}
		var conf any
		if e.Confidence != nil {
			conf = string(*e.Confidence)
		}
		res, err := stmt.ExecContext(ctx, e.SourceID, e.TargetID, symbols.TargetName(e.TargetID),
			string(e.RefType), conf, file, e.Line)
		if err != nil {
			return written, fmt.Errorf("failed to insert edge %s -> %s: %w", e.SourceID, e.TargetID, err)
		}
		n, _ := res.RowsAffected()
		written += int(n)
	}
	return written, nil
}

// DeleteFileTx removes every edge owned by file.
func (r *EdgeRepository) DeleteFileTx(ctx context.Context, tx *sql.Tx, file string) (*EdgeWrite, error) {
	before, err := mappingKeys(ctx, tx, "owner_file = ?", file)
	if err != nil {
		return nil, err
	}
	w := &EdgeWrite{MappingChanged: len(before) > 0}
	for _, table := range EdgeTables {
		res, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE owner_file = ?", file)
		if err != nil {
			return nil, fmt.Errorf("failed to delete edges of %s: %w", file, err)
		}
		n, _ := res.RowsAffected()
		w.Removed += int(n)
	}
	return w, nil
}

// RetargetTx points edges aimed at an old id to its replacement. Edges
// that would duplicate an existing one are dropped.
func (r *EdgeRepository) RetargetTx(ctx context.Context, tx *sql.Tx, moved map[string]string) (int, error) {
	total := 0
	for oldID, newID := range moved {
		for _, table := range EdgeTables {
			res, err := tx.ExecContext(ctx,
				"UPDATE OR IGNORE "+table+" SET target_id = ?, target_name = ? WHERE target_id = ?",
				newID, symbols.TargetName(newID), oldID)
			if err != nil {
				return total, fmt.Errorf("failed to retarget edges: %w", err)
			}
			n, _ := res.RowsAffected()
			total += int(n)
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE target_id = ?", oldID); err != nil {
				return total, fmt.Errorf("failed to drop duplicate edges: %w", err)
			}
		}
	}
	return total, nil
}

// From returns edges leaving any of ids, optionally limited to refs.
func (r *EdgeRepository) From(ctx context.Context, ids []string, refs []symbols.RefType) ([]StoredEdge, error) {
	return r.byColumn(ctx, "source_id", ids, refs)
}

// To returns edges arriving at any of targets, optionally limited to refs.
// Callers pass placeholder ids alongside real ids to include name matches.
func (r *EdgeRepository) To(ctx context.Context, targets []string, refs []symbols.RefType) ([]StoredEdge, error) {
	return r.byColumn(ctx, "target_id", targets, refs)
}

func (r *EdgeRepository) byColumn(ctx context.Context, column string, values []string, refs []symbols.RefType) ([]StoredEdge, error) {
	var out []StoredEdge
	err := forChunks(values, func(chunk []string) error {
		in, args := inList(chunk)
		q := "SELECT source_id, target_id, ref_type, confidence, owner_file, line FROM edges_all WHERE " +
			column + " IN (" + in + ")"
		if len(refs) > 0 {
			rin, rargs := inList(refTypeStrings(refs))
			q += " AND ref_type IN (" + rin + ")"
			args = append(args, rargs...)
		}
		q += " ORDER BY source_id, ref_type, target_id"
		edges, err := r.query(ctx, q, args...)
		if err != nil {
			return err
		}
		out = append(out, edges...)
		return nil
	})
	return out, err
}

// All returns every edge, optionally limited to refs, in key order.
func (r *EdgeRepository) All(ctx context.Context, refs []symbols.RefType) ([]StoredEdge, error) {
	q := "SELECT source_id, target_id, ref_type, confidence, owner_file, line FROM edges_all"
	var args []any
	if len(refs) > 0 {
		var in string
		in, args = inList(refTypeStrings(refs))
		q += " WHERE ref_type IN (" + in + ")"
	}
	q += " ORDER BY source_id, ref_type, target_id"
	return r.query(ctx, q, args...)
}

// Degree returns the incoming and outgoing edge counts of a symbol.
// Incoming counts include placeholder edges naming the symbol.
func (r *EdgeRepository) Degree(ctx context.Context, s *symbols.Symbol) (in, out int, err error) {
	err = r.db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM edges_all WHERE source_id = ?", s.ID).Scan(&out)
	if err != nil {
		return 0, 0, classify(err)
	}
	err = r.db.conn.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM edges_all
		WHERE target_id = ? OR target_id = ? OR target_id = ?
	`, s.ID, symbols.PlaceholderID(s.Name), symbols.PlaceholderID(s.QualifiedName)).Scan(&in)
	if err != nil {
		return 0, 0, classify(err)
	}
	return in, out, nil
}

// HotspotFilter narrows DegreeCounts.
type HotspotFilter struct {
	Layer symbols.Layer
	Type  symbols.SymbolType
	Limit int
}

// Hotspot is a symbol with its edge degrees.
type Hotspot struct {
	Symbol   symbols.Symbol
	InCount  int
	OutCount int
}

// DegreeCounts ranks non-File symbols by in+out degree in a single
// aggregate query. Placeholder targets count toward every symbol whose name
// or qualified name they carry.
func (r *EdgeRepository) DegreeCounts(ctx context.Context, f HotspotFilter) ([]Hotspot, error) {
	conds := []string{"s.type != ?"}
	args := []any{string(symbols.TypeFile)}
	if f.Layer != "" {
		conds = append(conds, "s.layer = ?")
		args = append(args, string(f.Layer))
	}
	if f.Type != "" {
		conds = append(conds, "s.type = ?")
		args = append(args, string(f.Type))
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	args = append(args, limit)

	prefixed := make([]string, 0, 14)
	for _, c := range strings.Split(symbolColumns, ",") {
		prefixed = append(prefixed, "s."+strings.TrimSpace(c))
	}

	q := `
		WITH outc AS (
			SELECT source_id AS id, COUNT(*) AS n FROM edges_all GROUP BY source_id
		),
		inc AS (
			SELECT id, SUM(n) AS n FROM (
				SELECT target_id AS id, COUNT(*) AS n FROM edges_all
				WHERE substr(target_id, 1, 3) != '?::'
				GROUP BY target_id
				UNION ALL
				SELECT s.id, COUNT(*) FROM edges_all e
				JOIN symbols s ON e.target_name = s.name
				WHERE substr(e.target_id, 1, 3) = '?::'
				GROUP BY s.id
				UNION ALL
				SELECT s.id, COUNT(*) FROM edges_all e
				JOIN symbols s ON e.target_name = s.qualified_name AND s.qualified_name != s.name
				WHERE substr(e.target_id, 1, 3) = '?::'
				GROUP BY s.id
			) GROUP BY id
		)
		SELECT ` + strings.Join(prefixed, ", ") + `,
			COALESCE(inc.n, 0) AS in_count, COALESCE(outc.n, 0) AS out_count
		FROM symbols s
		LEFT JOIN inc ON inc.id = s.id
		LEFT JOIN outc ON outc.id = s.id
		WHERE ` + strings.Join(conds, " AND ") + `
			AND COALESCE(inc.n, 0) + COALESCE(outc.n, 0) > 0
		ORDER BY in_count + out_count DESC, s.id
		LIMIT ?`

	rows, err := r.db.conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, classify(fmt.Errorf("hotspot query failed: %w", err))
	}
	defer rows.Close()

	var out []Hotspot
	for rows.Next() {
		var h Hotspot
		s, err := scanSymbol(hotspotScanner{rows: rows, in: &h.InCount, out: &h.OutCount})
		if err != nil {
			return nil, err
		}
		h.Symbol = *s
		out = append(out, h)
	}
	return out, rows.Err()
}

// hotspotScanner appends the two degree columns to a symbol scan.
type hotspotScanner struct {
	rows    *sql.Rows
	in, out *int
}

func (h hotspotScanner) Scan(dest ...any) error {
	return h.rows.Scan(append(dest, h.in, h.out)...)
}

// CountByRef counts edges per ref type.
func (r *EdgeRepository) CountByRef(ctx context.Context) (map[symbols.RefType]int, error) {
	rows, err := r.db.conn.QueryContext(ctx, "SELECT ref_type, COUNT(*) FROM edges_all GROUP BY ref_type")
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	out := make(map[symbols.RefType]int)
	for rows.Next() {
		var (
			ref string
			n   int
		)
		if err := rows.Scan(&ref, &n); err != nil {
			return nil, err
		}
		out[symbols.RefType(ref)] = n
	}
	return out, rows.Err()
}

func (r *EdgeRepository) query(ctx context.Context, q string, args ...any) ([]StoredEdge, error) {
	rows, err := r.db.conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, classify(fmt.Errorf("edge query failed: %w", err))
	}
	defer rows.Close()

	var out []StoredEdge
	for rows.Next() {
		var (
			e        StoredEdge
			ref      string
			conf     sql.NullString
			lineNull sql.NullInt64
		)
		if err := rows.Scan(&e.SourceID, &e.TargetID, &ref, &conf, &e.OwnerFile, &lineNull); err != nil {
			return nil, err
		}
		e.RefType = symbols.RefType(ref)
		if conf.Valid {
			c := symbols.Confidence(conf.String)
			e.Confidence = &c
		}
		e.Line = int(lineNull.Int64)
		out = append(out, e)
	}
	return out, rows.Err()
}

func mappingKeys(ctx context.Context, q querier, where string, args ...any) (map[string]bool, error) {
	table := edgeTable(symbols.PartitionMapping)
	rows, err := q.QueryContext(ctx,
		"SELECT source_id, target_id FROM "+table+" WHERE ref_type = ? AND "+where,
		append([]any{string(symbols.RefMapsTo)}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to read mapping edges: %w", err)
	}
	defer rows.Close()

	keys := make(map[string]bool)
	for rows.Next() {
		var src, dst string
		if err := rows.Scan(&src, &dst); err != nil {
			return nil, err
		}
		keys[symbols.Edge{SourceID: src, TargetID: dst, RefType: symbols.RefMapsTo}.Key()] = true
	}
	return keys, rows.Err()
}

func sameKeys(a, b map[string]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

func refTypeStrings(refs []symbols.RefType) []string {
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = string(r)
	}
	return out
}

func forChunks(values []string, fn func([]string) error) error {
	for start := 0; start < len(values); start += chunkSize {
		end := min(start+chunkSize, len(values))
		if err := fn(values[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func inList(values []string) (string, []any) {
	ph := make([]string, len(values))
	args := make([]any, len(values))
	for i, v := range values {
		ph[i] = "?"
		args[i] = v
	}
	return strings.Join(ph, ", "), args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func limitOrAll(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}

func intPtr(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func stringPtr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

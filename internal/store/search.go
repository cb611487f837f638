package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rcliao/nodemind/internal/model"
)

// SearchParams holds parameters for searching nodes.
type SearchParams struct {
	Query string
	Tag   string
	Limit int
}

// SearchResult wraps a node with the first chunk that matched.
type SearchResult struct {
	model.Node
	MatchChunk *model.Chunk `json:"match_chunk,omitempty"`
}

// SearchNodes finds nodes whose title, content or chunks contain the query substring.
func (s *SQLiteStore) SearchNodes(ctx context.Context, p SearchParams) ([]SearchResult, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}
	query := likeContains(p.Query)

	where := `(n.title LIKE ? ESCAPE '\' OR n.content LIKE ? ESCAPE '\' OR c.text LIKE ? ESCAPE '\')`
	args := []interface{}{query, query, query}
	if p.Tag != "" {
		where += ` AND n.tags LIKE ? ESCAPE '\'`
		args = append(args, tagPattern(p.Tag))
	}
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT n.id, n.title, n.content, n.emoji, n.tags, n.connected_node_ids,
		       n.position_x, n.position_y, n.created_at, n.updated_at, n.is_markdown
		FROM nodes n
		LEFT JOIN node_chunks c ON c.node_id = n.id
		WHERE `+where+`
		ORDER BY n.updated_at DESC
		LIMIT ?`, args...)
	if err != nil {
		return nil, err
	}

	var results []SearchResult
	seen := map[string]bool{}
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		if seen[n.ID] {
			continue
		}
		seen[n.ID] = true
		results = append(results, SearchResult{Node: n})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range results {
		c, err := s.firstMatchingChunk(ctx, results[i].ID, query)
		if err != nil {
			return nil, err
		}
		results[i].MatchChunk = c
	}
	return results, nil
}

func (s *SQLiteStore) firstMatchingChunk(ctx context.Context, nodeID, like string) (*model.Chunk, error) {
	var c model.Chunk
	var start, end sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, node_id, seq, text, start_line, end_line FROM node_chunks
		 WHERE node_id = ? AND text LIKE ? ESCAPE '\' ORDER BY seq LIMIT 1`, nodeID, like).
		Scan(&c.ID, &c.NodeID, &c.Seq, &c.Text, &start, &end)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	c.StartLine = int(start.Int64)
	c.EndLine = int(end.Int64)
	return &c, nil
}

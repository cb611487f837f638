package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rcliao/nodemind/internal/chunker"
	"github.com/rcliao/nodemind/internal/model"
)

const nodeColumns = `id, title, content, emoji, tags, connected_node_ids,
	position_x, position_y, created_at, updated_at, is_markdown`

func (s *SQLiteStore) PutNode(ctx context.Context, n model.Node) error {
	if n.ID == "" {
		return fmt.Errorf("put node: empty id")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO nodes (`+nodeColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.Title, n.Content, n.Emoji, encodeList(n.Tags), encodeList(n.ConnectedNodeIDs),
		n.PositionX, n.PositionY, formatTime(n.CreatedAt), formatTime(n.UpdatedAt), boolInt(n.IsMarkdown))
	if err != nil {
		return fmt.Errorf("insert node: %w", err)
	}

	if err := s.reindexChunks(ctx, tx, n.ID, n.Content); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	s.notify(KindNode, n.ID)
	return nil
}

func (s *SQLiteStore) GetNode(ctx context.Context, id string) (model.Node, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+nodeColumns+` FROM nodes WHERE id = ?`, id)
	n, err := scanNode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return n, fmt.Errorf("node %s: %w", id, ErrNotFound)
	}
	return n, err
}

// ListNodes returns nodes in creation order, which keeps the initial
// circular layout stable across reloads.
func (s *SQLiteStore) ListNodes(ctx context.Context, q NodeQuery) ([]model.Node, error) {
	where := []string{"1 = 1"}
	args := []interface{}{}

	if q.Tag != "" {
		where = append(where, `tags LIKE ? ESCAPE '\'`)
		args = append(args, tagPattern(q.Tag))
	}
	if q.Query != "" {
		where = append(where, `(title LIKE ? ESCAPE '\' OR content LIKE ? ESCAPE '\')`)
		like := likeContains(q.Query)
		args = append(args, like, like)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+nodeColumns+` FROM nodes WHERE `+strings.Join(where, " AND ")+
			` ORDER BY created_at, id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var nodes []model.Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

func (s *SQLiteStore) UpdateNode(ctx context.Context, n model.Node) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE nodes SET title = ?, content = ?, emoji = ?, tags = ?, connected_node_ids = ?,
		        position_x = ?, position_y = ?, updated_at = ?, is_markdown = ?
		 WHERE id = ?`,
		n.Title, n.Content, n.Emoji, encodeList(n.Tags), encodeList(n.ConnectedNodeIDs),
		n.PositionX, n.PositionY, formatTime(n.UpdatedAt), boolInt(n.IsMarkdown), n.ID)
	if err != nil {
		return fmt.Errorf("update node: %w", err)
	}
	if err := checkAffected(res, "node", n.ID); err != nil {
		return err
	}
	if err := s.reindexChunks(ctx, tx, n.ID, n.Content); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	s.notify(KindNode, n.ID)
	return nil
}

func (s *SQLiteStore) UpdateNodePosition(ctx context.Context, id string, x, y float64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE nodes SET position_x = ?, position_y = ? WHERE id = ?`, x, y, id)
	if err != nil {
		return fmt.Errorf("update node position: %w", err)
	}
	if err := checkAffected(res, "node", id); err != nil {
		return err
	}
	s.notify(KindNode, id)
	return nil
}

func (s *SQLiteStore) UpdateConnections(ctx context.Context, updates []ConnectionUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	sorted := make([]ConnectionUpdate, len(updates))
	copy(sorted, updates)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := formatTime(time.Now())
	for _, u := range sorted {
		res, err := tx.ExecContext(ctx,
			`UPDATE nodes SET connected_node_ids = ?, updated_at = ? WHERE id = ?`,
			encodeList(u.ConnectedNodeIDs), now, u.ID)
		if err != nil {
			return fmt.Errorf("update connections: %w", err)
		}
		if err := checkAffected(res, "node", u.ID); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	for _, u := range sorted {
		s.notify(KindNode, u.ID)
	}
	return nil
}

func (s *SQLiteStore) DeleteNode(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM node_chunks WHERE node_id = ?`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM nodes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete node: %w", err)
	}
	if err := checkAffected(res, "node", id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	s.notify(KindNode, id)
	return nil
}

func (s *SQLiteStore) RawNodeTags(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT tags FROM nodes WHERE tags IS NOT NULL`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var raw []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		raw = append(raw, t)
	}
	return raw, rows.Err()
}

// reindexChunks replaces the search chunks of a node.
func (s *SQLiteStore) reindexChunks(ctx context.Context, tx *sql.Tx, nodeID, content string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM node_chunks WHERE node_id = ?`, nodeID); err != nil {
		return fmt.Errorf("clear chunks: %w", err)
	}
	for i, c := range chunker.Split(content, chunker.DefaultOptions()) {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO node_chunks (id, node_id, seq, text, start_line, end_line)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			s.NewID(), nodeID, i, c.Text, c.StartLine, c.EndLine)
		if err != nil {
			return fmt.Errorf("insert chunk: %w", err)
		}
	}
	return nil
}

func scanNode(row scanner) (model.Node, error) {
	var n model.Node
	var tags, connected sql.NullString
	var createdAt, updatedAt string
	var markdown int

	err := row.Scan(
		&n.ID, &n.Title, &n.Content, &n.Emoji, &tags, &connected,
		&n.PositionX, &n.PositionY, &createdAt, &updatedAt, &markdown,
	)
	if err != nil {
		return n, err
	}

	n.Tags = decodeList(tags)
	n.ConnectedNodeIDs = decodeList(connected)
	n.CreatedAt = parseTime(createdAt)
	n.UpdatedAt = parseTime(updatedAt)
	n.IsMarkdown = markdown != 0
	return n, nil
}

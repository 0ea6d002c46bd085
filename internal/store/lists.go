package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/feira/internal/ident"
	"github.com/dukerupert/feira/internal/model"
)

// ListStore persists the whole list collection. It implements the
// repository the shopping service loads from and writes to.
type ListStore struct {
	db  *sql.DB
	gen ident.Generator
}

func NewListStore(db *sql.DB, gen ident.Generator) *ListStore {
	return &ListStore{db: db, gen: gen}
}

// Load returns every list in position order. When the fixed list is
// missing it is created with the default sections and saved.
func (s *ListStore) Load() ([]model.ShoppingList, error) {
	rows, err := s.db.Query(
		`SELECT id, name, sync_disabled, remote_url, created_at, updated_at
		 FROM shopping_lists ORDER BY position, created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("list shopping lists: %w", err)
	}
	defer rows.Close()

	var lists []model.ShoppingList
	index := make(map[string]int)
	hasFixed := false
	for rows.Next() {
		l := model.ShoppingList{Items: []model.ShoppingItem{}}
		if err := rows.Scan(&l.ID, &l.Name, &l.SyncDisabled, &l.RemoteURL, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan shopping list: %w", err)
		}
		if l.IsFixed() {
			hasFixed = true
		}
		index[l.ID] = len(lists)
		lists = append(lists, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	if err := s.loadItems(lists, index); err != nil {
		return nil, err
	}

	if !hasFixed {
		lists = append([]model.ShoppingList{model.NewFixedList(time.Now(), s.gen.Next)}, lists...)
		if err := s.SaveAll(lists); err != nil {
			return nil, fmt.Errorf("seed fixed list: %w", err)
		}
	}
	return lists, nil
}

func (s *ListStore) loadItems(lists []model.ShoppingList, index map[string]int) error {
	rows, err := s.db.Query(
		`SELECT list_id, id, description, quantity, unit, brand, price, note, completed, is_section
		 FROM shopping_items ORDER BY list_id, position`,
	)
	if err != nil {
		return fmt.Errorf("list shopping items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var listID string
		var it model.ShoppingItem
		if err := rows.Scan(&listID, &it.ID, &it.Description, &it.Quantity, &it.Unit, &it.Brand, &it.Price, &it.Note, &it.Completed, &it.IsSection); err != nil {
			return fmt.Errorf("scan shopping item: %w", err)
		}
		i, ok := index[listID]
		if !ok {
			continue
		}
		lists[i].Items = append(lists[i].Items, it)
	}
	return rows.Err()
}

// SaveAll replaces the stored collection with lists in a single transaction.
func (s *ListStore) SaveAll(lists []model.ShoppingList) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM shopping_items`); err != nil {
		return fmt.Errorf("clear shopping items: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM shopping_lists`); err != nil {
		return fmt.Errorf("clear shopping lists: %w", err)
	}

	listStmt, err := tx.Prepare(
		`INSERT INTO shopping_lists (id, name, position, sync_disabled, remote_url, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("prepare list insert: %w", err)
	}
	defer listStmt.Close()

	itemStmt, err := tx.Prepare(
		`INSERT INTO shopping_items (list_id, position, id, description, quantity, unit, brand, price, note, completed, is_section)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("prepare item insert: %w", err)
	}
	defer itemStmt.Close()

	for pos, l := range lists {
		if _, err := listStmt.Exec(l.ID, l.Name, pos, l.SyncDisabled, l.RemoteURL, l.CreatedAt, l.UpdatedAt); err != nil {
			return fmt.Errorf("insert list %q: %w", l.ID, err)
		}
		for i, it := range l.Items {
			if _, err := itemStmt.Exec(l.ID, i, it.ID, it.Description, it.Quantity, it.Unit, it.Brand, it.Price, it.Note, it.Completed, it.IsSection); err != nil {
				return fmt.Errorf("insert item %q: %w", it.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

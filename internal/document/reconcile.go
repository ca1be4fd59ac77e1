package document

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// Collection describes one child table owned by a document header.
type Collection[F any, R any] struct {
	// Name is the request field and the prefix of validation errors.
	Name string
	// OwnerColumn is the foreign key to the header row.
	OwnerColumn string
	// Columns are overwritten on update; "sequence" must be among them.
	Columns []string
	// Build maps submitted fields to a row. id is zero for inserts.
	Build func(ownerID string, id uint, sequence int, fields F) *R
}

// ReconcileResult counts row churn for one collection.
type ReconcileResult struct {
	Collection string
	Deleted    int
	Updated    int
	Inserted   int
}

// Reconcile makes the persisted rows of c owned by ownerID equal entries.
// Rows whose id is not submitted are deleted, submitted persisted ids are
// overwritten in place and everything else is inserted. The submission index
// becomes the row sequence. tx must be the transaction of the whole save.
func Reconcile[F any, R any](ctx context.Context, tx *gorm.DB, c Collection[F, R], ownerID string, entries []Entry[F]) (ReconcileResult, error) {
	result := ReconcileResult{Collection: c.Name}
	tx = tx.WithContext(ctx)

	var persisted []uint
	if err := tx.Model(new(R)).
		Where(c.OwnerColumn+" = ?", ownerID).
		Pluck("id", &persisted).Error; err != nil {
		return result, fmt.Errorf("list %s ids: %w", c.Name, err)
	}

	known := make(map[uint]struct{}, len(persisted))
	for _, id := range persisted {
		known[id] = struct{}{}
	}

	keep := make(map[uint]int, len(entries))
	for i, entry := range entries {
		id, ok := entry.ID()
		if !ok {
			continue
		}
		if _, exists := known[id]; !exists {
			continue
		}
		if prev, dup := keep[id]; dup {
			return result, invalid(fmt.Sprintf("%s[%d].id", c.Name, i), "duplicates %s[%d]", c.Name, prev)
		}
		keep[id] = i
	}

	toDelete := make([]uint, 0, len(persisted))
	for _, id := range persisted {
		if _, ok := keep[id]; !ok {
			toDelete = append(toDelete, id)
		}
	}
	if len(toDelete) > 0 {
		if err := tx.
			Where(c.OwnerColumn+" = ? AND id IN ?", ownerID, toDelete).
			Delete(new(R)).Error; err != nil {
			return result, fmt.Errorf("delete %s rows: %w", c.Name, err)
		}
		result.Deleted = len(toDelete)
	}

	for i, entry := range entries {
		id, _ := entry.ID()
		if idx, ok := keep[id]; ok && idx == i {
			row := c.Build(ownerID, id, i, entry.Fields)
			res := tx.Model(row).
				Select(c.Columns).
				Where(c.OwnerColumn+" = ?", ownerID).
				Updates(row)
			if res.Error != nil {
				return result, fmt.Errorf("update %s row %d: %w", c.Name, id, res.Error)
			}
			if res.RowsAffected == 0 {
				return result, &ConflictError{
					Field:   fmt.Sprintf("%s[%d].id", c.Name, i),
					Message: "row was removed by a concurrent save",
				}
			}
			result.Updated++
			continue
		}

		row := c.Build(ownerID, 0, i, entry.Fields)
		if err := tx.Create(row).Error; err != nil {
			return result, fmt.Errorf("insert %s row: %w", c.Name, err)
		}
		result.Inserted++
	}

	return result, nil
}

// insertAll is the creation path: every entry is new, claimed ids are ignored.
func insertAll[F any, R any](ctx context.Context, tx *gorm.DB, c Collection[F, R], ownerID string, entries []Entry[F]) (ReconcileResult, error) {
	result := ReconcileResult{Collection: c.Name}
	if len(entries) == 0 {
		return result, nil
	}

	rows := make([]*R, 0, len(entries))
	for i, entry := range entries {
		rows = append(rows, c.Build(ownerID, 0, i, entry.Fields))
	}
	if err := tx.WithContext(ctx).Create(rows).Error; err != nil {
		return result, fmt.Errorf("insert %s rows: %w", c.Name, err)
	}
	result.Inserted = len(rows)
	return result, nil
}

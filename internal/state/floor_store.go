package state

import (
	"fmt"

	"github.com/stablemint/rsm/internal/types"
)

// SaveFloorChange persists a change to the minimum funding buy price
func SaveFloorChange(fc *types.FloorChange) error {
	query := `
		INSERT INTO floor_changes (previous_price, new_price, debt_ratio, change_timestamp)
		VALUES ($1, $2, $3, $4)`

	_, err := DB.Exec(query, fc.Previous, fc.New, fc.DebtRatio, fc.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to save floor change: %w", err)
	}
	return nil
}

// GetRecentFloorChanges returns the most recent floor changes, newest first
func GetRecentFloorChanges(limit int) ([]types.FloorChange, error) {
	query := `
		SELECT previous_price, new_price, debt_ratio, change_timestamp
		FROM floor_changes
		ORDER BY change_timestamp DESC
		LIMIT $1`

	rows, err := DB.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query floor changes: %w", err)
	}
	defer rows.Close()

	var changes []types.FloorChange
	for rows.Next() {
		var fc types.FloorChange
		if err := rows.Scan(&fc.Previous, &fc.New, &fc.DebtRatio, &fc.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan floor change row: %w", err)
		}
		changes = append(changes, fc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating floor change rows: %w", err)
	}
	return changes, nil
}

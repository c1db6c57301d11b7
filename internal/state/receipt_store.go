package state

import (
	"database/sql"
	"fmt"

	"github.com/stablemint/rsm/internal/types"
)

// SaveOperationReceipt persists a completed operation receipt
func SaveOperationReceipt(r *types.OperationReceipt) error {
	query := `
		INSERT INTO operation_receipts (
			receipt_id, op_type, actor, amount_in, amount_out,
			oracle_price, debt_ratio_after, floor_price, op_timestamp
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := DB.Exec(query,
		r.ID,
		string(r.Type),
		r.Actor,
		r.AmountIn,
		r.AmountOut,
		r.OraclePrice,
		r.DebtRatioAfter,
		r.FloorPrice,
		r.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to save operation receipt %s: %w", r.ID, err)
	}
	return nil
}

// GetRecentOperations returns the most recent operation receipts, newest first
func GetRecentOperations(limit int) ([]types.OperationReceipt, error) {
	query := `
		SELECT receipt_id, op_type, actor, amount_in, amount_out,
		       oracle_price, debt_ratio_after, floor_price, op_timestamp
		FROM operation_receipts
		ORDER BY op_timestamp DESC
		LIMIT $1`

	rows, err := DB.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent operations: %w", err)
	}
	defer rows.Close()

	var receipts []types.OperationReceipt
	for rows.Next() {
		r, err := scanReceipt(rows)
		if err != nil {
			return nil, err
		}
		receipts = append(receipts, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating operation rows: %w", err)
	}
	return receipts, nil
}

// GetOperationByID fetches a single receipt by its identifier
func GetOperationByID(id string) (*types.OperationReceipt, error) {
	query := `
		SELECT receipt_id, op_type, actor, amount_in, amount_out,
		       oracle_price, debt_ratio_after, floor_price, op_timestamp
		FROM operation_receipts
		WHERE receipt_id = $1`

	row := DB.QueryRow(query, id)

	var r types.OperationReceipt
	var opType string
	err := row.Scan(
		&r.ID, &opType, &r.Actor, &r.AmountIn, &r.AmountOut,
		&r.OraclePrice, &r.DebtRatioAfter, &r.FloorPrice, &r.Timestamp,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch operation %s: %w", id, err)
	}
	r.Type = types.OpType(opType)
	return &r, nil
}

func scanReceipt(rows *sql.Rows) (types.OperationReceipt, error) {
	var r types.OperationReceipt
	var opType string
	err := rows.Scan(
		&r.ID, &opType, &r.Actor, &r.AmountIn, &r.AmountOut,
		&r.OraclePrice, &r.DebtRatioAfter, &r.FloorPrice, &r.Timestamp,
	)
	if err != nil {
		return r, fmt.Errorf("failed to scan operation row: %w", err)
	}
	r.Type = types.OpType(opType)
	return r, nil
}

package fbsql

import "database/sql/driver"

// result of a statement. The service does not report affected rows or
// generated ids, both are always 0.
type result struct {
	affectedRows int64
	insertId     int64
}

var _ driver.Result = (*result)(nil)

func (res *result) LastInsertId() (int64, error) {
	return res.insertId, nil
}

func (res *result) RowsAffected() (int64, error) {
	return res.affectedRows, nil
}

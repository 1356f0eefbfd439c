package rows

import "fmt"

var errRowsNoCursor = "firebolt: instance of Rows missing cursor"
var errRowsNilRows = "firebolt: nil Rows instance"
var errRowsCloseFailed = "firebolt: Rows instance Close operation failed"
var errRowsMetadataFetchFailed = "firebolt: Rows instance failed to describe the result set"
var errRowsColumnCountMismatch = "firebolt: row has %d values, expected %d"

func errRowsInvalidColumnIndex(index int) string {
	return fmt.Sprintf("firebolt: invalid column index: %d", index)
}

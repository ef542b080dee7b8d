package model

// PageMeta 生成游标分页的 meta
func PageMeta(requestID, nextCursor string) map[string]interface{} {
	meta := map[string]interface{}{"compatible_since": "v1"}
	if requestID != "" {
		meta["request_id"] = requestID
	}
	if nextCursor != "" {
		meta["next_cursor"] = nextCursor
	}
	return meta
}

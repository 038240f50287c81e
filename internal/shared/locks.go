package shared

import "fmt"

// ApprovalLockKey builds the redis key guarding concurrent approvals of one group.
func ApprovalLockKey(workflow, key string) string {
	return fmt.Sprintf("dms:approve:%s:%s:lock", workflow, key)
}

package session

import "fmt"

// chatHistoryKey names a key in the support-chat cache family. No command
// writes it yet; the prefix is reserved so logout purges it.
func chatHistoryKey(userID, channel string) string {
	return fmt.Sprintf("%s%s:%s", ChatHistoryPrefix, userID, channel)
}

// SeenBroadcastsKey is the storage key of the broadcast ids a user has
// already been shown. It is separate from server-side read receipts.
func SeenBroadcastsKey(userID string) string {
	return SeenBroadcastsPrefix + userID
}

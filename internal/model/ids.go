package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ConversationID derives the deterministic id for a conversation: the
// 32-hex prefix of SHA-256 over "{source}:{vendor_session_id}". Rerunning
// normalization on the same source data always yields the same id.
func ConversationID(source Source, vendorSessionID string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%s", source, vendorSessionID)))
	return hex.EncodeToString(sum[:])[:32]
}

// MessageID derives the id of the message at messageIndex within
// conversationID.
func MessageID(conversationID string, messageIndex int) string {
	return fmt.Sprintf("%s:%d", conversationID, messageIndex)
}

// ToolCallID derives the id of a tool call attached to messageID.
func ToolCallID(messageID, vendorToolID string) string {
	return fmt.Sprintf("%s:tool:%s", messageID, vendorToolID)
}

// FileEditID derives the deterministic id of a file edit: SHA-256 over
// "{message_id}:edit:{ordinal}:{file_path}". Stable across reruns given the
// same inputs, so re-extracting the same source data never duplicates rows.
func FileEditID(messageID string, ordinal int, filePath string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:edit:%d:%s", messageID, ordinal, filePath)))
	return hex.EncodeToString(sum[:])
}

// MessageFileID derives the deterministic id of a message-level file
// reference: SHA-256 over "{message_id}:file:{file_path}".
func MessageFileID(messageID, filePath string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:file:%s", messageID, filePath)))
	return hex.EncodeToString(sum[:])
}

// ConversationFileID derives the deterministic id of a conversation-level
// file reference: SHA-256 over "{conversation_id}:file:{file_path}".
func ConversationFileID(conversationID, filePath string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:file:%s", conversationID, filePath)))
	return hex.EncodeToString(sum[:])
}

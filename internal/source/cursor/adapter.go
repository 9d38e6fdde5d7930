// Package cursor implements the source.Adapter for Cursor IDE's embedded
// SQLite key-value store, reading composer conversations out of the
// ItemTable without Cursor itself running.
package cursor

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tvergho/dex/internal/dexerr"
	"github.com/tvergho/dex/internal/model"
	"github.com/tvergho/dex/internal/platform"
	"github.com/tvergho/dex/internal/source"
)

// Adapter reads Cursor IDE's global state.vscdb KV store.
type Adapter struct {
	storePath string
}

// New constructs the adapter, resolving the store path eagerly so Detect
// and Discover agree on the same location even if the environment changes
// mid-run.
func New() (*Adapter, error) {
	path, err := platform.CursorStorePath()
	if err != nil {
		return nil, err
	}
	return &Adapter{storePath: path}, nil
}

func (a *Adapter) Source() model.Source { return model.SourceCursor }

// Detect reports whether Cursor's global store file exists.
func (a *Adapter) Detect(ctx context.Context) (bool, error) {
	_, err := os.Stat(a.storePath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Discover returns the single global store location.
func (a *Adapter) Discover(ctx context.Context) ([]source.SourceLocation, error) {
	info, err := os.Stat(a.storePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return []source.SourceLocation{{
		Source:       model.SourceCursor,
		VendorDBPath: a.storePath,
		Mtime:        float64(info.ModTime().Unix()),
	}}, nil
}

// Extract enumerates every ItemTable row whose key matches
// "composerData:%" and decodes its value as JSON. A row that fails to
// decode is skipped; it never aborts extraction of the remaining rows.
func (a *Adapter) Extract(ctx context.Context, loc source.SourceLocation, progress source.ProgressFunc) ([]source.RawConversation, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=ro&immutable=1", loc.VendorDBPath))
	if err != nil {
		return nil, fmt.Errorf("%w: open cursor store: %v", dexerr.ErrStoreIO, err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	rows, err := db.QueryContext(ctx, `SELECT key, value FROM ItemTable WHERE key LIKE 'composerData:%'`)
	if err != nil {
		return nil, fmt.Errorf("%w: query composer data: %v", dexerr.ErrStoreIO, err)
	}
	defer rows.Close()

	var out []source.RawConversation
	var total int
	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			continue // corrupt row, isolated per spec's tolerant-parse contract
		}
		total++
		composerID := strings.TrimPrefix(key, "composerData:")
		cd, err := decodeComposerData(value)
		if err != nil {
			continue
		}
		out = append(out, source.RawConversation{Location: loc, VendorID: composerID, Raw: cd})
		if progress != nil {
			progress(total, 0)
		}
	}
	if err := rows.Err(); err != nil {
		return out, fmt.Errorf("%w: iterate composer data: %v", dexerr.ErrStoreIO, err)
	}
	return out, nil
}

var forceModeToMode = map[string]model.Mode{
	"chat":  model.ModeChat,
	"edit":  model.ModeEdit,
	"agent": model.ModeAgent,
}

// Normalize reassembles one composer's bubble list (inline or
// header-indexed) into dex's canonical schema.
func (a *Adapter) Normalize(raw source.RawConversation) (model.NormalizedConversation, error) {
	cd, ok := raw.Raw.(composerData)
	if !ok {
		return model.NormalizedConversation{}, fmt.Errorf("%w: cursor normalize: unexpected raw type", dexerr.ErrCorruptRecord)
	}

	convID := model.ConversationID(model.SourceCursor, raw.VendorID)
	mode, ok := forceModeToMode[cd.ForceMode]
	if !ok {
		mode = model.ModeAgent
	}

	created := epochMillisToTime(cd.CreatedAt)
	updated := epochMillisToTime(cd.LastUpdatedAt)
	if updated.Before(created) {
		updated = created
	}

	nc := model.NormalizedConversation{
		Conversation: model.Conversation{
			ID:        convID,
			Source:    model.SourceCursor,
			Title:     cd.Name,
			Mode:      mode,
			CreatedAt: created,
			UpdatedAt: updated,
			Ref: model.SourceRef{
				Source:       model.SourceCursor,
				OriginalID:   raw.VendorID,
				VendorDBPath: raw.Location.VendorDBPath,
			},
		},
	}

	bubbles := cd.bubbles()
	seenFiles := make(map[string]bool)
	for i, b := range bubbles {
		msgID := model.MessageID(convID, i)
		role := bubbleRole(b.Type)
		msg := model.Message{
			ID:             msgID,
			ConversationID: convID,
			Role:           role,
			Content:        b.Text,
			MessageIndex:   i,
			Model:          b.ModelType,
			HasTimestamp:   false,
		}
		if b.TokenCount != nil {
			msg.InputTokens = b.TokenCount.InputTokens
			msg.OutputTokens = b.TokenCount.OutputTokens
		}
		nc.Messages = append(nc.Messages, msg)

		for _, chunk := range b.AttachedCodeChunks {
			if chunk.RelativeWorkspacePath == "" {
				continue
			}
			key := msgID + ":" + chunk.RelativeWorkspacePath
			if seenFiles[key] {
				continue
			}
			seenFiles[key] = true
			nc.MessageFiles = append(nc.MessageFiles, model.MessageFile{
				ID:             model.MessageFileID(msgID, chunk.RelativeWorkspacePath),
				MessageID:      msgID,
				ConversationID: convID,
				FilePath:       chunk.RelativeWorkspacePath,
				Role:           model.FileRoleContext,
			})
		}
	}
	nc.Conversation.MessageCount = len(nc.Messages)
	for _, m := range nc.Messages {
		nc.Conversation.InputTokens += m.InputTokens
		nc.Conversation.OutputTokens += m.OutputTokens
	}

	return nc, nil
}

func bubbleRole(bubbleType int) model.Role {
	switch bubbleType {
	case 1:
		return model.RoleUser
	case 2:
		return model.RoleAssistant
	default:
		return model.RoleSystem
	}
}

func epochMillisToTime(ms int64) time.Time {
	if ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

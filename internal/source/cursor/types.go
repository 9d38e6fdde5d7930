package cursor

import "encoding/json"

// composerData is the decoded value of one ItemTable row whose key matches
// "composerData:%". Cursor stores the bubble list two ways: inline
// ("conversation") for older sessions, or header-indexed
// ("fullConversationHeadersOnly" + "conversationMap") for newer ones.
type composerData struct {
	ComposerID                   string           `json:"composerId"`
	Name                         string           `json:"name"`
	CreatedAt                    int64            `json:"createdAt"`     // unix millis
	LastUpdatedAt                int64            `json:"lastUpdatedAt"` // unix millis
	ForceMode                    string           `json:"forceMode"`
	Conversation                 []bubble         `json:"conversation"`
	FullConversationHeadersOnly  []bubbleHeader   `json:"fullConversationHeadersOnly"`
	ConversationMap              map[string]bubble `json:"conversationMap"`
}

type bubbleHeader struct {
	BubbleID string `json:"bubbleId"`
}

// bubble is one turn within a composer conversation.
type bubble struct {
	BubbleID           string      `json:"bubbleId"`
	Type               int         `json:"type"` // 1 = user, 2 = assistant, other = system
	Text               string      `json:"text"`
	ModelType          string      `json:"modelType"`
	TokenCount         *tokenCount `json:"tokenCount"`
	AttachedCodeChunks []codeChunk `json:"attachedCodeChunks"`
}

type tokenCount struct {
	InputTokens  int64 `json:"inputTokens"`
	OutputTokens int64 `json:"outputTokens"`
}

type codeChunk struct {
	RelativeWorkspacePath string `json:"relativeWorkspacePath"`
}

func decodeComposerData(raw []byte) (composerData, error) {
	var cd composerData
	err := json.Unmarshal(raw, &cd)
	return cd, err
}

// bubbles returns the conversation's bubble list in order, reassembling
// the header-indexed shape through conversationMap when the inline shape
// is absent.
func (cd composerData) bubbles() []bubble {
	if len(cd.Conversation) > 0 {
		return cd.Conversation
	}
	if len(cd.FullConversationHeadersOnly) == 0 {
		return nil
	}
	out := make([]bubble, 0, len(cd.FullConversationHeadersOnly))
	for _, h := range cd.FullConversationHeadersOnly {
		if b, ok := cd.ConversationMap[h.BubbleID]; ok {
			out = append(out, b)
		}
	}
	return out
}

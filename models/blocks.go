package models

import "strings"

// Block 代表富文字內容中的一個區塊
// 對應前端編輯器的區塊結構，巢狀區塊放在 Children 中
type Block struct {
	Type     string         `json:"type"`
	Props    map[string]any `json:"props,omitempty"`
	Content  []InlineSpan   `json:"content,omitempty"`
	Children []Block        `json:"children,omitempty"`
}

// InlineSpan 代表區塊內的一段行內文字
type InlineSpan struct {
	Type   string         `json:"type"`
	Text   string         `json:"text"`
	Styles map[string]any `json:"styles,omitempty"`
}

// PlainText 回傳區塊的純文字內容
// 優先取 Props 中的 text，否則串接 Content 中的行內文字
func (b Block) PlainText() string {
	if txt, ok := b.Props["text"].(string); ok && txt != "" {
		return txt
	}
	var sb strings.Builder
	for _, span := range b.Content {
		sb.WriteString(span.Text)
	}
	return strings.TrimSpace(sb.String())
}

// NewTextBlock 建立指定類型的純文字區塊
func NewTextBlock(blockType, text string) Block {
	return Block{
		Type:    blockType,
		Content: []InlineSpan{{Type: "text", Text: text}},
	}
}

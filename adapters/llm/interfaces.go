//go:generate mockgen -package=llm -destination=mock.go -source=interfaces.go

package llm

import "context"

// ILLMClient 定義了與語言模型互動的介面
type ILLMClient interface {
	// GenerateJSON 以 JSON 模式呼叫模型並將結果反序列化到 out
	GenerateJSON(ctx context.Context, req Request, out any) error
}

package redis

import (
	"encoding/base64"
	"errors"
	"fmt"
	"reflect"

	"github.com/vmihailenco/msgpack/v5"
)

var (
	ErrPointerType = errors.New("pointer type is not allowed")
)

// EncodeStreamValues 將工作內容轉換為 stream 訊息的欄位
// 內容以 msgpack 序列化後經 base64 編碼，放在 data 欄位中
func EncodeStreamValues[T any](payload T) (map[string]any, error) {
	// 檢查是否為指標類型
	if reflect.TypeOf(payload).Kind() == reflect.Ptr {
		return nil, ErrPointerType
	}

	// 使用 msgpack 序列化
	bytes, err := msgpack.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("msgpack marshal error: %w", err)
	}

	// base64 編碼後封裝成欄位
	return map[string]any{
		"data": base64.StdEncoding.EncodeToString(bytes),
	}, nil
}

// DecodeStreamValues 將 stream 訊息的欄位還原為工作內容
func DecodeStreamValues[T any](values map[string]any) (T, error) {
	var result T

	// 檢查是否為指標類型
	if reflect.TypeOf(result).Kind() == reflect.Ptr {
		return result, ErrPointerType
	}

	if len(values) == 0 {
		return result, nil
	}

	// 獲取 data 欄位
	dataStr, ok := values["data"].(string)
	if !ok {
		return result, fmt.Errorf("data field not found or invalid type")
	}

	// base64 解碼
	bytes, err := base64.StdEncoding.DecodeString(dataStr)
	if err != nil {
		return result, fmt.Errorf("base64 decode error: %w", err)
	}

	// msgpack 反序列化
	if err := msgpack.Unmarshal(bytes, &result); err != nil {
		return result, fmt.Errorf("msgpack unmarshal error: %w", err)
	}

	return result, nil
}

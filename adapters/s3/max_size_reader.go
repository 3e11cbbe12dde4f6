package s3

import (
	"fmt"
	"io"
)

var ErrReachLimitType *ReachLimitError

type ReachLimitError struct {
	MaxBytes int64
}

func (e *ReachLimitError) Error() string {
	return fmt.Sprintf("reach limit of %s", FormatBytes(e.MaxBytes))
}

// NewMaxSizeReader 包裝一個 reader 並限制可讀取的總長度，
// 超過限制時返回 ReachLimitError。
func NewMaxSizeReader(r io.Reader, maxSize int64) io.Reader {
	return &maxSizeReader{reader: r, limit: maxSize, remaining: maxSize}
}

type maxSizeReader struct {
	reader    io.Reader
	limit     int64 // 限制的總長度
	remaining int64 // 還可以讀取的長度
}

func (r *maxSizeReader) Read(p []byte) (n int, err error) {
	if len(p) == 0 {
		return 0, nil
	}
	// 最多只需要讀到剩餘額度再多一個位元組，
	// 就足以判斷內容是否超過限制
	if int64(len(p)) > r.remaining+1 {
		p = p[:r.remaining+1]
	}
	n, err = r.reader.Read(p)

	// 沒有超出剩餘額度，扣除後原樣返回
	if int64(n) <= r.remaining {
		r.remaining -= int64(n)
		return n, err
	}

	// 超出剩餘額度，只保留額度內的內容並回報超限錯誤
	n = int(r.remaining)
	r.remaining = 0
	return n, &ReachLimitError{r.limit}
}

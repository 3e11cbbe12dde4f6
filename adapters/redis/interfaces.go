//go:generate mockgen -package=redis -destination=mock.go -source=interfaces.go

package redis

// IJobConsumer 定義了 JobConsumer 的操作介面
type IJobConsumer[T any] interface {
	Start() error
	Subscribe() <-chan *Job[T]
	Close() error
}

// Package mq はメッセージブローカーに依存しないpublish/subscribeの抽象を提供する。
package mq

import "context"

// Message はサブスクライバーに配送されるブローカー非依存のメッセージ。
type Message struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// Handler はメッセージを処理する。エラーを返すと再配送の対象となる。
type Handler func(ctx context.Context, msg Message) error

// Backend はアプリケーションが使用するブローカー操作を定義する。
type Backend interface {
	// Publish は指定キューにメッセージを送信し、採番したメッセージIDを返す。
	Publish(ctx context.Context, queue string, data []byte, attrs map[string]string) (string, error)

	// Subscribe は指定キューのメッセージをctxがキャンセルされるまで処理し続ける。
	Subscribe(ctx context.Context, queue string, handler Handler) error

	Close() error
}

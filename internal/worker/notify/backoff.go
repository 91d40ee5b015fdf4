package notify

import "time"

const (
	// initialBackoff はブローカー再接続の初回待機時間。
	initialBackoff = time.Second
	// maxBackoff は再接続待機時間の上限。
	maxBackoff = time.Minute
)

// CalculateBackoff は連続失敗回数に基づいて再接続までの待機時間を計算する。
// 初回1秒、2倍ずつ増加、最大1分。
func CalculateBackoff(consecutiveFailures int) time.Duration {
	delay := initialBackoff
	for i := 0; i < consecutiveFailures; i++ {
		delay *= 2
		if delay > maxBackoff {
			return maxBackoff
		}
	}
	return delay
}

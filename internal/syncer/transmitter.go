package syncer

import (
	"context"

	"github.com/j1a5h3ng/attendance-app/internal/offline"
)

// Transmitter: リモート（勤怠の正系）への送信抽象。
// 実プロトコルはスコープ外なので、具体実装は差し替え前提。
type Transmitter interface {
	Send(ctx context.Context, a offline.Action) error
}

// StubTransmitter: バックエンド未接続時のモック。常に ACK を返す。
type StubTransmitter struct{}

func (StubTransmitter) Send(_ context.Context, _ offline.Action) error { return nil }

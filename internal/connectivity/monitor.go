package connectivity

import (
	"log"
	"sync"
)

// Monitor: 接続状態の保持。検知そのものはコアの外（クライアントの
// online/offline イベント）で行い、遷移だけをここに通知してもらう。
type Monitor struct {
	mu       sync.Mutex
	online   bool
	onOnline []func()
}

// NewMonitor: 初期状態はオンライン扱い
func NewMonitor() *Monitor {
	return &Monitor{online: true}
}

func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// OnOnline: offline→online 遷移時に走らせるフック（再同期トリガ等）
func (m *Monitor) OnOnline(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onOnline = append(m.onOnline, fn)
}

// SetOnline: 状態遷移。復帰時のみフックを発火する（同状態の再通知は無視）。
func (m *Monitor) SetOnline(online bool) {
	m.mu.Lock()
	changed := m.online != online
	m.online = online
	hooks := m.onOnline
	m.mu.Unlock()

	if !changed {
		return
	}
	if online {
		log.Printf("[INFO] connectivity: back online")
		for _, fn := range hooks {
			fn()
		}
	} else {
		log.Printf("[INFO] connectivity: offline")
	}
}

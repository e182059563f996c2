package run

import (
	"time"

	"github.com/John-Robertt/ticpath/internal/config"
	"github.com/John-Robertt/ticpath/internal/domain"
)

// Observer 用于把“运行进度/阶段”从核心执行流程中解耦出来。
//
// 约束：
// - run 包只负责发事件，不做任何输出（避免污染 stdout 的 JSON 契约）。
// - 事件在调用 ExecuteWithObserver 的 goroutine 上同步触发；若实现另有 ticker 等并发读者，需自行加锁。
type Observer interface {
	// OnStart 在 ExecuteWithObserver 开始时调用。
	OnStart(eff config.EffectiveConfig)
	// OnPhaseDone 在阶段结束时调用（mount/catalog/lookup/resolve/write）。
	OnPhaseDone(name string, fields map[string]any, dur time.Duration)
	// OnTableLoaded 在每张 lookup 表加载完成后调用（idx 从 1 开始）。
	OnTableLoaded(idx, total int, t domain.LookupTable, dur time.Duration)
	// OnProgress 在每个 ID 解析完成后调用（按星表分别计数，done 从 1 开始）。
	OnProgress(catalog string, done, total int)
}

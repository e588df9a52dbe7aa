package decision

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Builder 组装最终决策并维护有界滚动历史。
// 写入只发生在分析周期内，读取来自状态查询接口，用读写锁隔离。
type Builder struct {
	mu      sync.RWMutex
	history []FinalDecision
	limit   int
}

// NewBuilder limit 为历史容量上限，<=0 时取默认 200。
func NewBuilder(limit int) *Builder {
	if limit <= 0 {
		limit = 200
	}
	return &Builder{limit: limit}
}

// Build 复核模型提案并落入历史。
func (b *Builder) Build(raw RawModelDecision, ctx Context) FinalDecision {
	fd := Reconcile(raw, ctx)
	b.finish(&fd)
	return fd
}

// BuildSafeHold 上游失败时的兜底决策，同样进入历史。
func (b *Builder) BuildSafeHold(instrument, narrative string) FinalDecision {
	fd := SafeHold(instrument, narrative)
	b.finish(&fd)
	return fd
}

func (b *Builder) finish(fd *FinalDecision) {
	fd.ID = uuid.NewString()
	fd.CreatedAt = time.Now()

	b.mu.Lock()
	defer b.mu.Unlock()
	b.history = append(b.history, *fd)
	if len(b.history) > b.limit {
		b.history = b.history[len(b.history)-b.limit:]
	}
}

// Latest 最近一次决策。
func (b *Builder) Latest() (FinalDecision, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.history) == 0 {
		return FinalDecision{}, false
	}
	return b.history[len(b.history)-1], true
}

// HistoryFilter 历史查询条件。零值表示不过滤。
type HistoryFilter struct {
	Since       time.Time
	ExcludeHold bool
	Limit       int
}

// History 按条件返回历史副本，新→旧排序。
func (b *Builder) History(f HistoryFilter) []FinalDecision {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]FinalDecision, 0, len(b.history))
	for i := len(b.history) - 1; i >= 0; i-- {
		d := b.history[i]
		if !f.Since.IsZero() && d.CreatedAt.Before(f.Since) {
			continue
		}
		if f.ExcludeHold && d.Action == ActionHold {
			continue
		}
		out = append(out, d)
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out
}

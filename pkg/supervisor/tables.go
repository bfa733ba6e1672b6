package supervisor

import (
	"sync"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// SidecarTable 按注册顺序维护描述符集合
//
// 描述符只增不减。遍历返回快照，回调期间不持锁。
type SidecarTable struct {
	mu sync.RWMutex

	table *orderedmap.OrderedMap[string, *Sidecar]
}

func NewSidecarTable() *SidecarTable {
	return &SidecarTable{
		table: orderedmap.New[string, *Sidecar](),
	}
}

func (st *SidecarTable) Get(name string) (*Sidecar, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	return st.table.Get(name)
}

// Add 注册新描述符，重名时拒绝并返回 false
func (st *SidecarTable) Add(name string, sc *Sidecar) bool {
	st.mu.Lock()
	defer st.mu.Unlock()

	if _, ok := st.table.Get(name); ok {
		return false
	}

	st.table.Set(name, sc)

	return true
}

func (st *SidecarTable) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()

	return st.table.Len()
}

// All 返回注册顺序的描述符快照
func (st *SidecarTable) All() []*Sidecar {
	st.mu.RLock()
	defer st.mu.RUnlock()

	all := make([]*Sidecar, 0, st.table.Len())
	for pair := st.table.Oldest(); pair != nil; pair = pair.Next() {
		all = append(all, pair.Value)
	}

	return all
}

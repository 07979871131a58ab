package memory

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// Store 按会话ID保存文本对话，超过 ttl 未访问即过期
type Store struct {
	items    *cache.Cache
	ttl      time.Duration
	maxTurns int
}

// NewStore 创建对话存储
func NewStore(maxTurns int, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Store{
		items:    cache.New(ttl, ttl/2),
		ttl:      ttl,
		maxTurns: maxTurns,
	}
}

// GetOrCreate 获取或创建 id 对应的记录，并刷新过期时间
func (s *Store) GetOrCreate(id string) *Memory {
	if v, ok := s.items.Get(id); ok {
		m := v.(*Memory)
		s.items.Set(id, m, s.ttl)
		return m
	}
	m := New(s.maxTurns)
	if err := s.items.Add(id, m, s.ttl); err != nil {
		// 同一 id 的并发请求已先创建
		if v, ok := s.items.Get(id); ok {
			return v.(*Memory)
		}
		s.items.Set(id, m, s.ttl)
	}
	return m
}

// Get 获取记录，不刷新过期时间
func (s *Store) Get(id string) (*Memory, bool) {
	v, ok := s.items.Get(id)
	if !ok {
		return nil, false
	}
	return v.(*Memory), true
}

// Delete 删除记录
func (s *Store) Delete(id string) {
	s.items.Delete(id)
}

func (s *Store) Len() int {
	return s.items.ItemCount()
}

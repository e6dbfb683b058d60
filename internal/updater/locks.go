package updater

import (
	"path/filepath"
	"sync"
)

// pathLocks: 按解析后绝对路径的进程内互斥表；无引用的条目即时回收。
type pathLocks struct {
	mu sync.Mutex
	m  map[string]*pathLock
}

type pathLock struct {
	mu   sync.Mutex
	refs int
}

func newPathLocks() *pathLocks { return &pathLocks{m: make(map[string]*pathLock)} }

// lock 阻塞直到获得 path 的锁，返回解锁函数。
func (p *pathLocks) lock(path string) func() {
	key := lockKey(path)
	p.mu.Lock()
	l := p.m[key]
	if l == nil {
		l = &pathLock{}
		p.m[key] = l
	}
	l.refs++
	p.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		p.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(p.m, key)
		}
		p.mu.Unlock()
	}
}

func (p *pathLocks) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.m)
}

// lockKey: 符号链接别名归一到同一目标；文件不存在时退回绝对路径。
func lockKey(path string) string {
	if target, err := filepath.EvalSymlinks(path); err == nil {
		path = target
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

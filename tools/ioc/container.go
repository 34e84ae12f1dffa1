package ioc

import (
	"errors"
	"fmt"
	"sort"
)

// ConController 存放 sink 等底层控制器
var ConController Container = NewMapContainer("controller")

// Api 存放 HTTP 处理器，初始化时挂载路由
var Api Container = NewMapContainer("api")

type MapContainer struct {
	name    string
	storage map[string]Object
}

func NewMapContainer(name string) *MapContainer {
	return &MapContainer{
		name:    name,
		storage: make(map[string]Object),
	}
}

func (m *MapContainer) RegisterContainer(name string, obj Object) {
	m.storage[name] = obj
}

func (m *MapContainer) GetMapContainer(name string) any {
	obj, ok := m.storage[name]
	if !ok {
		return nil
	}
	return obj
}

// Init 按名称顺序初始化，保证启动日志稳定
func (m *MapContainer) Init() error {
	for _, name := range m.names() {
		if err := m.storage[name].Init(); err != nil {
			return fmt.Errorf("%s: init %s: %w", m.name, name, err)
		}
	}
	return nil
}

// Close 关闭所有实现了 Closer 的对象，返回合并后的错误
func (m *MapContainer) Close() error {
	var errs []error
	for _, name := range m.names() {
		if c, ok := m.storage[name].(Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("%s: close %s: %w", m.name, name, err))
			}
		}
	}
	return errors.Join(errs...)
}

func (m *MapContainer) names() []string {
	names := make([]string, 0, len(m.storage))
	for name := range m.storage {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

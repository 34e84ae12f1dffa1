package ioc

// Container 对象容器，各模块在 init() 中注册，main 中统一初始化
type Container interface {
	RegisterContainer(name string, obj Object)
	GetMapContainer(name string) any
	Init() error
	Close() error
}

// Object 可注册到容器中的对象
type Object interface {
	Init() error
}

// Closer 需要在进程退出前释放资源的对象
type Closer interface {
	Close() error
}
